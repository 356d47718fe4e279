// Package catalog holds the static reference product list and the fuzzy
// matcher that reconciles recognized label text against it.
package catalog

import (
	"fmt"
	"strings"
)

// Category partitions the catalog.
type Category string

const (
	None    Category = ""
	Mobile  Category = "mobile"
	Laptop  Category = "laptop"
	Protein Category = "protein"
)

// Categories lists the categories in catalog order (the order of All).
var Categories = []Category{Laptop, Mobile, Protein}

// ParseCategory maps a request value to a Category. Unknown values map to None.
func ParseCategory(s string) Category {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case Mobile, Laptop, Protein:
		return c
	}
	return None
}

// Entry is one reference product. ID is its position within its category list.
type Entry struct {
	ID       int      `json:"id"`
	Category Category `json:"category"`
	Name     string   `json:"name"`
	Details  string   `json:"details"`
	Price    string   `json:"price"`
	Image    string   `json:"image,omitempty"`
}

// Store is the read-only catalog capability the matcher depends on.
// Entries(None) returns the full catalog.
type Store interface {
	Entries(c Category) []Entry
	All() []Entry
}

// Catalog is immutable after New; concurrent reads need no locking.
type Catalog struct {
	byCat map[Category][]Entry
	all   []Entry
}

// New builds a catalog, assigning positional ids per category.
func New(entries map[Category][]Entry) *Catalog {
	c := &Catalog{byCat: make(map[Category][]Entry, len(Categories))}
	for _, cat := range Categories {
		src := entries[cat]
		list := make([]Entry, len(src))
		for i, e := range src {
			e.ID = i
			e.Category = cat
			list[i] = e
		}
		c.byCat[cat] = list
		c.all = append(c.all, list...)
	}
	return c
}

// Entries returns a copy of one category's list, or the full catalog for None.
func (c *Catalog) Entries(cat Category) []Entry {
	if cat == None {
		return c.All()
	}
	return append([]Entry(nil), c.byCat[cat]...)
}

// All returns laptop, mobile and protein entries in that order.
func (c *Catalog) All() []Entry {
	return append([]Entry(nil), c.all...)
}

// Len is the total number of entries.
func (c *Catalog) Len() int { return len(c.all) }

// Entry returns the entry at index idx of the given category list.
func (c *Catalog) Entry(cat Category, idx int) (Entry, error) {
	list := c.all
	if cat != None {
		list = c.byCat[cat]
	}
	if idx < 0 || idx >= len(list) {
		return Entry{}, fmt.Errorf("%w: %s/%d", ErrNotFound, cat, idx)
	}
	return list[idx], nil
}

// Search returns entries whose name contains term, case-insensitively.
// An empty term yields no results.
func (c *Catalog) Search(term string, cat Category) []Entry {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	var out []Entry
	for _, e := range c.Entries(cat) {
		if strings.Contains(strings.ToLower(e.Name), term) {
			out = append(out, e)
		}
	}
	return out
}
