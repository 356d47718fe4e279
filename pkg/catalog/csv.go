package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// column aliases seen across the category exports
var columnAliases = map[string][]string{
	"name":    {"name", "product name", "product", "title"},
	"details": {"details", "description"},
	"price":   {"price", "mrp"},
	"image":   {"image_url", "image", "img"},
}

// ReadCSV parses one category export with a header row.
func ReadCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for field, aliases := range columnAliases {
			if _, ok := idx[field]; ok {
				continue
			}
			for _, a := range aliases {
				if h == a {
					idx[field] = i
					break
				}
			}
		}
	}
	get := func(rec []string, field string) string {
		i, ok := idx[field]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	var out []Entry
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read row %d: %w", len(out)+1, err)
		}
		e := Entry{
			Name:    get(rec, "name"),
			Details: get(rec, "details"),
			Price:   get(rec, "price"),
			Image:   get(rec, "image"),
		}
		if e.Name == "" && e.Details == "" {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// LoadCSVDir loads <dir>/laptop.csv, mobile.csv and protein.csv. A missing
// file yields an empty category with a warning, like a fresh deployment.
func LoadCSVDir(dir string) (*Catalog, error) {
	entries := make(map[Category][]Entry, len(Categories))
	for _, cat := range Categories {
		path := filepath.Join(dir, string(cat)+".csv")
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("WARN catalog file %s not found", path)
			continue
		}
		if err != nil {
			return nil, err
		}
		list, err := ReadCSV(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		entries[cat] = list
	}
	c := New(entries)
	log.Printf("CATALOG loaded %d entries from %s", c.Len(), dir)
	return c, nil
}
