// Package fields turns noisy label transcriptions into a fixed schema of
// mandatory label fields.
package fields

import "strings"

// NotFound marks a field that could not be recognized. Absence is a value,
// never an empty string.
const NotFound = "Not Found"

// Field keys, in label order.
const (
	KeyProduct      = "product"
	KeyManufacturer = "manufacturer"
	KeyAddress      = "address"
	KeyCommodity    = "commodity"
	KeyNetQuantity  = "net_quantity"
	KeyMRP          = "mrp"
	KeyDate         = "date"
	KeyConsumerCare = "consumer_care"
	KeyOrigin       = "origin"
	KeyRawText      = "raw_text"
)

// Keys lists the nine label fields (raw text excluded).
var Keys = []string{
	KeyProduct, KeyManufacturer, KeyAddress, KeyCommodity, KeyNetQuantity,
	KeyMRP, KeyDate, KeyConsumerCare, KeyOrigin,
}

// Fields is the extracted label record.
type Fields struct {
	Product      string `json:"product"`
	Manufacturer string `json:"manufacturer"`
	Address      string `json:"address"`
	Commodity    string `json:"commodity"`
	NetQuantity  string `json:"net_quantity"`
	MRP          string `json:"mrp"`
	Date         string `json:"date"`
	ConsumerCare string `json:"consumer_care"`
	Origin       string `json:"origin"`
	RawText      string `json:"raw_text"`
}

// Empty returns a record with every label field set to NotFound.
func Empty(raw string) Fields {
	return Fields{
		Product: NotFound, Manufacturer: NotFound, Address: NotFound, Commodity: NotFound,
		NetQuantity: NotFound, MRP: NotFound, Date: NotFound, ConsumerCare: NotFound, Origin: NotFound,
		RawText: raw,
	}
}

func (f *Fields) ptr(key string) *string {
	switch key {
	case KeyProduct:
		return &f.Product
	case KeyManufacturer:
		return &f.Manufacturer
	case KeyAddress:
		return &f.Address
	case KeyCommodity:
		return &f.Commodity
	case KeyNetQuantity:
		return &f.NetQuantity
	case KeyMRP:
		return &f.MRP
	case KeyDate:
		return &f.Date
	case KeyConsumerCare:
		return &f.ConsumerCare
	case KeyOrigin:
		return &f.Origin
	case KeyRawText:
		return &f.RawText
	}
	return nil
}

// Get returns the value for key, or NotFound for unknown keys.
func (f Fields) Get(key string) string {
	if p := f.ptr(key); p != nil {
		return *p
	}
	return NotFound
}

// Set assigns a label field; empty values are stored as NotFound.
func (f *Fields) Set(key, value string) {
	p := f.ptr(key)
	if p == nil {
		return
	}
	value = strings.TrimSpace(value)
	if value == "" && key != KeyRawText {
		value = NotFound
	}
	*p = value
}

// Map returns all ten entries keyed by their schema name.
func (f Fields) Map() map[string]string {
	m := make(map[string]string, len(Keys)+1)
	for _, k := range Keys {
		m[k] = f.Get(k)
	}
	m[KeyRawText] = f.RawText
	return m
}

// Present reports whether v holds a recognized value.
func Present(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != NotFound
}
