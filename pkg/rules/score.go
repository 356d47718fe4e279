package rules

import "labelcheck/pkg/fields"

// Row is one line of the compliance table.
type Row struct {
	Field   string `json:"field"`
	Label   string `json:"label"`
	Present bool   `json:"present"`
	Info    string `json:"info"`
}

var labels = map[string]string{
	fields.KeyProduct:      "Product Name",
	fields.KeyManufacturer: "Manufacturer / Packer / Importer",
	fields.KeyAddress:      "Address",
	fields.KeyCommodity:    "Commodity Name",
	fields.KeyNetQuantity:  "Net Quantity",
	fields.KeyMRP:          "MRP (₹)",
	fields.KeyDate:         "Date of Manufacture / Import",
	fields.KeyConsumerCare: "Consumer Care Details",
	fields.KeyOrigin:       "Country of Origin",
}

// Label returns the display label of a field key.
func Label(key string) string { return labels[key] }

// Score is the percentage of the nine label fields that were found, rounded down.
func Score(f fields.Fields) int {
	present := 0
	for _, k := range fields.Keys {
		if fields.Present(f.Get(k)) {
			present++
		}
	}
	return present * 100 / len(fields.Keys)
}

// Table lists every label field with its presence, in label order.
func Table(f fields.Fields) []Row {
	rows := make([]Row, 0, len(fields.Keys))
	for _, k := range fields.Keys {
		v := f.Get(k)
		rows = append(rows, Row{Field: k, Label: labels[k], Present: fields.Present(v), Info: v})
	}
	return rows
}
