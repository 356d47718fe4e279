package fields

import (
	"regexp"
	"strings"
)

// Pattern is one extraction strategy for a field. When Literal is set a match
// yields Literal instead of the captured group.
type Pattern struct {
	Re      *regexp.Regexp
	Group   int
	Literal string
}

// Table maps a field key to its candidate patterns, most specific first.
// Adding a label layout variant is a table edit.
type Table map[string][]Pattern

func p(expr string) Pattern { return Pattern{Re: regexp.MustCompile(expr), Group: 1} }

// common OCR spellings of label boilerplate
const (
	commodityAnchor = `(?i)Name\s*o[ft]\s*Comm(?:odity|odlty|aiy|ody)`
	monthYearAnchor = `(?i)[mh]onth\s*and\s*[yvw]ear\s*of\s*manufacture`
	careAnchor      = `(?i)(?:Cus?tomer|Consumer)\s*Care`
	mrpAnchor       = `\bM\.?\s?R\.?\s?P(?:\.|\b)`
)

var defaultTable = Table{
	KeyProduct: {
		p(commodityAnchor + `[-:. \t]*([A-Za-z0-9\- ]+)`),
		p(`\|\s*([A-Za-z0-9\- ]+?)\s*\|`),
		p(`(?i)Product(?:\s*Name)?[ \t]*[:\-][ \t]*([A-Za-z0-9\- ]+)`),
	},
	KeyManufacturer: {
		p(`(?i)Manufactured\s*(?:&\s*Marketed\s*)?by\s*[:\-]?\s*([A-Za-z0-9&\-\. ]+)`),
		p(`(?i)Manufactured\s*\]+\s*([A-Za-z0-9&\-\. ]+)`),
		p(`(?i)Mfd\.?\s*by\s*[:\-]?\s*([A-Za-z0-9&\-\. ]+)`),
		p(`(?i)Marketed\s*by\s*[:\-]?\s*([A-Za-z0-9&\-\. ]+)`),
		p(`(?i)Packed\s*by\s*[:\-]?\s*([A-Za-z0-9&\-\. ]+)`),
		p(`(?i)Imported\s*by\s*[:\-]?\s*([A-Za-z0-9&\-\. ]+)`),
	},
	KeyAddress: {
		p(`(?i)Address[ \t]*[:\-][ \t]*([A-Za-z0-9\-,\./ ]+)`),
		p(`(?i)Manufactured[^,;\n]*[,;]\s*([A-Za-z0-9\-,\./ ]+)`),
		p(`(?i)(?:Marketed|Packed|Imported)\s*by[^,;\n]*[,;]\s*([A-Za-z0-9\-,\./ ]+)`),
	},
	KeyCommodity: {
		p(commodityAnchor + `[-:. \t]*([A-Za-z0-9\- ]+)`),
		p(`(?i)\bCommodity[ \t]*[:\-][ \t]*([A-Za-z0-9\- ]+)`),
	},
	KeyNetQuantity: {
		p(`(?i)Net\s*Quant(?:[il1]ty|iy|ty)\s*[:=\-]?\s*(\d+(?:[.,]\d+)?[A-Za-z]*(?:[ \t]+(?:ml|kg|gm?|l|pcs|pieces?|tablets?|capsules?|packs?)\b)?)`),
		p(`(?i)Net\s*Quant\w*\s*[:=\-]*\s*([A-Za-z0-9\-\. ]+)`),
		p(`(?i)Net\s*(?:Qty|Wt|Weight|Content)\.?\s*[:=\-]*\s*([A-Za-z0-9\-\. ]+)`),
	},
	KeyMRP: {
		p(mrpAnchor + `[^\n]*?(₹\s?\d[\d,]*(?:\.\d{1,2})?)`),
		p(mrpAnchor + `[^\n]*?(\bRs\.?\s?\d[\d,]*(?:\.\d{1,2})?)`),
		p(mrpAnchor + `[^\n]*?(\d[\d,]*(?:\.\d{1,2})?)`),
	},
	KeyDate: {
		p(monthYearAnchor + `\s*[\[(]\s*([^\])\n]+?)\s*[\])]`),
		p(monthYearAnchor + `\s*[.:\-]*\s*([A-Za-z0-9/\- ]+)`),
		p(`(?i)Date\s*of\s*(?:Manufacture|Mfg|Packing|Import)\s*[.:\-]*\s*([A-Za-z0-9/\- ]+)`),
		p(`(?i)(?:Mfg|Mfd)\.?\s*(?:Date|Dt)\.?\s*[:\-]*\s*([A-Za-z0-9/\- ]+)`),
	},
	KeyConsumerCare: {
		{Re: regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
		p(careAnchor + `(?:\s*(?:Details|Number|No|Helpline))?\.?\s*[:\-]*\s*([A-Za-z0-9+\- ]+)`),
		p(careAnchor + `[^\n]*?(\+?\d[\d \-]*\d)`),
	},
	KeyOrigin: {
		p(`(?i)Country\s*of\s*Origin\s*[:\-]*\s*([A-Za-z]+)`),
		p(`(?i)\bMADE\s*IN\s*([A-Za-z]+)`),
		// Known misread of "INDIA" on one label font. Keep it to this exact string.
		{Re: regexp.MustCompile(`(?i)\bBINDIAG\b`), Literal: "INDIA"},
	},
}

// DefaultTable returns a copy of the built-in pattern table.
func DefaultTable() Table {
	t := make(Table, len(defaultTable))
	for k, v := range defaultTable {
		t[k] = append([]Pattern(nil), v...)
	}
	return t
}

// Extract applies the built-in table to text.
func Extract(text string) Fields { return defaultTable.Extract(text) }

// Extract returns a total record: every key the table does not resolve is NotFound.
func (t Table) Extract(text string) Fields {
	f := Empty(text)
	for _, key := range Keys {
		for _, pat := range t[key] {
			if v, ok := pat.find(text); ok {
				f.Set(key, v)
				break
			}
		}
	}
	return f
}

func (pat Pattern) find(text string) (string, bool) {
	if pat.Re == nil {
		return "", false
	}
	m := pat.Re.FindStringSubmatch(text)
	if m == nil || pat.Group >= len(m) {
		return "", false
	}
	v := pat.Literal
	if v == "" {
		v = trimValue(m[pat.Group])
	}
	return v, v != ""
}

func trimValue(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), " \t-,:;|")
}
