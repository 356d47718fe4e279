package catalog

import "strings"

// Keywords is one row of the category classifier.
type Keywords struct {
	Category Category
	Words    []string
}

// DefaultKeywords is evaluated top to bottom; the first row with a hit wins.
var DefaultKeywords = []Keywords{
	{Mobile, []string{"iphone", "samsung", "galaxy", "pixel", "oneplus", "realme", "redmi", "mi", "oppo", "vivo", "motorola", "5g", "android"}},
	{Laptop, []string{"laptop", "notebook", "macbook", "thinkpad", "ideapad", "pavilion", "inspiron", "ryzen", "intel", "i5", "i7", "ssd", "ram", "graphics"}},
	{Protein, []string{"protein", "whey", "isolate", "casein", "supplement", "gainer", "scoop", "bcaa", "serving"}},
}

// shortWord is the longest keyword that must match a whole token.
const shortWord = 3

// GuessCategory classifies text with DefaultKeywords.
func GuessCategory(text string) Category { return Classify(text, DefaultKeywords) }

// Classify returns the first category whose keywords occur in the normalized
// text, or None. Keywords of up to three characters ("mi", "i5", "ram") must
// be a whole token; longer ones may occur inside a token ("iphone15").
func Classify(text string, rows []Keywords) Category {
	norm := Normalize(text)
	if norm == "" {
		return None
	}
	tokens := make(map[string]bool)
	for _, t := range strings.Fields(norm) {
		tokens[t] = true
	}
	for _, row := range rows {
		for _, w := range row.Words {
			if len(w) <= shortWord {
				if tokens[w] {
					return row.Category
				}
				continue
			}
			if strings.Contains(norm, w) {
				return row.Category
			}
		}
	}
	return None
}
