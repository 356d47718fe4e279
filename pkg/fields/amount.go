package fields

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	amountRE = regexp.MustCompile(`\d[\d,.]*`)
	centsRE  = regexp.MustCompile(`[.,]\d{2}$`)
)

// ParseAmount returns the whole-rupee amount of an MRP value such as
// "Rs. 1,299.00" or "₹499". A trailing two-digit decimal part is dropped.
func ParseAmount(mrp string) (int64, error) {
	if !Present(mrp) {
		return 0, fmt.Errorf("empty")
	}
	found := strings.TrimRight(amountRE.FindString(mrp), ".,")
	if found == "" {
		return 0, fmt.Errorf("no digits extracted from %q", mrp)
	}
	if centsRE.MatchString(found) {
		found = found[:len(found)-3]
	}
	digits := onlyDigits(found)
	if digits == "" {
		return 0, fmt.Errorf("no digits extracted from %q", mrp)
	}
	amt, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", digits, err)
	}
	return amt, nil
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
