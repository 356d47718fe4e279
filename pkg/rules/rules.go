// Package rules evaluates label presence and format rules over extracted fields.
package rules

import (
	"regexp"
	"strings"

	"labelcheck/pkg/fields"
)

// Issue strings reported by DefaultRules.
const (
	IssueMissingMRP    = "Missing MRP"
	IssueMissingOrigin = "Missing country of origin"
	IssueMissingNetQty = "Missing net quantity"
	IssueInvalidUnit   = "Net quantity unit may be missing or invalid"
	IssueInvalidMRP    = "MRP format invalid"
)

// Rule is an independent predicate over extracted fields. Check returns the
// issue to report, or "" when the rule passes.
type Rule struct {
	Name  string
	Check func(f fields.Fields) string
}

// Verdict is the outcome of evaluating every rule.
type Verdict struct {
	Compliant bool     `json:"is_compliant"`
	Issues    []string `json:"issues"`
}

var (
	// a unit token bounded by non-letters, so "500g" and "1.5 L" pass
	unitRE = regexp.MustCompile(`(?:^|[^a-z])(?:ml|l|g|kg|pcs|piece|tablet|capsule|pack)(?:$|[^a-z])`)
	// currency marker directly followed by a digit
	mrpRE = regexp.MustCompile(`(?:₹|rs\.?\s?)\s?\d`)
)

func missing(key, issue string) func(fields.Fields) string {
	return func(f fields.Fields) string {
		if fields.Present(f.Get(key)) {
			return ""
		}
		return issue
	}
}

// DefaultRules is the regulatory rule set in reporting order.
var DefaultRules = []Rule{
	{Name: "missing_mrp", Check: missing(fields.KeyMRP, IssueMissingMRP)},
	{Name: "missing_origin", Check: missing(fields.KeyOrigin, IssueMissingOrigin)},
	{Name: "missing_net_quantity", Check: missing(fields.KeyNetQuantity, IssueMissingNetQty)},
	{Name: "net_quantity_unit", Check: func(f fields.Fields) string {
		if !fields.Present(f.NetQuantity) || unitRE.MatchString(strings.ToLower(f.NetQuantity)) {
			return ""
		}
		return IssueInvalidUnit
	}},
	{Name: "mrp_format", Check: func(f fields.Fields) string {
		if !fields.Present(f.MRP) || mrpRE.MatchString(strings.ToLower(f.MRP)) {
			return ""
		}
		return IssueInvalidMRP
	}},
}

// Evaluate runs DefaultRules.
func Evaluate(f fields.Fields) Verdict { return EvaluateRules(f, DefaultRules) }

// EvaluateRules runs every rule in order without short-circuiting.
// Compliant is true iff no issue was reported.
func EvaluateRules(f fields.Fields, rs []Rule) Verdict {
	issues := []string{}
	for _, r := range rs {
		if r.Check == nil {
			continue
		}
		if issue := r.Check(f); issue != "" {
			issues = append(issues, issue)
		}
	}
	return Verdict{Compliant: len(issues) == 0, Issues: issues}
}

// Summary joins the issues the way violation records store them.
func (v Verdict) Summary() string { return strings.Join(v.Issues, "; ") }
