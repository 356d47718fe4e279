// Package pipeline runs the label check end to end: decode, preprocess and
// recognize, extract fields, reconcile with the catalog, evaluate rules.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log"
	"strings"
	"time"

	"labelcheck/pkg/catalog"
	"labelcheck/pkg/fields"
	"labelcheck/pkg/ocr"
	"labelcheck/pkg/rules"
)

// Options configures a Pipeline.
type Options struct {
	Preprocess ocr.PreprocessOptions
	// OCRTimeout bounds each recognition attempt.
	OCRTimeout time.Duration
	Match      catalog.MatchOptions
	// Fields and Rules default to the built-in tables when nil.
	Fields fields.Table
	Rules  []rules.Rule
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{
		Preprocess: ocr.DefaultPreprocessOptions(),
		OCRTimeout: 30 * time.Second,
		Match:      catalog.DefaultMatchOptions(),
	}
}

// Pipeline is stateless apart from the read-only catalog and may be shared
// by concurrent callers.
type Pipeline struct {
	ocr     *ocr.Orchestrator
	catalog catalog.Store
	opts    Options
}

// New wires a recognizer and a catalog. A nil catalog disables reconciliation.
func New(rec ocr.Recognizer, cat catalog.Store, opts Options) *Pipeline {
	if opts.Fields == nil {
		opts.Fields = fields.DefaultTable()
	}
	if opts.Rules == nil {
		opts.Rules = rules.DefaultRules
	}
	return &Pipeline{
		ocr:     ocr.NewOrchestrator(rec, opts.Preprocess, opts.OCRTimeout),
		catalog: cat,
		opts:    opts,
	}
}

// Suggestion is a catalog entry with its percentage score.
type Suggestion struct {
	Product catalog.Entry `json:"product"`
	Score   float64       `json:"score"`
}

// Result is everything a caller gets back for one label.
type Result struct {
	Fields fields.Fields `json:"data"`
	rules.Verdict
	ComplianceScore int              `json:"compliance_score"`
	Table           []rules.Row      `json:"compliance_table"`
	Category        catalog.Category `json:"category,omitempty"`
	MatchedFromCSV  bool             `json:"matched_from_csv"`
	MatchScore      float64          `json:"match_score,omitempty"`
	MatchedProduct  *catalog.Entry   `json:"matched_product,omitempty"`
	Suggestions     []Suggestion     `json:"suggestions"`
	UsedFallback    bool             `json:"used_fallback"`
	// ProcessedImage is the image recognition actually ran on.
	ProcessedImage image.Image `json:"-"`
}

// Check decodes raw, recognizes its text and evaluates it. Decode and
// recognition failures are returned as errors wrapping ocr.ErrDecode and
// ocr.ErrRecognition.
func (p *Pipeline) Check(ctx context.Context, raw ocr.RawImage) (*Result, error) {
	img, err := ocr.DecodeImage(raw)
	if err != nil {
		return nil, err
	}
	rec, err := p.ocr.Recognize(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}
	log.Printf("OCR text (%d chars, fallback=%v): %s", len(rec.Text), rec.UsedFallback, ocr.Snippet(rec.Text, 120))
	res := p.CheckText(rec.Text)
	res.ProcessedImage = rec.Image
	res.UsedFallback = rec.UsedFallback
	return res, nil
}

// CheckText evaluates already recognized text. It never fails.
func (p *Pipeline) CheckText(text string) *Result {
	f := p.opts.Fields.Extract(text)
	res := &Result{Suggestions: []Suggestion{}}

	if p.catalog != nil {
		r := catalog.Reconcile(text, p.catalog, p.opts.Match)
		res.Category = r.Category
		for _, m := range r.Suggestions {
			res.Suggestions = append(res.Suggestions, Suggestion{Product: m.Entry, Score: m.Percent()})
		}
		if r.Confident {
			entry := r.Best.Entry
			if name := strings.TrimSpace(entry.Name); name != "" {
				f.Set(fields.KeyProduct, name)
			}
			if price := catalogPrice(entry.Price); price != "" {
				f.Set(fields.KeyMRP, price)
			}
			res.MatchedFromCSV = true
			res.MatchScore = r.Best.Percent()
			res.MatchedProduct = &entry
		}
	}

	res.Fields = f
	res.Verdict = rules.EvaluateRules(f, p.opts.Rules)
	res.ComplianceScore = rules.Score(f)
	res.Table = rules.Table(f)
	return res
}

// catalogPrice marks a bare numeric catalog price as rupees so it reads like
// a printed MRP.
func catalogPrice(price string) string {
	price = strings.TrimSpace(price)
	if price == "" {
		return ""
	}
	if c := price[0]; c >= '0' && c <= '9' {
		return "₹" + price
	}
	return price
}
