package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Recognizer is the external text-recognition capability.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// RecognizerFunc adapts a plain function to Recognizer.
type RecognizerFunc func(ctx context.Context, img image.Image) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, img image.Image) (string, error) {
	return f(ctx, img)
}

var pageSegModes = map[string]gosseract.PageSegMode{
	"auto":          gosseract.PSM_AUTO,
	"single_column": gosseract.PSM_SINGLE_COLUMN,
	"single_block":  gosseract.PSM_SINGLE_BLOCK,
	"sparse":        gosseract.PSM_SPARSE_TEXT,
	"sparse_osd":    gosseract.PSM_SPARSE_TEXT_OSD,
	"single_line":   gosseract.PSM_SINGLE_LINE,
}

// ParsePageSegMode maps a configured segmentation name (or tesseract psm number)
// to a gosseract mode. Single-word and single-char modes are rejected: label text is dense.
func ParsePageSegMode(name string) (gosseract.PageSegMode, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return gosseract.PSM_SINGLE_BLOCK, nil
	}
	if m, ok := pageSegModes[key]; ok {
		return m, nil
	}
	for _, m := range pageSegModes {
		if fmt.Sprint(int(m)) == key {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unsupported page segmentation mode %q", name)
}

// TesseractRecognizer runs tesseract through gosseract. A fresh client is
// created per call, so one recognizer may serve concurrent requests.
type TesseractRecognizer struct {
	Languages   []string
	PageSegMode gosseract.PageSegMode
	Whitelist   string

	clientFactory func() *gosseract.Client
}

// NewTesseractRecognizer constructs a recognizer for dense label text.
func NewTesseractRecognizer(mode gosseract.PageSegMode, langs ...string) *TesseractRecognizer {
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	return &TesseractRecognizer{
		Languages:     langs,
		PageSegMode:   mode,
		clientFactory: gosseract.NewClient,
	}
}

// Recognize encodes img as PNG and transcribes it. The tesseract call itself
// cannot be interrupted; on ctx expiry the result is abandoned.
func (t *TesseractRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := t.recognizeBytes(buf.Bytes())
		done <- result{text, err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}

func (t *TesseractRecognizer) recognizeBytes(data []byte) (string, error) {
	factory := t.clientFactory
	if factory == nil {
		factory = gosseract.NewClient
	}
	c := factory()
	defer c.Close()
	if len(t.Languages) > 0 {
		if err := c.SetLanguage(t.Languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetPageSegMode(t.PageSegMode); err != nil {
		return "", fmt.Errorf("set psm: %w", err)
	}
	if t.Whitelist != "" {
		if err := c.SetWhitelist(t.Whitelist); err != nil {
			return "", fmt.Errorf("set whitelist: %w", err)
		}
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
