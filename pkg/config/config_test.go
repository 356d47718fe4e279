package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Port != "8081" || c.OCRTimeout != 30*time.Second || c.FetchTimeout != 5*time.Second {
		t.Fatalf("unexpected defaults %+v", c)
	}
	m := c.Match()
	if m.AcceptThreshold != 0.90 || m.MinRatio != 0.50 || m.Limit != 5 {
		t.Fatalf("unexpected match defaults %+v", m)
	}
	p := c.Preprocess()
	if p.UpscaleFactor != 2 || p.DenoiseKernel != 3 || p.ContrastTile != 8 || p.ThresholdWindow != 31 {
		t.Fatalf("unexpected preprocess defaults %+v", p)
	}
	if r, err := c.Recognizer(); err != nil || int(r.PageSegMode) != 6 || r.Languages[0] != "eng" {
		t.Fatalf("recognizer: %+v err=%v", r, err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "match_limit: 3\nmatch_min_ratio: 0.6\nocr_languages: eng+hin\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("MATCH_LIMIT", "7")
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.MatchLimit != 7 || c.MatchMinRatio != 0.6 {
		t.Fatalf("expected env limit 7 and file ratio 0.6, got %d %v", c.MatchLimit, c.MatchMinRatio)
	}
	if got := c.Languages(); len(got) != 2 || got[1] != "hin" {
		t.Fatalf("languages: %v", got)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("PREPROCESS_UPSCALE", "1")
	t.Setenv("PREPROCESS_THRESHOLD_WINDOW", "30")
	t.Setenv("MATCH_ACCEPT_THRESHOLD", "1.5")
	t.Setenv("OCR_PSM", "single_word")
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"preprocess_upscale", "preprocess_threshold_window", "match_accept_threshold", "single_word"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error should mention %s: %v", want, err)
		}
	}
}
