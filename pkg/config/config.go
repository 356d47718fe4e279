// Package config loads service and pipeline settings from defaults, an
// optional config.yaml and environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"labelcheck/pkg/catalog"
	"labelcheck/pkg/ocr"
)

// Config holds every recognized option. Environment variables use the upper
// case key, e.g. MATCH_ACCEPT_THRESHOLD.
type Config struct {
	DBDSN         string `mapstructure:"db_dsn"`
	DBAutoMigrate bool   `mapstructure:"db_auto_migrate"`
	AdminPassword string `mapstructure:"admin_password"`
	JWTSecret     string `mapstructure:"jwt_secret"`
	UploadBase    string `mapstructure:"upload_base"`
	Port          string `mapstructure:"port"`
	CatalogDir    string `mapstructure:"catalog_dir"`

	OCRPSM       string        `mapstructure:"ocr_psm"`
	OCRLanguages string        `mapstructure:"ocr_languages"`
	OCRTimeout   time.Duration `mapstructure:"ocr_timeout"`

	PreprocessUpscale         int     `mapstructure:"preprocess_upscale"`
	PreprocessDenoiseKernel   int     `mapstructure:"preprocess_denoise_kernel"`
	PreprocessContrastTile    int     `mapstructure:"preprocess_contrast_tile"`
	PreprocessClipLimit       float64 `mapstructure:"preprocess_clip_limit"`
	PreprocessThresholdWindow int     `mapstructure:"preprocess_threshold_window"`
	PreprocessThresholdBias   int     `mapstructure:"preprocess_threshold_bias"`
	PreprocessMinimal         bool    `mapstructure:"preprocess_minimal"`

	MatchAcceptThreshold float64 `mapstructure:"match_accept_threshold"`
	MatchMinRatio        float64 `mapstructure:"match_min_ratio"`
	MatchLimit           int     `mapstructure:"match_limit"`

	CaptureDir    string        `mapstructure:"capture_dir"`
	ProcessedDir  string        `mapstructure:"processed_dir"`
	Workers       int           `mapstructure:"workers"`
	SnapshotURL   string        `mapstructure:"snapshot_url"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
}

var defaults = map[string]any{
	"db_dsn":          "",
	"db_auto_migrate": true,
	"admin_password":  "admin123",
	"jwt_secret":      "dev-insecure-secret-change",
	"upload_base":     "uploads",
	"port":            "8081",
	"catalog_dir":     "data",

	"ocr_psm":       "single_block",
	"ocr_languages": "eng",
	"ocr_timeout":   "30s",

	"preprocess_upscale":          2,
	"preprocess_denoise_kernel":   3,
	"preprocess_contrast_tile":    8,
	"preprocess_clip_limit":       2.0,
	"preprocess_threshold_window": 31,
	"preprocess_threshold_bias":   10,
	"preprocess_minimal":          false,

	"match_accept_threshold": 0.90,
	"match_min_ratio":        0.50,
	"match_limit":            5,

	"capture_dir":    "captures",
	"processed_dir":  "captures/processed",
	"workers":        4,
	"snapshot_url":   "",
	"fetch_timeout":  "5s",
	"watch_debounce": "500ms",
}

// Load reads config.yaml from dir (if present) and the environment.
// An empty dir means the working directory.
func Load(dir string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	if dir == "" {
		dir = "."
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the pipeline cannot honour.
func (c Config) Validate() error {
	var errs []error
	if c.PreprocessUpscale < 2 {
		errs = append(errs, fmt.Errorf("preprocess_upscale must be >= 2, got %d", c.PreprocessUpscale))
	}
	if k := c.PreprocessDenoiseKernel; k != 0 && (k < 3 || k%2 == 0) {
		errs = append(errs, fmt.Errorf("preprocess_denoise_kernel must be 0 or odd >= 3, got %d", k))
	}
	if c.PreprocessContrastTile < 1 {
		errs = append(errs, fmt.Errorf("preprocess_contrast_tile must be >= 1, got %d", c.PreprocessContrastTile))
	}
	if w := c.PreprocessThresholdWindow; w < 3 || w%2 == 0 {
		errs = append(errs, fmt.Errorf("preprocess_threshold_window must be odd >= 3, got %d", w))
	}
	if t := c.MatchAcceptThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("match_accept_threshold must be within [0,1], got %v", t))
	}
	if t := c.MatchMinRatio; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("match_min_ratio must be within [0,1], got %v", t))
	}
	if c.MatchLimit < 1 {
		errs = append(errs, fmt.Errorf("match_limit must be >= 1, got %d", c.MatchLimit))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.Workers))
	}
	if _, err := ocr.ParsePageSegMode(c.OCRPSM); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Preprocess returns the preprocessing options.
func (c Config) Preprocess() ocr.PreprocessOptions {
	return ocr.PreprocessOptions{
		UpscaleFactor:   c.PreprocessUpscale,
		DenoiseKernel:   c.PreprocessDenoiseKernel,
		ContrastTile:    c.PreprocessContrastTile,
		ClipLimit:       c.PreprocessClipLimit,
		ThresholdWindow: c.PreprocessThresholdWindow,
		ThresholdBias:   c.PreprocessThresholdBias,
		Minimal:         c.PreprocessMinimal,
	}
}

// Match returns the catalog reconciliation options.
func (c Config) Match() catalog.MatchOptions {
	return catalog.MatchOptions{
		AcceptThreshold: c.MatchAcceptThreshold,
		MinRatio:        c.MatchMinRatio,
		Limit:           c.MatchLimit,
	}
}

// Languages splits OCRLanguages on "+" or ",".
func (c Config) Languages() []string {
	f := strings.FieldsFunc(c.OCRLanguages, func(r rune) bool { return r == '+' || r == ',' || r == ' ' })
	if len(f) == 0 {
		return []string{"eng"}
	}
	return f
}

// Recognizer builds the tesseract recognizer described by the config.
func (c Config) Recognizer() (*ocr.TesseractRecognizer, error) {
	mode, err := ocr.ParsePageSegMode(c.OCRPSM)
	if err != nil {
		return nil, err
	}
	return ocr.NewTesseractRecognizer(mode, c.Languages()...), nil
}
