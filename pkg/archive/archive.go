// Package archive stores uploaded and processed label images under a base
// directory, returning paths relative to it.
package archive

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
)

// MaxProcessedSide bounds the longer side of archived processed images.
const MaxProcessedSide = 3000

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName strips directories and replaces unsafe characters.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Trim(unsafeName.ReplaceAllString(name, "_"), "._")
	if name == "" {
		return "image"
	}
	return name
}

// Dir is an archive rooted at Base.
type Dir struct {
	Base string
}

// Abs resolves a relative archive path.
func (d Dir) Abs(rel string) string { return filepath.Join(d.Base, filepath.FromSlash(rel)) }

// SaveRaw writes data to <folder>/<name> and returns the slash-separated
// relative path.
func (d Dir) SaveRaw(folder, name string, data []byte) (string, error) {
	rel := pathJoin(folder, SanitizeName(name))
	full := d.Abs(rel)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	return rel, nil
}

// SaveProcessed stores img as processed/processed_<stem>.png, downscaled to
// MaxProcessedSide.
func (d Dir) SaveProcessed(sourceRel string, img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("no processed image")
	}
	stem := strings.TrimSuffix(filepath.Base(sourceRel), filepath.Ext(sourceRel))
	rel := pathJoin("processed", "processed_"+SanitizeName(stem)+".png")
	full := d.Abs(rel)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	b := img.Bounds()
	if b.Dx() > MaxProcessedSide || b.Dy() > MaxProcessedSide {
		img = imaging.Fit(img, MaxProcessedSide, MaxProcessedSide, imaging.Lanczos)
	}
	if err := imaging.Save(img, full); err != nil {
		return "", fmt.Errorf("save %s: %w", rel, err)
	}
	return rel, nil
}

func pathJoin(folder, name string) string {
	folder = strings.Trim(filepath.ToSlash(folder), "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}
