package ocr

import (
	"bytes"
	"fmt"
	"image"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// RawImage is an undecoded upload or capture plus its declared content type.
type RawImage struct {
	Data        []byte
	ContentType string
}

// SniffedType returns the declared content type, or the sniffed one when the
// declaration is missing or generic.
func (r RawImage) SniffedType() string {
	ct := strings.TrimSpace(strings.ToLower(r.ContentType))
	if ct == "" || ct == "application/octet-stream" {
		if len(r.Data) == 0 {
			return ""
		}
		n := len(r.Data)
		if n > 512 {
			n = 512
		}
		return http.DetectContentType(r.Data[:n])
	}
	return ct
}

// Ext maps the content type to a file extension for archiving.
func (r RawImage) Ext() string {
	ct := r.SniffedType()
	switch {
	case strings.Contains(ct, "png"):
		return ".png"
	case strings.Contains(ct, "gif"):
		return ".gif"
	case strings.Contains(ct, "webp"):
		return ".webp"
	case strings.Contains(ct, "bmp"):
		return ".bmp"
	case strings.Contains(ct, "tiff"):
		return ".tiff"
	}
	return ".jpg"
}

// DecodeImage decodes the raw bytes honouring EXIF orientation. Any failure,
// including an empty payload, is reported as ErrDecode.
func DecodeImage(raw RawImage) (image.Image, error) {
	if len(raw.Data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	img, err := imaging.Decode(bytes.NewReader(raw.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, raw.SniffedType(), err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrDecode, ErrEmptyImage)
	}
	return img, nil
}
