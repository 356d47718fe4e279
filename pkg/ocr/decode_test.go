package ocr

import (
	"bytes"
	"errors"
	"image/png"
	"testing"
)

func TestDecodeImage(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, label(12, 8)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	raw := RawImage{Data: buf.Bytes()}
	img, err := DecodeImage(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 8 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	if raw.SniffedType() != "image/png" || raw.Ext() != ".png" {
		t.Fatalf("sniff: %q ext %q", raw.SniffedType(), raw.Ext())
	}
}

func TestDecodeImageFailures(t *testing.T) {
	for _, raw := range []RawImage{
		{},
		{Data: []byte("definitely not an image"), ContentType: "image/jpeg"},
		{Data: []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0}},
	} {
		if _, err := DecodeImage(raw); !errors.Is(err, ErrDecode) {
			t.Fatalf("expected ErrDecode for %q, got %v", raw.Data, err)
		}
	}
}

func TestExtFallsBackToJPEG(t *testing.T) {
	if ext := (RawImage{ContentType: "image/jpeg"}).Ext(); ext != ".jpg" {
		t.Fatalf("jpeg: %q", ext)
	}
	if ext := (RawImage{}).Ext(); ext != ".jpg" {
		t.Fatalf("unknown: %q", ext)
	}
}
