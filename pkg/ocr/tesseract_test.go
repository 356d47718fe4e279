package ocr

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func TestTesseractRecognizeLabel(t *testing.T) {
	ensureTesseractAvailable(t)

	img := image.NewRGBA(image.Rect(0, 0, 240, 60))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 35),
	}
	d.DrawString("MADE IN INDIA")
	big := imaging.Resize(img, 720, 180, imaging.NearestNeighbor)

	mode, err := ParsePageSegMode("single_block")
	if err != nil {
		t.Fatalf("psm: %v", err)
	}
	o := NewOrchestrator(NewTesseractRecognizer(mode), DefaultPreprocessOptions(), 30*time.Second)
	rec, err := o.Recognize(context.Background(), big)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if !strings.Contains(strings.ToUpper(rec.Text), "INDIA") {
		t.Fatalf("unexpected OCR output: %q", rec.Text)
	}
}
