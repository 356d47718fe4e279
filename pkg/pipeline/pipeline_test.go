package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"reflect"
	"testing"

	"github.com/disintegration/imaging"

	"labelcheck/pkg/catalog"
	"labelcheck/pkg/fields"
	"labelcheck/pkg/ocr"
	"labelcheck/pkg/rules"
)

func testCatalog() *catalog.Catalog {
	return catalog.New(map[catalog.Category][]catalog.Entry{
		catalog.Mobile: {
			{Name: "Samsung Galaxy S23", Details: "8GB 128GB", Price: "₹74,999"},
			{Name: "Apple iPhone 15 Pro Max", Details: "256GB Natural Titanium", Price: "159900"},
		},
		catalog.Protein: {
			{Name: "MuscleBlaze Whey Gold", Details: "2kg", Price: "₹6,199"},
		},
	})
}

func staticText(text string) ocr.Recognizer {
	return ocr.RecognizerFunc(func(ctx context.Context, img image.Image) (string, error) {
		return text, nil
	})
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, imaging.New(16, 12, color.NRGBA{255, 255, 255, 255})); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestCheckTextCompliantLabel(t *testing.T) {
	p := New(nil, nil, DefaultOptions())
	res := p.CheckText("Tea MRP Rs. 499 Net Quantity 500g MADE IN INDIA")
	if !res.Compliant || len(res.Issues) != 0 {
		t.Fatalf("expected compliant, got %+v", res.Verdict)
	}
	if res.Fields.MRP != "Rs. 499" || res.Fields.Origin != "INDIA" {
		t.Fatalf("unexpected fields %+v", res.Fields)
	}
	if res.MatchedFromCSV || res.Suggestions == nil || len(res.Suggestions) != 0 {
		t.Fatalf("no catalog: expected no match and empty suggestions")
	}
	if res.ComplianceScore != 33 || len(res.Table) != 9 {
		t.Fatalf("score %d rows %d", res.ComplianceScore, len(res.Table))
	}
}

func TestCheckTextMissingMRP(t *testing.T) {
	res := New(nil, nil, DefaultOptions()).CheckText("Net Quantity 1 kg MADE IN INDIA")
	if res.Fields.MRP != fields.NotFound || res.Compliant {
		t.Fatalf("expected missing MRP, got %+v", res.Verdict)
	}
	if !reflect.DeepEqual(res.Issues, []string{rules.IssueMissingMRP}) {
		t.Fatalf("issues: %v", res.Issues)
	}
}

func TestCheckTextConfidentMatchOverwrites(t *testing.T) {
	p := New(nil, testCatalog(), DefaultOptions())
	res := p.CheckText("Apple iPhone 15 Pro")
	if !res.MatchedFromCSV || res.MatchScore < 90 {
		t.Fatalf("expected confident match, got matched=%v score=%v", res.MatchedFromCSV, res.MatchScore)
	}
	if res.Category != catalog.Mobile {
		t.Fatalf("category: %q", res.Category)
	}
	if res.Fields.Product != "Apple iPhone 15 Pro Max" || res.Fields.MRP != "₹159900" {
		t.Fatalf("fields not overwritten: %+v", res.Fields)
	}
	if res.MatchedProduct == nil || res.MatchedProduct.ID != 1 {
		t.Fatalf("matched product: %+v", res.MatchedProduct)
	}
	want := []string{rules.IssueMissingOrigin, rules.IssueMissingNetQty}
	if !reflect.DeepEqual(res.Issues, want) {
		t.Fatalf("rules should run on merged fields, issues %v", res.Issues)
	}
	if len(res.Suggestions) == 0 || res.Suggestions[0].Product.Name != "Apple iPhone 15 Pro Max" {
		t.Fatalf("suggestions: %+v", res.Suggestions)
	}
}

func TestCheckTextWeakMatchKeepsFields(t *testing.T) {
	res := New(nil, testCatalog(), DefaultOptions()).CheckText("MRP ₹ 50 Net Quantity 200 ml MADE IN INDIA")
	if res.MatchedFromCSV || res.MatchedProduct != nil {
		t.Fatalf("unexpected match %+v", res.MatchedProduct)
	}
	if res.Fields.MRP != "₹ 50" || res.Fields.Product != fields.NotFound {
		t.Fatalf("fields changed: %+v", res.Fields)
	}
}

func TestCheckImage(t *testing.T) {
	p := New(staticText("MRP ₹ 20\nNet Quantity 100 g\nMADE IN INDIA"), testCatalog(), DefaultOptions())
	res, err := p.Check(context.Background(), ocr.RawImage{Data: pngBytes(t), ContentType: "image/png"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.Compliant || res.ProcessedImage == nil || res.UsedFallback {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.ProcessedImage.Bounds().Dx() != 32 {
		t.Fatalf("expected the preprocessed image, got %v", res.ProcessedImage.Bounds())
	}
}

func TestCheckErrors(t *testing.T) {
	p := New(staticText("x"), nil, DefaultOptions())
	if _, err := p.Check(context.Background(), ocr.RawImage{Data: []byte("nope")}); !errors.Is(err, ocr.ErrDecode) {
		t.Fatalf("expected ErrDecode got %v", err)
	}
	failing := ocr.RecognizerFunc(func(ctx context.Context, img image.Image) (string, error) {
		return "", errors.New("tesseract missing")
	})
	p = New(failing, nil, DefaultOptions())
	if _, err := p.Check(context.Background(), ocr.RawImage{Data: pngBytes(t)}); !errors.Is(err, ocr.ErrRecognition) {
		t.Fatalf("expected ErrRecognition got %v", err)
	}
}
