package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"labelcheck/models"
	"labelcheck/pkg/pipeline"
)

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(""); !errors.Is(err, ErrNoDSN) {
		t.Fatalf("expected ErrNoDSN got %v", err)
	}
}

func TestSourceDefaultsToUpload(t *testing.T) {
	if got := (Source{}).scan().Source; got != models.SourceUpload {
		t.Fatalf("expected %q got %q", models.SourceUpload, got)
	}
}

// openTestStore is opt-in like the server integration tests.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	s, err := Open(os.Getenv("DB_DSN"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestSaveResultAndListChecks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := pipeline.New(nil, nil, pipeline.DefaultOptions())

	bad := p.CheckText("Net Quantity 500xyz")
	scan, err := s.SaveResult(ctx, bad, Source{Kind: models.SourceText})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if scan.ID == 0 || len(scan.Violations) != 1 || scan.Violations[0].Severity != models.SeverityHigh {
		t.Fatalf("unexpected scan %+v", scan)
	}

	good := p.CheckText("MRP Rs. 1,299.00 Net Quantity 1 kg MADE IN INDIA")
	ok, err := s.SaveResult(ctx, good, Source{Kind: models.SourceText})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(ok.Violations) != 0 || ok.MRPAmount == nil || *ok.MRPAmount != 1299 {
		t.Fatalf("unexpected compliant scan %+v", ok)
	}

	checks, err := s.ListChecks(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(checks) == 0 || checks[0].ScanID != scan.ID || checks[0].Issue != bad.Summary() {
		t.Fatalf("newest violation should come first: %+v", checks)
	}

	loaded, err := s.GetScan(ctx, scan.ID)
	if err != nil || len(loaded.Violations) != 1 {
		t.Fatalf("get scan: %+v err=%v", loaded, err)
	}
}

func TestScannedFilesAndStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.Now().Add(-time.Second)
	name := fmt.Sprintf("folder_%d.png", time.Now().UnixNano())
	p := pipeline.New(nil, nil, pipeline.DefaultOptions())

	if _, err := s.SaveResult(ctx, p.CheckText("MRP Rs. 99 Net Quantity 1 kg MADE IN INDIA"), Source{Kind: models.SourceFolder, FileName: name}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.SaveFailure(ctx, Source{Kind: models.SourceFolder, FileName: "broken_" + name}, errors.New("image decode failed")); err != nil {
		t.Fatalf("save failure: %v", err)
	}

	seen, err := s.ScannedFiles(ctx, models.SourceFolder)
	if err != nil {
		t.Fatalf("scanned files: %v", err)
	}
	if !seen[name] || !seen["broken_"+name] {
		t.Fatalf("expected both files recorded, got %d names", len(seen))
	}

	st, err := s.ComplianceStats(ctx, start, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total < 2 || st.Compliant < 1 || st.Failed < 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestResolveFailure(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	failed, err := s.SaveFailure(ctx, Source{Kind: models.SourceUpload, FileName: "blurry.jpg"}, errors.New("text recognition failed"))
	if err != nil {
		t.Fatalf("save failure: %v", err)
	}
	list, err := s.FailedScans(ctx, 0)
	if err != nil || len(list) == 0 {
		t.Fatalf("failed scans: %v err=%v", list, err)
	}

	res := pipeline.New(nil, nil, pipeline.DefaultOptions()).CheckText("MRP Rs. 99 Net Quantity 1 kg")
	scan, err := s.ResolveFailure(ctx, failed.ID, res)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if scan.Failed || scan.FailedReason != "" || scan.MRP != "Rs. 99" || len(scan.Violations) != 1 {
		t.Fatalf("unexpected resolved scan %+v", scan)
	}
	if _, err := s.ResolveFailure(ctx, failed.ID, res); err == nil {
		t.Fatalf("resolving twice should fail")
	}
}

func TestApplyResultClearsAmount(t *testing.T) {
	p := pipeline.New(nil, nil, pipeline.DefaultOptions())
	amt := int64(5)
	scan := models.Scan{MRPAmount: &amt}
	applyResult(&scan, p.CheckText("Net Quantity 1 kg"))
	if scan.MRPAmount != nil || scan.MRP != "Not Found" || scan.Compliant {
		t.Fatalf("unexpected scan %+v", scan)
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	msg := strings.Repeat("a", 254) + "₹120"
	got := truncate(msg, 255)
	if len(got) != 254 || !utf8.ValidString(got) {
		t.Fatalf("got %d bytes, valid=%v", len(got), utf8.ValidString(got))
	}
	if got := truncate("short", 255); got != "short" {
		t.Fatalf("short message changed: %q", got)
	}
	if got := truncate(strings.Repeat("é", 200), 255); len(got) != 254 || !utf8.ValidString(got) {
		t.Fatalf("two-byte runes: got %d bytes", len(got))
	}
}
