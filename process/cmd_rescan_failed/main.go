package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"labelcheck/models"
	"labelcheck/pkg/archive"
	"labelcheck/pkg/catalog"
	"labelcheck/pkg/config"
	"labelcheck/pkg/ocr"
	"labelcheck/pkg/pipeline"
	"labelcheck/pkg/store"
)

// Re-checks scans recorded as failed, using the other preprocessing chain
// than the one configured.
func main() {
	limit := flag.Int("limit", 0, "maximum scans to retry (0 = all)")
	dry := flag.Bool("dry-run", true, "dry-run: don't write to DB")
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	st, err := store.Open(cfg.DBDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	products, err := catalog.LoadCSVDir(cfg.CatalogDir)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	rec, err := cfg.Recognizer()
	if err != nil {
		log.Fatalf("recognizer: %v", err)
	}
	pre := cfg.Preprocess()
	pre.Minimal = !pre.Minimal
	checker := pipeline.New(rec, products, pipeline.Options{Preprocess: pre, OCRTimeout: cfg.OCRTimeout, Match: cfg.Match()})

	ctx := context.Background()
	scans, err := st.FailedScans(ctx, *limit)
	if err != nil {
		log.Fatalf("query: %v", err)
	}
	base := archive.Dir{Base: cfg.UploadBase}
	for _, scan := range scans {
		path := resolvePath(base, scan)
		if path == "" {
			log.Printf("no stored file for id=%d file=%s", scan.ID, scan.FileName)
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("open %s: %v", path, err)
			continue
		}
		res, err := checker.Check(ctx, ocr.RawImage{Data: data, ContentType: scan.ContentType})
		if err != nil {
			log.Printf("still failing id=%d file=%s: %v", scan.ID, scan.FileName, err)
			continue
		}
		if *dry {
			fmt.Printf("DRY: would resolve scan id=%d file=%s compliant=%v score=%d\n", scan.ID, scan.FileName, res.Compliant, res.ComplianceScore)
			continue
		}
		if _, err := st.ResolveFailure(ctx, scan.ID, res); err != nil {
			log.Printf("update id=%d: %v", scan.ID, err)
			continue
		}
		fmt.Printf("resolved scan id=%d file=%s compliant=%v score=%d\n", scan.ID, scan.FileName, res.Compliant, res.ComplianceScore)
	}
}

// resolvePath finds the stored image. Folder scans keep a filesystem path,
// uploads and captures a path relative to the upload base.
func resolvePath(base archive.Dir, scan models.Scan) string {
	if scan.StorePath == "" {
		return ""
	}
	if scan.Source == models.SourceFolder {
		return filepath.FromSlash(scan.StorePath)
	}
	return base.Abs(scan.StorePath)
}
