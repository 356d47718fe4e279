package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"labelcheck/models"
	"labelcheck/pkg/archive"
	"labelcheck/pkg/catalog"
	"labelcheck/pkg/config"
	"labelcheck/pkg/pipeline"
	"labelcheck/pkg/store"
	"labelcheck/process/batch"
)

// Main: checks every label image in the capture folder, records scans and
// violations, then optionally keeps watching the folder.
func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	dirFlag := flag.String("dir", cfg.CaptureDir, "directory to scan for label images")
	dryRun := flag.Bool("dry-run", false, "Skip all DB queries and writes; just check and log")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", cfg.Workers, "Worker pool size (0 = NumCPU)")
	verbose := flag.Bool("verbose", false, "Verbose per-file logging")
	inspect := flag.Bool("inspect-fks", false, "Print the foreign keys of the schema and exit")
	flag.Parse()

	if *inspect {
		if err := RunInspectFKs(cfg.DBDSN); err != nil {
			log.Fatalf("inspect: %v", err)
		}
		return
	}

	products, err := catalog.LoadCSVDir(cfg.CatalogDir)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	rec, err := cfg.Recognizer()
	if err != nil {
		log.Fatalf("recognizer: %v", err)
	}
	p := &batch.Processor{
		Checker: pipeline.New(rec, products, pipeline.Options{
			Preprocess: cfg.Preprocess(),
			OCRTimeout: cfg.OCRTimeout,
			Match:      cfg.Match(),
		}),
		Archive:      archive.Dir{Base: cfg.UploadBase},
		ProcessedDir: cfg.ProcessedDir,
		Workers:      effectiveWorkers(*workers),
		Debounce:     cfg.WatchDebounce,
		Verbose:      *verbose,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *dryRun {
		log.Printf("Dry-run: checking %s (no DB interaction)", *dirFlag)
		p.Archive = archive.Dir{}
	} else {
		st, err := store.Open(cfg.DBDSN)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		if cfg.DBAutoMigrate {
			if err := st.Migrate(); err != nil {
				log.Printf("migration warning: %v", err)
			}
		}
		seen, err := st.ScannedFiles(ctx, models.SourceFolder)
		if err != nil {
			log.Fatalf("preload: %v", err)
		}
		log.Printf("Preloaded: scanned=%d", len(seen))
		p.Saver = st
		p.MarkSeen(seen)
	}

	files := batch.ListImages(*dirFlag)
	log.Printf("Scanning %d files (workers=%d)", len(files), p.Workers)
	sum := p.Run(ctx, *dirFlag, files)
	log.Printf("Done: compliant=%d non_compliant=%d failed=%d skipped=%d", sum.Compliant, sum.NonCompliant, sum.Failed, sum.Skipped)

	if *watch {
		sum, err := p.Watch(ctx, *dirFlag)
		if err != nil {
			log.Fatalf("watch failed: %v", err)
		}
		log.Printf("Watch stopped: compliant=%d non_compliant=%d failed=%d", sum.Compliant, sum.NonCompliant, sum.Failed)
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}
