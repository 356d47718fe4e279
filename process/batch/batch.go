// Package batch checks every label image dropped into a capture folder,
// either once or continuously while watching the folder.
package batch

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"labelcheck/models"
	"labelcheck/pkg/archive"
	"labelcheck/pkg/ocr"
	"labelcheck/pkg/pipeline"
	"labelcheck/pkg/store"
)

// Checker runs the label pipeline on one image.
type Checker interface {
	Check(ctx context.Context, raw ocr.RawImage) (*pipeline.Result, error)
}

// Saver persists outcomes. *store.Store implements it.
type Saver interface {
	SaveResult(ctx context.Context, res *pipeline.Result, src store.Source) (*models.Scan, error)
	SaveFailure(ctx context.Context, src store.Source, reason error) (*models.Scan, error)
}

// Outcome of one file.
type Outcome int

const (
	Skipped Outcome = iota
	Compliant
	NonCompliant
	Failed
)

// Summary counts outcomes of a run.
type Summary struct {
	Compliant    int
	NonCompliant int
	Failed       int
	Skipped      int
}

func (s *Summary) add(o Outcome) {
	switch o {
	case Compliant:
		s.Compliant++
	case NonCompliant:
		s.NonCompliant++
	case Failed:
		s.Failed++
	default:
		s.Skipped++
	}
}

// MIME mapping to avoid sniffing every file
var extMime = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// Processor checks files from a folder. Saver may be nil for a dry run,
// which also leaves originals in place, as does an empty ProcessedDir.
type Processor struct {
	Checker      Checker
	Saver        Saver
	Archive      archive.Dir
	ProcessedDir string
	Workers      int
	Debounce     time.Duration
	Verbose      bool

	mu   sync.Mutex
	seen map[string]bool
}

func (p *Processor) logV(format string, args ...any) {
	if p.Verbose {
		log.Printf(format, args...)
	}
}

// MarkSeen records names that must not be checked again.
func (p *Processor) MarkSeen(names map[string]bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen == nil {
		p.seen = make(map[string]bool, len(names))
	}
	for n := range names {
		p.seen[n] = true
	}
}

// claim marks name as taken and reports whether it was free.
func (p *Processor) claim(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen == nil {
		p.seen = make(map[string]bool)
	}
	if p.seen[name] {
		return false
	}
	p.seen[name] = true
	return true
}

// release forgets a claim so a later event for name is processed again.
func (p *Processor) release(name string) {
	p.mu.Lock()
	delete(p.seen, name)
	p.mu.Unlock()
}

func (p *Processor) workers() int {
	if p.Workers <= 0 {
		return 1
	}
	return p.Workers
}

// IsSupported reports whether name looks like a label image we can decode.
func IsSupported(name string) bool {
	// ignore our own processed output to avoid recursive processing
	if strings.HasPrefix(name, "processed_") || strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := extMime[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ListImages returns the supported files of dir, sorted by name.
func ListImages(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsSupported(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

// Run checks files from dir with a worker pool and waits for all of them.
func (p *Processor) Run(ctx context.Context, dir string, files []string) Summary {
	ch := make(chan string)
	go func() {
		defer close(ch)
		for _, f := range files {
			select {
			case ch <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	return p.pool(ctx, dir, ch)
}

// pool drains names until the channel closes.
func (p *Processor) pool(ctx context.Context, dir string, names <-chan string) Summary {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sum Summary
	)
	for i := 0; i < p.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range names {
				o := p.ProcessFile(ctx, dir, name)
				mu.Lock()
				sum.add(o)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return sum
}

// Watch checks files created in dir until ctx is cancelled. A file is
// picked up once it has not changed for Debounce.
func (p *Processor) Watch(ctx context.Context, dir string) (Summary, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return Summary{}, err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return Summary{}, err
	}
	debounce := p.Debounce
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	log.Printf("Watching %s (debounce %s) ...", dir, debounce)

	fileCh := make(chan string, 256)
	go func() {
		defer close(fileCh)
		// pending files and the time of their last event
		pending := map[string]time.Time{}
		tick := debounce / 2
		if tick < 10*time.Millisecond {
			tick = 10 * time.Millisecond
		}
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				name := filepath.Base(ev.Name)
				if !IsSupported(name) {
					continue
				}
				pending[name] = time.Now()
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) >= debounce { // stable
						delete(pending, name)
						select {
						case fileCh <- name:
						case <-ctx.Done():
							return
						}
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()
	return p.pool(ctx, dir, fileCh), nil
}

// ProcessFile checks dir/name once. Failures are recorded, never returned.
func (p *Processor) ProcessFile(ctx context.Context, dir, name string) Outcome {
	if !p.claim(name) {
		p.logV("SKIP already scanned %s", name)
		return Skipped
	}
	full := filepath.Join(dir, name)
	src := store.Source{
		Kind:        models.SourceFolder,
		FileName:    name,
		StorePath:   filepath.ToSlash(full),
		ContentType: extMime[strings.ToLower(filepath.Ext(name))],
	}
	data, err := os.ReadFile(full)
	if err != nil {
		log.Printf("WARN read %s: %v", full, err)
		p.release(name)
		return Skipped
	}
	raw := ocr.RawImage{Data: data, ContentType: src.ContentType}
	if src.ContentType == "" {
		src.ContentType = raw.SniffedType()
	}

	res, err := p.Checker.Check(ctx, raw)
	if err != nil {
		log.Printf("FAIL %s: %v", name, err)
		if p.Saver != nil {
			if _, serr := p.Saver.SaveFailure(ctx, src, err); serr != nil {
				log.Printf("ERROR record failure %s: %v", name, serr)
			}
		}
		return Failed
	}

	if p.Archive.Base != "" {
		if rel, err := p.Archive.SaveProcessed(name, res.ProcessedImage); err != nil {
			log.Printf("WARN archive processed %s: %v", name, err)
		} else {
			src.ProcessedPath = rel
		}
	}
	if p.ProcessedDir != "" && p.Saver != nil {
		if dst, err := moveToProcessed(full, p.ProcessedDir); err != nil {
			log.Printf("WARN failed to move processed file %s: %v", name, err)
		} else {
			src.StorePath = filepath.ToSlash(dst)
			p.logV("moved processed %s to %s", name, p.ProcessedDir)
		}
	}

	if p.Saver != nil {
		scan, err := p.Saver.SaveResult(ctx, res, src)
		if err != nil {
			log.Printf("ERROR save %s: %v", name, err)
		} else {
			p.logV("saved scan id=%d file=%s", scan.ID, name)
		}
	}
	log.Printf("CHECK file=%s compliant=%v score=%d matched=%v issues=%q",
		name, res.Compliant, res.ComplianceScore, res.MatchedFromCSV, res.Summary())
	if res.Compliant {
		return Compliant
	}
	return NonCompliant
}

// moveToProcessed moves src into dir. It attempts an atomic rename and
// falls back to copy+remove across filesystems.
func moveToProcessed(src, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, filepath.Base(src))
	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	}
	if err := copyRemove(src, dst); err != nil {
		return "", fmt.Errorf("move %s: %w", src, err)
	}
	return dst, nil
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
