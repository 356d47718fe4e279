package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"
)

// Recognition is the orchestrator output: the transcription plus the image
// that actually produced it.
type Recognition struct {
	Text         string
	Image        image.Image
	UsedFallback bool
}

// Orchestrator runs preprocessing and recognition, falling back to the
// unprocessed image once when either step fails.
type Orchestrator struct {
	Recognizer Recognizer
	Options    PreprocessOptions
	// Timeout bounds each recognition attempt. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// NewOrchestrator wires a recognizer with preprocessing options.
func NewOrchestrator(r Recognizer, opts PreprocessOptions, timeout time.Duration) *Orchestrator {
	return &Orchestrator{Recognizer: r, Options: opts, Timeout: timeout}
}

// Recognize returns the text of img. It never fabricates text: when both the
// processed and the original attempt fail the error wraps ErrRecognition.
func (o *Orchestrator) Recognize(ctx context.Context, img image.Image) (Recognition, error) {
	if o.Recognizer == nil {
		return Recognition{}, fmt.Errorf("%w: no recognizer configured", ErrRecognition)
	}
	processed, perr := Preprocess(img, o.Options)
	if perr == nil {
		text, rerr := o.attempt(ctx, processed)
		if rerr == nil {
			return Recognition{Text: CleanText(text), Image: processed}, nil
		}
		perr = fmt.Errorf("recognize processed: %w", rerr)
	}
	if ctx.Err() != nil {
		return Recognition{}, fmt.Errorf("%w: %w", ErrRecognition, errors.Join(perr, ctx.Err()))
	}
	log.Printf("OCR fallback to original image: %v", perr)

	if img == nil {
		return Recognition{}, fmt.Errorf("%w: %w", ErrRecognition, perr)
	}
	text, err := o.attempt(ctx, img)
	if err != nil {
		return Recognition{}, fmt.Errorf("%w: %w", ErrRecognition, errors.Join(perr, fmt.Errorf("recognize original: %w", err)))
	}
	return Recognition{Text: CleanText(text), Image: img, UsedFallback: true}, nil
}

func (o *Orchestrator) attempt(ctx context.Context, img image.Image) (text string, err error) {
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recognizer panic: %v", r)
		}
	}()
	return o.Recognizer.Recognize(ctx, img)
}
