// Package capture fetches still snapshots from a network camera.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"labelcheck/pkg/ocr"
)

// maxSnapshot caps the body read from the camera.
const maxSnapshot = 20 << 20

var (
	// ErrUpstream means the camera answered with an error or an empty body.
	ErrUpstream = errors.New("snapshot upstream error")
	// ErrUnreachable means the camera could not be reached in time.
	ErrUnreachable = errors.New("snapshot unreachable")
)

// Fetcher downloads snapshots.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewFetcher returns a fetcher whose requests time out after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Fetcher{Client: &http.Client{Timeout: timeout}, UserAgent: "Mozilla/5.0"}
}

// Fetch GETs url and returns the body with the response content type.
func (f *Fetcher) Fetch(ctx context.Context, url string) (ocr.RawImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ocr.RawImage{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return ocr.RawImage{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ocr.RawImage{}, fmt.Errorf("%w: camera returned status %d", ErrUpstream, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshot))
	if err != nil {
		return ocr.RawImage{}, fmt.Errorf("%w: read body: %v", ErrUnreachable, err)
	}
	if len(data) == 0 {
		return ocr.RawImage{}, fmt.Errorf("%w: empty response from camera", ErrUpstream)
	}
	return ocr.RawImage{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

// FileName builds a timestamped archive name such as cam_20240102_150405.png.
func FileName(prefix string, raw ocr.RawImage, now time.Time) string {
	return fmt.Sprintf("%s_%s%s", prefix, now.Format("20060102_150405"), raw.Ext())
}
