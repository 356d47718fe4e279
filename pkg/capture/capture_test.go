package capture

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"labelcheck/pkg/ocr"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/snap":
			if r.Header.Get("User-Agent") != "Mozilla/5.0" {
				t.Errorf("missing user agent")
			}
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("\x89PNG data"))
		case "/empty":
		default:
			http.Error(w, "busy", http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	f := NewFetcher(time.Second)
	raw, err := f.Fetch(context.Background(), srv.URL+"/snap")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if raw.ContentType != "image/png" || raw.Ext() != ".png" || len(raw.Data) == 0 {
		t.Fatalf("unexpected snapshot %+v", raw)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/empty"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("empty body: expected ErrUpstream got %v", err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/down"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("status 503: expected ErrUpstream got %v", err)
	}
	if _, err := f.Fetch(context.Background(), "http://127.0.0.1:1/none"); !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable got %v", err)
	}
}

func TestFileName(t *testing.T) {
	now := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	got := FileName("cam", ocr.RawImage{ContentType: "image/jpeg"}, now)
	if got != "cam_20240102_150405.jpg" {
		t.Fatalf("got %q", got)
	}
}
