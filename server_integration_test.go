package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"labelcheck/pkg/catalog"
	"labelcheck/pkg/config"
	"labelcheck/pkg/ocr"
	"labelcheck/pkg/pipeline"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	// allow callers to pass nil for body safely
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	c, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	c.UploadBase = t.TempDir()
	cfg = c
	jwtSecret = []byte(cfg.JWTSecret)
	initDB()
	products = catalog.New(nil)
	// Missing origin makes the label non-compliant so a violation is recorded.
	rec := ocr.RecognizerFunc(func(ctx context.Context, img image.Image) (string, error) {
		return "Rice MRP ₹120 Net Quantity 1 kg", nil
	})
	checker = pipeline.New(rec, products, pipeline.DefaultOptions())
	r := gin.Default()
	setupRoutes(r)
	return r
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)
	username := fmt.Sprintf("inspector_%d", time.Now().UnixNano())

	// 1. Register user
	regBody, _ := json.Marshal(map[string]string{"username": username, "password": "pass123"})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 && resp.Code != 409 {
		b := resp.Body.String()
		t.Fatalf("register failed status=%d body=%s", resp.Code, b)
	}

	// 2. Login
	loginBody, _ := json.Marshal(map[string]string{"username": username, "password": "pass123"})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(loginBody), "", "application/json")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("login failed status=%d body=%s", resp.Code, b)
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}

	// 3. Check an uploaded label
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	w, _ := mw.CreateFormFile("image", "rice.png")
	_, _ = w.Write(labelPNG(t))
	_ = mw.Close()
	resp = performRequest(r, http.MethodPost, "/check", buf, token, mw.FormDataContentType())
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("check failed status=%d body=%s", resp.Code, b)
	}
	var checkResp struct {
		ScanID uint `json:"scan_id"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &checkResp)
	if checkResp.ScanID == 0 {
		t.Fatalf("expected scan id in %s", resp.Body.String())
	}

	// 4. Fetch own scan
	resp = performRequest(r, http.MethodGet, fmt.Sprintf("/scans/%d", checkResp.ScanID), nil, token, "")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("get scan failed status=%d body=%s", resp.Code, b)
	}

	// 5. The violation shows up in the listing
	resp = performRequest(r, http.MethodGet, "/checks?limit=50", nil, token, "")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("list checks failed status=%d body=%s", resp.Code, b)
	}
	var checks []struct {
		ScanID uint   `json:"scan_id"`
		Issue  string `json:"issue"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &checks)
	found := false
	for _, c := range checks {
		if c.ScanID == checkResp.ScanID && c.Issue == "Missing country of origin" {
			found = true
		}
	}
	if !found {
		t.Fatalf("violation for scan %d not listed: %s", checkResp.ScanID, resp.Body.String())
	}

	// 6. Unauthorized access to protected endpoint should be 401
	unauth := performRequest(r, http.MethodGet, "/checks", nil, "", "")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthorized list checks got %d", unauth.Code)
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	c, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg = c
	cfg.UploadBase = t.TempDir()
	initDB()
}
