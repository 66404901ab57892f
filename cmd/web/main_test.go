package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/ingest"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
)

const abCSV = "date,category,sales_amount,region\n" +
	"2025-01-01,A,100,North\n" +
	"2025-01-02,A,200,South\n" +
	"2025-01-01,B,300,North\n"

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Security.EnableRateLimit = false
	return cfg
}

func newTestHandler(t *testing.T, cfg *config.Config, initial *models.Dataset) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewRegistry(session.Config{
		Isolated: cfg.Session.Isolated,
		TTL:      cfg.Session.TTL,
		MaxSize:  cfg.Session.MaxSessions,
	}, func() *models.Dataset { return initial }, logger)
	dash := services.NewDashboard(sessions, services.Options{IngestTimeout: time.Second}, logger)
	return newHandler(cfg, logger, dash, middleware.NewRateLimiter(cfg.Security))
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func upload(t *testing.T, h http.Handler, cookie *http.Cookie, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "ab.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	io.WriteString(part, content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func get(h http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestDashboardPage(t *testing.T) {
	h := newTestHandler(t, newTestConfig(t), nil)

	w := get(h, "/", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected html content type, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "/sse/controls") {
		t.Error("page should load controls over SSE")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if w.Header().Get("Content-Security-Policy") == "" {
		t.Error("expected security headers")
	}

	cookie := sessionCookie(t, w.Result())
	if !session.ValidID(cookie.Value) || !cookie.HttpOnly {
		t.Errorf("unexpected session cookie %+v", cookie)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	h := newTestHandler(t, newTestConfig(t), nil)

	alice := sessionCookie(t, get(h, "/", nil).Result())
	bob := sessionCookie(t, get(h, "/", nil).Result())
	if alice.Value == bob.Value {
		t.Fatal("each browser should get its own session")
	}

	if w := upload(t, h, alice, abCSV); w.Code != http.StatusOK {
		t.Fatalf("upload failed: %d %s", w.Code, w.Body.String())
	}

	if w := get(h, "/api/controls", alice); w.Code != http.StatusOK {
		t.Errorf("alice should see her upload, got %d", w.Code)
	}
	if w := get(h, "/api/controls", bob); w.Code != http.StatusConflict {
		t.Errorf("bob should see no data, got %d", w.Code)
	}
}

func TestSharedSessionMode(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Session.Isolated = false
	h := newTestHandler(t, cfg, nil)

	alice := sessionCookie(t, get(h, "/", nil).Result())
	bob := sessionCookie(t, get(h, "/", nil).Result())

	if w := upload(t, h, alice, abCSV); w.Code != http.StatusOK {
		t.Fatalf("upload failed: %d", w.Code)
	}
	if w := get(h, "/api/controls", bob); w.Code != http.StatusOK {
		t.Errorf("shared mode should expose the upload to every session, got %d", w.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	h := newTestHandler(t, newTestConfig(t), nil)
	cookie := sessionCookie(t, get(h, "/", nil).Result())
	upload(t, h, cookie, abCSV)
	upload(t, h, cookie, "date,category\n")

	w := get(h, "/admin/stats", cookie)

	var resp struct {
		Data services.Stats `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.UploadsAccepted != 1 || resp.Data.UploadsRejected != 1 {
		t.Errorf("unexpected stats %+v", resp.Data)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Security.EnableRateLimit = true
	cfg.Security.RateLimitRPS = 1
	cfg.Security.RateLimitBurst = 2
	h := newTestHandler(t, cfg, nil)

	var limited bool
	for i := 0; i < 5; i++ {
		if get(h, "/health", nil).Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Error("expected requests beyond the burst to be limited")
	}
}

func TestInitialDataset(t *testing.T) {
	ctx := context.Background()

	t.Run("synthetic", func(t *testing.T) {
		ds, err := initialDataset(ctx, config.DatasetConfig{Mode: config.ModeSynthetic, SyntheticSeed: 1})
		if err != nil || ds.Len() != 768 {
			t.Errorf("expected 768 synthetic rows, got %d (%v)", ds.Len(), err)
		}
	})

	t.Run("upload without seed", func(t *testing.T) {
		ds, err := initialDataset(ctx, config.DatasetConfig{Mode: config.ModeUpload})
		if err != nil || ds != nil {
			t.Errorf("expected no dataset, got %v (%v)", ds, err)
		}
	})

	t.Run("seed csv", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seed.csv")
		if err := os.WriteFile(path, []byte(abCSV), 0o600); err != nil {
			t.Fatal(err)
		}
		ds, err := initialDataset(ctx, config.DatasetConfig{Mode: config.ModeUpload, SeedCSV: path, IngestTimeout: time.Second})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ds.Name() != "seed.csv" || ds.Len() != 3 {
			t.Errorf("unexpected dataset %s with %d rows", ds.Name(), ds.Len())
		}
	})

	t.Run("bad seed csv", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seed.csv")
		if err := os.WriteFile(path, []byte("date,category\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := initialDataset(ctx, config.DatasetConfig{Mode: config.ModeUpload, SeedCSV: path, IngestTimeout: time.Second})
		if !errors.Is(err, ingest.ErrMissingColumn) {
			t.Errorf("expected missing column error, got %v", err)
		}
	})
}
