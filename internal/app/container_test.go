package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kapu/famescale/internal/config"
	"go.uber.org/zap"
)

func testConfig(url, backend, sqlitePath string) *config.Config {
	return &config.Config{
		Source: config.SourceConfig{URL: url, Timeout: time.Second},
		Cache:  config.CacheConfig{Backend: backend, Key: "cachedFameData"},
		SQLite: config.SQLiteConfig{Path: sqlitePath},
	}
}

func TestBuildWithSQLiteCacheSurvivesOutage(t *testing.T) {
	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("Alice||Supernatural|8|\nBob||Human|3|\n"))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL, config.BackendSQLite, filepath.Join(t.TempDir(), "fame.db"))
	ctx := context.Background()

	first, err := Build(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if snap := first.Service.Refresh(ctx); snap.Stale || len(snap.Records) != 2 {
		t.Fatalf("unexpected fresh snapshot %+v", snap)
	}
	first.Close()

	down.Store(true)
	second, err := Build(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	defer second.Close()

	snap := second.Service.Refresh(ctx)
	if !snap.Stale || len(snap.Records) != 2 {
		t.Fatalf("expected cached snapshot after outage, got stale=%v records=%d", snap.Stale, len(snap.Records))
	}

	out, err := second.Formatter.FormatSnapshot(snap)
	if err != nil || out == "" {
		t.Fatalf("format: %v", err)
	}
}

func TestBuildRejectsMissingInputs(t *testing.T) {
	if _, err := Build(context.Background(), nil, zap.NewNop()); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, err := Build(context.Background(), testConfig("http://x", config.BackendMemory, ""), nil); err == nil {
		t.Fatalf("expected error for nil logger")
	}
}

func TestBuildMissingCategoriesFile(t *testing.T) {
	cfg := testConfig("http://localhost", config.BackendMemory, "")
	cfg.Source.CategoriesFile = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := Build(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing categories file")
	}
}
