package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/GoCodeAlone/workflow-plugin-soap/config"
)

func TestBuildWithPersistentBackends(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Store.Backend = "sqlite"
	cfg.Store.Path = filepath.Join(t.TempDir(), "invocations.db")
	cfg.Resolver.Cache.Backend = "redis"
	cfg.Resolver.Cache.Redis.Address = mr.Addr()

	svc, err := build(context.Background(), cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer svc.close(context.Background())

	names := []string{}
	for _, p := range svc.registry.List() {
		names = append(names, p.Name)
	}
	if strings.Join(names, ",") != "harvest,soap" {
		t.Errorf("expected harvest and soap pieces, got %v", names)
	}

	w := httptest.NewRecorder()
	svc.api.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/pieces", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 listing pieces, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	svc.api.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected metrics endpoint to be served, got %d", w.Code)
	}
}

func TestBuildFailsOnUnreachableRedis(t *testing.T) {
	cfg := config.Default()
	cfg.Resolver.Cache.Backend = "redis"
	cfg.Resolver.Cache.Redis.Address = "127.0.0.1:1"

	if _, err := build(context.Background(), cfg, slog.New(slog.DiscardHandler)); err == nil {
		t.Fatal("expected build to fail when redis is unreachable")
	}
}

func TestBuildWithoutMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	cfg.Resolver.Cache.Backend = "none"

	svc, err := build(context.Background(), cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer svc.close(context.Background())

	w := httptest.NewRecorder()
	svc.api.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code == http.StatusOK {
		t.Error("expected no metrics endpoint when metrics are disabled")
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var level slog.LevelVar
	level.Set(slog.LevelWarn)

	var buf bytes.Buffer
	logger := newLogger(&buf, "json", &level)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one log line at warn level, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if entry["msg"] != "shown" || entry["key"] != "value" {
		t.Errorf("unexpected entry %v", entry)
	}

	buf.Reset()
	level.Set(slog.LevelDebug)
	newLogger(&buf, "text", &level).Debug("now visible")
	if !strings.Contains(buf.String(), "msg=\"now visible\"") {
		t.Errorf("expected text debug line, got %q", buf.String())
	}
}
