package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"instock-notifier/publish"
	"instock-notifier/storage"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"", false, true},
		{"info", false, true},
		{"WARNING", false, false},
		{"error", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := newLogger(tt.level, "", io.Discard)
			ctx := context.Background()
			if got := logger.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := logger.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
		})
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	newLogger("info", "", &buf).Info("Notification sent", "target", "t1", "url", "http://x/a")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["msg"] != "Notification sent" || line["target"] != "t1" || line["url"] != "http://x/a" {
		t.Errorf("log line = %v", line)
	}
	if _, ok := line["time"]; !ok {
		t.Error("log line has no timestamp")
	}
}

func TestRunConfigErrors(t *testing.T) {
	logger := newLogger("error", "", io.Discard)

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.json"))
		if err := run(context.Background(), logger); err == nil {
			t.Error("run() error = nil, want config error")
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(path, []byte(`{"products": [`), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("CONFIG_FILE", path)
		if err := run(context.Background(), logger); err == nil {
			t.Error("run() error = nil, want config error")
		}
	})
}

func TestRunCompletesDespiteFetchFailures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	// Nothing listens on port 1; the fetch fails and the run still succeeds.
	cfg := `{"fetch_timeout": "2s", "products": [{"title": "A", "url": "http://127.0.0.1:1/a", "targets": ["t1"]}]}`
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("STORE_BACKEND", "local")
	t.Setenv("LOCAL_STORAGE", filepath.Join(dir, "data"))
	t.Setenv("NOTIFY_PROVIDER", "log")

	if err := run(context.Background(), newLogger("error", "", io.Discard)); err != nil {
		t.Errorf("run() error = %v, want nil", err)
	}
}

func TestNewStore(t *testing.T) {
	logger := newLogger("error", "", io.Discard)
	dir := t.TempDir()

	t.Run("local default", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "")
		t.Setenv("LOCAL_STORAGE", filepath.Join(dir, "local"))
		s, closeFn, err := newStore(context.Background(), logger)
		if err != nil {
			t.Fatalf("newStore() error = %v", err)
		}
		defer closeFn()
		if _, ok := s.(*storage.Store); !ok {
			t.Errorf("newStore() = %T, want *storage.Store", s)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "sqlite")
		t.Setenv("SQLITE_PATH", filepath.Join(dir, "db", "instock.db"))
		s, closeFn, err := newStore(context.Background(), logger)
		if err != nil {
			t.Fatalf("newStore() error = %v", err)
		}
		defer closeFn()
		if _, ok := s.(*storage.SQLiteStore); !ok {
			t.Errorf("newStore() = %T, want *storage.SQLiteStore", s)
		}
	})

	t.Run("gcs without bucket", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "gcs")
		t.Setenv("STORAGE_BUCKET", "")
		if _, _, err := newStore(context.Background(), logger); err == nil {
			t.Error("newStore() error = nil, want missing bucket error")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "etcd")
		_, _, err := newStore(context.Background(), logger)
		if err == nil || !strings.Contains(err.Error(), "etcd") {
			t.Errorf("newStore() error = %v, want unknown backend error", err)
		}
	})
}

func TestNewProvider(t *testing.T) {
	logger := newLogger("error", "", io.Discard)

	t.Setenv("NOTIFY_PROVIDER", "")
	p, err := newProvider(context.Background(), logger)
	if err != nil {
		t.Fatalf("newProvider() error = %v", err)
	}
	if _, ok := p.(*publish.LogProvider); !ok {
		t.Errorf("newProvider() = %T, want *publish.LogProvider", p)
	}

	t.Setenv("NOTIFY_PROVIDER", "brevo")
	t.Setenv("BREVO_API_KEY", "")
	if _, err := newProvider(context.Background(), logger); err == nil {
		t.Error("newProvider(brevo) without key error = nil, want error")
	}

	adc := filepath.Join(t.TempDir(), "adc.json")
	creds := `{"type":"authorized_user","client_id":"id","client_secret":"secret","refresh_token":"token"}`
	if err := os.WriteFile(adc, []byte(creds), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NOTIFY_PROVIDER", "gmail")
	t.Setenv("GOOGLE_CREDENTIALS_JSON", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", adc)
	p, err = newProvider(context.Background(), logger)
	if err != nil {
		t.Fatalf("newProvider(gmail) with default credentials error = %v", err)
	}
	if _, ok := p.(*publish.GmailProvider); !ok {
		t.Errorf("newProvider(gmail) = %T, want *publish.GmailProvider", p)
	}

	t.Setenv("NOTIFY_PROVIDER", "pigeon")
	if _, err := newProvider(context.Background(), logger); err == nil {
		t.Error("newProvider(pigeon) error = nil, want error")
	}
}
