package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseJSON(t *testing.T) {
	data := []byte(`{
  "cooldown": "1h",
  "extraction": "direct",
  "products": [
    {"title": "A", "url": "http://x/a", "targets": ["t1", "t2"]}
  ]
}`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Cooldown != time.Hour {
		t.Errorf("Cooldown = %v, want 1h", cfg.Cooldown)
	}
	if cfg.Extraction != ExtractionDirect {
		t.Errorf("Extraction = %q, want %q", cfg.Extraction, ExtractionDirect)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Errorf("FetchTimeout = %v, want default 30s", cfg.FetchTimeout)
	}
	if cfg.Transport != TransportHTTP {
		t.Errorf("Transport = %q, want default %q", cfg.Transport, TransportHTTP)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q, want default", cfg.UserAgent)
	}
	if len(cfg.Products) != 1 || cfg.Products[0].Title != "A" {
		t.Fatalf("Products = %+v", cfg.Products)
	}
	if got := cfg.Products[0].Targets; len(got) != 2 || got[0] != "t1" || got[1] != "t2" {
		t.Errorf("Targets = %v, want [t1 t2] in order", got)
	}
}

func TestParseYAMLDefaults(t *testing.T) {
	data := []byte(`
products:
  - title: Widget
    url: https://www.example.com/widget
    targets: [ops]
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Cooldown != 300*time.Second {
		t.Errorf("Cooldown = %v, want 5m", cfg.Cooldown)
	}
	if cfg.Extraction != ExtractionBoth {
		t.Errorf("Extraction = %q, want %q", cfg.Extraction, ExtractionBoth)
	}
	if cfg.StoreName != "BestBuy" {
		t.Errorf("StoreName = %q, want BestBuy", cfg.StoreName)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "malformed json",
			data:    `{"products": [`,
			wantErr: "parse config",
		},
		{
			name:    "no products",
			data:    `{"products": []}`,
			wantErr: "no products",
		},
		{
			name:    "missing title",
			data:    `{"products": [{"url": "http://x/a", "targets": ["t1"]}]}`,
			wantErr: "title is required",
		},
		{
			name:    "relative url",
			data:    `{"products": [{"title": "A", "url": "/a", "targets": ["t1"]}]}`,
			wantErr: "invalid url",
		},
		{
			name:    "no targets",
			data:    `{"products": [{"title": "A", "url": "http://x/a"}]}`,
			wantErr: "at least one target",
		},
		{
			name:    "duplicate target",
			data:    `{"products": [{"title": "A", "url": "http://x/a", "targets": ["t1", "t1"]}]}`,
			wantErr: "duplicate target",
		},
		{
			name:    "unknown extraction",
			data:    `{"extraction": "xpath", "products": [{"title": "A", "url": "http://x/a", "targets": ["t1"]}]}`,
			wantErr: "unknown extraction",
		},
		{
			name:    "unknown transport",
			data:    `{"transport": "carrier-pigeon", "products": [{"title": "A", "url": "http://x/a", "targets": ["t1"]}]}`,
			wantErr: "unknown transport",
		},
		{
			name:    "negative cooldown",
			data:    `{"cooldown": "-5m", "products": [{"title": "A", "url": "http://x/a", "targets": ["t1"]}]}`,
			wantErr: "cooldown must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("Parse() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("Load() error = nil, want error for missing file")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"products": [{"title": "A", "url": "http://x/a", "targets": ["t1"]}]}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Products[0].URL != "http://x/a" {
		t.Errorf("URL = %q", cfg.Products[0].URL)
	}
}

func TestLoadExample(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "config.example.json"))
	if err != nil {
		t.Fatalf("Load(example) error = %v", err)
	}
	if cfg.Cooldown != 5*time.Minute || cfg.FetchTimeout != 30*time.Second {
		t.Errorf("durations = %v, %v", cfg.Cooldown, cfg.FetchTimeout)
	}
	if len(cfg.Products) != 2 || len(cfg.Products[1].Targets) != 2 {
		t.Errorf("Products = %+v", cfg.Products)
	}
}
