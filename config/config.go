// Package config loads the product list and run settings.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"instock-notifier/pkg/stock"

	"gopkg.in/yaml.v3"
)

const (
	defaultCooldown     = 300 * time.Second
	defaultFetchTimeout = 30 * time.Second
	defaultStoreName    = "BestBuy"

	// DefaultUserAgent is sent with every page request unless overridden.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// Extraction strategy names.
const (
	ExtractionDirect = "direct"
	ExtractionNested = "nested"
	ExtractionBoth   = "both"
)

// Transport names.
const (
	TransportHTTP      = "http"
	TransportTLSClient = "tls-client"
)

// Config is the static input of one run.
type Config struct {
	Extraction   string          `yaml:"extraction"`
	Transport    string          `yaml:"transport"`
	UserAgent    string          `yaml:"user_agent"`
	Host         string          `yaml:"host"`       // Host header override; defaults to each product URL's host
	StoreName    string          `yaml:"store_name"` // Shown in notification messages
	Products     []stock.Product `yaml:"products"`
	Cooldown     time.Duration   `yaml:"cooldown"`
	FetchTimeout time.Duration   `yaml:"fetch_timeout"`
}

// Load reads and validates the config file at path. JSON files are accepted as-is.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates config data, applying defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Cooldown == 0 {
		c.Cooldown = defaultCooldown
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = defaultFetchTimeout
	}
	if c.Extraction == "" {
		c.Extraction = ExtractionBoth
	}
	if c.Transport == "" {
		c.Transport = TransportHTTP
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.StoreName == "" {
		c.StoreName = defaultStoreName
	}
}

// Validate checks the config for values the run cannot work with.
func (c *Config) Validate() error {
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown must be positive, got %v", c.Cooldown)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch_timeout must be positive, got %v", c.FetchTimeout)
	}
	switch c.Extraction {
	case ExtractionDirect, ExtractionNested, ExtractionBoth:
	default:
		return fmt.Errorf("unknown extraction strategy %q", c.Extraction)
	}
	switch c.Transport {
	case TransportHTTP, TransportTLSClient:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if len(c.Products) == 0 {
		return errors.New("no products configured")
	}

	for i := range c.Products {
		p := &c.Products[i]
		p.Title = strings.TrimSpace(p.Title)
		p.URL = strings.TrimSpace(p.URL)
		if p.Title == "" {
			return fmt.Errorf("product %d: title is required", i)
		}
		u, err := url.Parse(p.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("product %q: invalid url %q", p.Title, p.URL)
		}
		if len(p.Targets) == 0 {
			return fmt.Errorf("product %q: at least one target is required", p.Title)
		}
		seen := make(map[string]bool, len(p.Targets))
		for _, t := range p.Targets {
			if strings.TrimSpace(t) == "" {
				return fmt.Errorf("product %q: empty target", p.Title)
			}
			if seen[t] {
				return fmt.Errorf("product %q: duplicate target %q", p.Title, t)
			}
			seen[t] = true
		}
	}
	return nil
}
