// Package fetch downloads product pages.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"time"

	"instock-notifier/pkg/stock"
)

const maxBodyBytes = 8 << 20

// Request is a single page GET.
type Request struct {
	URL       string
	Host      string
	UserAgent string
}

// Transport performs a GET and returns the status code and body.
// Implementations must be safe for concurrent use.
type Transport interface {
	Get(ctx context.Context, req *Request) (status int, body []byte, err error)
}

// Fetcher fetches product pages with a fixed timeout and no retries.
type Fetcher struct {
	transport Transport
	logger    *slog.Logger
	userAgent string
	host      string
	timeout   time.Duration
}

// Config holds fetcher settings.
type Config struct {
	Transport Transport
	Logger    *slog.Logger
	UserAgent string
	Host      string // Optional Host header override
	Timeout   time.Duration
}

// New creates a new fetcher.
func New(cfg *Config) *Fetcher {
	return &Fetcher{
		transport: cfg.Transport,
		logger:    cfg.Logger,
		userAgent: cfg.UserAgent,
		host:      cfg.Host,
		timeout:   cfg.Timeout,
	}
}

// Fetch downloads the product page. It never returns an error; failures are
// reported through the result's Outcome.
func (f *Fetcher) Fetch(ctx context.Context, product stock.Product) stock.FetchResult {
	res := stock.FetchResult{Product: product}

	host := f.host
	if host == "" {
		u, err := url.Parse(product.URL)
		if err != nil {
			res.Outcome = stock.OutcomeTransportError
			res.Err = fmt.Errorf("parse url: %w", err)
			f.logger.Warn("Invalid product URL", "url", product.URL, "error", err)
			return res
		}
		host = u.Host
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	f.logger.Debug("HTTP request starting", "method", "GET", "url", product.URL, "title", product.Title)

	start := time.Now()
	status, body, err := f.transport.Get(ctx, &Request{
		URL:       product.URL,
		Host:      host,
		UserAgent: f.userAgent,
	})
	res.Duration = time.Since(start)

	if err != nil {
		res.Err = err
		if isTimeout(ctx, err) {
			res.Outcome = stock.OutcomeTimeout
			f.logger.Warn("Request timed out",
				"url", product.URL,
				"timeout", f.timeout.String(),
				"duration_ms", res.Duration.Milliseconds())
			return res
		}
		res.Outcome = stock.OutcomeTransportError
		f.logger.Warn("HTTP request failed",
			"url", product.URL,
			"duration_ms", res.Duration.Milliseconds(),
			"error", err)
		return res
	}

	res.Outcome = stock.OutcomeSuccess
	res.StatusCode = status
	res.Body = string(body)

	if status < 200 || status >= 300 {
		f.logger.Warn("HTTP request returned non-OK status", "url", product.URL, "status_code", status)
	}
	f.logger.Debug("Downloaded",
		"url", product.URL,
		"status_code", status,
		"duration_ms", res.Duration.Milliseconds(),
		"content_length", len(body))

	return res
}

// readBody reads at most maxBodyBytes of body. Anything past the cap is dropped.
func readBody(body io.Reader, rawURL string, logger *slog.Logger) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxBodyBytes {
		logger.Debug("Response body truncated", "url", rawURL, "limit_bytes", maxBodyBytes)
		data = data[:maxBodyBytes]
	}
	return data, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
