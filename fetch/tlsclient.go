package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// TLSTransport issues requests with a Chrome TLS fingerprint, for sites that
// reject the Go TLS handshake.
type TLSTransport struct {
	client tls_client.HttpClient
	logger *slog.Logger
}

// NewTLSTransport creates a fingerprinting transport. timeout bounds each
// request at the client level in addition to the fetch context.
func NewTLSTransport(timeout time.Duration, logger *slog.Logger) (*TLSTransport, error) {
	seconds := int(timeout / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(seconds),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithCookieJar(tls_client.NewCookieJar()),
	}

	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("create tls client: %w", err)
	}
	return &TLSTransport{client: client, logger: logger}, nil
}

// Get implements Transport.
func (t *TLSTransport) Get(ctx context.Context, r *Request) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header = http.Header{
		"Accept":        {"*/*"},
		"Cache-Control": {"no-cache"},
		"User-Agent":    {r.UserAgent},
		http.HeaderOrderKey: {
			"accept",
			"cache-control",
			"user-agent",
		},
	}
	req.Host = r.Host

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	body, err := readBody(resp.Body, r.URL, t.logger)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
