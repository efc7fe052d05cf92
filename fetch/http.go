package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// HTTPTransport issues requests through a shared net/http client.
type HTTPTransport struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPTransport creates a transport around client. The client is shared by
// all fetches so connections are pooled.
func NewHTTPTransport(client *http.Client, logger *slog.Logger) *HTTPTransport {
	return &HTTPTransport{client: client, logger: logger}
}

// Get implements Transport.
func (t *HTTPTransport) Get(ctx context.Context, r *Request) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "*/*")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", r.UserAgent)
	// net/http ignores a Host entry in Header.
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
