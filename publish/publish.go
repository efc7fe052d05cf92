// Package publish delivers in-stock notifications through a pluggable provider.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"instock-notifier/pkg/stock"
)

// Provider defines the interface for message delivery implementations.
// The target is an opaque address understood by the provider.
type Provider interface {
	Send(ctx context.Context, target, subject, body string) error
}

// Notifier publishes messages to targets.
type Notifier struct {
	provider  Provider
	logger    *slog.Logger
	storeName string
}

// New creates a notifier. storeName appears in message text.
func New(provider Provider, storeName string, logger *slog.Logger) *Notifier {
	return &Notifier{
		provider:  provider,
		logger:    logger,
		storeName: storeName,
	}
}

// Publish sends one message to target.
func (n *Notifier) Publish(ctx context.Context, target, subject, message string) error {
	start := time.Now()
	if err := n.provider.Send(ctx, target, subject, message); err != nil {
		return fmt.Errorf("send to %s: %w", target, err)
	}
	n.logger.Debug("Message delivered",
		"target", target,
		"subject", subject,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Message builds the subject and body announcing that product is in stock.
func (n *Notifier) Message(product stock.Product) (subject, body string) {
	subject = fmt.Sprintf("Your product is in stock at %s!", n.storeName)
	body = fmt.Sprintf("%s is in stock at %s!\n\n%s", product.Title, n.storeName, product.URL)
	return subject, body
}

// sanitizeHeader removes newlines and control characters to prevent header injection.
func sanitizeHeader(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
