// Package gate decides whether a target should be notified about a product,
// using the suppression store as the only authority.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"instock-notifier/pkg/stock"
	"instock-notifier/storage"
)

// Store is the durable suppression store.
type Store interface {
	// Get returns nil, nil when no live record exists for the pair.
	Get(ctx context.Context, productURL, targetID string) (*stock.Suppression, error)
	Put(ctx context.Context, rec *stock.Suppression) error
	// Delete removes the record for the pair. A missing record is not an error.
	Delete(ctx context.Context, productURL, targetID string) error
}

// Decision is the gate's verdict for one (product, target) pair.
// Err is set when a store failure forced the gate closed.
type Decision struct {
	Err    error
	Notify bool
}

// Gate claims the right to notify a target once per cooldown window.
type Gate struct {
	store    Store
	logger   *slog.Logger
	cooldown time.Duration
}

// New creates a gate with the given cooldown window.
func New(store Store, cooldown time.Duration, logger *slog.Logger) *Gate {
	return &Gate{
		store:    store,
		logger:   logger,
		cooldown: cooldown,
	}
}

// ShouldNotify reports whether targetID should be notified about productURL now.
// When it returns true a fresh suppression record has been written.
func (g *Gate) ShouldNotify(ctx context.Context, productURL, targetID string, now time.Time) bool {
	return g.Decide(ctx, productURL, targetID, now).Notify
}

// Decide is ShouldNotify with the store failure, if any, attached.
// Store failures fail closed.
func (g *Gate) Decide(ctx context.Context, productURL, targetID string, now time.Time) Decision {
	rec, err := g.store.Get(ctx, productURL, targetID)
	if err != nil {
		g.logger.Warn("Suppression lookup failed, not notifying", "target", targetID, "url", productURL, "error", err)
		return Decision{Err: fmt.Errorf("lookup suppression: %w", err)}
	}
	if rec != nil {
		g.logger.Debug("Notifications paused",
			"target", targetID,
			"url", productURL,
			"remaining_seconds", int64(rec.SuppressedUntil.Sub(now).Seconds()))
		return Decision{}
	}

	until := now.Add(g.cooldown)
	err = g.store.Put(ctx, &stock.Suppression{
		ProductURL:      productURL,
		TargetID:        targetID,
		SuppressedUntil: until,
	})
	if errors.Is(err, storage.ErrSuppressed) {
		g.logger.Debug("Suppression claimed by another run", "target", targetID, "url", productURL)
		return Decision{}
	}
	if err != nil {
		g.logger.Warn("Suppression write failed, not notifying", "target", targetID, "url", productURL, "error", err)
		return Decision{Err: fmt.Errorf("write suppression: %w", err)}
	}

	g.logger.Debug("Notifications paused after this one",
		"target", targetID,
		"url", productURL,
		"seconds", int64(g.cooldown.Seconds()))
	return Decision{Notify: true}
}

// Release drops the claim Decide wrote for the pair, so a notification that
// could not be delivered is attempted again on the next run.
func (g *Gate) Release(ctx context.Context, productURL, targetID string) error {
	if err := g.store.Delete(ctx, productURL, targetID); err != nil {
		g.logger.Warn("Failed to release suppression", "target", targetID, "url", productURL, "error", err)
		return fmt.Errorf("release suppression: %w", err)
	}
	g.logger.Debug("Suppression released", "target", targetID, "url", productURL)
	return nil
}
