// Package poll runs one availability check across all configured products.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"instock-notifier/gate"
	"instock-notifier/pkg/stock"
)

// Fetcher downloads a product page.
type Fetcher interface {
	Fetch(ctx context.Context, product stock.Product) stock.FetchResult
}

// Extractor derives availability from a page body.
type Extractor interface {
	Extract(body string) stock.Availability
}

// Gate decides whether a target may be notified.
type Gate interface {
	Decide(ctx context.Context, productURL, targetID string, now time.Time) gate.Decision
	Release(ctx context.Context, productURL, targetID string) error
}

// Publisher sends notifications.
type Publisher interface {
	Message(product stock.Product) (subject, body string)
	Publish(ctx context.Context, target, subject, message string) error
}

// Monitor fans the fetch, extract, gate, publish sequence out over products.
type Monitor struct {
	fetcher   Fetcher
	extractor Extractor
	gate      Gate
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a new poll monitor.
func New(fetcher Fetcher, extractor Extractor, g Gate, publisher Publisher, logger *slog.Logger) *Monitor {
	return &Monitor{
		fetcher:   fetcher,
		extractor: extractor,
		gate:      g,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Run checks every product concurrently and returns one result per product,
// in input order. A failure in one product never affects another.
func (m *Monitor) Run(ctx context.Context, products []stock.Product) []stock.Result {
	m.logger.Info("Checking products", "count", len(products))
	start := time.Now()

	results := make([]stock.Result, len(products))
	var wg sync.WaitGroup
	for i := range products {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.check(ctx, products[i])
		}(i)
	}
	wg.Wait()

	var available, notified, failed int
	for i := range results {
		r := &results[i]
		if r.Availability == stock.Available {
			available++
		}
		notified += len(r.Notified)
		if r.Err != nil || r.Outcome != stock.OutcomeSuccess || len(r.Failures) > 0 {
			failed++
		}
	}
	m.logger.Info("Product check completed",
		"products", len(products),
		"available", available,
		"notifications_sent", notified,
		"products_with_failures", failed,
		"duration_ms", time.Since(start).Milliseconds())

	return results
}

// check runs one unit of work. Panics are recovered into the result.
func (m *Monitor) check(ctx context.Context, product stock.Product) (res stock.Result) {
	res.Product = product
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic: %v", r)
			m.logger.Error("Product check panicked", "title", product.Title, "url", product.URL, "panic", r)
		}
	}()

	fetched := m.fetcher.Fetch(ctx, product)
	res.Outcome = fetched.Outcome
	if fetched.Outcome != stock.OutcomeSuccess {
		res.Err = fetched.Err
		return res
	}

	res.Availability = m.extractor.Extract(fetched.Body)
	switch res.Availability {
	case stock.Available:
		m.logger.Info("Product available", "title", product.Title, "url", product.URL)
	case stock.Unavailable:
		m.logger.Info("Product unavailable", "title", product.Title, "url", product.URL)
		return res
	default:
		m.logger.Debug("Availability unknown", "title", product.Title, "url", product.URL)
		return res
	}

	subject, message := m.publisher.Message(product)
	for _, target := range product.Targets {
		d := m.gate.Decide(ctx, product.URL, target, m.now())
		if d.Err != nil {
			res.Failures = append(res.Failures, stock.TargetFailure{TargetID: target, Stage: stock.StageGate, Err: d.Err})
		}
		if !d.Notify {
			res.Suppressed = append(res.Suppressed, target)
			continue
		}

		if err := m.publisher.Publish(ctx, target, subject, message); err != nil {
			m.logger.Error("Error sending notification", "target", target, "url", product.URL, "error", err)
			res.Failures = append(res.Failures, stock.TargetFailure{TargetID: target, Stage: stock.StagePublish, Err: err})
			if err := m.gate.Release(ctx, product.URL, target); err != nil {
				res.Failures = append(res.Failures, stock.TargetFailure{TargetID: target, Stage: stock.StageGate, Err: err})
			}
			continue
		}
		m.logger.Info("Notification sent", "target", target, "url", product.URL)
		res.Notified = append(res.Notified, target)
	}

	return res
}
