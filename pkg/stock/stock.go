// Package stock contains the core domain types for the in-stock notification service.
package stock

import "time"

// Product is a monitored product page and the targets to notify when it becomes available.
type Product struct {
	Title   string   `json:"title" yaml:"title"`
	URL     string   `json:"url" yaml:"url"`
	Targets []string `json:"targets" yaml:"targets"` // Ordered, unique per product
}

// Availability is the normalized availability state of a product page.
type Availability int

const (
	Unknown Availability = iota
	Available
	Unavailable
)

func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Outcome classifies a single page fetch attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTimeout
	OutcomeTransportError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "transport_error"
	}
}

// FetchResult is the result of one page fetch. Body is only set on OutcomeSuccess.
type FetchResult struct {
	Product    Product
	Body       string
	StatusCode int
	Outcome    Outcome
	Err        error
	Duration   time.Duration
}

// Suppression marks a (product, target) pair as already notified until SuppressedUntil.
type Suppression struct {
	SuppressedUntil time.Time `json:"suppressed_until"`
	ProductURL      string    `json:"product_url"`
	TargetID        string    `json:"target_id"`
}

// Stage names where a per-target failure happened.
type Stage string

const (
	StageGate    Stage = "gate"
	StagePublish Stage = "publish"
)

// TargetFailure records a failure for one target of a product.
type TargetFailure struct {
	Err      error
	TargetID string
	Stage    Stage
}

// Result is the outcome of one unit of work (fetch, extract, gate, publish) for a product.
type Result struct {
	Err          error // Set when the unit itself failed (e.g. recovered panic)
	Product      Product
	Notified     []string
	Suppressed   []string
	Failures     []TargetFailure
	Outcome      Outcome
	Availability Availability
}
