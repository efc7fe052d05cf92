// Package extract derives a product's availability from its page body.
//
// Product pages embed the purchase button state in different shapes depending
// on markup version, so each shape is a separate Extractor and Chain combines them.
package extract

import (
	"fmt"
	"log/slog"

	"instock-notifier/pkg/stock"
)

// Extractor maps a page body to an availability state. Implementations never
// panic on malformed input; anything they cannot read is stock.Unknown.
type Extractor interface {
	Extract(body string) stock.Availability
}

// Chain tries each extractor in order and returns the first known state.
type Chain []Extractor

// Extract implements Extractor.
func (c Chain) Extract(body string) stock.Availability {
	for _, e := range c {
		if a := e.Extract(body); a != stock.Unknown {
			return a
		}
	}
	return stock.Unknown
}

// ForStrategy builds the extractor named by a config strategy: "direct",
// "nested" or "both".
func ForStrategy(name string, logger *slog.Logger) (Extractor, error) {
	switch name {
	case "direct":
		return NewDirectFlag(logger), nil
	case "nested":
		return NewNestedComponent(logger), nil
	case "both":
		return Chain{NewDirectFlag(logger), NewNestedComponent(logger)}, nil
	default:
		return nil, fmt.Errorf("unknown extraction strategy %q", name)
	}
}
