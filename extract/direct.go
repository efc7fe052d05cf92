package extract

import (
	"log/slog"
	"regexp"

	"instock-notifier/pkg/stock"
)

var buttonStateRegex = regexp.MustCompile(`"buttonState":"(.*?)"`)

// DirectFlag reads the first "buttonState":"<value>" token in the page.
type DirectFlag struct {
	logger *slog.Logger
}

// NewDirectFlag creates a direct-flag extractor.
func NewDirectFlag(logger *slog.Logger) *DirectFlag {
	return &DirectFlag{logger: logger}
}

// Extract implements Extractor.
func (d *DirectFlag) Extract(body string) stock.Availability {
	m := buttonStateRegex.FindStringSubmatch(body)
	if m == nil {
		d.logger.Debug("Button state not found", "strategy", "direct")
		return stock.Unknown
	}

	switch m[1] {
	case "ADD_TO_CART", "CHECK_STORES":
		return stock.Available
	default:
		d.logger.Debug("Button state not purchasable", "strategy", "direct", "button_state", m[1])
		return stock.Unavailable
	}
}
