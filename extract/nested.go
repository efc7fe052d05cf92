package extract

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"instock-notifier/pkg/stock"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultComponentMarker identifies the script that initializes the add-to-cart component.
	DefaultComponentMarker = "add-to-cart-button"
	// DefaultFragmentMarker is the start of the component state object inside that script.
	DefaultFragmentMarker = `{"app":`
)

var errFragmentNotFound = errors.New("state fragment not found")

type componentState struct {
	ButtonState struct {
		ButtonState string `json:"buttonState"`
	} `json:"buttonState"`
}

// NestedComponent reads buttonState.buttonState from the JSON state passed to
// the add-to-cart component's initializer script.
type NestedComponent struct {
	logger          *slog.Logger
	componentMarker string
	fragmentMarker  string
}

// NewNestedComponent creates a nested-component extractor with the default markers.
func NewNestedComponent(logger *slog.Logger) *NestedComponent {
	return &NestedComponent{
		logger:          logger,
		componentMarker: DefaultComponentMarker,
		fragmentMarker:  DefaultFragmentMarker,
	}
}

// Extract implements Extractor.
func (n *NestedComponent) Extract(body string) stock.Availability {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		n.logger.Debug("Failed to parse HTML", "strategy", "nested", "error", err)
		return stock.Unknown
	}

	var script string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if strings.Contains(text, n.componentMarker) {
			script = text
			return false
		}
		return true
	})
	if script == "" {
		n.logger.Debug("Component block not found", "strategy", "nested", "marker", n.componentMarker)
		return stock.Unknown
	}

	fragment, err := n.fragment(script)
	if err != nil {
		n.logger.Debug("Component state not readable", "strategy", "nested", "error", err)
		return stock.Unknown
	}

	var state componentState
	if err := json.NewDecoder(strings.NewReader(fragment)).Decode(&state); err != nil {
		n.logger.Debug("Failed to decode component state", "strategy", "nested", "error", err)
		return stock.Unknown
	}

	switch state.ButtonState.ButtonState {
	case "":
		n.logger.Debug("Button state missing from component state", "strategy", "nested")
		return stock.Unknown
	case "ADD_TO_CART":
		return stock.Available
	default:
		n.logger.Debug("Button state not purchasable", "strategy", "nested", "button_state", state.ButtonState.ButtonState)
		return stock.Unavailable
	}
}

// fragment returns the JSON text starting at the fragment marker. The state is
// embedded either as a raw object literal or as an escaped JS string.
func (n *NestedComponent) fragment(script string) (string, error) {
	escaped := strings.ReplaceAll(n.fragmentMarker, `"`, `\"`)
	if i := strings.Index(script, escaped); i >= 0 {
		return unescapeJS(stringBody(script[i:]))
	}
	if i := strings.Index(script, n.fragmentMarker); i >= 0 {
		return script[i:], nil
	}
	return "", errFragmentNotFound
}

// stringBody returns s up to the first unescaped double quote.
func stringBody(s string) string {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return s[:i]
		}
	}
	return s
}

func unescapeJS(s string) (string, error) {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err == nil {
		return out, nil
	}
	out, err := strconv.Unquote(`"` + s + `"`)
	if err != nil {
		return "", errors.New("unescape state fragment: invalid escape sequence")
	}
	return out, nil
}
