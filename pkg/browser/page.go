package browser

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/entrhq/scout/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("browser")
	if err != nil {
		debugLog.Warnf("Failed to initialize browser logger, using stderr fallback: %v", err)
	}
}

// Special navigation targets understood by Page.Navigate.
const (
	TargetBack    = "back"
	TargetForward = "forward"
	TargetReload  = "reload"
)

// Snapshot is what Page.Read sees.
type Snapshot struct {
	URL     string
	Title   string
	Content string
}

// Page offers the agent's browsing primitives on top of an Actuator.
type Page struct {
	actuator   Actuator
	guard      *URLGuard
	maxContent int
}

// PageOption configures a Page.
type PageOption func(*Page)

// WithURLGuard restricts which URLs Navigate opens.
func WithURLGuard(g *URLGuard) PageOption {
	return func(p *Page) { p.guard = g }
}

// WithMaxContentLength bounds the text returned by Read.
func WithMaxContentLength(n int) PageOption {
	return func(p *Page) {
		if n > 0 {
			p.maxContent = n
		}
	}
}

// NewPage wraps an actuator.
func NewPage(a Actuator, opts ...PageOption) *Page {
	p := &Page{actuator: a, maxContent: DefaultMaxContentLength}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Actuator returns the underlying actuator.
func (p *Page) Actuator() Actuator {
	return p.actuator
}

// Read returns the current URL, title and flattened visible text. The text
// starts with an estimate of how far down the page the viewport is.
func (p *Page) Read(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.URL, err = p.actuator.CurrentURL(ctx); err != nil {
		return snap, fmt.Errorf("failed to read URL: %w", err)
	}
	if snap.Title, err = p.actuator.Title(ctx); err != nil {
		return snap, fmt.Errorf("failed to read title: %w", err)
	}

	raw, err := p.actuator.Evaluate(ctx, readScript, nil)
	if err != nil {
		return snap, fmt.Errorf("failed to read page content: %w", err)
	}
	m, _ := raw.(map[string]interface{})
	markup, _ := m["html"].(string)

	text, err := Flatten(markup, p.maxContent)
	if err != nil {
		return snap, err
	}
	position := ScrollPercent(number(m["scrollY"]), number(m["innerHeight"]), number(m["scrollHeight"]))
	snap.Content = fmt.Sprintf("[Scroll position: %d%%]\n%s", position, text)
	return snap, nil
}

// Navigate opens rawURL. The targets "back", "forward" and "reload" move
// through history instead; going back or forward with nowhere to go is a
// no-op.
func (p *Page) Navigate(ctx context.Context, rawURL string) error {
	switch strings.ToLower(strings.TrimSpace(rawURL)) {
	case TargetBack:
		ok, err := p.actuator.CanGoBack(ctx)
		if err != nil || !ok {
			return err
		}
		return p.actuator.GoBack(ctx)
	case TargetForward:
		ok, err := p.actuator.CanGoForward(ctx)
		if err != nil || !ok {
			return err
		}
		return p.actuator.GoForward(ctx)
	case TargetReload:
		return p.actuator.Reload(ctx)
	}

	target := NormalizeURL(rawURL)
	if err := p.guard.Check(target); err != nil {
		debugLog.Warnf("Refusing to open %s: %v", target, err)
		return err
	}
	if err := p.actuator.LoadURL(ctx, target); err != nil {
		return fmt.Errorf("failed to load %s: %w", target, err)
	}
	return nil
}

// Click clicks the element matching selector. Selectors that are not valid
// CSS or match nothing are tried as the visible text of a link or button.
func (p *Page) Click(ctx context.Context, selector string) error {
	res, err := p.actuator.Evaluate(ctx, clickScript, selector)
	if err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return elementResult(res, selector)
}

// Type enters text into the element matching selector. A trailing newline
// submits the surrounding form.
func (p *Page) Type(ctx context.Context, selector, text string) error {
	res, err := p.actuator.Evaluate(ctx, typeScript, map[string]interface{}{"sel": selector, "text": text})
	if err != nil {
		return fmt.Errorf("type into %s: %w", selector, err)
	}
	return elementResult(res, selector)
}

// Scroll moves the viewport up or down by amount pixels, or most of a
// screen when amount is 0.
func (p *Page) Scroll(ctx context.Context, direction string, amount int) error {
	if direction != "up" {
		direction = "down"
	}
	_, err := p.actuator.Evaluate(ctx, scrollScript, map[string]interface{}{"direction": direction, "amount": amount})
	if err != nil {
		return fmt.Errorf("scroll %s: %w", direction, err)
	}
	return nil
}

// Screenshot captures the viewport as PNG.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	return p.actuator.Screenshot(ctx)
}

func elementResult(res interface{}, selector string) error {
	if s, _ := res.(string); s == "not_found" {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return nil
}

// ScrollPercent estimates how much of the page has been seen, from the
// scroll offset, viewport height and document height.
func ScrollPercent(scrollY, innerHeight, scrollHeight float64) int {
	if scrollHeight <= 0 || scrollHeight <= innerHeight {
		return 100
	}
	pct := (scrollY + innerHeight) / scrollHeight * 100
	return int(math.Round(math.Max(0, math.Min(100, pct))))
}

func number(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
