// Package browsertest provides an in-memory browser actuator for tests.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Page is one fake document.
type Page struct {
	Title string
	HTML  string
	// Elements lists the selectors that exist on the page.
	Elements []string
	// ScrollHeight is the document height; zero means it fits the viewport.
	ScrollHeight float64
}

// Actuator serves pages from a map and records what scripts do. It never
// executes JavaScript; it recognizes the browser package's scripts by the
// shape of their arguments.
type Actuator struct {
	Pages       map[string]Page
	InnerHeight float64
	PNG         []byte
	// Err, when set, is returned by every call.
	Err error

	mu      sync.Mutex
	history []string
	index   int
	scrollY float64
	clicks  []string
	typed   map[string]string
	scripts int
	closed  bool
}

// New returns an actuator positioned on about:blank.
func New(pages map[string]Page) *Actuator {
	if pages == nil {
		pages = make(map[string]Page)
	}
	return &Actuator{
		Pages:       pages,
		InnerHeight: 800,
		PNG:         []byte{0x89, 'P', 'N', 'G'},
		history:     []string{"about:blank"},
		typed:       make(map[string]string),
	}
}

func (a *Actuator) current() Page {
	return a.Pages[a.history[a.index]]
}

// CurrentURL implements browser.Actuator.
func (a *Actuator) CurrentURL(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return "", a.Err
	}
	return a.history[a.index], nil
}

// Title implements browser.Actuator.
func (a *Actuator) Title(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return "", a.Err
	}
	return a.current().Title, nil
}

// LoadURL implements browser.Actuator.
func (a *Actuator) LoadURL(ctx context.Context, url string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	if _, ok := a.Pages[url]; !ok {
		return fmt.Errorf("net::ERR_NAME_NOT_RESOLVED at %s", url)
	}
	a.history = append(a.history[:a.index+1], url)
	a.index = len(a.history) - 1
	a.scrollY = 0
	return nil
}

// CanGoBack implements browser.Actuator.
func (a *Actuator) CanGoBack(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.index > 0, a.Err
}

// GoBack implements browser.Actuator.
func (a *Actuator) GoBack(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.index > 0 {
		a.index--
	}
	return a.Err
}

// CanGoForward implements browser.Actuator.
func (a *Actuator) CanGoForward(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.index < len(a.history)-1, a.Err
}

// GoForward implements browser.Actuator.
func (a *Actuator) GoForward(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.index < len(a.history)-1 {
		a.index++
	}
	return a.Err
}

// Reload implements browser.Actuator.
func (a *Actuator) Reload(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scrollY = 0
	return a.Err
}

// Evaluate implements browser.Actuator.
func (a *Actuator) Evaluate(ctx context.Context, script string, arg interface{}) (interface{}, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return nil, a.Err
	}
	a.scripts++

	switch v := arg.(type) {
	case nil:
		if strings.Contains(script, "history.length") {
			return float64(a.index + 1), nil
		}
		page := a.current()
		return map[string]interface{}{
			"html":         page.HTML,
			"scrollY":      a.scrollY,
			"innerHeight":  a.InnerHeight,
			"scrollHeight": page.ScrollHeight,
		}, nil
	case string:
		if !a.has(v) {
			return "not_found", nil
		}
		a.clicks = append(a.clicks, v)
		return "ok", nil
	case map[string]interface{}:
		if dir, ok := v["direction"].(string); ok {
			step := a.InnerHeight * 0.8
			if amount, _ := v["amount"].(int); amount > 0 {
				step = float64(amount)
			}
			if dir == "up" {
				step = -step
			}
			a.scrollY += step
			if a.scrollY < 0 {
				a.scrollY = 0
			}
			return a.scrollY, nil
		}
		sel, _ := v["sel"].(string)
		if !a.has(sel) {
			return "not_found", nil
		}
		a.typed[sel], _ = v["text"].(string)
		return "ok", nil
	}
	return nil, fmt.Errorf("unexpected script argument %T", arg)
}

func (a *Actuator) has(selector string) bool {
	for _, e := range a.current().Elements {
		if e == selector {
			return true
		}
	}
	return false
}

// Screenshot implements browser.Actuator.
func (a *Actuator) Screenshot(ctx context.Context) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return nil, a.Err
	}
	return append([]byte(nil), a.PNG...), nil
}

// Close implements browser.Actuator.
func (a *Actuator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

// Closed reports whether Close was called.
func (a *Actuator) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// Clicks returns the selectors clicked so far.
func (a *Actuator) Clicks() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.clicks...)
}

// Typed returns the text last typed into selector.
func (a *Actuator) Typed(selector string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.typed[selector]
}

// ScrollY returns the current scroll offset.
func (a *Actuator) ScrollY() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scrollY
}

// ScriptCount returns how many scripts were evaluated.
func (a *Actuator) ScriptCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scripts
}
