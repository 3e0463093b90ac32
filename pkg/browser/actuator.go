// Package browser drives the live browsing surface the agent works on.
//
// An Actuator is the raw capability: load a URL, move through history,
// evaluate script, take a screenshot. Page builds the higher level
// primitives the agent uses (read, click, type, scroll) on top of any
// Actuator, so the agent never depends on a particular automation library.
package browser

import (
	"context"
	"errors"
)

var (
	// ErrElementNotFound is returned when a selector matches nothing.
	ErrElementNotFound = errors.New("element not found")
	// ErrNavigationDenied is returned when a URL is rejected by the URLGuard.
	ErrNavigationDenied = errors.New("navigation denied")
	// ErrClosed is returned by an actuator that has been closed.
	ErrClosed = errors.New("browser closed")
)

// Actuator is the capability exposed by a browsing surface.
type Actuator interface {
	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	LoadURL(ctx context.Context, url string) error
	CanGoBack(ctx context.Context) (bool, error)
	GoBack(ctx context.Context) error
	CanGoForward(ctx context.Context) (bool, error)
	GoForward(ctx context.Context) error
	Reload(ctx context.Context) error

	// Evaluate runs a JavaScript function expression with arg and returns
	// its JSON-compatible result.
	Evaluate(ctx context.Context, script string, arg interface{}) (interface{}, error)

	// Screenshot captures the viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	Close() error
}
