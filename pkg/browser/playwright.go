package browser

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Defaults for a launched browser.
const (
	DefaultViewportWidth     = 1280
	DefaultViewportHeight    = 800
	DefaultNavigationTimeout = 30 * time.Second
)

// LaunchOptions configures a PlaywrightActuator.
type LaunchOptions struct {
	Headless          bool
	ViewportWidth     int
	ViewportHeight    int
	NavigationTimeout time.Duration
	// SkipInstall assumes the browsers are already installed.
	SkipInstall bool
}

// PlaywrightActuator drives one Chromium page through playwright-go.
type PlaywrightActuator struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	mu      sync.Mutex
	forward int
	closed  bool
}

// Launch installs Playwright if needed, starts Chromium and opens a page.
func Launch(opts LaunchOptions) (*PlaywrightActuator, error) {
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = DefaultViewportWidth
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = DefaultViewportHeight
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = DefaultNavigationTimeout
	}

	// Keep driver output off the terminal the executor renders to
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if !opts.SkipInstall {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	timeout := float64(opts.NavigationTimeout.Milliseconds())
	page.SetDefaultNavigationTimeout(timeout)
	page.SetDefaultTimeout(timeout)

	debugLog.Infof("Launched Chromium (headless=%v, viewport=%dx%d)", opts.Headless, opts.ViewportWidth, opts.ViewportHeight)
	return &PlaywrightActuator{pw: pw, browser: browser, context: bctx, page: page}, nil
}

func (a *PlaywrightActuator) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	return nil
}

// CurrentURL implements Actuator.
func (a *PlaywrightActuator) CurrentURL(ctx context.Context) (string, error) {
	if err := a.check(ctx); err != nil {
		return "", err
	}
	return a.page.URL(), nil
}

// Title implements Actuator.
func (a *PlaywrightActuator) Title(ctx context.Context) (string, error) {
	if err := a.check(ctx); err != nil {
		return "", err
	}
	return a.page.Title()
}

// LoadURL implements Actuator. It returns once the DOM has loaded.
func (a *PlaywrightActuator) LoadURL(ctx context.Context, url string) error {
	if err := a.check(ctx); err != nil {
		return err
	}
	waitUntil := playwright.WaitUntilState("domcontentloaded")
	if _, err := a.page.Goto(url, playwright.PageGotoOptions{WaitUntil: &waitUntil}); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	a.mu.Lock()
	a.forward = 0
	a.mu.Unlock()
	return nil
}

// CanGoBack implements Actuator.
func (a *PlaywrightActuator) CanGoBack(ctx context.Context) (bool, error) {
	res, err := a.Evaluate(ctx, historyLengthScript, nil)
	if err != nil {
		return false, err
	}
	return number(res) > 1, nil
}

// GoBack implements Actuator.
func (a *PlaywrightActuator) GoBack(ctx context.Context) error {
	if err := a.check(ctx); err != nil {
		return err
	}
	resp, err := a.page.GoBack()
	if err != nil {
		return fmt.Errorf("go back failed: %w", err)
	}
	if resp != nil {
		a.mu.Lock()
		a.forward++
		a.mu.Unlock()
	}
	return nil
}

// CanGoForward implements Actuator. Browsers do not expose forward history
// to scripts, so it is counted here.
func (a *PlaywrightActuator) CanGoForward(ctx context.Context) (bool, error) {
	if err := a.check(ctx); err != nil {
		return false, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.forward > 0, nil
}

// GoForward implements Actuator.
func (a *PlaywrightActuator) GoForward(ctx context.Context) error {
	if err := a.check(ctx); err != nil {
		return err
	}
	resp, err := a.page.GoForward()
	if err != nil {
		return fmt.Errorf("go forward failed: %w", err)
	}
	if resp != nil {
		a.mu.Lock()
		if a.forward > 0 {
			a.forward--
		}
		a.mu.Unlock()
	}
	return nil
}

// Reload implements Actuator.
func (a *PlaywrightActuator) Reload(ctx context.Context) error {
	if err := a.check(ctx); err != nil {
		return err
	}
	if _, err := a.page.Reload(); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	return nil
}

// Evaluate implements Actuator.
func (a *PlaywrightActuator) Evaluate(ctx context.Context, script string, arg interface{}) (interface{}, error) {
	if err := a.check(ctx); err != nil {
		return nil, err
	}
	if arg == nil {
		return a.page.Evaluate(script)
	}
	return a.page.Evaluate(script, arg)
}

// Screenshot implements Actuator.
func (a *PlaywrightActuator) Screenshot(ctx context.Context) ([]byte, error) {
	if err := a.check(ctx); err != nil {
		return nil, err
	}
	png, err := a.page.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return png, nil
}

// Close shuts down the page, browser and driver. It is safe to call twice.
func (a *PlaywrightActuator) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	var firstErr error
	if err := a.context.Close(); err != nil {
		firstErr = err
	}
	if err := a.browser.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.pw.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return fmt.Errorf("failed to close browser: %w", firstErr)
	}
	return nil
}
