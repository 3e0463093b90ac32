package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/entrhq/scout/pkg/agent/action"
	"github.com/entrhq/scout/pkg/agent/planner"
	"github.com/entrhq/scout/pkg/browser"
	"github.com/entrhq/scout/pkg/types"
)

// fakePlanner replies with scripted plans. Once the script runs out it
// keeps repeating the last entry.
type fakePlanner struct {
	mu         sync.Mutex
	script     []string
	requests   []planner.Request
	summary    string
	summaries  int
	summaryURL string
	vision     string
	visionErr  error
	planErr    error
	// hook runs at the start of every Plan call with the call number.
	hook func(ctx context.Context, call int) error
}

func newFakePlanner(script ...string) *fakePlanner {
	return &fakePlanner{script: script, summary: "summary of findings"}
}

func (f *fakePlanner) Plan(ctx context.Context, req planner.Request) (*action.Plan, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	call := len(f.requests)
	hook, planErr := f.hook, f.planErr
	var raw string
	if len(f.script) > 0 {
		idx := call - 1
		if idx >= len(f.script) {
			idx = len(f.script) - 1
		}
		raw = f.script[idx]
	}
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, call); err != nil {
			return nil, err
		}
	}
	if planErr != nil {
		return nil, planErr
	}
	plan, err := action.ParsePlan(raw)
	if err != nil {
		return action.DefaultPlan(), nil
	}
	return plan, nil
}

func (f *fakePlanner) Summarize(ctx context.Context, goal, content, url string, history []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries++
	f.summaryURL = url
	if f.summary == "" {
		return "", errors.New("summary unavailable")
	}
	return f.summary, nil
}

func (f *fakePlanner) CompareProducts(ctx context.Context, products []types.Product) (string, error) {
	return fmt.Sprintf("| %d products |\n\n## Recommendation\n%s", len(products), products[0].Title), nil
}

func (f *fakePlanner) AnalyzeScreenshot(ctx context.Context, prompt string, png []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.visionErr != nil {
		return "", f.visionErr
	}
	return f.vision, nil
}

func (f *fakePlanner) Requests() []planner.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]planner.Request(nil), f.requests...)
}

func (f *fakePlanner) SummaryURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaryURL
}

func (f *fakePlanner) Summaries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaries
}

// fakeSurface records calls and serves a fixed page.
type fakeSurface struct {
	mu       sync.Mutex
	url      string
	calls    []string
	readErr  error
	clickErr error
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{url: "https://shop.example/"}
}

func (f *fakeSurface) Read(ctx context.Context) (browser.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return browser.Snapshot{}, f.readErr
	}
	return browser.Snapshot{URL: f.url, Title: "Shop", Content: "[Scroll position: 25%]\nKettles"}, nil
}

func (f *fakeSurface) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "navigate "+url)
	f.url = url
	return nil
}

func (f *fakeSurface) Click(ctx context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "click "+selector)
	return f.clickErr
}

func (f *fakeSurface) Type(ctx context.Context, selector, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "type "+selector+" "+text)
	return nil
}

func (f *fakeSurface) Scroll(ctx context.Context, direction string, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "scroll "+direction)
	return nil
}

func (f *fakeSurface) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func fastTiming() Timing {
	return Timing{
		Navigate:    time.Millisecond,
		Click:       time.Millisecond,
		Type:        time.Millisecond,
		Scroll:      time.Millisecond,
		Finding:     time.Millisecond,
		DefaultWait: time.Millisecond,
		Feedback:    2 * time.Second,
		Vision:      2 * time.Second,
		Summary:     time.Second,
	}
}

func newTestRunner(t *testing.T, surface Surface, p Planner, opts ...Option) *Runner {
	t.Helper()
	opts = append([]Option{WithTiming(fastTiming()), WithBudget(10 * time.Second)}, opts...)
	r, err := NewRunner(surface, p, opts...)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

// collect reads every update until the channel closes, calling react on
// each one as it arrives.
func collect(t *testing.T, s *Session, react func(*types.Update)) []*types.Update {
	t.Helper()
	var got []*types.Update
	deadline := time.After(10 * time.Second)
	for {
		select {
		case u, ok := <-s.Updates():
			if !ok {
				return got
			}
			got = append(got, u)
			if react != nil {
				react(u)
			}
		case <-deadline:
			s.Cancel()
			t.Fatalf("session did not finish; %d updates so far", len(got))
			return got
		}
	}
}

func terminal(t *testing.T, updates []*types.Update) *types.Update {
	t.Helper()
	count := 0
	for _, u := range updates {
		if u.IsComplete {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one terminal update, got %d", count)
	}
	last := updates[len(updates)-1]
	if !last.IsComplete {
		t.Fatalf("terminal update is not last: %+v", last)
	}
	return last
}

func ofType(updates []*types.Update, typ types.UpdateType) []*types.Update {
	var out []*types.Update
	for _, u := range updates {
		if u.Type == typ {
			out = append(out, u)
		}
	}
	return out
}
