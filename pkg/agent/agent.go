// Package agent runs the browsing agent's perceive, plan and act loop.
//
// A Runner holds what lives across sessions: the browsing surface, the
// planner and the timing configuration. Each call to Browse starts a new
// Session that owns its own ledger, products and rendezvous points:
//
//	runner, err := agent.NewRunner(page, plannerClient)
//	session := runner.Browse(ctx, "find a stainless steel kettle under $50")
//	for u := range session.Updates() {
//		fmt.Println(u.Status)
//	}
//
// The Updates channel always ends with exactly one terminal update and is
// then closed. Sessions are not restartable.
//
// The package is organized with subpackages for the pieces the loop uses:
//   - action: the action vocabulary and plan parsing
//   - planner: prompts and model calls
//   - ledger: the session's append-only history
//   - rendezvous: one-shot waits for caller supplied values
//   - products: the collection of accepted products
package agent

import (
	"context"
	"errors"
	"time"

	"github.com/entrhq/scout/pkg/agent/action"
	"github.com/entrhq/scout/pkg/agent/planner"
	"github.com/entrhq/scout/pkg/browser"
	"github.com/entrhq/scout/pkg/logging"
	"github.com/entrhq/scout/pkg/metrics"
	"github.com/entrhq/scout/pkg/types"
)

var agentDebugLog *logging.Logger

func init() {
	var err error
	agentDebugLog, err = logging.NewLogger("agent")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		agentDebugLog.Warnf("Failed to initialize agent logger, using stderr fallback: %v", err)
	}
}

// Surface is the browsing surface the loop drives. *browser.Page
// implements it.
type Surface interface {
	Read(ctx context.Context) (browser.Snapshot, error)
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	Scroll(ctx context.Context, direction string, amount int) error
}

// Planner decides what to do next and writes reports. *planner.Client
// implements it.
type Planner interface {
	Plan(ctx context.Context, req planner.Request) (*action.Plan, error)
	Summarize(ctx context.Context, goal, content, url string, history []string) (string, error)
	CompareProducts(ctx context.Context, products []types.Product) (string, error)
	AnalyzeScreenshot(ctx context.Context, prompt string, png []byte) (string, error)
}

// Default time budgets.
const (
	DefaultBudget     = 2 * time.Minute
	DefaultDeepBudget = 30 * time.Minute
)

// Timing holds the pacing after each action and the rendezvous windows.
type Timing struct {
	Navigate    time.Duration
	Click       time.Duration
	Type        time.Duration
	Scroll      time.Duration
	Finding     time.Duration
	DefaultWait time.Duration

	Feedback time.Duration
	Vision   time.Duration
	Summary  time.Duration
}

// DefaultTiming returns the pacing used by interactive sessions.
func DefaultTiming() Timing {
	return Timing{
		Navigate:    2 * time.Second,
		Click:       2 * time.Second,
		Type:        1100 * time.Millisecond,
		Scroll:      800 * time.Millisecond,
		Finding:     500 * time.Millisecond,
		DefaultWait: action.DefaultWait,
		Feedback:    45 * time.Second,
		Vision:      10 * time.Second,
		Summary:     time.Minute,
	}
}

// Runner starts Sessions against one surface. Run one Session at a time
// per surface; sessions do not coordinate their use of the page.
type Runner struct {
	surface    Surface
	planner    Planner
	metrics    *metrics.Collector
	timing     Timing
	budget     time.Duration
	deepBudget time.Duration
	bufferSize int
}

// Option configures a Runner.
type Option func(*Runner)

// WithBudget sets the default time budget.
func WithBudget(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.budget = d
		}
	}
}

// WithDeepBudget sets the budget used by sessions started WithDeep.
func WithDeepBudget(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.deepBudget = d
		}
	}
}

// WithTiming replaces the pacing and rendezvous windows.
func WithTiming(t Timing) Option {
	return func(r *Runner) {
		r.timing = t
	}
}

// WithMetrics records session, iteration and action metrics.
func WithMetrics(m *metrics.Collector) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithBufferSize sets the Updates channel buffer size.
func WithBufferSize(size int) Option {
	return func(r *Runner) {
		if size >= 0 {
			r.bufferSize = size
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(surface Surface, p Planner, opts ...Option) (*Runner, error) {
	if surface == nil {
		return nil, errors.New("browsing surface is required")
	}
	if p == nil {
		return nil, errors.New("planner is required")
	}

	r := &Runner{
		surface:    surface,
		planner:    p,
		timing:     DefaultTiming(),
		budget:     DefaultBudget,
		deepBudget: DefaultDeepBudget,
		bufferSize: 32,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Browse starts a Session for goal and returns immediately. The Session
// ends when the agent completes or fails, when the budget runs out, or when
// ctx is cancelled. Callers that stop reading Updates must cancel ctx or
// call Session.Cancel.
func (r *Runner) Browse(ctx context.Context, goal string, opts ...SessionOption) *Session {
	s := newSession(r, goal, opts...)

	sctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	r.metrics.SessionStarted()
	agentDebugLog.Infof("Session %s started: %q (budget %s)", s.id, goal, s.budget)

	go s.run(sctx)
	return s
}
