package headless

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"golang.org/x/sync/errgroup"

	"github.com/entrhq/scout/pkg/agent"
	"github.com/entrhq/scout/pkg/logging"
	"github.com/entrhq/scout/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("headless")
	if err != nil {
		debugLog.Warnf("Failed to initialize headless logger, using stderr fallback: %v", err)
	}
}

// compareTimeout bounds the product comparison written after the run.
const compareTimeout = time.Minute

// Screenshotter captures the live page.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// Option configures an Executor.
type Option func(*Executor)

// WithInput reads commands from r instead of stdin.
func WithInput(r io.Reader) Option {
	return func(e *Executor) { e.input = r }
}

// WithOutput renders to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Executor) { e.output = w }
}

// WithClipboard replaces the system clipboard.
func WithClipboard(copyFn func(string) error) Option {
	return func(e *Executor) { e.copy = copyFn }
}

// Executor runs one browse Session from a terminal.
type Executor struct {
	runner    *agent.Runner
	shooter   Screenshotter
	config    *Config
	console   *Console
	artifacts *ArtifactWriter

	input  io.Reader
	output io.Writer
	copy   func(string) error

	// asked is the request id of the proposal put to the user.
	mu    sync.Mutex
	asked string
}

// NewExecutor creates an executor. shooter may be nil, in which case look
// requests go unanswered and accepted products carry no screenshot.
func NewExecutor(runner *agent.Runner, shooter Screenshotter, config *Config, opts ...Option) (*Executor, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e := &Executor{
		runner:  runner,
		shooter: shooter,
		config:  config,
		input:   os.Stdin,
		output:  os.Stdout,
		copy:    clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.console = NewConsole(e.output, parseLogLevel(config.Verbosity))
	if config.Artifacts.Enabled {
		e.artifacts = NewArtifactWriter(config.Artifacts.OutputDir, config.Artifacts)
	}
	return e, nil
}

// Run browses until the Session ends and returns its result. The error is
// non-nil only when the Session ended in an unrecoverable failure.
func (e *Executor) Run(ctx context.Context) (*agent.Result, error) {
	var opts []agent.SessionOption
	if e.config.Deep {
		opts = append(opts, agent.WithDeep())
	}
	if e.config.Budget > 0 {
		opts = append(opts, agent.WithSessionBudget(e.config.Budget))
	}
	if e.config.StartURL != "" {
		opts = append(opts, agent.WithStartURL(e.config.StartURL))
	}

	s := e.runner.Browse(ctx, e.config.Goal, opts...)
	debugLog.Infof("Headless run started: session %s", s.ID())

	e.console.Header("Scout: " + e.config.Goal)
	e.console.Infof("Budget %s. Commands: /pause, /resume, /quit; anything else is guidance.", s.Budget())

	g, gctx := errgroup.WithContext(ctx)
	lines := readLines(s.Done(), e.input)
	g.Go(func() error { return e.consume(gctx, s) })
	g.Go(func() error { return e.commands(gctx, s, lines) })
	if err := g.Wait(); err != nil {
		s.Cancel()
		<-s.Done()
		debugLog.Errorf("Headless run interrupted: %v", err)
	}

	res := s.Result()
	if res == nil {
		return nil, fmt.Errorf("session %s ended without a result", s.ID())
	}
	e.console.Summary(res)
	e.finish(ctx, s, res)

	if res.Outcome == agent.OutcomeError {
		return res, fmt.Errorf("research failed: %s", res.Error)
	}
	return res, nil
}

// consume renders updates and answers proposals and look requests that do
// not need the user.
func (e *Executor) consume(ctx context.Context, s *agent.Session) error {
	for u := range s.Updates() {
		e.console.Update(u)

		switch {
		case u.WaitingForFeedback:
			switch e.config.Feedback {
			case FeedbackAccept:
				s.ProvideFeedbackFor(u.RequestID, true, e.screenshot(ctx))
			case FeedbackDecline:
				s.ProvideFeedbackFor(u.RequestID, false, nil)
			default:
				e.mu.Lock()
				e.asked = u.RequestID
				e.mu.Unlock()
				e.console.println(e.console.question, "  Do you like it? (y/n)")
			}
		case u.TakingScreenshot:
			png := e.screenshot(ctx)
			if png == nil || !s.SuppliedScreenshotFor(u.RequestID, png) {
				e.console.Warningf("could not supply a screenshot")
			}
		}
	}
	return nil
}

// commands applies console input until the Session ends.
func (e *Executor) commands(ctx context.Context, s *agent.Session, lines <-chan string) error {
	for {
		select {
		case <-s.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			in := types.ParseInput(line, s.AwaitingFeedback())
			if in != nil {
				e.apply(ctx, s, in)
			}
		}
	}
}

func (e *Executor) apply(ctx context.Context, s *agent.Session, in *types.Input) {
	switch in.Type {
	case types.InputTypePause:
		if !s.Pause() {
			e.console.Warningf("already paused")
		}
	case types.InputTypeResume:
		if !s.Resume() {
			e.console.Warningf("not paused")
		}
	case types.InputTypeCancel:
		e.console.Infof("Stopping...")
		s.Cancel()
	case types.InputTypeFeedback:
		var png []byte
		if in.Liked {
			png = e.screenshot(ctx)
		}
		e.mu.Lock()
		id := e.asked
		e.asked = ""
		e.mu.Unlock()
		if !s.ProvideFeedbackFor(id, in.Liked, png) {
			e.console.Warningf("no product is waiting for feedback")
		}
	case types.InputTypeMessage:
		if !s.AddUserMessage(in.Content) {
			e.console.Warningf("the session has ended")
		}
	}
}

func (e *Executor) screenshot(ctx context.Context) []byte {
	if e.shooter == nil {
		return nil
	}
	png, err := e.shooter.Screenshot(ctx)
	if err != nil {
		debugLog.Warnf("Screenshot failed: %v", err)
		return nil
	}
	return png
}

// finish writes artifacts and copies the report.
func (e *Executor) finish(ctx context.Context, s *agent.Session, res *agent.Result) {
	var comparison string
	if len(res.Products) > 1 {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compareTimeout)
		cmp, err := s.CompareProducts(cctx)
		cancel()
		if err != nil {
			e.console.Warningf("product comparison failed: %v", err)
		} else {
			comparison = cmp
			e.console.Infof("\n%s", cmp)
		}
	}

	if e.artifacts != nil {
		dir := filepath.Join(e.artifacts.Dir(), s.ID())
		w := NewArtifactWriter(dir, e.config.Artifacts)
		if err := w.WriteAll(res, comparison); err != nil {
			e.console.Warningf("failed to write artifacts: %v", err)
		} else {
			e.console.Infof("Artifacts written to %s", dir)
		}
	}

	if e.config.CopyToClipboard {
		if err := e.copy(Report(res)); err != nil {
			e.console.Warningf("failed to copy report to clipboard: %v", err)
		} else {
			e.console.Infof("Report copied to clipboard")
		}
	}
}

// readLines scans r until EOF or until done is closed.
func readLines(done <-chan struct{}, r io.Reader) <-chan string {
	if r == nil {
		return nil
	}
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}
