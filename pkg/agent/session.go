package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/scout/pkg/agent/ledger"
	"github.com/entrhq/scout/pkg/agent/products"
	"github.com/entrhq/scout/pkg/agent/rendezvous"
	"github.com/entrhq/scout/pkg/llm/tokenizer"
	"github.com/entrhq/scout/pkg/types"
)

// State is where a Session is in its loop.
type State int

const (
	StatePlanning State = iota
	StateExecuting
	StateAwaitingFeedback
	StateAwaitingVision
	StatePaused
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePlanning:
		return "planning"
	case StateExecuting:
		return "executing"
	case StateAwaitingFeedback:
		return "awaiting_feedback"
	case StateAwaitingVision:
		return "awaiting_vision"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// IsTerminal reports whether the Session has ended.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// SessionOption configures one Session.
type SessionOption func(*Session)

// WithDeep uses the Runner's deep budget.
func WithDeep() SessionOption {
	return func(s *Session) { s.budget = s.runner.deepBudget }
}

// WithSessionBudget overrides the budget for this Session.
func WithSessionBudget(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.budget = d
		}
	}
}

// WithStartURL opens url before the first iteration.
func WithStartURL(url string) SessionOption {
	return func(s *Session) { s.startURL = strings.TrimSpace(url) }
}

// WithCounter sets the token counter used for the ledger transcript.
func WithCounter(c tokenizer.Counter) SessionOption {
	return func(s *Session) { s.ledger = ledger.New(c) }
}

// proposal is a product the user has already decided on.
type proposal struct {
	product  types.Product
	accepted bool
}

// Session is one browse invocation. Its control methods are safe to call
// from any goroutine while the loop runs.
type Session struct {
	runner   *Runner
	id       string
	goal     string
	startURL string
	budget   time.Duration
	start    time.Time

	updates chan *types.Update
	done    chan struct{}
	cancel  context.CancelFunc

	gate     gate
	ledger   *ledger.Ledger
	products *products.Collection
	feedback *rendezvous.Channel[types.Feedback]
	vision   *rendezvous.Channel[[]byte]

	mu            sync.Mutex
	state         State
	interventions []string
	decided       map[string]proposal
	decisions     []string
	iterations    int
	pausedFor     time.Duration
	pausedAt      time.Time
	lastURL       string
	lastContent   string
	terminated    bool
	result        *Result
}

func newSession(r *Runner, goal string, opts ...SessionOption) *Session {
	s := &Session{
		runner:   r,
		id:       uuid.New().String(),
		goal:     strings.TrimSpace(goal),
		budget:   r.budget,
		start:    time.Now(),
		updates:  make(chan *types.Update, r.bufferSize),
		done:     make(chan struct{}),
		cancel:   func() {},
		ledger:   ledger.New(nil),
		products: products.NewCollection(r.planner),
		feedback: rendezvous.New("feedback", types.NoFeedback),
		vision:   rendezvous.New[[]byte]("vision", nil),
		decided:  make(map[string]proposal),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID identifies the Session in logs and artifacts.
func (s *Session) ID() string { return s.id }

// Goal is what the user asked for.
func (s *Session) Goal() string { return s.goal }

// Budget is the time the agent may spend, excluding paused time.
func (s *Session) Budget() time.Duration { return s.budget }

// Updates streams progress. It ends with exactly one terminal update and
// is then closed.
func (s *Session) Updates() <-chan *types.Update {
	return s.updates
}

// Done is closed when the Session has ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Pause stops the loop before its next action. It reports false if the
// Session was already paused or has ended.
func (s *Session) Pause() bool {
	if s.ended() {
		return false
	}
	if !s.gate.pause() {
		return false
	}
	agentDebugLog.Infof("Session %s paused", s.id)
	return true
}

// Resume lets a paused loop continue.
func (s *Session) Resume() bool {
	if !s.gate.open() {
		return false
	}
	agentDebugLog.Infof("Session %s resumed", s.id)
	return true
}

// Paused reports whether Pause is in effect.
func (s *Session) Paused() bool {
	return s.gate.paused()
}

// AddUserMessage queues guidance for the planner. It is picked up at the
// start of the next iteration.
func (s *Session) AddUserMessage(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || s.ended() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interventions = append(s.interventions, text)
	return true
}

// ProvideFeedback answers the pending product proposal. It reports false
// when no proposal is waiting.
func (s *Session) ProvideFeedback(liked bool, screenshot []byte) bool {
	return s.feedback.Resolve(newFeedback(liked, screenshot))
}

// ProvideFeedbackFor answers the proposal whose update carried requestID.
// It reports false when that proposal is no longer waiting, so a late
// answer never lands on a newer proposal.
func (s *Session) ProvideFeedbackFor(requestID string, liked bool, screenshot []byte) bool {
	if requestID == "" {
		return false
	}
	return s.feedback.ResolveToken(requestID, newFeedback(liked, screenshot))
}

// SuppliedScreenshot answers a pending look request with PNG bytes. It
// reports false when nothing is waiting for a screenshot.
func (s *Session) SuppliedScreenshot(png []byte) bool {
	return s.vision.Resolve(append([]byte(nil), png...))
}

// SuppliedScreenshotFor answers the look request whose update carried
// requestID.
func (s *Session) SuppliedScreenshotFor(requestID string, png []byte) bool {
	if requestID == "" {
		return false
	}
	return s.vision.ResolveToken(requestID, append([]byte(nil), png...))
}

func newFeedback(liked bool, screenshot []byte) types.Feedback {
	fb := types.Feedback{Liked: liked}
	if len(screenshot) > 0 {
		fb.Screenshot = append([]byte(nil), screenshot...)
	}
	return fb
}

// AwaitingFeedback reports whether a proposal is waiting for ProvideFeedback.
func (s *Session) AwaitingFeedback() bool {
	return s.feedback.Pending()
}

// AwaitingScreenshot reports whether a look is waiting for SuppliedScreenshot.
func (s *Session) AwaitingScreenshot() bool {
	return s.vision.Pending()
}

// Cancel ends the Session with a cancelled terminal update.
func (s *Session) Cancel() {
	s.cancel()
}

// State returns the current loop state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Iterations returns how many planning iterations have started.
func (s *Session) Iterations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iterations
}

// History returns a copy of the ledger records.
func (s *Session) History() []string {
	return s.ledger.Records()
}

// Findings returns the findings recorded so far.
func (s *Session) Findings() []string {
	return s.ledger.Findings()
}

// Products returns the accepted products.
func (s *Session) Products() []types.Product {
	return s.products.Snapshot()
}

// CompareProducts writes a markdown comparison of the accepted products.
func (s *Session) CompareProducts(ctx context.Context) (string, error) {
	return s.products.Compare(ctx)
}

// Result returns the outcome once the Session has ended, or nil.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Elapsed is the time spent so far, not counting pauses.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	paused := s.pausedFor
	if !s.pausedAt.IsZero() {
		paused += time.Since(s.pausedAt)
	}
	return time.Since(s.start) - paused
}

func (s *Session) beginPause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pausedAt = time.Now()
}

func (s *Session) endPause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pausedAt.IsZero() {
		s.pausedFor += time.Since(s.pausedAt)
		s.pausedAt = time.Time{}
	}
}

func (s *Session) remaining() time.Duration {
	return s.budget - s.Elapsed()
}

func (s *Session) expired() bool {
	return s.remaining() <= 0
}

func (s *Session) ended() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.IsTerminal() {
		s.state = st
	}
}

func (s *Session) setPage(url, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastURL = url
	s.lastContent = content
}

// LastURL is the most recent page the agent read.
func (s *Session) LastURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastURL
}

func (s *Session) takeInterventions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	queued := s.interventions
	s.interventions = nil
	return queued
}

func (s *Session) productLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.decisions...)
}

// decide records the user's answer on a proposal. The first answer for a
// product is the one that sticks.
func (s *Session) decide(p types.Product, accepted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := p.Key()
	if _, ok := s.decided[key]; ok {
		return
	}
	s.decided[key] = proposal{product: p, accepted: accepted}
	verdict := "declined"
	if accepted {
		verdict = "accepted"
	}
	s.decisions = append(s.decisions, fmt.Sprintf("%s (%s): %s", p.Title, orDash(p.Price), verdict))
}

func (s *Session) decision(p types.Product) (proposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.decided[p.Key()]
	return d, ok
}

// emit sends a progress update unless ctx is done.
func (s *Session) emit(ctx context.Context, u *types.Update) {
	if u.URL == "" {
		u.URL = s.LastURL()
	}
	select {
	case s.updates <- u:
	case <-ctx.Done():
	}
}

// terminalGrace is how long a cancelled Session waits for a reader to take
// its terminal update.
const terminalGrace = time.Second

// emitTerminal sends the single terminal update. After cancellation it
// still tries briefly so an active reader sees how the Session ended.
func (s *Session) emitTerminal(ctx context.Context, u *types.Update) {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		agentDebugLog.Warnf("Session %s: dropping second terminal update %q", s.id, u.Status)
		return
	}
	s.terminated = true
	s.mu.Unlock()

	select {
	case s.updates <- u:
		return
	case <-ctx.Done():
	}

	timer := time.NewTimer(terminalGrace)
	defer timer.Stop()
	select {
	case s.updates <- u:
	case <-timer.C:
		agentDebugLog.Warnf("Session %s: nobody read the terminal update", s.id)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
