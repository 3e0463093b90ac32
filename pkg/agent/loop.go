package agent

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/entrhq/scout/pkg/agent/planner"
	"github.com/entrhq/scout/pkg/types"
)

// Outcome is how a Session ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeError     Outcome = "error"
)

// Result is the record of a finished Session.
type Result struct {
	SessionID     string          `json:"session_id"`
	Goal          string          `json:"goal"`
	Outcome       Outcome         `json:"outcome"`
	FinalResponse string          `json:"final_response"`
	URL           string          `json:"url,omitempty"`
	Error         string          `json:"error,omitempty"`
	Iterations    int             `json:"iterations"`
	Budget        time.Duration   `json:"budget"`
	Duration      time.Duration   `json:"duration"`
	Findings      []string        `json:"findings"`
	Products      []types.Product `json:"products"`
	History       []string        `json:"history"`
}

// ending is what the loop hands to conclude.
type ending struct {
	outcome Outcome
	final   string
	err     error
}

func (s *Session) run(ctx context.Context) {
	defer s.cancel()
	defer close(s.done)
	defer close(s.updates)
	defer func() {
		if r := recover(); r != nil {
			agentDebugLog.Errorf("Session %s panicked: %v\n%s", s.id, r, debug.Stack())
			s.conclude(ctx, ending{outcome: OutcomeError, err: fmt.Errorf("unexpected failure: %v", r)})
		}
	}()

	s.conclude(ctx, s.loop(ctx))
}

func (s *Session) loop(ctx context.Context) ending {
	if s.goal == "" {
		return ending{outcome: OutcomeError, err: errors.New("goal is required")}
	}

	if s.startURL != "" {
		s.execute(ctx, navigateTo(s.startURL))
	}

	for {
		if err := s.checkpoint(ctx); err != nil {
			return ending{outcome: OutcomeCancelled}
		}
		if s.expired() {
			return ending{outcome: OutcomeTimedOut}
		}

		s.drainInterventions(ctx)

		s.mu.Lock()
		s.iterations++
		iteration := s.iterations
		s.mu.Unlock()
		s.runner.metrics.Iteration()
		s.setState(StatePlanning)

		snap, err := s.runner.surface.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ending{outcome: OutcomeCancelled}
			}
			return ending{outcome: OutcomeError, err: fmt.Errorf("failed to read page: %w", err)}
		}
		s.setPage(snap.URL, snap.Content)

		planCtx, cancel := context.WithTimeout(ctx, s.remaining())
		plan, err := s.runner.planner.Plan(planCtx, planner.Request{
			Goal:     s.goal,
			URL:      snap.URL,
			Title:    snap.Title,
			Content:  snap.Content,
			History:  s.ledger.Records(),
			Findings: s.ledger.Findings(),
			Products: s.productLines(),
		})
		cancel()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return ending{outcome: OutcomeCancelled}
			case s.expired():
				return ending{outcome: OutcomeTimedOut}
			}
			return ending{outcome: OutcomeError, err: fmt.Errorf("planner failed: %w", err)}
		}

		agentDebugLog.Debugf("Session %s iteration %d: %d actions (%s)", s.id, iteration, len(plan.Actions), plan.Explanation)
		s.emit(ctx, types.NewPlanningUpdate(plan.Explanation, len(plan.Actions)))
		s.setState(StateExecuting)

		for _, a := range plan.Actions {
			if err := s.checkpoint(ctx); err != nil {
				return ending{outcome: OutcomeCancelled}
			}
			if s.expired() {
				return ending{outcome: OutcomeTimedOut}
			}
			end := s.execute(ctx, a)
			if ctx.Err() != nil {
				return ending{outcome: OutcomeCancelled}
			}
			if end != nil {
				return *end
			}
		}

		if s.expired() {
			return ending{outcome: OutcomeTimedOut}
		}
		s.emit(ctx, types.NewAnalyzingUpdate(iteration))
	}
}

// checkpoint blocks while the Session is paused, emitting one paused
// update per pause. Paused time is not charged to the budget.
func (s *Session) checkpoint(ctx context.Context) error {
	for {
		wait := s.gate.closed()
		if wait == nil {
			return ctx.Err()
		}

		s.mu.Lock()
		prev := s.state
		s.mu.Unlock()
		s.setState(StatePaused)
		s.beginPause()
		s.emit(ctx, types.NewPausedUpdate())

		select {
		case <-wait:
			s.endPause()
			s.setState(prev)
		case <-ctx.Done():
			s.endPause()
			return ctx.Err()
		}
	}
}

func (s *Session) drainInterventions(ctx context.Context) {
	for _, text := range s.takeInterventions() {
		s.ledger.AppendIntervention(text)
		s.emit(ctx, types.NewInterventionUpdate(text))
	}
}

// conclude writes the final response, emits the terminal update and
// stores the Result.
func (s *Session) conclude(ctx context.Context, end ending) {
	var u *types.Update
	state := StateCompleted
	switch end.outcome {
	case OutcomeCompleted, OutcomeFailed, OutcomeTimedOut:
		s.refreshPage(ctx)
	}
	url := s.LastURL()

	switch end.outcome {
	case OutcomeCompleted:
		if strings.TrimSpace(end.final) == "" {
			end.final = s.summarize(ctx, defaultCompleteText)
		}
		u = types.NewTerminalUpdate(types.UpdateTypeComplete, "Research complete", end.final, url)
	case OutcomeFailed:
		state = StateFailed
		if strings.TrimSpace(end.final) == "" {
			end.final = s.summarize(ctx, defaultFailText)
		}
		u = types.NewTerminalUpdate(types.UpdateTypeFail, "Research could not be completed", end.final, url)
	case OutcomeTimedOut:
		end.final = fmt.Sprintf("Research timed out after %s.\n\n%s", s.budget, s.summarize(ctx, noFindingsText))
		u = types.NewTerminalUpdate(types.UpdateTypeTimeout, "Time budget exhausted", end.final, url)
	case OutcomeCancelled:
		state = StateCancelled
		end.final = "Research was cancelled.\n\n" + s.fallbackSummary(noFindingsText)
		u = types.NewTerminalUpdate(types.UpdateTypeCancelled, "Research cancelled", end.final, url)
	default:
		state = StateFailed
		if end.err == nil {
			end.err = errors.New("unknown failure")
		}
		agentDebugLog.Errorf("Session %s failed: %v", s.id, end.err)
		u = types.NewErrorUpdate(end.err, url)
		end.final = u.FinalResponse
	}

	result := &Result{
		SessionID:     s.id,
		Goal:          s.goal,
		Outcome:       end.outcome,
		FinalResponse: end.final,
		URL:           url,
		Iterations:    s.Iterations(),
		Budget:        s.budget,
		Duration:      s.Elapsed(),
		Findings:      s.ledger.Findings(),
		Products:      s.products.Snapshot(),
		History:       s.ledger.Records(),
	}
	if end.err != nil {
		result.Error = end.err.Error()
	}

	s.mu.Lock()
	s.state = state
	s.result = result
	s.mu.Unlock()

	s.runner.metrics.SessionFinished(string(end.outcome), result.Duration)
	agentDebugLog.Infof("Session %s ended: %s after %d iterations (%s)", s.id, end.outcome, result.Iterations, result.Duration.Round(time.Millisecond))

	s.emitTerminal(ctx, u)
}

// refreshPage reads the surface once more so the summary and the terminal
// update see where the last actions left the browser. A failed read keeps
// the page from the start of the iteration.
func (s *Session) refreshPage(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, s.runner.timing.Summary)
	defer cancel()

	snap, err := s.runner.surface.Read(rctx)
	if err != nil {
		agentDebugLog.Warnf("Session %s: final page read failed: %v", s.id, err)
		return
	}
	s.setPage(snap.URL, snap.Content)
}

// Final responses used when there is nothing better to say.
const (
	defaultCompleteText = "The research is complete."
	defaultFailText     = "The goal could not be achieved."
	noFindingsText      = "I was not able to gather enough information to answer this request."
)

// summarize asks the planner for a final report. If that fails it lists
// the recorded findings, or returns generic when there are none.
func (s *Session) summarize(ctx context.Context, generic string) string {
	if ctx.Err() != nil {
		return s.fallbackSummary(generic)
	}
	sctx, cancel := context.WithTimeout(ctx, s.runner.timing.Summary)
	defer cancel()

	s.mu.Lock()
	content, url := s.lastContent, s.lastURL
	s.mu.Unlock()

	text, err := s.runner.planner.Summarize(sctx, s.goal, content, url, s.ledger.Records())
	if err != nil || strings.TrimSpace(text) == "" {
		agentDebugLog.Warnf("Session %s: summary failed, using findings: %v", s.id, err)
		return s.fallbackSummary(generic)
	}
	return text
}

func (s *Session) fallbackSummary(generic string) string {
	findings := s.ledger.Findings()
	if len(findings) == 0 {
		return generic
	}
	var b strings.Builder
	b.WriteString("Here is what I found so far:\n")
	for _, f := range findings {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	return strings.TrimRight(b.String(), "\n")
}
