package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/scout/pkg/agent/action"
	"github.com/entrhq/scout/pkg/agent/planner"
	"github.com/entrhq/scout/pkg/agent/rendezvous"
	"github.com/entrhq/scout/pkg/types"
)

func navigateTo(url string) action.Action {
	return action.Navigate{URL: url}
}

// execute dispatches one action. It returns a non-nil ending when the
// action ends the Session. Actuator failures are recorded in the ledger and
// never end the Session.
func (s *Session) execute(ctx context.Context, a action.Action) *ending {
	t := s.runner.timing

	switch v := a.(type) {
	case action.Navigate:
		s.emit(ctx, types.NewStatusUpdate(types.UpdateTypeNavigate, action.Describe(v)).WithURL(v.URL))
		if strings.TrimSpace(v.URL) == "" {
			s.skipped(a, "no URL given")
			return nil
		}
		s.record(a, s.runner.surface.Navigate(ctx, v.URL), "Navigated to "+v.URL)
		s.pace(ctx, t.Navigate)

	case action.Click:
		s.emit(ctx, types.NewStatusUpdate(types.UpdateTypeClick, action.Describe(v)))
		if strings.TrimSpace(v.Selector) == "" {
			s.skipped(a, "no selector given")
			return nil
		}
		s.record(a, s.runner.surface.Click(ctx, v.Selector), "Clicked "+v.Selector)
		s.pace(ctx, t.Click)

	case action.Type:
		s.emit(ctx, types.NewStatusUpdate(types.UpdateTypeType, action.Describe(v)))
		if strings.TrimSpace(v.Selector) == "" || v.Text == "" {
			s.skipped(a, "selector or text missing")
			return nil
		}
		s.record(a, s.runner.surface.Type(ctx, v.Selector, v.Text), fmt.Sprintf("Typed %q into %s", v.Text, v.Selector))
		s.pace(ctx, t.Type)

	case action.Scroll:
		dir := v.Direction
		if dir != action.ScrollUp {
			dir = action.ScrollDown
		}
		s.emit(ctx, types.NewStatusUpdate(types.UpdateTypeScroll, action.Describe(v)))
		s.record(a, s.runner.surface.Scroll(ctx, dir, v.Amount), "Scrolled "+dir)
		s.pace(ctx, t.Scroll)

	case action.Wait:
		d := v.Duration
		if d <= 0 {
			d = t.DefaultWait
		}
		if rem := s.remaining(); d > rem {
			d = rem
		}
		s.emit(ctx, types.NewStatusUpdate(types.UpdateTypeWait, action.Describe(action.Wait{Duration: d})))
		s.pace(ctx, d)
		s.ledger.Appendf("Waited %s", d)
		s.runner.metrics.Action(string(a.Kind()), "ok")

	case action.Extract:
		s.emit(ctx, types.NewStatusUpdate(types.UpdateTypeExtract, action.Describe(v)))
		s.ledger.Append("Read page content")
		s.runner.metrics.Action(string(a.Kind()), "ok")

	case action.RecordFinding:
		text := strings.TrimSpace(v.Text)
		if text == "" {
			s.skipped(a, "empty finding")
			return nil
		}
		s.ledger.AppendFinding(text)
		s.emit(ctx, types.NewFindingUpdate(text))
		s.runner.metrics.Action(string(a.Kind()), "ok")
		s.pace(ctx, t.Finding)

	case action.ProposeProduct:
		s.propose(ctx, v)

	case action.Look:
		s.look(ctx, v)

	case action.Complete:
		s.runner.metrics.Action(string(a.Kind()), "ok")
		s.ledger.Append("Marked the research complete")
		return &ending{outcome: OutcomeCompleted, final: v.Text}

	case action.Fail:
		s.runner.metrics.Action(string(a.Kind()), "ok")
		s.ledger.Append("Gave up on the research")
		return &ending{outcome: OutcomeFailed, final: v.Text}

	default:
		agentDebugLog.Warnf("Session %s: ignoring unknown action %T", s.id, a)
	}
	return nil
}

// record appends the result of an actuator call to the ledger.
func (s *Session) record(a action.Action, err error, success string) {
	if err != nil {
		agentDebugLog.Warnf("Session %s: %s failed: %v", s.id, a.Kind(), err)
		s.ledger.Appendf("Action failed: %s: %v", action.Describe(a), err)
		s.runner.metrics.Action(string(a.Kind()), "error")
		return
	}
	s.ledger.Append(success)
	s.runner.metrics.Action(string(a.Kind()), "ok")
}

func (s *Session) skipped(a action.Action, reason string) {
	s.ledger.Appendf("Skipped %s: %s", a.Kind(), reason)
	s.runner.metrics.Action(string(a.Kind()), "skipped")
}

// pace sleeps for d. It ignores the budget so an action always finishes,
// but stops early when ctx is done.
func (s *Session) pace(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// window caps a rendezvous timeout at the remaining budget.
func (s *Session) window(d time.Duration) time.Duration {
	if rem := s.remaining(); rem < d {
		return rem
	}
	return d
}

func (s *Session) propose(ctx context.Context, v action.ProposeProduct) {
	p := types.Product{
		Title:       strings.TrimSpace(v.Title),
		Price:       strings.TrimSpace(v.Price),
		Description: strings.TrimSpace(v.Description),
		ImageURL:    strings.TrimSpace(v.ImageURL),
		SourceURL:   s.LastURL(),
	}
	if p.Title == "" {
		s.skipped(v, "product has no title")
		return
	}
	if prior, ok := s.decision(p); ok {
		verdict := "declined"
		if prior.accepted {
			verdict = "accepted"
		}
		s.ledger.Appendf("Skipped proposing %s again: the user already %s it", p.Title, verdict)
		s.runner.metrics.Action(string(v.Kind()), "skipped")
		return
	}

	s.setState(StateAwaitingFeedback)
	defer s.setState(StateExecuting)

	id := s.feedback.Open()
	s.emit(ctx, types.NewProposalUpdate(p, id))
	fb, outcome := s.feedback.Await(ctx, s.window(s.runner.timing.Feedback))
	s.runner.metrics.Rendezvous("feedback", outcome.String())
	s.runner.metrics.Action(string(v.Kind()), "ok")

	if outcome == rendezvous.Canceled {
		return
	}

	if outcome == rendezvous.Resolved && fb.Liked {
		p.AcceptedAt = time.Now()
		if len(fb.Screenshot) > 0 {
			p.Screenshot = fb.Screenshot
		}
		s.products.Add(p)
		s.decide(p, true)
		s.ledger.Appendf("User accepted product: %s (%s)", p.Title, orDash(p.Price))
		s.emit(ctx, types.NewProductDecisionUpdate(p.Clone(), true))
		return
	}

	s.decide(p, false)
	if outcome == rendezvous.Resolved {
		s.ledger.Appendf("User declined product: %s (%s)", p.Title, orDash(p.Price))
	} else {
		s.ledger.Appendf("No feedback on product %s (%s); treated as declined", p.Title, orDash(p.Price))
	}
	s.emit(ctx, types.NewProductDecisionUpdate(p, false))
}

func (s *Session) look(ctx context.Context, v action.Look) {
	prompt := strings.TrimSpace(v.Prompt)
	if prompt == "" {
		prompt = fmt.Sprintf(planner.DefaultLookPrompt, s.goal)
	}

	s.setState(StateAwaitingVision)
	defer s.setState(StateExecuting)

	id := s.vision.Open()
	s.emit(ctx, types.NewLookUpdate(prompt, id))
	png, outcome := s.vision.Await(ctx, s.window(s.runner.timing.Vision))
	s.runner.metrics.Rendezvous("vision", outcome.String())

	switch {
	case outcome == rendezvous.Canceled:
		return
	case outcome != rendezvous.Resolved || len(png) == 0:
		s.ledger.Append("Look failed: no screenshot was supplied in time")
		s.runner.metrics.Action(string(v.Kind()), "error")
		return
	}

	s.emit(ctx, types.NewStatusUpdate(types.UpdateTypeVision, "Analyzing screenshot..."))
	vctx, cancel := context.WithTimeout(ctx, s.remaining())
	defer cancel()

	analysis, err := s.runner.planner.AnalyzeScreenshot(vctx, prompt, png)
	if err != nil {
		if errors.Is(err, planner.ErrNoVision) {
			s.ledger.Append("Look failed: no vision model is configured")
		} else {
			s.ledger.Appendf("Look failed: %v", err)
		}
		s.runner.metrics.Action(string(v.Kind()), "error")
		return
	}
	s.ledger.Append("Visual analysis: " + analysis)
	s.runner.metrics.Action(string(v.Kind()), "ok")
}
