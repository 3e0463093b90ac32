// Package action defines the closed set of operations a plan may contain and
// the lenient decoder that turns model output into plans.
package action

import (
	"fmt"
	"time"
)

// Kind names an action variant. It is the "type" field on the wire.
type Kind string

const (
	KindNavigate       Kind = "navigate"
	KindClick          Kind = "click"
	KindType           Kind = "type"
	KindScroll         Kind = "scroll"
	KindWait           Kind = "wait"
	KindExtract        Kind = "extract"
	KindRecordFinding  Kind = "record_finding"
	KindProposeProduct Kind = "propose_product"
	KindLook           Kind = "look"
	KindComplete       Kind = "complete"
	KindFail           Kind = "fail"
)

// Kinds lists every kind in the vocabulary, in prompt order.
var Kinds = []Kind{
	KindNavigate, KindClick, KindType, KindScroll, KindWait, KindExtract,
	KindRecordFinding, KindProposeProduct, KindLook, KindComplete, KindFail,
}

// DefaultWait is used when a wait action has no usable duration.
const DefaultWait = time.Second

// Action is one atomic instruction. Each kind is its own struct carrying only
// the fields it needs.
type Action interface {
	Kind() Kind
}

// Scroll directions.
const (
	ScrollDown = "down"
	ScrollUp   = "up"
)

type (
	// Navigate loads a URL.
	Navigate struct{ URL string }

	// Click clicks the element matching Selector.
	Click struct{ Selector string }

	// Type enters Text into the element matching Selector.
	Type struct {
		Selector string
		Text     string
	}

	// Scroll moves the viewport. Amount is in pixels; zero means one screen.
	Scroll struct {
		Direction string
		Amount    int
	}

	// Wait pauses for Duration.
	Wait struct{ Duration time.Duration }

	// Extract re-reads the page. The loop already reads the page every
	// iteration, so this carries no actuator work.
	Extract struct{}

	// RecordFinding stores a fact relevant to the goal.
	RecordFinding struct{ Text string }

	// ProposeProduct asks the user whether an item should be collected.
	ProposeProduct struct {
		Title       string
		Price       string
		Description string
		ImageURL    string
	}

	// Look asks for a screenshot and a vision analysis guided by Prompt.
	Look struct{ Prompt string }

	// Complete ends the session successfully with Text as the answer.
	Complete struct{ Text string }

	// Fail ends the session because the goal cannot be met.
	Fail struct{ Text string }
)

func (Navigate) Kind() Kind       { return KindNavigate }
func (Click) Kind() Kind          { return KindClick }
func (Type) Kind() Kind           { return KindType }
func (Scroll) Kind() Kind         { return KindScroll }
func (Wait) Kind() Kind           { return KindWait }
func (Extract) Kind() Kind        { return KindExtract }
func (RecordFinding) Kind() Kind  { return KindRecordFinding }
func (ProposeProduct) Kind() Kind { return KindProposeProduct }
func (Look) Kind() Kind           { return KindLook }
func (Complete) Kind() Kind       { return KindComplete }
func (Fail) Kind() Kind           { return KindFail }

// IsTerminal reports whether a ends the session.
func IsTerminal(a Action) bool {
	k := a.Kind()
	return k == KindComplete || k == KindFail
}

// Plan is the planner's answer for one iteration.
type Plan struct {
	Explanation string
	Actions     []Action
}

// DefaultExplanation accompanies the fallback plan.
const DefaultExplanation = "Reading the page to decide what to do next."

// DefaultPlan is used whenever the planner's reply cannot be understood.
func DefaultPlan() *Plan {
	return &Plan{
		Explanation: DefaultExplanation,
		Actions:     []Action{Extract{}},
	}
}

// Describe returns the human-readable status text for an action.
func Describe(a Action) string {
	switch v := a.(type) {
	case Navigate:
		return "Navigating to " + v.URL
	case Click:
		return "Clicking " + orUnknown(v.Selector)
	case Type:
		return fmt.Sprintf("Typing %q into %s", v.Text, orUnknown(v.Selector))
	case Scroll:
		dir := v.Direction
		if dir == "" {
			dir = ScrollDown
		}
		return "Scrolling " + dir
	case Wait:
		return fmt.Sprintf("Waiting %s", v.Duration)
	case Extract:
		return "Reading page content"
	case RecordFinding:
		return "Recording a finding"
	case ProposeProduct:
		return "Proposing " + orUnknown(v.Title)
	case Look:
		return "Taking a closer look"
	case Complete:
		return "Wrapping up"
	case Fail:
		return "Giving up on this task"
	default:
		return string(a.Kind())
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "(unspecified)"
	}
	return s
}
