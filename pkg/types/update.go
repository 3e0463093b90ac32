package types

import (
	"fmt"
	"time"
)

// UpdateType is the action-category tag carried by every Update.
type UpdateType string

const (
	UpdateTypePaused          UpdateType = "paused"           // UpdateTypePaused indicates the session is suspended until resumed.
	UpdateTypeIntervention    UpdateType = "intervention"     // UpdateTypeIntervention acknowledges a user message was heard.
	UpdateTypePlanning        UpdateType = "planning"         // UpdateTypePlanning carries the planner's explanation for the next batch of actions.
	UpdateTypeNavigate        UpdateType = "navigate"         // UpdateTypeNavigate indicates a page load.
	UpdateTypeClick           UpdateType = "click"            // UpdateTypeClick indicates a click on a page element.
	UpdateTypeType            UpdateType = "type"             // UpdateTypeType indicates text entry into a page element.
	UpdateTypeScroll          UpdateType = "scroll"           // UpdateTypeScroll indicates the page is being scrolled.
	UpdateTypeWait            UpdateType = "wait"             // UpdateTypeWait indicates a deliberate pause between actions.
	UpdateTypeExtract         UpdateType = "extract"          // UpdateTypeExtract indicates the agent is reading the page.
	UpdateTypeFinding         UpdateType = "record_finding"   // UpdateTypeFinding carries a newly recorded finding.
	UpdateTypeProposal        UpdateType = "propose_product"  // UpdateTypeProposal asks the caller for feedback on a product.
	UpdateTypeProductAccepted UpdateType = "product_accepted" // UpdateTypeProductAccepted indicates the proposal was accepted.
	UpdateTypeProductDeclined UpdateType = "product_declined" // UpdateTypeProductDeclined indicates the proposal was declined or timed out.
	UpdateTypeLook            UpdateType = "look"             // UpdateTypeLook asks the caller for a screenshot.
	UpdateTypeVision          UpdateType = "vision"           // UpdateTypeVision reports the outcome of a screenshot analysis.
	UpdateTypeAnalyzing       UpdateType = "analyzing"        // UpdateTypeAnalyzing indicates the loop is about to re-plan.
	UpdateTypeComplete        UpdateType = "complete"         // UpdateTypeComplete is the terminal update of a successful session.
	UpdateTypeFail            UpdateType = "fail"             // UpdateTypeFail is the terminal update when the agent gave up.
	UpdateTypeTimeout         UpdateType = "timeout"          // UpdateTypeTimeout is the terminal update when the time budget ran out.
	UpdateTypeCancelled       UpdateType = "cancelled"        // UpdateTypeCancelled is the terminal update when the caller cancelled.
	UpdateTypeError           UpdateType = "error"            // UpdateTypeError is the terminal update after an unrecoverable failure.
)

// FindingPreviewLength bounds the preview text of a finding Update.
const FindingPreviewLength = 50

// Update is a single progress or status record emitted during a session.
type Update struct {
	// Metadata holds optional additional information about the update.
	Metadata map[string]interface{}

	// Product holds the proposed or accepted product for product updates.
	Product *Product

	// Error is set on the terminal update of a failed session.
	Error error

	// Timestamp is when the update was created.
	Timestamp time.Time

	// Type is the action-category tag.
	Type UpdateType

	// Status is the human-readable status text.
	Status string

	// URL is the page the agent was on when the update was emitted.
	URL string

	// FinalResponse is the research result. Only set on the terminal update.
	FinalResponse string

	// FindingText is the full text of a recorded finding.
	FindingText string

	// IsComplete marks the terminal update. Exactly one per session.
	IsComplete bool

	// IsFinding marks finding updates.
	IsFinding bool

	// IsProduct marks updates that carry a product.
	IsProduct bool

	// WaitingForFeedback is set while a product proposal awaits ProvideFeedback.
	WaitingForFeedback bool

	// TakingScreenshot is set while a look action awaits a supplied screenshot.
	TakingScreenshot bool

	// RequestID identifies the proposal or look request an answer is for.
	RequestID string
}

func newUpdate(t UpdateType, status string) *Update {
	return &Update{
		Type:      t,
		Status:    status,
		Timestamp: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
}

// NewStatusUpdate creates a plain progress update.
func NewStatusUpdate(t UpdateType, status string) *Update {
	return newUpdate(t, status)
}

// NewPausedUpdate creates an update signalling the session is paused.
func NewPausedUpdate() *Update {
	return newUpdate(UpdateTypePaused, "Paused. Waiting for resume...")
}

// NewInterventionUpdate acknowledges a user message.
func NewInterventionUpdate(message string) *Update {
	u := newUpdate(UpdateTypeIntervention, fmt.Sprintf("Heard you: %s", message))
	u.Metadata["message"] = message
	return u
}

// NewPlanningUpdate carries the planner's explanation.
func NewPlanningUpdate(explanation string, actionCount int) *Update {
	u := newUpdate(UpdateTypePlanning, explanation)
	u.Metadata["action_count"] = actionCount
	return u
}

// NewAnalyzingUpdate is emitted between iterations.
func NewAnalyzingUpdate(iteration int) *Update {
	u := newUpdate(UpdateTypeAnalyzing, "Analyzing results...")
	u.Metadata["iteration"] = iteration
	return u
}

// NewFindingUpdate creates a finding update with a truncated preview as status.
func NewFindingUpdate(finding string) *Update {
	u := newUpdate(UpdateTypeFinding, "Noted: "+Preview(finding, FindingPreviewLength))
	u.IsFinding = true
	u.FindingText = finding
	return u
}

// NewProposalUpdate asks the caller for feedback on a product.
func NewProposalUpdate(p Product, requestID string) *Update {
	u := newUpdate(UpdateTypeProposal, fmt.Sprintf("Found a candidate: %s (%s). Do you like it?", p.Title, p.Price))
	u.IsProduct = true
	u.WaitingForFeedback = true
	u.Product = &p
	u.RequestID = requestID
	return u
}

// NewProductDecisionUpdate reports whether a proposal was accepted.
func NewProductDecisionUpdate(p Product, accepted bool) *Update {
	t, status := UpdateTypeProductDeclined, fmt.Sprintf("Skipping %s", p.Title)
	if accepted {
		t, status = UpdateTypeProductAccepted, fmt.Sprintf("Added %s to your list", p.Title)
	}
	u := newUpdate(t, status)
	u.IsProduct = true
	u.Product = &p
	return u
}

// NewLookUpdate asks the caller to supply a screenshot.
func NewLookUpdate(prompt, requestID string) *Update {
	u := newUpdate(UpdateTypeLook, "Taking a closer look at the page...")
	u.TakingScreenshot = true
	u.RequestID = requestID
	u.Metadata["prompt"] = prompt
	return u
}

// NewTerminalUpdate creates the single terminal update of a session.
func NewTerminalUpdate(t UpdateType, status, finalResponse, url string) *Update {
	u := newUpdate(t, status)
	u.IsComplete = true
	u.FinalResponse = finalResponse
	u.URL = url
	return u
}

// NewErrorUpdate creates the terminal update for an unrecoverable failure.
func NewErrorUpdate(err error, url string) *Update {
	u := NewTerminalUpdate(UpdateTypeError, fmt.Sprintf("Error: %v", err), fmt.Sprintf("An error occurred while researching: %v", err), url)
	u.Error = err
	return u
}

// WithURL sets the URL and returns the update for chaining.
func (u *Update) WithURL(url string) *Update {
	u.URL = url
	return u
}

// WithMetadata adds metadata to the update and returns it for chaining.
func (u *Update) WithMetadata(key string, value interface{}) *Update {
	if u.Metadata == nil {
		u.Metadata = make(map[string]interface{})
	}
	u.Metadata[key] = value
	return u
}

// IsTerminal reports whether this update ends the session.
func (u *Update) IsTerminal() bool {
	return u.IsComplete
}

// Preview truncates s to at most n runes. A cut string ends in an ellipsis
// that counts toward n.
func Preview(s string, n int) string {
	const ellipsis = "..."
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= len(ellipsis) {
		return string(r[:max(n, 0)])
	}
	return string(r[:n-len(ellipsis)]) + ellipsis
}
