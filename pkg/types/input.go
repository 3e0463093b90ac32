package types

import "strings"

// InputType defines the kind of command a caller sends to a running session.
type InputType string

const (
	InputTypeCancel   InputType = "cancel"   // InputTypeCancel ends the session early.
	InputTypePause    InputType = "pause"    // InputTypePause suspends action execution.
	InputTypeResume   InputType = "resume"   // InputTypeResume lifts a pause.
	InputTypeFeedback InputType = "feedback" // InputTypeFeedback answers a pending product proposal.
	InputTypeMessage  InputType = "message"  // InputTypeMessage is an intervention for the planner.
)

// Input is a parsed caller command.
type Input struct {
	// Content is the message text for InputTypeMessage.
	Content string

	// Type indicates the kind of input.
	Type InputType

	// Liked is the answer for InputTypeFeedback.
	Liked bool
}

// ParseInput turns a console line into an Input. Yes/no answers only count as
// feedback when a proposal is pending; otherwise they are plain messages.
// Returns nil for blank lines.
func ParseInput(line string, proposalPending bool) *Input {
	text := strings.TrimSpace(line)
	if text == "" {
		return nil
	}

	switch strings.ToLower(text) {
	case "/pause":
		return &Input{Type: InputTypePause}
	case "/resume":
		return &Input{Type: InputTypeResume}
	case "/quit", "/cancel", "/exit":
		return &Input{Type: InputTypeCancel}
	case "/like":
		return &Input{Type: InputTypeFeedback, Liked: true}
	case "/skip", "/dislike":
		return &Input{Type: InputTypeFeedback, Liked: false}
	}

	if proposalPending {
		switch strings.ToLower(text) {
		case "y", "yes":
			return &Input{Type: InputTypeFeedback, Liked: true}
		case "n", "no":
			return &Input{Type: InputTypeFeedback, Liked: false}
		}
	}

	return &Input{Type: InputTypeMessage, Content: text}
}

// IsCancel returns true if this is a cancellation input.
func (i *Input) IsCancel() bool {
	return i.Type == InputTypeCancel
}

// IsFeedback returns true if this input answers a proposal.
func (i *Input) IsFeedback() bool {
	return i.Type == InputTypeFeedback
}
