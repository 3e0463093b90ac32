package types

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"    // RoleSystem is the instruction message.
	RoleUser      Role = "user"      // RoleUser is a message from the caller.
	RoleAssistant Role = "assistant" // RoleAssistant is a model reply.
)

// Image is an inline image attached to a message.
type Image struct {
	Data     []byte
	MIMEType string
}

// Message is one entry of a chat completion request.
type Message struct {
	Role    Role
	Content string

	// Thinking holds reasoning text the model emitted outside its answer.
	Thinking string

	Images []Image
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}

// NewUserImageMessage creates a user message carrying a PNG image.
func NewUserImageMessage(content string, png []byte) *Message {
	return &Message{
		Role:    RoleUser,
		Content: content,
		Images:  []Image{{Data: png, MIMEType: "image/png"}},
	}
}

// HasImages reports whether the message carries image payloads.
func (m *Message) HasImages() bool {
	return len(m.Images) > 0
}

// ModelInfo describes the model behind a provider.
type ModelInfo struct {
	Provider       string
	Name           string
	MaxTokens      int
	SupportsVision bool
}
