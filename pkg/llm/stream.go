package llm

// ContentType distinguishes reasoning from answer text in a stream.
type ContentType string

const (
	ContentTypeMessage  ContentType = "message"  // ContentTypeMessage is answer text.
	ContentTypeThinking ContentType = "thinking" // ContentTypeThinking is reasoning text.
)

// StreamChunk is one piece of a streamed completion.
type StreamChunk struct {
	Error    error
	Content  string
	Role     string
	Type     ContentType
	Finished bool
}

// IsError reports whether the chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c.Error != nil
}

// IsThinking reports whether the chunk is reasoning text.
func (c *StreamChunk) IsThinking() bool {
	return c.Type == ContentTypeThinking
}
