// Package parser separates model reasoning from answer text in LLM streams.
package parser

import (
	"strings"

	"github.com/entrhq/scout/pkg/llm"
)

// Reasoning models wrap their scratch work in one of these tag pairs. The
// planner only ever wants the text outside them.
var (
	openTags  = map[string]bool{"<thinking>": true, "<think>": true}
	closeTags = map[string]bool{"</thinking>": true, "</think>": true}
)

// ThinkingParser parses streaming content and separates <thinking>/<think>
// blocks from regular content. It keeps state across chunks so tags split
// between chunks are still recognised.
type ThinkingParser struct {
	buffer     strings.Builder
	tagBuffer  strings.Builder // potential tag between < and >
	inThinking bool
	inTag      bool
}

// NewThinkingParser creates a new thinking parser.
func NewThinkingParser() *ThinkingParser {
	return &ThinkingParser{}
}

// Parse processes a content chunk and returns separate chunks for thinking and message content.
//
// Returns:
//   - thinkingChunk: non-nil if thinking content is found (Type = ContentTypeThinking)
//   - messageChunk: non-nil if message content is found (Type = ContentTypeMessage)
func (p *ThinkingParser) Parse(content string) (thinkingChunk, messageChunk *llm.StreamChunk) {
	if content == "" {
		return nil, nil
	}

	for _, ch := range content {
		if ch == '<' {
			// A second '<' means the previous one did not open a tag
			if p.inTag {
				thinkingChunk, messageChunk = p.appendChunk(thinkingChunk, messageChunk, p.flushTagBuffer())
			}
			if p.buffer.Len() > 0 {
				chunk := p.createChunk(p.buffer.String())
				p.buffer.Reset()
				thinkingChunk, messageChunk = p.appendChunk(thinkingChunk, messageChunk, chunk)
			}

			p.inTag = true
			p.tagBuffer.Reset()
			p.tagBuffer.WriteRune(ch)
			continue
		}

		if ch == '>' && p.inTag {
			p.tagBuffer.WriteRune(ch)
			tag := p.tagBuffer.String()
			p.tagBuffer.Reset()
			p.inTag = false

			switch {
			case openTags[tag]:
				p.inThinking = true
			case closeTags[tag]:
				p.inThinking = false
			default:
				thinkingChunk, messageChunk = p.appendChunk(thinkingChunk, messageChunk, p.createChunk(tag))
			}
			continue
		}

		if p.inTag {
			p.tagBuffer.WriteRune(ch)
		} else {
			p.buffer.WriteRune(ch)
		}
	}

	if p.buffer.Len() > 0 {
		chunk := p.createChunk(p.buffer.String())
		p.buffer.Reset()
		thinkingChunk, messageChunk = p.appendChunk(thinkingChunk, messageChunk, chunk)
	}

	return
}

func (p *ThinkingParser) flushTagBuffer() *llm.StreamChunk {
	if p.tagBuffer.Len() == 0 {
		return nil
	}
	text := p.tagBuffer.String()
	p.tagBuffer.Reset()
	return p.createChunk(text)
}

// createChunk creates a chunk typed by the current mode
func (p *ThinkingParser) createChunk(text string) *llm.StreamChunk {
	if text == "" {
		return nil
	}
	if p.inThinking {
		return &llm.StreamChunk{Content: text, Type: llm.ContentTypeThinking}
	}
	return &llm.StreamChunk{Content: text, Type: llm.ContentTypeMessage}
}

func (p *ThinkingParser) appendChunk(thinkingChunk, messageChunk, newChunk *llm.StreamChunk) (*llm.StreamChunk, *llm.StreamChunk) {
	if newChunk == nil {
		return thinkingChunk, messageChunk
	}

	if newChunk.Type == llm.ContentTypeThinking {
		if thinkingChunk == nil {
			return newChunk, messageChunk
		}
		thinkingChunk.Content += newChunk.Content
		return thinkingChunk, messageChunk
	}

	if messageChunk == nil {
		return thinkingChunk, newChunk
	}
	messageChunk.Content += newChunk.Content
	return thinkingChunk, messageChunk
}

// IsInThinking returns true if currently parsing thinking content.
func (p *ThinkingParser) IsInThinking() bool {
	return p.inThinking
}

// Flush returns any buffered content that hasn't been emitted yet.
// Call it at the end of a stream.
func (p *ThinkingParser) Flush() (thinkingChunk, messageChunk *llm.StreamChunk) {
	if p.inTag && p.tagBuffer.Len() > 0 {
		thinkingChunk, messageChunk = p.appendChunk(thinkingChunk, messageChunk, p.flushTagBuffer())
		p.inTag = false
	}

	if p.buffer.Len() > 0 {
		text := p.buffer.String()
		p.buffer.Reset()
		thinkingChunk, messageChunk = p.appendChunk(thinkingChunk, messageChunk, p.createChunk(text))
	}

	return thinkingChunk, messageChunk
}

// Reset resets the parser state for a new stream.
func (p *ThinkingParser) Reset() {
	p.buffer.Reset()
	p.tagBuffer.Reset()
	p.inThinking = false
	p.inTag = false
}

// Split runs a complete response through a fresh parser and returns the
// reasoning and answer parts.
func Split(text string) (thinking, message string) {
	p := NewThinkingParser()
	var tb, mb strings.Builder
	collect := func(t, m *llm.StreamChunk) {
		if t != nil {
			tb.WriteString(t.Content)
		}
		if m != nil {
			mb.WriteString(m.Content)
		}
	}
	collect(p.Parse(text))
	collect(p.Flush())
	return tb.String(), mb.String()
}
