package parser

import (
	"strings"
	"testing"
)

func feed(p *ThinkingParser, chunks []string) (thinking, message string) {
	for _, chunk := range chunks {
		t, m := p.Parse(chunk)
		if t != nil {
			thinking += t.Content
		}
		if m != nil {
			message += m.Content
		}
	}
	t, m := p.Flush()
	if t != nil {
		thinking += t.Content
	}
	if m != nil {
		message += m.Content
	}
	return thinking, message
}

// Thinking content containing < or > must not hide the closing tag
func TestThinkingParserWithLessThanGreaterThan(t *testing.T) {
	p := NewThinkingParser()

	thinking, message := feed(p, []string{
		"<thinking>",
		"Comparing prices:\n",
		"1. $12 > $10\n",
		"2. for i<10 items\n",
		"</thinking>",
		"\n{\"explanation\":\"x\",\"actions\":[]}",
	})

	if p.IsInThinking() {
		t.Error("parser still in thinking mode after </thinking>")
	}
	if !strings.Contains(message, `"explanation"`) {
		t.Errorf("plan JSON should be message content, got %q", message)
	}
	if !strings.Contains(thinking, "i<10") || !strings.Contains(thinking, "$12 > $10") {
		t.Errorf("thinking content should keep < and >, got %q", thinking)
	}
}

func TestThinkingParserThinkTag(t *testing.T) {
	p := NewThinkingParser()

	thinking, message := feed(p, []string{"<th", "ink>scroll first</th", "ink>", `{"actions":[]}`})

	if thinking != "scroll first" {
		t.Errorf("thinking = %q", thinking)
	}
	if message != `{"actions":[]}` {
		t.Errorf("message = %q", message)
	}
}

func TestThinkingParserSimpleCase(t *testing.T) {
	p := NewThinkingParser()

	_, message := feed(p, []string{"<thinking>", "This is thinking", "</thinking>", "This is a message"})

	if p.IsInThinking() {
		t.Error("parser should not be in thinking mode after </thinking>")
	}
	if message != "This is a message" {
		t.Errorf("message = %q", message)
	}
}

func TestThinkingParserUnclosedAngle(t *testing.T) {
	p := NewThinkingParser()

	_, message := feed(p, []string{"price < 20"})

	if message != "price < 20" {
		t.Errorf("message = %q", message)
	}
}

func TestSplit(t *testing.T) {
	thinking, message := Split("<think>hmm</think>Found it.")
	if thinking != "hmm" || message != "Found it." {
		t.Errorf("Split = %q, %q", thinking, message)
	}
}
