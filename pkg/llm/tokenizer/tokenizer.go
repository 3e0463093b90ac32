// Package tokenizer counts tokens so prompt context can be kept within budget.
package tokenizer

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the encoding used by current OpenAI chat models.
const DefaultEncoding = "o200k_base"

// Counter is anything that can count tokens in a string.
type Counter interface {
	CountTokens(text string) int
}

// Tokenizer counts tokens with tiktoken. The encoding is loaded on first use;
// if it cannot be loaded (it may need a download) counts fall back to an
// estimate of four bytes per token.
type Tokenizer struct {
	enc      *tiktoken.Tiktoken
	initErr  error
	encoding string
	once     sync.Once
}

// New creates a tokenizer for DefaultEncoding.
func New() *Tokenizer {
	return NewWithEncoding(DefaultEncoding)
}

// NewWithEncoding creates a tokenizer for a named tiktoken encoding.
func NewWithEncoding(encoding string) *Tokenizer {
	return &Tokenizer{encoding: encoding}
}

func (t *Tokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

// Ready reports whether the real encoding is loaded, loading it if needed.
func (t *Tokenizer) Ready() error {
	return t.init()
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if err := t.init(); err != nil {
		return Estimate(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Estimate approximates a token count without an encoding.
func Estimate(text string) int {
	n := len(text) / 4
	if n == 0 && utf8.RuneCountInString(text) > 0 {
		return 1
	}
	return n
}
