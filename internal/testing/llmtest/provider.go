// Package llmtest provides scripted model providers for tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/entrhq/scout/pkg/llm"
	"github.com/entrhq/scout/pkg/types"
)

// ErrScriptExhausted is returned once every scripted reply has been used
// and no Fallback is set.
var ErrScriptExhausted = errors.New("llmtest: no scripted replies left")

// Reply is one scripted answer. When Err is set it is returned instead.
type Reply struct {
	Err      error
	Content  string
	Thinking string
}

// Provider answers Complete calls from a script, in order. Calls whose
// system prompt contains a key of Routes are answered from that route
// instead, so planning and summarizing can be scripted separately.
type Provider struct {
	// Hook runs before each Complete call; a non-nil error is returned.
	Hook     func(ctx context.Context, messages []*types.Message) error
	Routes   map[string]string
	Fallback *Reply
	Model    string

	mu     sync.Mutex
	script []Reply
	calls  [][]*types.Message
}

// NewProvider returns a provider that replies with contents in order.
func NewProvider(contents ...string) *Provider {
	p := &Provider{Model: "scripted"}
	for _, c := range contents {
		p.script = append(p.script, Reply{Content: c})
	}
	return p
}

// Push appends replies to the script.
func (p *Provider) Push(replies ...Reply) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = append(p.script, replies...)
}

// Calls returns every message list seen so far.
func (p *Provider) Calls() [][]*types.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]*types.Message(nil), p.calls...)
}

// LastPrompt returns the content of the last message of the last call.
func (p *Provider) LastPrompt() string {
	calls := p.Calls()
	if len(calls) == 0 {
		return ""
	}
	last := calls[len(calls)-1]
	return last[len(last)-1].Content
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	p.mu.Lock()
	p.calls = append(p.calls, messages)
	hook := p.Hook
	p.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, messages); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(messages) > 0 && messages[0].Role == types.RoleSystem {
		for key, content := range p.Routes {
			if strings.Contains(messages[0].Content, key) {
				return types.NewAssistantMessage(content), nil
			}
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	var r Reply
	switch {
	case len(p.script) > 0:
		r = p.script[0]
		p.script = p.script[1:]
	case p.Fallback != nil:
		r = *p.Fallback
	default:
		return nil, ErrScriptExhausted
	}
	if r.Err != nil {
		return nil, r.Err
	}
	msg := types.NewAssistantMessage(r.Content)
	msg.Thinking = r.Thinking
	return msg, nil
}

// StreamCompletion replays Complete as a single chunk.
func (p *Provider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	msg, err := p.Complete(ctx, messages)
	ch := make(chan *llm.StreamChunk, 2)
	if err != nil {
		ch <- &llm.StreamChunk{Error: err, Finished: true}
	} else {
		ch <- &llm.StreamChunk{Content: msg.Content, Role: string(types.RoleAssistant), Type: llm.ContentTypeMessage, Finished: true}
	}
	close(ch)
	return ch, nil
}

// GetModelInfo implements llm.Provider.
func (p *Provider) GetModelInfo() *types.ModelInfo {
	return &types.ModelInfo{Provider: "llmtest", Name: p.Model}
}

// GetModel implements llm.Provider.
func (p *Provider) GetModel() string {
	return p.Model
}

// Vision is a scripted llm.VisionProvider.
type Vision struct {
	Err   error
	Reply string

	mu      sync.Mutex
	prompts []string
	images  []types.Image
}

// AnalyzeImage implements llm.VisionProvider.
func (v *Vision) AnalyzeImage(ctx context.Context, prompt string, image types.Image) (string, error) {
	v.mu.Lock()
	v.prompts = append(v.prompts, prompt)
	v.images = append(v.images, image)
	v.mu.Unlock()
	if v.Err != nil {
		return "", v.Err
	}
	return v.Reply, nil
}

// Prompts returns the prompts seen so far.
func (v *Vision) Prompts() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.prompts...)
}

// Images returns the images seen so far.
func (v *Vision) Images() []types.Image {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]types.Image(nil), v.images...)
}
