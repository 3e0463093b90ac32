// Package openai provides an OpenAI-compatible chat completion provider with
// image input support.
//
// Example usage:
//
//	provider, err := openai.NewProvider(os.Getenv("OPENAI_API_KEY"), openai.WithModel("gpt-4o"))
//	if err != nil {
//	    panic(err)
//	}
//	reply, err := provider.Complete(ctx, []*types.Message{types.NewUserMessage("Hello!")})
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/entrhq/scout/pkg/llm"
	"github.com/entrhq/scout/pkg/llm/parser"
	"github.com/entrhq/scout/pkg/types"
	"github.com/openai/openai-go"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured
	DefaultModel = "gpt-4o"
)

// Provider implements llm.Provider and llm.VisionProvider for OpenAI-compatible APIs.
type Provider struct {
	httpClient *http.Client
	modelInfo  *types.ModelInfo
	apiKey     string
	baseURL    string
	model      string
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs such as
// OpenRouter, Azure OpenAI or a local server.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		if baseURL != "" {
			p.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// NewProvider creates a new OpenAI provider with the given API key.
//
// An empty apiKey falls back to OPENAI_API_KEY; a base URL not set through
// WithBaseURL falls back to OPENAI_BASE_URL.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	p := &Provider{
		model:      DefaultModel,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = strings.TrimRight(envBaseURL, "/")
		}
	}

	p.modelInfo = &types.ModelInfo{
		Provider:       "openai",
		Name:           p.model,
		MaxTokens:      128000,
		SupportsVision: true,
	}

	return p, nil
}

// CloneWithModel returns a shallow copy of p configured to use the given model.
// The clone shares the HTTP client, API key and base URL. It implements llm.ModelCloner.
func (p *Provider) CloneWithModel(model string) llm.Provider {
	clone := *p
	clone.model = model
	mi := *p.modelInfo
	mi.Name = model
	clone.modelInfo = &mi
	return &clone
}

// StreamCompletion sends messages to the chat completions endpoint and streams back chunks.
//
// Raw SSE handling is used instead of the SDK client so that compatible
// servers which add SSE comments or extra fields still work.
func (p *Provider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	resp, err := p.sendStreamRequest(ctx, messages)
	if err != nil {
		return nil, err
	}

	chunks := make(chan *llm.StreamChunk, 10)
	go p.processStreamResponse(ctx, resp, chunks)
	return chunks, nil
}

func (p *Provider) sendStreamRequest(ctx context.Context, messages []*types.Message) (*http.Response, error) {
	reqBody := map[string]interface{}{
		"model":    p.model,
		"messages": convertToOpenAIMessages(messages),
		"stream":   true,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: readErr.Error()}
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return resp, nil
}

// StatusError is returned when the API answers with a non-200 status.
type StatusError struct {
	Body       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func (p *Provider) processStreamResponse(ctx context.Context, resp *http.Response, chunks chan<- *llm.StreamChunk) {
	defer close(chunks)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	firstChunk := true
	thinkingParser := parser.NewThinkingParser()

	for scanner.Scan() {
		line := scanner.Text()
		if !isDataLine(line) {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			p.flushRemainingContent(ctx, thinkingParser, chunks)
			p.send(ctx, &llm.StreamChunk{Finished: true}, chunks)
			return
		}

		if !p.processSSEChunk(ctx, data, &firstChunk, thinkingParser, chunks) {
			return
		}
	}

	p.flushRemainingContent(ctx, thinkingParser, chunks)

	if err := scanner.Err(); err != nil {
		p.send(ctx, &llm.StreamChunk{Error: fmt.Errorf("stream read error: %w", err)}, chunks)
	}
}

// isDataLine skips blank lines, SSE comments and non-data fields
func isDataLine(line string) bool {
	return line != "" && !strings.HasPrefix(line, ":") && strings.HasPrefix(line, "data: ")
}

func (p *Provider) flushRemainingContent(ctx context.Context, thinkingParser *parser.ThinkingParser, chunks chan<- *llm.StreamChunk) {
	thinking, message := thinkingParser.Flush()
	p.send(ctx, thinking, chunks)
	p.send(ctx, message, chunks)
}

// send delivers a chunk unless the context is cancelled first
func (p *Provider) send(ctx context.Context, chunk *llm.StreamChunk, chunks chan<- *llm.StreamChunk) bool {
	if chunk == nil {
		return true
	}
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		select {
		case chunks <- &llm.StreamChunk{Error: ctx.Err()}:
		default:
		}
		return false
	}
}

func (p *Provider) processSSEChunk(ctx context.Context, data string, firstChunk *bool, thinkingParser *parser.ThinkingParser, chunks chan<- *llm.StreamChunk) bool {
	var chunk struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Choices []struct {
			Delta struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"delta"`
			FinishReason *string `json:"finish_reason"`
		} `json:"choices"`
	}

	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return true // malformed chunks are skipped
	}

	// Some gateways report upstream failures mid-stream
	if chunk.Error != nil {
		p.send(ctx, &llm.StreamChunk{Error: fmt.Errorf("stream error: %s", chunk.Error.Message)}, chunks)
		return false
	}

	if len(chunk.Choices) == 0 {
		return true
	}

	choice := chunk.Choices[0]
	role := ""
	if *firstChunk && choice.Delta.Role != "" {
		role = choice.Delta.Role
		*firstChunk = false
	}

	if choice.Delta.Content != "" {
		thinking, message := thinkingParser.Parse(choice.Delta.Content)
		for _, c := range []*llm.StreamChunk{thinking, message} {
			if c == nil {
				continue
			}
			c.Role = role
			if !p.send(ctx, c, chunks) {
				return false
			}
		}
		role = ""
	}

	if choice.FinishReason != nil && *choice.FinishReason == "stop" {
		return p.send(ctx, &llm.StreamChunk{Role: role, Finished: true}, chunks)
	}
	if role != "" {
		return p.send(ctx, &llm.StreamChunk{Role: role}, chunks)
	}
	return true
}

// Complete sends messages and accumulates the streamed reply.
// Reasoning text is returned in Message.Thinking, never in Content.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	stream, err := p.StreamCompletion(ctx, messages)
	if err != nil {
		return nil, err
	}

	var content, thinking strings.Builder
	role := string(types.RoleAssistant)

	for chunk := range stream {
		if chunk.IsError() {
			return nil, chunk.Error
		}
		if chunk.Role != "" {
			role = chunk.Role
		}
		if chunk.IsThinking() {
			thinking.WriteString(chunk.Content)
		} else {
			content.WriteString(chunk.Content)
		}
	}

	return &types.Message{
		Role:     types.Role(role),
		Content:  content.String(),
		Thinking: thinking.String(),
	}, nil
}

// AnalyzeImage asks the model to describe an image. It implements llm.VisionProvider.
func (p *Provider) AnalyzeImage(ctx context.Context, prompt string, image types.Image) (string, error) {
	msg := &types.Message{Role: types.RoleUser, Content: prompt, Images: []types.Image{image}}
	reply, err := p.Complete(ctx, []*types.Message{msg})
	if err != nil {
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	return strings.TrimSpace(reply.Content), nil
}

// GetModelInfo returns information about the model being used.
func (p *Provider) GetModelInfo() *types.ModelInfo {
	return p.modelInfo
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

// GetBaseURL returns the base URL being used.
func (p *Provider) GetBaseURL() string {
	return p.baseURL
}

// convertToOpenAIMessages converts messages to the SDK's wire params.
// User messages with images become multi-part content with data URIs.
func convertToOpenAIMessages(messages []*types.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case types.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			if !msg.HasImages() {
				out = append(out, openai.UserMessage(msg.Content))
				continue
			}
			parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(msg.Content)}
			for _, img := range msg.Images {
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURI(img),
				}))
			}
			out = append(out, openai.UserMessage(parts))
		}
	}

	return out
}

func dataURI(img types.Image) string {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
