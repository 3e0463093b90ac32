// Package genai provides a Gemini-backed vision provider.
package genai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/entrhq/scout/pkg/types"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// generator is the slice of the Gemini models API this package uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Provider implements llm.VisionProvider using Gemini.
type Provider struct {
	models generator
	model  string
}

// Option configures a Provider.
type Option func(*Provider)

// WithModel sets the Gemini model.
func WithModel(model string) Option {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// NewProvider creates a Gemini vision provider. An empty apiKey falls back to
// GEMINI_API_KEY.
func NewProvider(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (provide via parameter or GEMINI_API_KEY environment variable)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	p := &Provider{models: client.Models, model: DefaultModel}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// AnalyzeImage sends the prompt and image in a single user turn.
func (p *Provider) AnalyzeImage(ctx context.Context, prompt string, image types.Image) (string, error) {
	mime := image.MIMEType
	if mime == "" {
		mime = "image/png"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image.Data, mime),
		}, genai.RoleUser),
	}

	resp, err := p.models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini vision request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}

// Model returns the configured model name.
func (p *Provider) Model() string {
	return p.model
}
