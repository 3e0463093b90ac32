package config

import (
	"context"
	"fmt"

	"github.com/entrhq/scout/pkg/llm"
	"github.com/entrhq/scout/pkg/llm/genai"
	"github.com/entrhq/scout/pkg/llm/openai"
)

// ProviderOverrides are values given on the command line. Empty fields defer
// to the configuration.
type ProviderOverrides struct {
	Model   string
	BaseURL string
	APIKey  string
}

// BuildProvider creates the planner's LLM provider from flags and configuration.
func BuildProvider(cfg *Config, cli ProviderOverrides) (*openai.Provider, error) {
	model := firstNonEmpty(cli.Model, cfg.LLM.Model)
	baseURL := firstNonEmpty(cli.BaseURL, cfg.LLM.BaseURL)
	apiKey := firstNonEmpty(cli.APIKey, cfg.LLM.APIKey)

	if apiKey == "" {
		return nil, fmt.Errorf("API key is required. Set OPENAI_API_KEY, use --api-key, or set llm.api_key in the config file")
	}

	provider, err := openai.NewProvider(apiKey, openai.WithModel(model), openai.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	return provider, nil
}

// BuildVisionProvider creates the screenshot analysis backend. It returns
// nil when vision is disabled. The OpenAI backend shares the planner's
// transport, switching model when vision.model is set.
func BuildVisionProvider(ctx context.Context, cfg *Config, planner llm.Provider) (llm.VisionProvider, error) {
	switch cfg.Vision.Provider {
	case VisionDisabled:
		return nil, nil
	case VisionGemini:
		p, err := genai.NewProvider(ctx, cfg.Vision.APIKey, genai.WithModel(cfg.Vision.Model))
		if err != nil {
			return nil, fmt.Errorf("failed to create vision provider: %w", err)
		}
		return p, nil
	default:
		var p llm.Provider = planner
		if cfg.Vision.Model != "" {
			if cloner, ok := planner.(llm.ModelCloner); ok {
				p = cloner.CloneWithModel(cfg.Vision.Model)
			}
		}
		vp, ok := p.(llm.VisionProvider)
		if !ok {
			return nil, fmt.Errorf("provider %T cannot analyze images", p)
		}
		return vp, nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
