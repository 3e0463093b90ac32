// Package llm provides abstractions for the language models scout plans with.
//
// Example usage:
//
//	provider, err := openai.NewProvider(os.Getenv("OPENAI_API_KEY"), openai.WithModel("gpt-4o"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reply, err := provider.Complete(ctx, []*types.Message{
//	    types.NewUserMessage("Hello!"),
//	})
package llm

import (
	"context"

	"github.com/entrhq/scout/pkg/types"
)

// ModelCloner is an optional interface providers implement to hand out a
// copy bound to another model. It shares credentials and transport with the
// original, which is how a separate vision model is configured.
type ModelCloner interface {
	CloneWithModel(model string) Provider
}

// Provider defines the interface for text completion backends.
//
// Providers only speak messages and chunks. Prompt construction, parsing and
// retries belong to the planner.
type Provider interface {
	// StreamCompletion sends messages and streams back response chunks.
	//
	// The channel is closed when streaming completes or an error occurs.
	// Stream-time errors arrive as chunks with Error set; the returned error
	// only reports failures to start the stream.
	StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error)

	// Complete sends messages and returns the full response. Reasoning
	// blocks are kept out of Content.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModelInfo returns information about the model being used.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name being used.
	GetModel() string
}

// VisionProvider is implemented by backends that can describe an image.
type VisionProvider interface {
	AnalyzeImage(ctx context.Context, prompt string, image types.Image) (string, error)
}
