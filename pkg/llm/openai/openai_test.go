package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/entrhq/scout/pkg/llm"
	"github.com/entrhq/scout/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, deltas []string, captured *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if captured != nil {
			*captured = string(body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n")
		for _, d := range deltas {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", d)
		}
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestNewProviderRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewProvider("")
	require.Error(t, err)
}

func TestNewProviderEnvBaseURL(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "http://localhost:9999/v1/")

	p, err := NewProvider("key")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/v1", p.GetBaseURL())
	assert.Equal(t, DefaultModel, p.GetModel())
}

func TestCompleteSeparatesThinking(t *testing.T) {
	srv := sseServer(t, []string{"<think>the user wants mugs", "</think>", `{"explanation":"go",`, `"actions":[]}`}, nil)
	defer srv.Close()

	p, err := NewProvider("key", WithBaseURL(srv.URL), WithModel("test-model"))
	require.NoError(t, err)

	reply, err := p.Complete(context.Background(), []*types.Message{types.NewUserMessage("plan")})
	require.NoError(t, err)

	assert.Equal(t, types.RoleAssistant, reply.Role)
	assert.Equal(t, `{"explanation":"go","actions":[]}`, reply.Content)
	assert.Equal(t, "the user wants mugs", reply.Thinking)
}

func TestAnalyzeImageSendsDataURI(t *testing.T) {
	var body string
	srv := sseServer(t, []string{"A red mug on a shelf."}, &body)
	defer srv.Close()

	p, err := NewProvider("key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	var vision llm.VisionProvider = p
	text, err := vision.AnalyzeImage(context.Background(), "What is shown?", types.Image{Data: []byte("png-bytes"), MIMEType: "image/png"})
	require.NoError(t, err)

	assert.Equal(t, "A red mug on a shelf.", text)
	assert.Contains(t, body, `"image_url"`)
	assert.Contains(t, body, "data:image/png;base64,")
	assert.Contains(t, body, "What is shown?")
}

func TestCompleteStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewProvider("key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.True(t, statusErr.Temporary())
	assert.True(t, strings.Contains(err.Error(), "429"))
}

func TestCloneWithModel(t *testing.T) {
	p, err := NewProvider("key", WithModel("planner"))
	require.NoError(t, err)

	clone := p.CloneWithModel("vision")

	assert.Equal(t, "vision", clone.GetModel())
	assert.Equal(t, "vision", clone.GetModelInfo().Name)
	assert.Equal(t, "planner", p.GetModelInfo().Name)
}

func TestConvertToOpenAIMessages(t *testing.T) {
	msgs := convertToOpenAIMessages([]*types.Message{
		types.NewSystemMessage("rules"),
		types.NewUserMessage("goal"),
		types.NewAssistantMessage("plan"),
		types.NewUserImageMessage("look", []byte{1}),
	})

	require.Len(t, msgs, 4)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	assert.NotNil(t, msgs[2].OfAssistant)
	require.NotNil(t, msgs[3].OfUser)
	assert.Len(t, msgs[3].OfUser.Content.OfArrayOfContentParts, 2)
}
