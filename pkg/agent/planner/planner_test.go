package planner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/scout/internal/testing/llmtest"
	"github.com/entrhq/scout/pkg/agent/action"
	"github.com/entrhq/scout/pkg/agent/ledger"
	"github.com/entrhq/scout/pkg/metrics"
	"github.com/entrhq/scout/pkg/types"
)

type charCounter struct{}

func (charCounter) CountTokens(s string) int { return len(s) }

type tempErr struct{ temp bool }

func (e tempErr) Error() string   { return "status error" }
func (e tempErr) Temporary() bool { return e.temp }

func newTestClient(p *llmtest.Provider, opts ...Option) *Client {
	opts = append([]Option{WithTokenizer(charCounter{})}, opts...)
	return New(p, opts...)
}

func TestPlan_ParsesReply(t *testing.T) {
	p := llmtest.NewProvider(`Sure! {"explanation":"search first","actions":[{"type":"navigate","url":"https://example.com"},{"type":"scroll","direction":"down"}]}`)
	c := newTestClient(p)

	plan, err := c.Plan(context.Background(), Request{Goal: "find a kettle"})
	require.NoError(t, err)
	assert.Equal(t, "search first", plan.Explanation)
	require.Len(t, plan.Actions, 2)
	assert.Equal(t, action.Navigate{URL: "https://example.com"}, plan.Actions[0])
	assert.Equal(t, action.KindScroll, plan.Actions[1].Kind())
}

func TestPlan_FallsBackOnGarbage(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewCollector("test", reg)
	p := llmtest.NewProvider("I am not sure what to do.")
	c := newTestClient(p, WithMetrics(m))

	plan, err := c.Plan(context.Background(), Request{Goal: "g"})
	require.NoError(t, err)
	assert.Equal(t, action.DefaultPlan(), plan)

	n, err := testutil.GatherAndCount(reg, "test_plan_fallbacks_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPlan_UsesThinkingWhenContentIsEmpty(t *testing.T) {
	p := llmtest.NewProvider()
	p.Push(llmtest.Reply{Thinking: `{"explanation":"x","actions":[{"type":"extract"}]}`})
	c := newTestClient(p)

	plan, err := c.Plan(context.Background(), Request{Goal: "g"})
	require.NoError(t, err)
	assert.Equal(t, "x", plan.Explanation)
}

func TestPlan_PromptContents(t *testing.T) {
	p := llmtest.NewProvider(`{"actions":[{"type":"extract"}]}`)
	c := newTestClient(p, WithPageExcerpt(10))

	history := []string{
		"Navigated to https://shop.example",
		ledger.InterventionPrefix + "only stainless steel",
		ledger.FindingPrefix + "Kettle A costs $30",
	}
	_, err := c.Plan(context.Background(), Request{
		Goal:     "find a kettle",
		URL:      "https://shop.example",
		Title:    "Shop",
		Content:  strings.Repeat("x", 100),
		History:  history,
		Findings: []string{"Kettle A costs $30"},
		Products: []string{"Kettle B ($45), declined"},
	})
	require.NoError(t, err)

	calls := p.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, types.RoleSystem, calls[0][0].Role)
	assert.Contains(t, calls[0][0].Content, "record_finding")
	assert.Contains(t, calls[0][0].Content, "Scroll down")

	prompt := p.LastPrompt()
	assert.Contains(t, prompt, "<goal>\nfind a kettle\n</goal>")
	assert.Contains(t, prompt, "URL: https://shop.example")
	assert.Contains(t, prompt, "- only stainless steel")
	assert.Contains(t, prompt, "1. Kettle A costs $30")
	assert.Contains(t, prompt, "Kettle B ($45), declined")
	assert.Contains(t, prompt, "3. Finding: Kettle A costs $30")
	assert.Contains(t, prompt, strings.Repeat("x", 10)+"\n[...truncated]")
	assert.NotContains(t, prompt, strings.Repeat("x", 11))
}

func TestPlan_HistoryIsTokenBounded(t *testing.T) {
	p := llmtest.NewProvider(`{"actions":[{"type":"extract"}]}`)
	c := newTestClient(p, WithHistoryTokens(30))

	history := []string{"first record", "second record", "third record"}
	_, err := c.Plan(context.Background(), Request{Goal: "g", History: history})
	require.NoError(t, err)

	prompt := p.LastPrompt()
	assert.Contains(t, prompt, "(1 earlier entries omitted)")
	assert.NotContains(t, prompt, "first record")
	assert.Contains(t, prompt, "3. third record")
}

func TestPlan_RetriesTemporaryErrors(t *testing.T) {
	p := llmtest.NewProvider()
	p.Push(
		llmtest.Reply{Err: tempErr{temp: true}},
		llmtest.Reply{Content: `{"actions":[{"type":"extract"}]}`},
	)
	c := newTestClient(p, WithMaxRetries(2))

	plan, err := c.Plan(context.Background(), Request{Goal: "g"})
	require.NoError(t, err)
	assert.Len(t, plan.Actions, 1)
	assert.Len(t, p.Calls(), 2)
}

func TestPlan_DoesNotRetryPermanentErrors(t *testing.T) {
	p := llmtest.NewProvider()
	p.Push(llmtest.Reply{Err: tempErr{temp: false}})
	c := newTestClient(p, WithMaxRetries(3))

	_, err := c.Plan(context.Background(), Request{Goal: "g"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan request")
	assert.Len(t, p.Calls(), 1)
}

func TestPlan_StopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := llmtest.NewProvider()
	p.Hook = func(context.Context, []*types.Message) error {
		cancel()
		return context.Canceled
	}
	c := newTestClient(p, WithMaxRetries(5))

	_, err := c.Plan(ctx, Request{Goal: "g"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, p.Calls(), 1)
}

func TestPlan_PerCallTimeout(t *testing.T) {
	p := llmtest.NewProvider()
	p.Hook = func(ctx context.Context, _ []*types.Message) error {
		<-ctx.Done()
		return ctx.Err()
	}
	c := newTestClient(p, WithCallTimeout(20*time.Millisecond), WithMaxRetries(0))

	start := time.Now()
	_, err := c.Plan(context.Background(), Request{Goal: "g"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSummarize(t *testing.T) {
	p := llmtest.NewProvider("  The answer is Kettle A.  ")
	c := newTestClient(p)

	text, err := c.Summarize(context.Background(), "find a kettle", "page body", "https://shop.example",
		[]string{"Navigated to https://shop.example", ledger.FindingPrefix + "Kettle A costs $30"})
	require.NoError(t, err)
	assert.Equal(t, "The answer is Kettle A.", text)

	calls := p.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, SummarySystemPrompt, calls[0][0].Content)
	prompt := p.LastPrompt()
	assert.Contains(t, prompt, "1. Kettle A costs $30")
	assert.Contains(t, prompt, `url="https://shop.example"`)
}

func TestSummarize_EmptyReplyIsError(t *testing.T) {
	c := newTestClient(llmtest.NewProvider("   "))
	_, err := c.Summarize(context.Background(), "g", "", "", nil)
	assert.Error(t, err)
}

func TestCompareProducts(t *testing.T) {
	p := llmtest.NewProvider("| Title | Price |\n\n## Recommendation\nA")
	c := newTestClient(p)

	out, err := c.CompareProducts(context.Background(), []types.Product{
		{Title: "Kettle A", Price: "$30", Description: "steel"},
		{Title: "Kettle B", SourceURL: "https://b.example"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "## Recommendation")

	prompt := p.LastPrompt()
	assert.Contains(t, prompt, "1. Kettle A\n   Price: $30")
	assert.Contains(t, prompt, "Description: steel")
	assert.Contains(t, prompt, "2. Kettle B\n   Price: (none)")
	assert.Contains(t, prompt, "Source: https://b.example")
}

func TestAnalyzeScreenshot(t *testing.T) {
	t.Run("no vision", func(t *testing.T) {
		c := newTestClient(llmtest.NewProvider())
		assert.False(t, c.HasVision())
		_, err := c.AnalyzeScreenshot(context.Background(), "p", []byte{1})
		assert.ErrorIs(t, err, ErrNoVision)
	})

	t.Run("with vision", func(t *testing.T) {
		v := &llmtest.Vision{Reply: " a red kettle "}
		c := newTestClient(llmtest.NewProvider(), WithVision(v))
		assert.True(t, c.HasVision())

		out, err := c.AnalyzeScreenshot(context.Background(), "what colour?", []byte{1, 2})
		require.NoError(t, err)
		assert.Equal(t, "a red kettle", out)
		require.Len(t, v.Images(), 1)
		assert.Equal(t, "image/png", v.Images()[0].MIMEType)
		assert.Equal(t, []string{"what colour?"}, v.Prompts())
	})
}

func TestRateLimit(t *testing.T) {
	p := llmtest.NewProvider()
	p.Fallback = &llmtest.Reply{Content: `{"actions":[{"type":"extract"}]}`}
	c := newTestClient(p, WithRateLimit(600)) // one every 100ms

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Plan(context.Background(), Request{Goal: "g"})
		require.NoError(t, err)
	}
	assert.True(t, time.Since(start) >= 150*time.Millisecond)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "abc", Excerpt("abc", 5))
	assert.Equal(t, "ab\n[...truncated]", Excerpt("abc", 2))
	assert.Equal(t, "abc", Excerpt("abc", 0))
	assert.Equal(t, "héé\n[...truncated]", Excerpt("hééllo", 3))
}
