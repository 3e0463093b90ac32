// Package planner talks to the language model on behalf of the agent loop.
// It turns the session's state into prompts and the model's replies into
// plans, summaries and comparisons.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/entrhq/scout/pkg/agent/action"
	"github.com/entrhq/scout/pkg/agent/ledger"
	"github.com/entrhq/scout/pkg/llm"
	"github.com/entrhq/scout/pkg/llm/tokenizer"
	"github.com/entrhq/scout/pkg/logging"
	"github.com/entrhq/scout/pkg/metrics"
	"github.com/entrhq/scout/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("planner")
	if err != nil {
		debugLog.Warnf("Failed to initialize planner logger, using stderr fallback: %v", err)
	}
}

// ErrNoVision is returned by AnalyzeScreenshot when no vision model is configured.
var ErrNoVision = errors.New("no vision model configured")

const (
	// DefaultCallTimeout bounds a single model request.
	DefaultCallTimeout = 2 * time.Minute
	// DefaultMaxRetries is how many times a failed request is retried.
	DefaultMaxRetries = 2
	// DefaultHistoryTokens bounds the activity log in the planning prompt.
	DefaultHistoryTokens = 4000
	// DefaultPageExcerpt is how much page text the planner sees.
	DefaultPageExcerpt = 5000
)

// Request is everything the planner is told about the current iteration.
type Request struct {
	Goal     string
	URL      string
	Title    string
	Content  string
	History  []string
	Findings []string
	Products []string
}

// Client plans browser actions with an llm.Provider.
type Client struct {
	provider      llm.Provider
	vision        llm.VisionProvider
	counter       tokenizer.Counter
	limiter       *rate.Limiter
	metrics       *metrics.Collector
	callTimeout   time.Duration
	maxRetries    uint64
	historyTokens int
	pageExcerpt   int
}

// Option configures a Client.
type Option func(*Client)

// WithVision sets the model used to describe screenshots.
func WithVision(v llm.VisionProvider) Option {
	return func(c *Client) { c.vision = v }
}

// WithCallTimeout bounds each request attempt.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithMaxRetries sets how many times a transport failure is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = uint64(n)
		}
	}
}

// WithRateLimit caps requests per minute. Zero disables the limit.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
}

// WithTokenizer sets the counter used to bound the activity log.
func WithTokenizer(t tokenizer.Counter) Option {
	return func(c *Client) { c.counter = t }
}

// WithHistoryTokens sets the activity log budget.
func WithHistoryTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.historyTokens = n
		}
	}
}

// WithPageExcerpt sets how many characters of page text are sent.
func WithPageExcerpt(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageExcerpt = n
		}
	}
}

// WithMetrics records request counts and latency.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a Client.
func New(provider llm.Provider, opts ...Option) *Client {
	c := &Client{
		provider:      provider,
		callTimeout:   DefaultCallTimeout,
		maxRetries:    DefaultMaxRetries,
		historyTokens: DefaultHistoryTokens,
		pageExcerpt:   DefaultPageExcerpt,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.counter == nil {
		c.counter = tokenizer.New()
	}
	return c
}

// HasVision reports whether screenshots can be analyzed.
func (c *Client) HasVision() bool {
	return c.vision != nil
}

// Plan asks the model for the next actions. A reply that cannot be parsed
// yields action.DefaultPlan and no error; only transport failures are
// returned.
func (c *Client) Plan(ctx context.Context, req Request) (*action.Plan, error) {
	prompt := NewPromptBuilder(req.Goal).
		WithPage(req.URL, req.Title, Excerpt(req.Content, c.pageExcerpt)).
		WithTranscript(ledger.Transcript(req.History, c.historyTokens, c.counter)).
		WithFindings(req.Findings).
		WithGuidance(guidanceFrom(req.History)).
		WithProducts(req.Products).
		Build()

	reply, err := c.complete(ctx, "plan", []*types.Message{
		types.NewSystemMessage(SystemPrompt()),
		types.NewUserMessage(prompt),
	})
	if err != nil {
		return nil, err
	}

	plan, perr := action.ParsePlan(reply.Content)
	if perr != nil && reply.Thinking != "" {
		plan, perr = action.ParsePlan(reply.Thinking)
	}
	if perr != nil {
		debugLog.Warnf("Falling back to default plan: %v (reply: %q)", perr, types.Preview(reply.Content, 200))
		c.metrics.PlanFallback()
		return action.DefaultPlan(), nil
	}

	debugLog.Debugf("Plan with %d actions: %s", len(plan.Actions), plan.Explanation)
	return plan, nil
}

// Summarize writes a final answer from whatever the session gathered.
func (c *Client) Summarize(ctx context.Context, goal, content, url string, history []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "<goal>\n%s\n</goal>\n\n", goal)

	var findings []string
	for _, r := range history {
		if ledger.IsFinding(r) {
			findings = append(findings, strings.TrimPrefix(r, ledger.FindingPrefix))
		}
	}
	b.WriteString("<findings>\n")
	for i, f := range findings {
		fmt.Fprintf(&b, "%d. %s\n", i+1, f)
	}
	b.WriteString("</findings>\n\n")

	fmt.Fprintf(&b, "<activity_log>\n%s</activity_log>\n\n", ledger.Transcript(history, c.historyTokens, c.counter))
	fmt.Fprintf(&b, "<last_page url=%q>\n%s\n</last_page>\n", url, Excerpt(content, c.pageExcerpt))

	reply, err := c.complete(ctx, "summarize", []*types.Message{
		types.NewSystemMessage(SummarySystemPrompt),
		types.NewUserMessage(b.String()),
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(reply.Content)
	if text == "" {
		return "", errors.New("model returned an empty summary")
	}
	return text, nil
}

// CompareProducts writes a markdown comparison table and a recommendation.
func (c *Client) CompareProducts(ctx context.Context, products []types.Product) (string, error) {
	var b strings.Builder
	b.WriteString("<products>\n")
	for i, p := range products {
		fmt.Fprintf(&b, "%d. %s\n   Price: %s\n", i+1, p.Title, orNone(p.Price))
		if p.Description != "" {
			fmt.Fprintf(&b, "   Description: %s\n", p.Description)
		}
		if p.SourceURL != "" {
			fmt.Fprintf(&b, "   Source: %s\n", p.SourceURL)
		}
	}
	b.WriteString("</products>\n")

	reply, err := c.complete(ctx, "compare", []*types.Message{
		types.NewSystemMessage(ComparisonSystemPrompt),
		types.NewUserMessage(b.String()),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply.Content), nil
}

// AnalyzeScreenshot asks the vision model about a PNG screenshot.
func (c *Client) AnalyzeScreenshot(ctx context.Context, prompt string, png []byte) (string, error) {
	if c.vision == nil {
		return "", ErrNoVision
	}
	var text string
	err := c.call(ctx, "vision", func(ctx context.Context) error {
		var err error
		text, err = c.vision.AnalyzeImage(ctx, prompt, types.Image{Data: png, MIMEType: "image/png"})
		return err
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) complete(ctx context.Context, op string, messages []*types.Message) (*types.Message, error) {
	var reply *types.Message
	err := c.call(ctx, op, func(ctx context.Context) error {
		var err error
		reply, err = c.provider.Complete(ctx, messages)
		return err
	})
	if err != nil {
		return nil, err
	}
	if reply == nil {
		reply = types.NewAssistantMessage("")
	}
	return reply, nil
}

// call runs fn under the rate limit, a per-attempt timeout and bounded
// exponential retry. Context errors and non-temporary errors are not retried.
func (c *Client) call(ctx context.Context, op string, fn func(context.Context) error) error {
	operation := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()

		start := time.Now()
		err := fn(attemptCtx)
		c.metrics.PlannerRequest(op, time.Since(start), err)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		debugLog.Warnf("%s request failed, retrying: %v", op, err)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)); err != nil {
		return fmt.Errorf("%s request: %w", op, err)
	}
	return nil
}

type temporary interface {
	Temporary() bool
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}
	// Attempt timeouts and connection failures carry no status.
	return true
}
