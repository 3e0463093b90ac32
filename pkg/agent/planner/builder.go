package planner

import (
	"fmt"
	"strings"

	"github.com/entrhq/scout/pkg/agent/ledger"
)

// PromptBuilder assembles the per-iteration user prompt.
type PromptBuilder struct {
	goal       string
	url        string
	title      string
	content    string
	transcript string
	findings   []string
	guidance   []string
	products   []string
}

// NewPromptBuilder creates a builder for goal.
func NewPromptBuilder(goal string) *PromptBuilder {
	return &PromptBuilder{goal: goal}
}

// WithPage sets the current page. content should already be truncated.
func (pb *PromptBuilder) WithPage(url, title, content string) *PromptBuilder {
	pb.url, pb.title, pb.content = url, title, content
	return pb
}

// WithTranscript sets the bounded activity log.
func (pb *PromptBuilder) WithTranscript(transcript string) *PromptBuilder {
	pb.transcript = transcript
	return pb
}

// WithFindings sets the findings recorded so far.
func (pb *PromptBuilder) WithFindings(findings []string) *PromptBuilder {
	pb.findings = findings
	return pb
}

// WithGuidance sets the user's interventions, oldest first.
func (pb *PromptBuilder) WithGuidance(guidance []string) *PromptBuilder {
	pb.guidance = guidance
	return pb
}

// WithProducts sets one line per product already proposed.
func (pb *PromptBuilder) WithProducts(products []string) *PromptBuilder {
	pb.products = products
	return pb
}

// Build renders the prompt.
func (pb *PromptBuilder) Build() string {
	var b strings.Builder

	fmt.Fprintf(&b, "<goal>\n%s\n</goal>\n\n", pb.goal)

	if len(pb.guidance) > 0 {
		b.WriteString("<user_guidance>\n")
		for _, g := range pb.guidance {
			fmt.Fprintf(&b, "- %s\n", g)
		}
		b.WriteString("</user_guidance>\n\n")
	}

	b.WriteString("<findings>\n")
	if len(pb.findings) == 0 {
		b.WriteString("(none yet)\n")
	}
	for i, f := range pb.findings {
		fmt.Fprintf(&b, "%d. %s\n", i+1, f)
	}
	b.WriteString("</findings>\n\n")

	if len(pb.products) > 0 {
		b.WriteString("<products>\n")
		for _, p := range pb.products {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("</products>\n\n")
	}

	b.WriteString("<history>\n")
	if pb.transcript == "" {
		b.WriteString("(no actions yet)\n")
	} else {
		b.WriteString(pb.transcript)
	}
	b.WriteString("</history>\n\n")

	fmt.Fprintf(&b, "<current_page>\nURL: %s\nTitle: %s\n\n%s\n</current_page>\n\n", orNone(pb.url), orNone(pb.title), orNone(pb.content))

	b.WriteString("Decide the next actions. Reply with the JSON object only.")
	return b.String()
}

// SystemPrompt is the fixed system message for planning.
func SystemPrompt() string {
	return PlannerRolePrompt + "\n\n" + BehaviorRulesPrompt + "\n\n" + ActionSchemaPrompt
}

// guidanceFrom pulls user interventions out of ledger records.
func guidanceFrom(history []string) []string {
	var out []string
	for _, r := range history {
		if ledger.IsIntervention(r) {
			out = append(out, strings.TrimPrefix(r, ledger.InterventionPrefix))
		}
	}
	return out
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

// Excerpt returns at most n runes of s.
func Excerpt(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "\n[...truncated]"
}
