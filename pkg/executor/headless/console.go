package headless

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/scout/pkg/agent"
	"github.com/entrhq/scout/pkg/types"
)

// LogLevel represents the console verbosity level
type LogLevel int

const (
	// LogLevelQuiet shows only warnings, errors and the final summary
	LogLevelQuiet LogLevel = iota
	// LogLevelNormal shows standard progress (default)
	LogLevelNormal
	// LogLevelVerbose adds action and planning detail
	LogLevelVerbose
	// LogLevelDebug shows every update with its metadata
	LogLevelDebug
)

var (
	salmonPink  = lipgloss.Color("#FFB3BA")
	coralPink   = lipgloss.Color("#FFCCCB")
	mintGreen   = lipgloss.Color("#A8E6CF")
	amber       = lipgloss.Color("#FCD34D")
	mutedGray   = lipgloss.Color("#6B7280")
	brightWhite = lipgloss.Color("#F9FAFB")
)

// Console renders session updates for a terminal. It is safe for
// concurrent use.
type Console struct {
	mu     sync.Mutex
	level  LogLevel
	writer io.Writer

	header   lipgloss.Style
	step     lipgloss.Style
	info     lipgloss.Style
	success  lipgloss.Style
	warning  lipgloss.Style
	failure  lipgloss.Style
	muted    lipgloss.Style
	question lipgloss.Style
	report   lipgloss.Style
}

// NewConsole creates a console writing to w. Colors are dropped when w is
// not a terminal.
func NewConsole(w io.Writer, level LogLevel) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		level:    level,
		writer:   w,
		header:   r.NewStyle().Foreground(salmonPink).Bold(true),
		step:     r.NewStyle().Foreground(brightWhite),
		info:     r.NewStyle().Foreground(salmonPink),
		success:  r.NewStyle().Foreground(mintGreen).Bold(true),
		warning:  r.NewStyle().Foreground(amber),
		failure:  r.NewStyle().Foreground(salmonPink).Bold(true),
		muted:    r.NewStyle().Foreground(mutedGray),
		question: r.NewStyle().Foreground(coralPink).Bold(true),
		report:   r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(salmonPink).Padding(0, 1),
	}
}

func (c *Console) println(style lipgloss.Style, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.writer, style.Render(text))
}

// Header prints a prominent header message
func (c *Console) Header(message string) {
	if c.level >= LogLevelNormal {
		rule := strings.Repeat("=", 70)
		c.println(c.header, rule)
		c.println(c.header, "  "+message)
		c.println(c.header, rule)
	}
}

// Infof prints an informational message
func (c *Console) Infof(format string, args ...interface{}) {
	if c.level >= LogLevelNormal {
		c.println(c.info, fmt.Sprintf(format, args...))
	}
}

// Warningf prints a warning message
func (c *Console) Warningf(format string, args ...interface{}) {
	c.println(c.warning, "⚠ Warning: "+fmt.Sprintf(format, args...))
}

// Errorf prints an error message
func (c *Console) Errorf(format string, args ...interface{}) {
	c.println(c.failure, "✗ Error: "+fmt.Sprintf(format, args...))
}

// Verbosef prints detail shown only in verbose mode
func (c *Console) Verbosef(format string, args ...interface{}) {
	if c.level >= LogLevelVerbose {
		c.println(c.muted, "→ "+fmt.Sprintf(format, args...))
	}
}

// Update renders one session update.
func (c *Console) Update(u *types.Update) {
	if c.level >= LogLevelDebug {
		c.println(c.muted, fmt.Sprintf("[DEBUG] %s %q url=%s metadata=%v", u.Type, u.Status, u.URL, u.Metadata))
	}

	switch u.Type {
	case types.UpdateTypeProposal:
		// Always shown: the user may have to answer it.
		c.println(c.question, "? "+u.Status)
		if u.Product != nil && u.Product.Description != "" {
			c.println(c.muted, "  "+u.Product.Description)
		}
	case types.UpdateTypeProductAccepted:
		if c.level >= LogLevelNormal {
			c.println(c.success, "✓ "+u.Status)
		}
	case types.UpdateTypeProductDeclined:
		if c.level >= LogLevelNormal {
			c.println(c.muted, "  "+u.Status)
		}
	case types.UpdateTypeFinding:
		if c.level >= LogLevelNormal {
			c.println(c.success, "✎ "+u.Status)
		}
	case types.UpdateTypePaused, types.UpdateTypeIntervention:
		if c.level >= LogLevelNormal {
			c.println(c.question, u.Status)
		}
	case types.UpdateTypePlanning:
		if c.level >= LogLevelVerbose && u.Status != "" {
			c.println(c.muted, "  💭 "+u.Status)
		}
	case types.UpdateTypeAnalyzing, types.UpdateTypeWait, types.UpdateTypeExtract:
		if c.level >= LogLevelVerbose {
			c.println(c.muted, "  "+u.Status)
		}
	default:
		if u.IsComplete {
			return
		}
		if c.level >= LogLevelNormal {
			c.println(c.step, "  • "+u.Status)
		}
	}
}

// Summary prints the end of a run.
func (c *Console) Summary(res *agent.Result) {
	if res == nil {
		return
	}

	var b strings.Builder
	rule := strings.Repeat("=", 70)
	b.WriteString("\n")
	b.WriteString(c.header.Render(rule) + "\n")
	b.WriteString(c.header.Render("  RESEARCH SUMMARY") + "\n")
	b.WriteString(c.header.Render(rule) + "\n")

	b.WriteString("  Outcome: ")
	switch res.Outcome {
	case agent.OutcomeCompleted:
		b.WriteString(c.success.Render("✓ COMPLETED"))
	case agent.OutcomeTimedOut:
		b.WriteString(c.warning.Render("⏱ TIMED OUT"))
	case agent.OutcomeCancelled:
		b.WriteString(c.warning.Render("■ CANCELLED"))
	default:
		b.WriteString(c.failure.Render("✗ " + strings.ToUpper(string(res.Outcome))))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Goal: %s\n", res.Goal)
	fmt.Fprintf(&b, "  Duration: %s (budget %s)\n", res.Duration.Round(time.Second), res.Budget)
	fmt.Fprintf(&b, "  Iterations: %d\n", res.Iterations)
	if len(res.Products) > 0 {
		fmt.Fprintf(&b, "  Products: %d accepted\n", len(res.Products))
	}
	if res.Error != "" {
		b.WriteString(c.failure.Render("  Error: "+res.Error) + "\n")
	}
	if res.FinalResponse != "" {
		b.WriteString("\n" + c.report.Render(res.FinalResponse) + "\n")
	}
	b.WriteString(c.header.Render(rule))

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.writer, b.String())
}

// parseLogLevel converts a string log level to LogLevel type
func parseLogLevel(level string) LogLevel {
	switch level {
	case "quiet":
		return LogLevelQuiet
	case "normal":
		return LogLevelNormal
	case "verbose":
		return LogLevelVerbose
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelNormal
	}
}
