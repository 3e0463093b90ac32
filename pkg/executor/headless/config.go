package headless

import (
	"fmt"
	"time"

	"github.com/entrhq/scout/pkg/agent"
	"github.com/entrhq/scout/pkg/config"
)

// FeedbackPolicy decides how product proposals are answered.
type FeedbackPolicy string

const (
	// FeedbackAsk waits for y or n on the input stream
	FeedbackAsk FeedbackPolicy = "ask"
	// FeedbackAccept accepts every proposal
	FeedbackAccept FeedbackPolicy = "accept"
	// FeedbackDecline declines every proposal
	FeedbackDecline FeedbackPolicy = "decline"
)

// Config represents the configuration for one headless run
type Config struct {
	// Research goal
	Goal string `yaml:"goal" json:"goal"`

	// Deep uses the runner's deep budget; Budget overrides both when set
	Deep     bool          `yaml:"deep" json:"deep"`
	Budget   time.Duration `yaml:"budget" json:"budget"`
	StartURL string        `yaml:"start_url" json:"start_url"`

	Feedback FeedbackPolicy `yaml:"feedback" json:"feedback"`

	// Verbosity controls console output: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`

	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`

	// CopyToClipboard copies the final report when the run ends
	CopyToClipboard bool `yaml:"copy_to_clipboard" json:"copy_to_clipboard"`
}

// ArtifactConfig defines artifact generation configuration
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	JSON     bool `yaml:"json" json:"json"`
	Markdown bool `yaml:"markdown" json:"markdown"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Goal == "" {
		return fmt.Errorf("research goal is required")
	}

	if c.Budget < 0 {
		return fmt.Errorf("budget cannot be negative")
	}

	if c.Feedback == "" {
		c.Feedback = FeedbackAsk
	}
	switch c.Feedback {
	case FeedbackAsk, FeedbackAccept, FeedbackDecline:
	default:
		return fmt.Errorf("invalid feedback policy: %s (must be 'ask', 'accept' or 'decline')", c.Feedback)
	}

	if c.Verbosity == "" {
		c.Verbosity = "normal"
	}
	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Verbosity] {
		return fmt.Errorf("invalid verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Verbosity)
	}

	if c.Artifacts.Enabled && c.Artifacts.OutputDir == "" {
		return fmt.Errorf("artifact output directory is required when artifacts are enabled")
	}

	return nil
}

// DefaultConfig returns a default configuration suitable for most use cases
func DefaultConfig() *Config {
	return &Config{
		Feedback:  FeedbackAsk,
		Verbosity: "normal",
		Artifacts: ArtifactConfig{
			Enabled:   true,
			OutputDir: ".scout/runs",
			JSON:      true,
			Markdown:  true,
		},
	}
}

// FromAppConfig builds a run configuration from the application config.
// The goal and per-run flags are filled in by the caller.
func FromAppConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.Feedback = FeedbackPolicy(cfg.Output.Feedback)
	c.Verbosity = cfg.Output.Verbosity
	c.StartURL = cfg.Browser.StartURL
	c.CopyToClipboard = cfg.Output.CopyToClipboard
	c.Artifacts = ArtifactConfig{
		Enabled:   cfg.Output.ArtifactDir != "" && (cfg.Output.JSON || cfg.Output.Markdown),
		OutputDir: cfg.Output.ArtifactDir,
		JSON:      cfg.Output.JSON,
		Markdown:  cfg.Output.Markdown,
	}
	return c
}

// TimingFrom maps the session configuration onto the agent's timings.
func TimingFrom(s config.SessionConfig) agent.Timing {
	t := agent.DefaultTiming()
	t.Navigate = s.Pacing.Navigate
	t.Click = s.Pacing.Click
	t.Type = s.Pacing.Type
	t.Scroll = s.Pacing.Scroll
	t.Finding = s.Pacing.Finding
	if s.Pacing.DefaultWait > 0 {
		t.DefaultWait = s.Pacing.DefaultWait
	}
	if s.FeedbackTimeout > 0 {
		t.Feedback = s.FeedbackTimeout
	}
	if s.VisionTimeout > 0 {
		t.Vision = s.VisionTimeout
	}
	if s.SummaryTimeout > 0 {
		t.Summary = s.SummaryTimeout
	}
	return t
}
