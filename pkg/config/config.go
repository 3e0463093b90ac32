// Package config loads scout's YAML configuration.
//
// Precedence for LLM settings is CLI flags > environment variables > config
// file > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full application configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm" json:"llm"`
	Vision  VisionConfig  `yaml:"vision" json:"vision"`
	Browser BrowserConfig `yaml:"browser" json:"browser"`
	Session SessionConfig `yaml:"session" json:"session"`
	Output  OutputConfig  `yaml:"output" json:"output"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// LLMConfig configures the planner model and its transport policy.
type LLMConfig struct {
	Model             string        `yaml:"model" json:"model"`
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	APIKey            string        `yaml:"api_key" json:"-"`
	CallTimeout       time.Duration `yaml:"call_timeout" json:"call_timeout"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"` // 0 disables limiting
	HistoryTokens     int           `yaml:"history_tokens" json:"history_tokens"`           // budget for the history transcript
	PageExcerptChars  int           `yaml:"page_excerpt_chars" json:"page_excerpt_chars"`
}

// VisionProvider selects the backend for screenshot analysis.
type VisionProvider string

const (
	// VisionOpenAI reuses the planner's OpenAI-compatible endpoint
	VisionOpenAI VisionProvider = "openai"
	// VisionGemini uses Google Gemini
	VisionGemini VisionProvider = "gemini"
	// VisionDisabled turns look actions into no-ops
	VisionDisabled VisionProvider = "none"
)

// VisionConfig configures screenshot analysis.
type VisionConfig struct {
	Provider VisionProvider `yaml:"provider" json:"provider"`
	Model    string         `yaml:"model" json:"model"`
	APIKey   string         `yaml:"api_key" json:"-"`
}

// BrowserConfig configures the playwright actuator.
type BrowserConfig struct {
	Headless          bool          `yaml:"headless" json:"headless"`
	ViewportWidth     int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height" json:"viewport_height"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	MaxContentLength  int           `yaml:"max_content_length" json:"max_content_length"`
	StartURL          string        `yaml:"start_url" json:"start_url"`
	AllowedURLs       []string      `yaml:"allowed_urls" json:"allowed_urls"`
	DeniedURLs        []string      `yaml:"denied_urls" json:"denied_urls"`
}

// SessionConfig holds the orchestration timings.
type SessionConfig struct {
	TimeBudget      time.Duration `yaml:"time_budget" json:"time_budget"`
	DeepTimeBudget  time.Duration `yaml:"deep_time_budget" json:"deep_time_budget"`
	FeedbackTimeout time.Duration `yaml:"feedback_timeout" json:"feedback_timeout"`
	VisionTimeout   time.Duration `yaml:"vision_timeout" json:"vision_timeout"`
	SummaryTimeout  time.Duration `yaml:"summary_timeout" json:"summary_timeout"`
	Pacing          PacingConfig  `yaml:"pacing" json:"pacing"`
}

// PacingConfig is the delay after each kind of action.
type PacingConfig struct {
	Navigate    time.Duration `yaml:"navigate" json:"navigate"`
	Click       time.Duration `yaml:"click" json:"click"`
	Type        time.Duration `yaml:"type" json:"type"`
	Scroll      time.Duration `yaml:"scroll" json:"scroll"`
	Finding     time.Duration `yaml:"finding" json:"finding"`
	DefaultWait time.Duration `yaml:"default_wait" json:"default_wait"`
}

// OutputConfig configures the headless executor's output.
type OutputConfig struct {
	// Verbosity controls console output: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`

	// Feedback is the proposal policy: ask, accept or decline
	Feedback string `yaml:"feedback" json:"feedback"`

	ArtifactDir     string `yaml:"artifact_dir" json:"artifact_dir"`
	JSON            bool   `yaml:"json" json:"json"`
	Markdown        bool   `yaml:"markdown" json:"markdown"`
	CopyToClipboard bool   `yaml:"copy_to_clipboard" json:"copy_to_clipboard"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Addr      string `yaml:"addr" json:"addr"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// Default returns a configuration suitable for most use cases
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:            "gpt-4o",
			CallTimeout:      2 * time.Minute,
			MaxRetries:       2,
			HistoryTokens:    3000,
			PageExcerptChars: 5000,
		},
		Vision: VisionConfig{
			Provider: VisionOpenAI,
		},
		Browser: BrowserConfig{
			Headless:          true,
			ViewportWidth:     1280,
			ViewportHeight:    900,
			NavigationTimeout: 30 * time.Second,
			MaxContentLength:  25000,
		},
		Session: SessionConfig{
			TimeBudget:      2 * time.Minute,
			DeepTimeBudget:  30 * time.Minute,
			FeedbackTimeout: 45 * time.Second,
			VisionTimeout:   10 * time.Second,
			SummaryTimeout:  time.Minute,
			Pacing: PacingConfig{
				Navigate:    2 * time.Second,
				Click:       2 * time.Second,
				Type:        1100 * time.Millisecond,
				Scroll:      800 * time.Millisecond,
				Finding:     500 * time.Millisecond,
				DefaultWait: time.Second,
			},
		},
		Output: OutputConfig{
			Verbosity:   "normal",
			Feedback:    "ask",
			ArtifactDir: ".scout/runs",
			JSON:        true,
			Markdown:    true,
		},
		Metrics: MetricsConfig{
			Addr:      ":9464",
			Namespace: "scout",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv fills values from the environment where the file left them empty.
// Environment variables never override explicit file values.
func (c *Config) ApplyEnv() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if m := os.Getenv("SCOUT_MODEL"); m != "" && c.LLM.Model == Default().LLM.Model {
		c.LLM.Model = m
	}
	if c.Vision.APIKey == "" && c.Vision.Provider == VisionGemini {
		c.Vision.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

// Budget returns the time budget for a normal or deep run.
func (c *Config) Budget(deep bool) time.Duration {
	if deep {
		return c.Session.DeepTimeBudget
	}
	return c.Session.TimeBudget
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.LLM.Model == "" {
		return fmt.Errorf("%w: llm.model is required", ErrInvalid)
	}
	if c.LLM.CallTimeout <= 0 {
		return fmt.Errorf("%w: llm.call_timeout must be positive", ErrInvalid)
	}
	if c.LLM.MaxRetries < 0 || c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: llm retry and rate settings cannot be negative", ErrInvalid)
	}

	switch c.Vision.Provider {
	case VisionOpenAI, VisionGemini, VisionDisabled:
	case "":
		c.Vision.Provider = VisionOpenAI
	default:
		return fmt.Errorf("%w: vision.provider must be 'openai', 'gemini' or 'none', got %q", ErrInvalid, c.Vision.Provider)
	}

	if c.Browser.MaxContentLength <= 0 {
		return fmt.Errorf("%w: browser.max_content_length must be positive", ErrInvalid)
	}

	s := c.Session
	if s.TimeBudget <= 0 || s.DeepTimeBudget <= 0 {
		return fmt.Errorf("%w: session time budgets must be positive", ErrInvalid)
	}
	if s.FeedbackTimeout <= 0 || s.VisionTimeout <= 0 {
		return fmt.Errorf("%w: session rendezvous timeouts must be positive", ErrInvalid)
	}
	p := s.Pacing
	for _, d := range []time.Duration{p.Navigate, p.Click, p.Type, p.Scroll, p.Finding, p.DefaultWait} {
		if d < 0 {
			return fmt.Errorf("%w: pacing intervals cannot be negative", ErrInvalid)
		}
	}

	if c.Output.Verbosity == "" {
		c.Output.Verbosity = "normal"
	}
	validLevels := map[string]bool{"quiet": true, "normal": true, "verbose": true, "debug": true}
	if !validLevels[c.Output.Verbosity] {
		return fmt.Errorf("%w: output.verbosity %q (must be 'quiet', 'normal', 'verbose', or 'debug')", ErrInvalid, c.Output.Verbosity)
	}

	if c.Output.Feedback == "" {
		c.Output.Feedback = "ask"
	}
	switch c.Output.Feedback {
	case "ask", "accept", "decline":
	default:
		return fmt.Errorf("%w: output.feedback %q (must be 'ask', 'accept' or 'decline')", ErrInvalid, c.Output.Feedback)
	}

	return nil
}
