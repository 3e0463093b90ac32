package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/entrhq/scout/pkg/agent"
	"github.com/entrhq/scout/pkg/agent/planner"
	"github.com/entrhq/scout/pkg/browser"
	"github.com/entrhq/scout/pkg/config"
	"github.com/entrhq/scout/pkg/executor/headless"
	"github.com/entrhq/scout/pkg/metrics"
)

const metricsShutdownTimeout = 5 * time.Second

type browseOptions struct {
	*rootOptions

	deep        bool
	budget      time.Duration
	startURL    string
	feedback    string
	verbosity   string
	output      string
	noArtifacts bool
	copy        bool
	headless    bool

	model   string
	baseURL string
	apiKey  string

	metricsAddr string
}

func newBrowseCmd(root *rootOptions) *cobra.Command {
	opts := &browseOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "browse <goal>",
		Short: "Research a goal in the browser",
		Example: `  scout browse "a stainless steel kettle under $40"
  scout browse --deep --feedback accept "noise cancelling headphones"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return runBrowse(cmd.Context(), cfg, opts, strings.Join(args, " "))
		},
	}

	opts.addFlags(cmd)
	return cmd
}

func (o *browseOptions) addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&o.deep, "deep", false, "use the deep research budget")
	f.DurationVar(&o.budget, "budget", 0, "time budget for this run (overrides the configured budgets)")
	f.StringVar(&o.startURL, "start-url", "", "page to open before planning")
	f.StringVar(&o.feedback, "feedback", "", "how proposals are answered: ask, accept or decline")
	f.StringVarP(&o.verbosity, "verbosity", "v", "", "console output: quiet, normal, verbose or debug")
	f.StringVarP(&o.output, "output", "o", "", "directory for run artifacts")
	f.BoolVar(&o.noArtifacts, "no-artifacts", false, "do not write run artifacts")
	f.BoolVar(&o.copy, "copy", false, "copy the final report to the clipboard")
	f.BoolVar(&o.headless, "headless", true, "run the browser without a window")
	f.StringVar(&o.model, "model", "", "planner model")
	f.StringVar(&o.baseURL, "base-url", "", "OpenAI-compatible API base URL")
	f.StringVar(&o.apiKey, "api-key", "", "API key (defaults to OPENAI_API_KEY)")
	f.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

// load reads the config file and applies the flags the user set.
func (o *browseOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("headless") {
		cfg.Browser.Headless = o.headless
	}
	if o.startURL != "" {
		cfg.Browser.StartURL = o.startURL
	}
	if o.feedback != "" {
		cfg.Output.Feedback = o.feedback
	}
	if o.verbosity != "" {
		cfg.Output.Verbosity = o.verbosity
	}
	if o.output != "" {
		cfg.Output.ArtifactDir = o.output
	}
	if o.noArtifacts {
		cfg.Output.ArtifactDir = ""
	}
	if o.copy {
		cfg.Output.CopyToClipboard = true
	}
	if o.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = o.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runConfig maps the application config and flags onto one headless run.
func (o *browseOptions) runConfig(cfg *config.Config, goal string) *headless.Config {
	rc := headless.FromAppConfig(cfg)
	rc.Goal = goal
	rc.Deep = o.deep
	rc.Budget = o.budget
	return rc
}

func runBrowse(ctx context.Context, cfg *config.Config, opts *browseOptions, goal string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := config.BuildProvider(cfg, config.ProviderOverrides{
		Model:   opts.model,
		BaseURL: opts.baseURL,
		APIKey:  opts.apiKey,
	})
	if err != nil {
		return err
	}
	vision, err := config.BuildVisionProvider(ctx, cfg, provider)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, reg)
	}

	guard, err := browser.NewURLGuard(cfg.Browser.AllowedURLs, cfg.Browser.DeniedURLs)
	if err != nil {
		return fmt.Errorf("invalid URL rules: %w", err)
	}

	act, err := browser.Launch(browser.LaunchOptions{
		Headless:          cfg.Browser.Headless,
		ViewportWidth:     cfg.Browser.ViewportWidth,
		ViewportHeight:    cfg.Browser.ViewportHeight,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := act.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close browser: %v\n", cerr)
		}
	}()

	page := browser.NewPage(act,
		browser.WithURLGuard(guard),
		browser.WithMaxContentLength(cfg.Browser.MaxContentLength),
	)

	plannerOpts := []planner.Option{
		planner.WithCallTimeout(cfg.LLM.CallTimeout),
		planner.WithMaxRetries(cfg.LLM.MaxRetries),
		planner.WithRateLimit(cfg.LLM.RequestsPerMinute),
		planner.WithHistoryTokens(cfg.LLM.HistoryTokens),
		planner.WithPageExcerpt(cfg.LLM.PageExcerptChars),
		planner.WithMetrics(collector),
	}
	if vision != nil {
		plannerOpts = append(plannerOpts, planner.WithVision(vision))
	}
	client := planner.New(provider, plannerOpts...)

	runner, err := agent.NewRunner(page, client,
		agent.WithBudget(cfg.Session.TimeBudget),
		agent.WithDeepBudget(cfg.Session.DeepTimeBudget),
		agent.WithTiming(headless.TimingFrom(cfg.Session)),
		agent.WithMetrics(collector),
	)
	if err != nil {
		return err
	}

	exec, err := headless.NewExecutor(runner, page, opts.runConfig(cfg, goal))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	var srv *http.Server
	if cfg.Metrics.Enabled {
		srv = metricsServer(cfg.Metrics.Addr, reg)
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		_, err := exec.Run(gctx)
		if srv != nil {
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}
		return err
	})
	return g.Wait()
}

func metricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
