package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/scout/pkg/config"
	"github.com/entrhq/scout/pkg/executor/headless"
	"github.com/entrhq/scout/pkg/metrics"
)

func parseBrowse(t *testing.T, configPath string, args ...string) (*browseOptions, *cobra.Command) {
	t.Helper()
	opts := &browseOptions{rootOptions: &rootOptions{configPath: configPath}}
	cmd := &cobra.Command{Use: "browse"}
	opts.addFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return opts, cmd
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "scout "+version+"\n", out.String())
}

func TestBrowseRequiresGoal(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"browse"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestBrowseFlagsOverrideConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
browser:
  headless: true
  start_url: https://config.example/
output:
  feedback: ask
`), 0600))

	opts, cmd := parseBrowse(t, path,
		"--headless=false",
		"--start-url", "https://flag.example/",
		"--feedback", "accept",
		"--verbosity", "quiet",
		"--output", "/tmp/scout-runs",
		"--copy",
		"--metrics-addr", "127.0.0.1:0",
	)

	cfg, err := opts.load(cmd)
	require.NoError(t, err)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "https://flag.example/", cfg.Browser.StartURL)
	assert.Equal(t, "accept", cfg.Output.Feedback)
	assert.Equal(t, "quiet", cfg.Output.Verbosity)
	assert.Equal(t, "/tmp/scout-runs", cfg.Output.ArtifactDir)
	assert.True(t, cfg.Output.CopyToClipboard)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:0", cfg.Metrics.Addr)
}

func TestBrowseUnsetFlagsKeepConfig(t *testing.T) {
	opts, cmd := parseBrowse(t, "")

	cfg, err := opts.load(cmd)
	require.NoError(t, err)
	def := config.Default()
	assert.Equal(t, def.Browser.Headless, cfg.Browser.Headless)
	assert.Equal(t, def.Output.ArtifactDir, cfg.Output.ArtifactDir)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestBrowseInvalidFeedback(t *testing.T) {
	opts, cmd := parseBrowse(t, "", "--feedback", "maybe")

	_, err := opts.load(cmd)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestBrowseRunConfig(t *testing.T) {
	opts, cmd := parseBrowse(t, "", "--deep", "--budget", "90s", "--no-artifacts", "--feedback", "decline")

	cfg, err := opts.load(cmd)
	require.NoError(t, err)

	rc := opts.runConfig(cfg, "a kettle")
	require.NoError(t, rc.Validate())
	assert.Equal(t, "a kettle", rc.Goal)
	assert.True(t, rc.Deep)
	assert.Equal(t, 90*time.Second, rc.Budget)
	assert.Equal(t, headless.FeedbackDecline, rc.Feedback)
	assert.False(t, rc.Artifacts.Enabled)
}

func TestMetricsServerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("scout", reg)
	collector.SessionStarted()

	srv := metricsServer(":0", reg)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scout_sessions_active 1")
}
