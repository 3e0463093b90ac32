package headless

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/scout/pkg/agent"
)

// ArtifactWriter handles writing run artifacts
type ArtifactWriter struct {
	outputDir string
	config    ArtifactConfig
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string, config ArtifactConfig) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
		config:    config,
	}
}

// Dir is where the artifacts are written.
func (w *ArtifactWriter) Dir() string {
	return w.outputDir
}

// WriteAll writes all configured artifact formats. comparison may be empty.
func (w *ArtifactWriter) WriteAll(res *agent.Result, comparison string) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if w.config.JSON {
		if err := w.WriteSummaryJSON(res); err != nil {
			return fmt.Errorf("failed to write summary JSON: %w", err)
		}
	}

	if w.config.Markdown {
		if err := w.WriteReportMarkdown(res); err != nil {
			return fmt.Errorf("failed to write report markdown: %w", err)
		}
		if comparison != "" {
			if err := w.writeFile("comparison.md", []byte(comparison+"\n")); err != nil {
				return fmt.Errorf("failed to write comparison markdown: %w", err)
			}
		}
	}

	return nil
}

// WriteSummaryJSON writes the full Session result as JSON
func (w *ArtifactWriter) WriteSummaryJSON(res *agent.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return w.writeFile("summary.json", data)
}

// WriteReportMarkdown writes a human-readable report
func (w *ArtifactWriter) WriteReportMarkdown(res *agent.Result) error {
	return w.writeFile("report.md", []byte(Report(res)))
}

func (w *ArtifactWriter) writeFile(name string, data []byte) error {
	return os.WriteFile(filepath.Join(w.outputDir, name), data, 0600)
}

// Report renders a Session result as markdown.
func Report(res *agent.Result) string {
	var md strings.Builder

	md.WriteString("# Scout Research Report\n\n")
	md.WriteString(fmt.Sprintf("**Goal:** %s\n\n", res.Goal))
	md.WriteString(fmt.Sprintf("**Outcome:** %s\n\n", res.Outcome))
	md.WriteString(fmt.Sprintf("**Duration:** %s of %s\n\n", res.Duration.Round(time.Second), res.Budget))
	if res.URL != "" {
		md.WriteString(fmt.Sprintf("**Last page:** %s\n\n", res.URL))
	}

	md.WriteString("## Result\n\n")
	if res.Error != "" {
		md.WriteString(fmt.Sprintf("❌ **Error:** %s\n\n", res.Error))
	}
	md.WriteString(res.FinalResponse)
	md.WriteString("\n\n")

	if len(res.Findings) > 0 {
		md.WriteString("## Findings\n\n")
		for _, f := range res.Findings {
			md.WriteString(fmt.Sprintf("- %s\n", f))
		}
		md.WriteString("\n")
	}

	if len(res.Products) > 0 {
		md.WriteString("## Products\n\n")
		for _, p := range res.Products {
			price := p.Price
			if price == "" {
				price = "price unknown"
			}
			md.WriteString(fmt.Sprintf("- **%s** (%s)", p.Title, price))
			if p.SourceURL != "" {
				md.WriteString(fmt.Sprintf(" [source](%s)", p.SourceURL))
			}
			md.WriteString("\n")
			if p.Description != "" {
				md.WriteString(fmt.Sprintf("  %s\n", p.Description))
			}
		}
		md.WriteString("\n")
	}

	md.WriteString(fmt.Sprintf("_%d iterations, %d ledger entries, session %s_\n", res.Iterations, len(res.History), res.SessionID))
	return md.String()
}
