package research

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/mohammad-safakhou/deepresearch/internal/gateway"
)

// Assembler builds the final report. It tries the generator first and falls
// back to a deterministic Markdown report built from the collected findings,
// so assembly never fails.
type Assembler struct {
	generator Generator
	opts      gateway.Options
	logger    *log.Logger
}

func NewAssembler(generator Generator, opts gateway.Options, logger *log.Logger) *Assembler {
	if logger == nil {
		logger = log.New(log.Writer(), "[REPORT] ", log.LstdFlags)
	}
	return &Assembler{generator: generator, opts: opts, logger: logger}
}

// Finding categories used by the fallback report.
var (
	statisticalRe   = regexp.MustCompile(`\d+(\.\d+)?\s*(%|percent|百分比|亿|万|千|元)`)
	trendYearRe     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	trendWords      = []string{"growth", "decline", "trend", "change", "development", "future", "增长", "下降", "趋势", "变化", "发展", "未来"}
	comparisonWords = []string{"compared", "versus", "relative", "difference", "similar", "相对", "对比", "不同", "类似", "差异"}
)

// Assemble produces the report for a finished research run.
func (a *Assembler) Assemble(ctx context.Context, snap Snapshot) (string, error) {
	out, err := a.generator.Generate(ctx, reportPrompt(snap), a.opts)
	if err == nil && strings.TrimSpace(out) != "" {
		return strings.TrimSpace(out), nil
	}
	a.logger.Printf("process %s report generation failed, using fallback: %v", snap.ProcessID, err)
	return a.fallback(snap), nil
}

func reportPrompt(snap Snapshot) string {
	var steps strings.Builder
	for _, s := range snap.Steps {
		fmt.Fprintf(&steps, "- %s (%s): %s\n", s.Title, s.Category, s.Analysis)
	}

	var sources strings.Builder
	for _, site := range snap.Sites {
		fmt.Fprintf(&sources, "- %s: %s\n", site.Title, site.URL)
	}

	return fmt.Sprintf(`Write the final research report for the topic %q.

Requirements: %s

Step analyses:
%s
Findings:
%s

Sources:
%s
Structure the report as Markdown with these sections: an executive summary, background and method, a deep analysis of each core research question of at least one full paragraph, a market analysis, challenges and opportunities, recommendations, a conclusion, and an appendix listing the source URLs above. Keep every concrete figure from the findings. Do not invent data.`,
		snap.Topic, snap.Requirements, steps.String(),
		strings.Join(snap.Findings, "\n"), sources.String())
}

// fallback assembles a deterministic report: findings bucketed into
// statistical, trend, comparison, and general categories, plus the step
// analyses and sources already collected.
func (a *Assembler) fallback(snap Snapshot) string {
	var statistical, trend, comparison, general []string
	for _, f := range snap.Findings {
		switch {
		case statisticalRe.MatchString(f):
			statistical = append(statistical, f)
		case containsAny(f, trendWords) || trendYearRe.MatchString(f):
			trend = append(trend, f)
		case containsAny(f, comparisonWords):
			comparison = append(comparison, f)
		default:
			general = append(general, f)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Research Report: %s\n\n", snap.Topic)
	fmt.Fprintf(&b, "## Summary\n\nThis report presents the results of automated research on \"%s\". %d findings were collected across %d research steps.\n\n",
		snap.Topic, len(snap.Findings), len(snap.Steps))

	if snap.Requirements != "" || len(snap.Steps) > 0 {
		b.WriteString("## Scope\n\n")
		if snap.Requirements != "" {
			fmt.Fprintf(&b, "Requirements: %s\n\n", snap.Requirements)
		}
		for _, s := range snap.Steps {
			if s.Completed {
				fmt.Fprintf(&b, "- %s\n", s.Title)
			}
		}
		b.WriteString("\n")
	}

	writeSection(&b, "Statistical Findings", statistical)
	writeSection(&b, "Trends", trend)
	writeSection(&b, "Comparisons", comparison)
	writeSection(&b, "Other Findings", general)

	if len(snap.AnalysisResults) > 0 {
		b.WriteString("## Step Analyses\n\n")
		for _, entry := range snap.AnalysisResults {
			b.WriteString(entry)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("## Conclusion\n\nThe findings above were collected and categorized automatically. Figures and claims should be verified against the listed sources before being relied on.\n\n")

	if len(snap.Sites) > 0 {
		b.WriteString("## Sources\n\n")
		for _, site := range snap.Sites {
			title := site.Title
			if title == "" {
				title = site.Name
			}
			fmt.Fprintf(&b, "- [%s](%s)\n", title, site.URL)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "*Generated at %s*\n", time.Now().Format("2006-01-02 15:04:05"))
	return b.String()
}

func writeSection(b *strings.Builder, title string, findings []string) {
	if len(findings) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, f := range findings {
		fmt.Fprintf(b, "- %s\n", f)
	}
	b.WriteString("\n")
}

func containsAny(s string, words []string) bool {
	ls := strings.ToLower(s)
	for _, w := range words {
		if strings.Contains(ls, w) {
			return true
		}
	}
	return false
}
