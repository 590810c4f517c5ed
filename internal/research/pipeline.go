package research

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/deepresearch/config"
	"github.com/mohammad-safakhou/deepresearch/internal/extract"
	"github.com/mohammad-safakhou/deepresearch/internal/gateway"
	"github.com/mohammad-safakhou/deepresearch/internal/planparse"
	"github.com/mohammad-safakhou/deepresearch/internal/telemetry"
	"github.com/mohammad-safakhou/deepresearch/tools/web_fetch"
	"github.com/mohammad-safakhou/deepresearch/tools/web_search"
	"github.com/mohammad-safakhou/deepresearch/utils"
)

// Generator is the text-generation capability the pipeline depends on.
// *gateway.Gateway satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts gateway.Options) (string, error)
}

// Pipeline runs the background tasks of a research process: plan
// generation after creation and step execution after confirmation.
type Pipeline struct {
	generator Generator
	searcher  web_search.WebSearcher
	fetcher   web_fetch.WebFetcher
	assembler *Assembler

	logger  *log.Logger
	metrics *telemetry.Metrics

	llmOpts        gateway.Options
	maxResults     int
	maxQueries     int
	fetchesPerQ    int
	prioritizeQues bool
}

// NewPipeline wires the pipeline from the service configuration.
func NewPipeline(generator Generator, searcher web_search.WebSearcher, fetcher web_fetch.WebFetcher, cfg *config.Config, logger *log.Logger, metrics *telemetry.Metrics) *Pipeline {
	if logger == nil {
		logger = log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags)
	}
	return &Pipeline{
		generator: generator,
		searcher:  searcher,
		fetcher:   fetcher,
		assembler: NewAssembler(generator, gateway.Options{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		}, logger),
		logger:  logger,
		metrics: metrics,
		llmOpts: gateway.Options{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		},
		maxResults:     cfg.Search.MaxResults,
		maxQueries:     cfg.Research.MaxQueriesPerStep,
		fetchesPerQ:    cfg.Research.FetchesPerQuery,
		prioritizeQues: cfg.Research.PrioritizeQuestions,
	}
}

// Plan generates the research plan and parks the process waiting for user
// confirmation.
func (pl *Pipeline) Plan(ctx context.Context, proc *Process) {
	proc.setCurrentStep(0, "Generating research plan")

	plan, err := pl.generator.Generate(ctx, planPrompt(proc.topic, proc.requirements), pl.llmOpts)
	if err != nil {
		pl.logger.Printf("process %s plan generation failed: %v", proc.id, err)
		proc.fail(fmt.Errorf("plan generation: %w", err))
		if proc.Status() == StatusError {
			pl.metrics.CountProcess(string(StatusError))
		}
		return
	}

	if !proc.publishPlan(plan) {
		return
	}
	proc.setProgress(progressPlanned)
	proc.setCurrentStep(0, "Waiting for plan confirmation")
	pl.logger.Printf("process %s plan ready, awaiting confirmation", proc.id)
}

// Execute runs every plan step and assembles the final report. It expects
// the process to have been confirmed; a process cancelled in the meantime
// is left alone.
func (pl *Pipeline) Execute(ctx context.Context, proc *Process) {
	if !proc.transition([]Status{StatusConfirmed, StatusWaitingConfirmation}, StatusResearching) {
		pl.logger.Printf("process %s not runnable (status %s), skipping execution", proc.id, proc.Status())
		return
	}

	parsed, strategy := planparse.Parse(proc.planText(), planparse.Options{
		PrioritizeQuestions: pl.prioritizeQues,
	})
	proc.setStrategy(strategy)

	steps := make([]Step, len(parsed))
	for i, s := range parsed {
		steps[i] = Step{
			Title:       s.Title,
			Description: s.Description,
			Category:    s.Category,
			StepNumber:  i + 1,
		}
	}
	proc.setSteps(steps)
	proc.setProgress(progressResearching)
	pl.logger.Printf("process %s researching %d steps (plan strategy %s)", proc.id, len(steps), strategy)

	for i := range steps {
		if proc.Status() == StatusCancelled {
			pl.logger.Printf("process %s cancelled before step %d", proc.id, i+1)
			return
		}
		step := steps[i]
		proc.setCurrentStep(i, "Researching: "+step.Title)

		pl.runStep(ctx, proc, i, &step)
		if proc.Status() == StatusCancelled {
			pl.logger.Printf("process %s cancelled during step %d", proc.id, i+1)
			return
		}

		step.Completed = true
		proc.appendAnalysis("**" + step.Title + "**\n" + step.Analysis)
		proc.updateStep(i, step)
		proc.setProgress(progressResearching + (i+1)*(progressReporting-progressResearching)/len(steps))
	}

	if !proc.transition([]Status{StatusResearching}, StatusReporting) {
		return
	}
	proc.setProgress(progressReporting)
	proc.setCurrentStep(len(steps), "Generating final report")

	report, err := pl.assembler.Assemble(ctx, proc.Snapshot())
	if err != nil {
		pl.logger.Printf("process %s report generation failed: %v", proc.id, err)
		proc.fail(fmt.Errorf("report generation: %w", err))
		pl.metrics.CountProcess(string(StatusError))
		return
	}
	proc.setReport(report)

	if !proc.transition([]Status{StatusReporting}, StatusCompleted) {
		return
	}
	proc.setProgress(progressDone)
	proc.setCurrentStep(len(steps), "Completed")
	pl.metrics.CountProcess(string(StatusCompleted))
	pl.logger.Printf("process %s completed", proc.id)
}

// runStep executes the searches, fetches, and analysis of a single step,
// mutating step in place and publishing intermediate state for pollers.
func (pl *Pipeline) runStep(ctx context.Context, proc *Process, index int, step *Step) {
	queries := pl.stepQueries(ctx, proc.topic, *step)
	step.SearchQueries = queries
	proc.appendQueries(queries)
	proc.updateStep(index, *step)

	for _, query := range queries {
		if proc.Status() == StatusCancelled {
			return
		}

		results, err := pl.searcher.Discover(ctx, query, pl.maxResults)
		if err != nil {
			pl.logger.Printf("process %s search %q failed: %v", proc.id, query, err)
			pl.metrics.CountSearch("error")
			results = nil
		} else {
			pl.metrics.CountSearch("ok")
		}

		sites := make([]Site, 0, len(results))
		for _, r := range results {
			sites = append(sites, Site{
				Name:    r.Source,
				URL:     r.URL,
				Title:   r.Title,
				Snippet: r.Snippet,
				Icon:    r.SourceIcon,
			})
		}
		step.Sites = mergeSites(step.Sites, sites)
		proc.appendSites(sites)

		qr := QueryResult{Query: query, ResultCount: len(results)}

		fetches := pl.fetchesPerQ
		if fetches > len(results) {
			fetches = len(results)
		}
		for _, r := range results[:fetches] {
			page, err := pl.fetcher.Exec(ctx, r.URL)
			if err != nil || page.Status >= 400 {
				pl.metrics.CountFetch("error")
				continue
			}
			pl.metrics.CountFetch("ok")

			excerpt := extract.Relevant(page.Text, query)
			if excerpt == "" {
				continue
			}
			source := r.Title
			if source == "" {
				source = r.Source
			}
			finding := fmt.Sprintf("according to %s(%s), %s", source, utils.Domain(r.URL), excerpt)
			if proc.appendFinding(finding) {
				step.Findings = append(step.Findings, finding)
				qr.Findings = append(qr.Findings, finding)
			}
		}

		qr.Summary = pl.querySummary(ctx, query, qr.Findings)
		step.QueryResults = append(step.QueryResults, qr)
		proc.updateStep(index, *step)
	}

	step.Analysis = pl.stepAnalysis(ctx, proc.topic, *step)
}

// stepQueries asks the generator for search queries and tops the list up
// with deterministic fallbacks until the per-step budget is filled, so a
// thin or failed generation never starves a step. Every query is anchored
// to the topic and the list is deduplicated case-insensitively.
func (pl *Pipeline) stepQueries(ctx context.Context, topic string, step Step) []string {
	var raw []string
	out, err := pl.generator.Generate(ctx, queryPrompt(topic, step), pl.llmOpts)
	if err != nil {
		pl.logger.Printf("query generation for step %q failed: %v", step.Title, err)
	} else {
		raw = parseQueryLines(out)
	}
	raw = append(raw,
		topic+" "+step.Title,
		topic+" latest data analysis",
		fmt.Sprintf("%s report %d", topic, time.Now().Year()),
	)

	lowTopic := strings.ToLower(topic)
	seen := make(map[string]struct{}, len(raw))
	var queries []string
	for _, q := range raw {
		if !strings.Contains(strings.ToLower(q), lowTopic) {
			q = topic + " " + q
		}
		key := strings.ToLower(q)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		queries = append(queries, q)
		if len(queries) >= pl.maxQueries {
			break
		}
	}
	return queries
}

// parseQueryLines extracts one query per line, stripping list markers and
// surrounding quotes.
func parseQueryLines(out string) []string {
	var queries []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•0123456789.) ")
		line = strings.Trim(line, `"'`)
		line = strings.TrimSpace(line)
		if line != "" {
			queries = append(queries, line)
		}
	}
	return queries
}

// querySummary condenses the findings of one query. When generation fails
// a plain concatenation of the leading findings stands in.
func (pl *Pipeline) querySummary(ctx context.Context, query string, findings []string) string {
	if len(findings) == 0 {
		return ""
	}
	out, err := pl.generator.Generate(ctx, summaryPrompt(query, findings), pl.llmOpts)
	if err == nil && strings.TrimSpace(out) != "" {
		return strings.TrimSpace(out)
	}
	summary := findings[0]
	if len(findings) > 1 {
		summary += " In addition, " + findings[1]
	}
	return summary
}

// stepAnalysis produces the per-step analysis, with a deterministic
// fallback when generation fails. A step without findings gets a fixed
// analysis without a generator call.
func (pl *Pipeline) stepAnalysis(ctx context.Context, topic string, step Step) string {
	if len(step.Findings) == 0 {
		return "Insufficient data was collected for this step to draw firm conclusions."
	}

	out, err := pl.generator.Generate(ctx, analysisPrompt(topic, step), pl.llmOpts)
	if err == nil && strings.TrimSpace(out) != "" {
		return strings.TrimSpace(out)
	}
	pl.logger.Printf("analysis generation for step %q failed: %v", step.Title, err)

	n := len(step.Findings)
	if n > 3 {
		n = 3
	}
	return fmt.Sprintf("Based on %d collected findings: %s", len(step.Findings), strings.Join(step.Findings[:n], " "))
}

func mergeSites(existing, incoming []Site) []Site {
	known := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		known[s.URL] = struct{}{}
	}
	for _, s := range incoming {
		if _, dup := known[s.URL]; dup {
			continue
		}
		known[s.URL] = struct{}{}
		existing = append(existing, s)
	}
	return existing
}

func planPrompt(topic, requirements string) string {
	return fmt.Sprintf(`You are a research planner. Create a structured research plan for the topic below.

Topic: %s
Requirements: %s

Write the plan as Markdown headings, one heading per research step, each followed by one or two sentences describing what the step investigates. Include a core research question step, any background or methodology steps that are needed, and analysis steps. Keep it between three and six steps.`, topic, requirements)
}

func queryPrompt(topic string, step Step) string {
	return fmt.Sprintf(`Generate web search queries for one step of a research project.

Topic: %s
Step: %s
Step description: %s

Return up to three concise search queries, one per line, with no numbering and no commentary. Each query should mention the topic.`, topic, step.Title, step.Description)
}

func summaryPrompt(query string, findings []string) string {
	return fmt.Sprintf(`Summarize the findings below, collected for the search query %q, in at most two sentences. Keep concrete numbers.

Findings:
%s`, query, strings.Join(findings, "\n"))
}

func analysisPrompt(topic string, step Step) string {
	return fmt.Sprintf(`You are a research analyst working on the topic %q.

Research step: %s
Step description: %s

Findings:
%s

Write a focused analysis of this step in one or two paragraphs. Ground every claim in the findings and keep concrete figures. If the findings are thin, say so plainly.`, topic, step.Title, step.Description, strings.Join(step.Findings, "\n"))
}
