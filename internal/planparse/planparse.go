// Package planparse turns free-text research plans into ordered, typed
// steps. Plans come from a generative model whose output format is not
// guaranteed, so parsing is best-effort: three strategies are tried in
// priority order and an empty or unparseable plan falls back to a fixed
// default.
package planparse

import (
	"regexp"
	"strconv"
	"strings"
)

// Category classifies what a step contributes to the research.
type Category string

const (
	CategoryCoreQuestion Category = "core_question"
	CategoryKnowledge    Category = "knowledge"
	CategoryAnalysis     Category = "analysis"
)

// Strategy records which parsing strategy produced the steps.
type Strategy string

const (
	StrategyHeaders    Strategy = "headers"
	StrategyNumbered   Strategy = "numbered"
	StrategyParagraphs Strategy = "paragraphs"
	StrategyDefault    Strategy = "default"
)

// Step is one unit of a parsed research plan.
type Step struct {
	Title       string
	Description string
	Category    Category
}

// Options tune parsing behaviour.
type Options struct {
	// PrioritizeQuestions reorders the result as knowledge steps, then core
	// questions, then analysis steps.
	PrioritizeQuestions bool
}

const (
	maxTitleRunes       = 50
	maxDescriptionRunes = 500
	maxParagraphSteps   = 6
)

// Keyword vocabularies are heuristic policy, kept as vars so they can be
// adjusted without touching the parsing logic.
var (
	genericHeadingPrefixes = []string{"overview", "introduction", "about", "概述", "简介", "介绍", "关于"}
	questionWords          = []string{"question", "inquiry", "问题", "探究"}
	knowledgeWords         = []string{"objective", "methodology", "method", "background", "scope", "研究目标", "研究方法", "研究背景", "研究范围"}
)

// Parse extracts ordered steps from a plan. It never returns an empty
// result: when every strategy fails the fixed default plan is returned with
// StrategyDefault.
func Parse(plan string, opts Options) ([]Step, Strategy) {
	if strings.TrimSpace(plan) == "" {
		return defaultSteps(), StrategyDefault
	}

	steps := parseByHeaders(plan)
	strategy := StrategyHeaders
	if len(steps) == 0 {
		steps = parseByNumbered(plan)
		strategy = StrategyNumbered
	}
	if len(steps) == 0 {
		steps = parseByParagraphs(plan)
		strategy = StrategyParagraphs
	}
	if len(steps) == 0 {
		return defaultSteps(), StrategyDefault
	}

	for i := range steps {
		steps[i].Category = Classify(steps[i].Title)
		steps[i].Title = truncateTitle(steps[i].Title)
		steps[i].Description = truncateDescription(strings.TrimSpace(steps[i].Description))
	}

	if opts.PrioritizeQuestions {
		steps = reorder(steps)
	}
	return steps, strategy
}

// defaultSteps is the fixed plan used when parsing yields nothing.
func defaultSteps() []Step {
	return []Step{
		{Title: "Market overview", Description: "Analyze market size and growth trends", Category: CategoryAnalysis},
		{Title: "Competitive analysis", Description: "Assess the main competitors and the competitive landscape", Category: CategoryAnalysis},
		{Title: "Key drivers", Description: "Evaluate the main drivers behind market growth", Category: CategoryAnalysis},
		{Title: "Trend outlook", Description: "Analyze future development trends and opportunities", Category: CategoryAnalysis},
	}
}

var headerRe = regexp.MustCompile(`^(#+)\s+(.+)$`)

// parseByHeaders starts a new step at each heading. The step heading level
// is pinned to the level of the first accepted heading so that deeper
// headings fold into the current step's description. A first-level heading
// with a long title, or a heading opening with generic framing words, is
// treated as a sub-heading regardless of level.
func parseByHeaders(plan string) []Step {
	var steps []Step
	var cur *Step
	stepLevel := 0

	flush := func() {
		if cur != nil && cur.Title != "" && strings.TrimSpace(cur.Description) != "" {
			steps = append(steps, *cur)
		}
		cur = nil
	}

	for _, raw := range strings.Split(plan, "\n") {
		line := strings.TrimSpace(raw)

		if m := headerRe.FindStringSubmatch(line); m != nil {
			level := len(m[1])
			title := strings.TrimSpace(m[2])
			sub := (level == 1 && len([]rune(title)) > 30) || hasGenericPrefix(title)
			if !sub && (stepLevel == 0 || level <= stepLevel) {
				flush()
				cur = &Step{Title: title}
				stepLevel = level
			} else if cur != nil {
				cur.Description += line + "\n"
			}
			continue
		}

		if cur != nil && line != "" {
			cur.Description += line + "\n"
		}
	}
	flush()
	return steps
}

func hasGenericPrefix(title string) bool {
	lt := strings.ToLower(title)
	for _, p := range genericHeadingPrefixes {
		if strings.HasPrefix(lt, p) {
			return true
		}
	}
	return false
}

var numberedRe = regexp.MustCompile(`^(\d+)[.)]\s+(.+)$`)

// parseByNumbered starts a step at each "<n>. title" or "<n>) title" line.
// The description accumulates the following non-empty lines up to the next
// marker or blank line.
func parseByNumbered(plan string) []Step {
	var steps []Step
	lines := strings.Split(plan, "\n")

	for i := 0; i < len(lines); i++ {
		m := numberedRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		number, _ := strconv.Atoi(m[1])
		if number != 1 && len(steps) == 0 {
			continue
		}
		title := strings.TrimSpace(m[2])

		var description strings.Builder
		j := i + 1
		for j < len(lines) {
			next := strings.TrimSpace(lines[j])
			if next == "" || numberedRe.MatchString(next) {
				break
			}
			description.WriteString(next)
			description.WriteString("\n")
			j++
		}
		steps = append(steps, Step{Title: title, Description: description.String()})
		i = j - 1
	}
	return steps
}

var (
	blankLineRe = regexp.MustCompile(`\n\s*\n`)
	subMarkerRe = regexp.MustCompile(`\n\s*[-*]\s+|\n\s*\d+\.\s+`)
	wordTokenRe = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

// parseByParagraphs splits on blank lines, discarding single short lines
// that are likely heading fragments. If exactly one paragraph remains it is
// re-split on bullet or numbered sub-markers. Output is capped at six steps.
func parseByParagraphs(plan string) []Step {
	var paragraphs []string
	for _, p := range blankLineRe.Split(plan, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "\n") && len([]rune(p)) < 40 {
			continue
		}
		paragraphs = append(paragraphs, p)
	}

	if len(paragraphs) == 1 {
		parts := subMarkerRe.Split(paragraphs[0], -1)
		if len(parts) > 1 {
			paragraphs = paragraphs[:0]
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					paragraphs = append(paragraphs, p)
				}
			}
		}
	}

	if len(paragraphs) > maxParagraphSteps {
		paragraphs = paragraphs[:maxParagraphSteps]
	}

	var steps []Step
	for i, p := range paragraphs {
		lines := strings.SplitN(p, "\n", 2)
		first := strings.TrimSpace(lines[0])
		if len([]rune(first)) < 100 {
			description := ""
			if len(lines) > 1 {
				description = strings.TrimSpace(lines[1])
			}
			steps = append(steps, Step{Title: first, Description: description})
			continue
		}
		steps = append(steps, Step{Title: synthesizeTitle(p, i+1), Description: p})
	}
	return steps
}

// synthesizeTitle builds a short title from the paragraph's leading word
// tokens when its first line is too long to use directly.
func synthesizeTitle(paragraph string, n int) string {
	runes := []rune(paragraph)
	if len(runes) > 200 {
		runes = runes[:200]
	}
	words := wordTokenRe.FindAllString(string(runes), -1)
	title := "Research step " + strconv.Itoa(n) + ": "
	if len(words) > 5 {
		return title + strings.Join(words[:5], " ") + "..."
	}
	return title + strings.Join(words, " ")
}

// Classify decides a step's category from its title. The question check runs
// before the knowledge check; a title matching both counts as a core
// question.
func Classify(title string) Category {
	lt := strings.ToLower(title)

	if (strings.Contains(lt, "core") || strings.Contains(lt, "key")) && strings.Contains(lt, "question") {
		return CategoryCoreQuestion
	}
	if strings.Contains(lt, "research question") {
		return CategoryCoreQuestion
	}
	if strings.Contains(title, "核心") && strings.Contains(title, "问题") {
		return CategoryCoreQuestion
	}
	if strings.Contains(title, "研究问题") || strings.Contains(title, "关键问题") {
		return CategoryCoreQuestion
	}
	for _, q := range questionWords {
		if strings.Contains(lt, q) {
			return CategoryCoreQuestion
		}
	}

	for _, k := range knowledgeWords {
		if strings.Contains(lt, k) {
			return CategoryKnowledge
		}
	}
	return CategoryAnalysis
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleRunes {
		return title
	}
	return string(runes[:47]) + "..."
}

// truncateDescription keeps a head+tail excerpt to bound downstream prompt
// size.
func truncateDescription(description string) string {
	runes := []rune(description)
	if len(runes) <= maxDescriptionRunes {
		return description
	}
	return string(runes[:150]) + "..." + string(runes[len(runes)-150:])
}

// reorder front-loads execution: knowledge steps, then core questions, then
// analysis steps, each group keeping its original order.
func reorder(steps []Step) []Step {
	out := make([]Step, 0, len(steps))
	for _, c := range []Category{CategoryKnowledge, CategoryCoreQuestion, CategoryAnalysis} {
		for _, s := range steps {
			if s.Category == c {
				out = append(out, s)
			}
		}
	}
	return out
}
