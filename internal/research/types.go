// Package research implements the research process lifecycle: plan
// generation, user confirmation, step execution against web sources, and
// report assembly. Processes live in memory and are owned by a Registry.
package research

import (
	"strings"
	"sync"
	"time"

	"github.com/mohammad-safakhou/deepresearch/internal/planparse"
)

// Status is the lifecycle state of a research process.
type Status string

const (
	StatusPlanning            Status = "planning"
	StatusWaitingConfirmation Status = "waiting_confirmation"
	StatusConfirmed           Status = "confirmed"
	StatusResearching         Status = "researching"
	StatusReporting           Status = "reporting"
	StatusCompleted           Status = "completed"
	StatusError               Status = "error"
	StatusCancelled           Status = "cancelled"
)

// terminal statuses are eligible for janitor eviction.
func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

// Progress milestones for the lifecycle. Step execution interpolates
// between progressResearching and progressReporting.
const (
	progressPlanned     = 20
	progressResearching = 30
	progressReporting   = 90
	progressDone        = 100
)

const (
	snapshotFindingsCap = 15
	snapshotQueriesCap  = 5
)

// Site is a discovered source attached to a process or step.
type Site struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
	Icon    string `json:"icon,omitempty"`
}

// QueryResult records the outcome of one search query within a step.
type QueryResult struct {
	Query       string   `json:"query"`
	ResultCount int      `json:"result_count"`
	Findings    []string `json:"findings,omitempty"`
	Summary     string   `json:"summary,omitempty"`
}

// Step is one executed unit of the research plan.
type Step struct {
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Category      planparse.Category `json:"category"`
	StepNumber    int                `json:"step_number"`
	Completed     bool               `json:"completed"`
	SearchQueries []string           `json:"search_queries,omitempty"`
	Sites         []Site             `json:"search_results,omitempty"`
	QueryResults  []QueryResult      `json:"query_results,omitempty"`
	Findings      []string           `json:"findings,omitempty"`
	Analysis      string             `json:"analysis,omitempty"`
}

// Snapshot is a point-in-time, caller-owned copy of a process. Registry
// readers only ever see snapshots.
type Snapshot struct {
	ProcessID        string   `json:"process_id"`
	Topic            string   `json:"topic"`
	Requirements     string   `json:"requirements"`
	Status           Status   `json:"status"`
	Progress         int      `json:"progress"`
	Plan             string   `json:"plan,omitempty"`
	PlanStrategy     string   `json:"plan_strategy,omitempty"`
	CurrentStep      string   `json:"current_step,omitempty"`
	CurrentStepIndex int      `json:"current_step_index"`
	Steps            []Step   `json:"research_steps,omitempty"`
	Sites            []Site   `json:"research_sites,omitempty"`
	Findings         []string `json:"research_findings,omitempty"`
	AnalysisResults  []string `json:"analysis_results,omitempty"`
	SearchQueries    []string `json:"search_queries,omitempty"`
	Report           string   `json:"report,omitempty"`
	Error            string   `json:"error,omitempty"`
	ElapsedTime      float64  `json:"elapsed_time"`
}

// Process is the mutable state of one research run. All fields are guarded
// by mu; background tasks mutate through the setter methods and API readers
// go through Snapshot.
type Process struct {
	mu sync.RWMutex

	id           string
	topic        string
	requirements string

	status   Status
	progress int

	plan         string
	planStrategy planparse.Strategy

	currentStep      string
	currentStepIndex int

	steps           []Step
	sites           []Site
	findings        []string
	analysisResults []string
	searchQueries   []string

	report string
	errMsg string

	createdAt time.Time
	updatedAt time.Time
}

func newProcess(id, topic, requirements string) *Process {
	now := time.Now()
	return &Process{
		id:           id,
		topic:        topic,
		requirements: requirements,
		status:       StatusPlanning,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (p *Process) ID() string {
	return p.id
}

func (p *Process) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *Process) lastUpdated() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updatedAt
}

func (p *Process) setStatus(s Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = s
	p.updatedAt = time.Now()
}

// setProgress never moves progress backwards.
func (p *Process) setProgress(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n > p.progress {
		p.progress = n
		p.updatedAt = time.Now()
	}
}

// publishPlan records the plan and moves the process to waiting_confirmation
// in one step. A process that is no longer planning, e.g. cancelled while the
// plan was being generated, is left untouched.
func (p *Process) publishPlan(plan string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StatusPlanning {
		return false
	}
	p.plan = plan
	p.status = StatusWaitingConfirmation
	p.updatedAt = time.Now()
	return true
}

func (p *Process) planText() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.plan
}

func (p *Process) setStrategy(strategy planparse.Strategy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.planStrategy = strategy
	p.updatedAt = time.Now()
}

func (p *Process) setSteps(steps []Step) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = steps
	p.updatedAt = time.Now()
}

func (p *Process) setCurrentStep(index int, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentStepIndex = index
	p.currentStep = title
	p.updatedAt = time.Now()
}

// updateStep replaces the stored copy of one step.
func (p *Process) updateStep(index int, step Step) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index >= 0 && index < len(p.steps) {
		p.steps[index] = step
		p.updatedAt = time.Now()
	}
}

// appendFinding adds a finding unless an identical one is already recorded.
// It reports whether the finding was added.
func (p *Process) appendFinding(finding string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, f := range p.findings {
		if f == finding {
			return false
		}
	}
	p.findings = append(p.findings, finding)
	p.updatedAt = time.Now()
	return true
}

// appendSites adds sites not yet present, keyed by URL.
func (p *Process) appendSites(sites []Site) {
	p.mu.Lock()
	defer p.mu.Unlock()
	known := make(map[string]struct{}, len(p.sites))
	for _, s := range p.sites {
		known[s.URL] = struct{}{}
	}
	for _, s := range sites {
		if _, dup := known[s.URL]; dup {
			continue
		}
		known[s.URL] = struct{}{}
		p.sites = append(p.sites, s)
	}
	p.updatedAt = time.Now()
}

// appendQueries records executed queries, deduplicated case-insensitively.
func (p *Process) appendQueries(queries []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	known := make(map[string]struct{}, len(p.searchQueries))
	for _, q := range p.searchQueries {
		known[strings.ToLower(q)] = struct{}{}
	}
	for _, q := range queries {
		key := strings.ToLower(q)
		if _, dup := known[key]; dup {
			continue
		}
		known[key] = struct{}{}
		p.searchQueries = append(p.searchQueries, q)
	}
	p.updatedAt = time.Now()
}

func (p *Process) appendAnalysis(entry string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.analysisResults = append(p.analysisResults, entry)
	p.updatedAt = time.Now()
}

func (p *Process) setReport(report string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report = report
	p.updatedAt = time.Now()
}

// fail moves the process to the error status, keeping progress where it
// stopped. A cancelled process stays cancelled.
func (p *Process) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == StatusCancelled {
		return
	}
	p.status = StatusError
	p.errMsg = err.Error()
	p.updatedAt = time.Now()
}

// Snapshot deep-copies the process state. Findings and queries are capped
// to keep poll responses bounded.
func (p *Process) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := Snapshot{
		ProcessID:        p.id,
		Topic:            p.topic,
		Requirements:     p.requirements,
		Status:           p.status,
		Progress:         p.progress,
		Plan:             p.plan,
		PlanStrategy:     string(p.planStrategy),
		CurrentStep:      p.currentStep,
		CurrentStepIndex: p.currentStepIndex,
		Report:           p.report,
		Error:            p.errMsg,
		ElapsedTime:      time.Since(p.createdAt).Seconds(),
	}

	snap.Steps = make([]Step, len(p.steps))
	for i, s := range p.steps {
		snap.Steps[i] = copyStep(s)
	}
	snap.Sites = append([]Site(nil), p.sites...)
	snap.AnalysisResults = append([]string(nil), p.analysisResults...)

	findings := p.findings
	if len(findings) > snapshotFindingsCap {
		findings = findings[:snapshotFindingsCap]
	}
	snap.Findings = append([]string(nil), findings...)

	queries := p.searchQueries
	if len(queries) > snapshotQueriesCap {
		queries = queries[:snapshotQueriesCap]
	}
	snap.SearchQueries = append([]string(nil), queries...)

	return snap
}

func copyStep(s Step) Step {
	out := s
	out.SearchQueries = append([]string(nil), s.SearchQueries...)
	out.Sites = append([]Site(nil), s.Sites...)
	out.Findings = append([]string(nil), s.Findings...)
	out.QueryResults = make([]QueryResult, len(s.QueryResults))
	for i, qr := range s.QueryResults {
		qr.Findings = append([]string(nil), qr.Findings...)
		out.QueryResults[i] = qr
	}
	return out
}
