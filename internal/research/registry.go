package research

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorhill/cronexpr"

	"github.com/mohammad-safakhou/deepresearch/config"
)

// DefaultRequirements is applied when a process is started without explicit
// requirements.
const DefaultRequirements = "thorough and comprehensive"

// Registry owns every in-memory research process and drives their
// background tasks through a Pipeline. A cron-scheduled janitor evicts
// finished processes once they exceed the retention TTL.
type Registry struct {
	mu        sync.RWMutex
	processes map[string]*Process

	pipeline  *Pipeline
	logger    *log.Logger
	ttl       time.Duration
	sweepExpr *cronexpr.Expression
}

// NewRegistry validates the retention settings and builds an empty registry.
func NewRegistry(pipeline *Pipeline, cfg config.ResearchConfig, logger *log.Logger) (*Registry, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags)
	}
	if cfg.ProcessTTL <= 0 {
		return nil, &ConfigurationError{Field: "research.process_ttl", Msg: "must be positive"}
	}
	expr, err := cronexpr.Parse(cfg.SweepCron)
	if err != nil {
		return nil, &ConfigurationError{Field: "research.sweep_cron", Msg: err.Error()}
	}
	return &Registry{
		processes: make(map[string]*Process),
		pipeline:  pipeline,
		logger:    logger,
		ttl:       cfg.ProcessTTL,
		sweepExpr: expr,
	}, nil
}

// Start launches the janitor. It returns immediately; the janitor stops
// when ctx is cancelled.
func (r *Registry) Start(ctx context.Context) {
	go func() {
		for {
			next := r.sweepExpr.Next(time.Now())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case now := <-timer.C:
				r.sweep(now)
			}
		}
	}()
}

// Create registers a new process and starts plan generation in the
// background. The returned snapshot has status planning.
func (r *Registry) Create(topic, requirements string) Snapshot {
	topic = strings.TrimSpace(topic)
	if strings.TrimSpace(requirements) == "" {
		requirements = DefaultRequirements
	}

	proc := newProcess(uuid.NewString(), topic, requirements)
	r.mu.Lock()
	r.processes[proc.id] = proc
	r.mu.Unlock()

	r.logger.Printf("process %s created for topic %q", proc.id, topic)
	go r.pipeline.Plan(context.Background(), proc)
	return proc.Snapshot()
}

// Get returns a snapshot of the identified process.
func (r *Registry) Get(id string) (Snapshot, error) {
	proc, err := r.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return proc.Snapshot(), nil
}

// Confirm accepts a generated plan and starts step execution. Only a
// process waiting for confirmation can be confirmed; the status flips to
// confirmed before Confirm returns so an immediate poll never sees the old
// state.
func (r *Registry) Confirm(id string) (Snapshot, error) {
	proc, err := r.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	if !proc.transition([]Status{StatusWaitingConfirmation}, StatusConfirmed) {
		return Snapshot{}, &StateError{ID: id, Status: proc.Status(), Op: "confirm"}
	}
	r.logger.Printf("process %s confirmed", id)
	go r.pipeline.Execute(context.Background(), proc)
	return proc.Snapshot(), nil
}

// Cancel stops a process that has not finished. Execution notices the
// status change cooperatively between steps and queries.
func (r *Registry) Cancel(id string) (Snapshot, error) {
	proc, err := r.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	allowed := []Status{StatusPlanning, StatusWaitingConfirmation, StatusConfirmed, StatusResearching}
	if !proc.transition(allowed, StatusCancelled) {
		return Snapshot{}, &StateError{ID: id, Status: proc.Status(), Op: "cancel"}
	}
	r.logger.Printf("process %s cancelled", id)
	if r.pipeline != nil && r.pipeline.metrics != nil {
		r.pipeline.metrics.CountProcess(string(StatusCancelled))
	}
	return proc.Snapshot(), nil
}

func (r *Registry) lookup(id string) (*Process, error) {
	r.mu.RLock()
	proc, ok := r.processes[id]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return proc, nil
}

// sweep evicts terminal processes whose last update is older than the TTL.
func (r *Registry) sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, proc := range r.processes {
		if proc.Status().terminal() && now.Sub(proc.lastUpdated()) > r.ttl {
			delete(r.processes, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.logger.Printf("janitor evicted %d finished processes", evicted)
	}
}

// transition atomically moves the process from any of the listed statuses
// to the target, reporting whether it happened.
func (p *Process) transition(from []Status, to Status) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, f := range from {
		if p.status == f {
			p.status = to
			p.updatedAt = time.Now()
			return true
		}
	}
	return false
}
