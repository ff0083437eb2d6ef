package orchestrator

import (
	"context"
	"time"

	"github.com/beadloop/beadloop/internal/agentcfg"
	"github.com/beadloop/beadloop/internal/runner"
	"github.com/beadloop/beadloop/internal/store"
	"github.com/beadloop/beadloop/pkg/models"
)

// Config controls one orchestration run.
type Config struct {
	// MaxIterations bounds the number of processed tasks; 0 means
	// unlimited (run until no work remains).
	MaxIterations int
	// Label restricts the run to tasks carrying this label.
	Label string
	// Model overrides agent profile models when non-empty.
	Model string
	// RunID identifies this run in notes written to the task store.
	RunID string
	// Timeout bounds each agent execution.
	Timeout time.Duration
	// PageSize bounds each candidate fetch.
	PageSize int
	// AutoComplete closes tasks when the agent succeeds.
	AutoComplete bool
	// Resume picks up in-progress tasks before fresh ready ones.
	Resume bool
	// DryRun inspects the schedule without claiming or executing.
	DryRun bool
}

// Orchestrator runs the control loop until no work remains, the iteration
// budget is spent, or the context is cancelled.
type Orchestrator struct {
	store      store.TaskStore
	scheduler  *Scheduler
	controller *Controller
	log        *DebugLogger
	handler    EventHandler
	cfg        Config
}

// New wires up an orchestrator from its collaborators.
func New(s store.TaskStore, agentRunner runner.AgentRunner, agents *agentcfg.Registry, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store: s,
		log:   NopLogger(),
		cfg:   cfg,
	}
	for _, opt := range opts {
		opt(o)
	}

	gate := NewGate(s, o.log)
	o.scheduler = NewScheduler(s, gate, o.log, SchedulerConfig{
		Label:    cfg.Label,
		PageSize: cfg.PageSize,
		Resume:   cfg.Resume,
	})
	o.controller = NewController(s, gate, agentRunner, agents, o.log, ControllerConfig{
		Timeout:      cfg.Timeout,
		Model:        cfg.Model,
		RunID:        cfg.RunID,
		AutoComplete: cfg.AutoComplete,
		DryRun:       cfg.DryRun,
	})
	return o
}

// Run executes the loop and returns the number of tasks processed. Every
// selected task counts as one iteration regardless of disposition, so a
// perpetually skipped task cannot spin the loop forever past its budget.
// Context cancellation stops the loop cleanly between tasks.
func (o *Orchestrator) Run(ctx context.Context) (int, error) {
	iteration := 0

	for {
		if err := ctx.Err(); err != nil {
			o.emit(Event{Type: EventLoopFinished, Iteration: iteration, Message: "cancelled"})
			return iteration, err
		}

		if o.cfg.MaxIterations > 0 && iteration >= o.cfg.MaxIterations {
			o.emit(Event{Type: EventLoopFinished, Iteration: iteration, Message: "reached max iterations"})
			return iteration, nil
		}

		task, resumed := o.scheduler.Next(ctx)
		if task == nil {
			o.emit(Event{Type: EventLoopFinished, Iteration: iteration, Message: "no tasks remaining"})
			return iteration, nil
		}

		// The candidate lists carry snapshots; fetch full details before
		// acting. A failed fetch falls back to the snapshot.
		if full, err := o.store.Get(ctx, task.ID); err == nil {
			task = full
		} else {
			o.log.Log("loop: refresh %s failed: %v", task.ID, err)
		}

		iteration++
		o.emit(Event{
			Type:      EventTaskSelected,
			TaskID:    task.ID,
			TaskTitle: task.Title,
			Iteration: iteration,
			Resumed:   resumed,
		})

		disposition := o.controller.Process(ctx, task, resumed)
		o.emit(dispositionEvent(task, iteration, resumed, disposition))
	}
}

// emit delivers an event to the handler, if one is installed.
func (o *Orchestrator) emit(e Event) {
	if o.handler == nil {
		return
	}
	e.Timestamp = time.Now()
	o.handler(e)
}

// dispositionEvent maps a processing outcome onto the event stream.
func dispositionEvent(t *models.Task, iteration int, resumed bool, d Disposition) Event {
	e := Event{
		TaskID:    t.ID,
		TaskTitle: t.Title,
		Iteration: iteration,
		Resumed:   resumed,
	}
	switch d {
	case DispositionCompleted:
		e.Type = EventTaskCompleted
	case DispositionBlocked:
		e.Type = EventTaskBlocked
	case DispositionTimedOut:
		e.Type = EventTaskTimedOut
		e.Message = "left in progress for retry"
	case DispositionExecuted:
		e.Type = EventTaskExecuted
		e.Message = "auto-complete off, task stays in progress"
	case DispositionDryRun:
		e.Type = EventDryRun
	default:
		e.Type = EventTaskSkipped
	}
	return e
}
