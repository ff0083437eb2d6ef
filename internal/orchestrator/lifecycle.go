package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beadloop/beadloop/internal/agentcfg"
	"github.com/beadloop/beadloop/internal/hierarchy"
	"github.com/beadloop/beadloop/internal/runner"
	"github.com/beadloop/beadloop/internal/store"
	"github.com/beadloop/beadloop/pkg/models"
)

// Disposition is the outcome of processing one task for one iteration.
type Disposition string

const (
	// DispositionCompleted means the task reached a terminal state.
	DispositionCompleted Disposition = "completed"
	// DispositionBlocked means the task was marked blocked.
	DispositionBlocked Disposition = "blocked"
	// DispositionTimedOut means the agent hit the wall-clock limit; the
	// task stays in_progress so a resume run can pick it back up.
	DispositionTimedOut Disposition = "timed_out"
	// DispositionSkipped means the task was not processed this iteration:
	// another orchestrator won the claim, or the dependency gate is open.
	DispositionSkipped Disposition = "skipped"
	// DispositionExecuted means the agent succeeded but auto-complete is
	// off, so the task stays in_progress for manual review.
	DispositionExecuted Disposition = "executed"
	// DispositionDryRun means no mutation or execution happened.
	DispositionDryRun Disposition = "dry_run"
)

// Controller owns the per-task state machine: claim, execute or auto-close,
// and record the outcome. It never assumes exclusive ownership of a task
// without a successful claim, and never re-claims a resumed task.
type Controller struct {
	store  store.TaskStore
	gate   *Gate
	runner runner.AgentRunner
	agents *agentcfg.Registry
	log    *DebugLogger

	timeout      time.Duration
	model        string
	runID        string
	autoComplete bool
	dryRun       bool
}

// ControllerConfig carries the processing knobs.
type ControllerConfig struct {
	// Timeout bounds each agent execution; <= 0 uses the runner default.
	Timeout time.Duration
	// Model overrides agent profile models when non-empty.
	Model string
	// RunID tags timeout and failure notes so concurrent orchestrators
	// are distinguishable in the task log.
	RunID string
	// AutoComplete closes tasks on success. When off, successful tasks
	// stay in_progress.
	AutoComplete bool
	// DryRun reports what would happen without claiming, executing, or
	// mutating anything.
	DryRun bool
}

// NewController creates a lifecycle controller.
func NewController(s store.TaskStore, gate *Gate, agentRunner runner.AgentRunner, agents *agentcfg.Registry, log *DebugLogger, cfg ControllerConfig) *Controller {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = runner.DefaultTimeout
	}
	return &Controller{
		store:        s,
		gate:         gate,
		runner:       agentRunner,
		agents:       agents,
		log:          log,
		timeout:      timeout,
		model:        cfg.Model,
		runID:        cfg.RunID,
		autoComplete: cfg.AutoComplete,
		dryRun:       cfg.DryRun,
	}
}

// Process runs one task through its lifecycle. Non-leaf tasks are auto-closed
// once all children are terminal; leaf tasks are claimed and handed to the
// agent runner. resumed tasks are already in_progress and skip the claim.
func (c *Controller) Process(ctx context.Context, t *models.Task, resumed bool) Disposition {
	if hierarchy.IsLeaf(t) {
		return c.processLeaf(ctx, t, resumed)
	}
	return c.processParent(ctx, t, resumed)
}

// processParent auto-closes a non-leaf task. The work happened in its leaf
// descendants; the parent exists only to track them.
func (c *Controller) processParent(ctx context.Context, t *models.Task, resumed bool) Disposition {
	if complete, blockedChild := c.gate.Inspect(ctx, t.ID); !complete {
		// A ready parent gated by a blocked child can never make progress
		// on its own: the skip leaves nothing mutated, so the scheduler
		// would re-select the same parent every iteration. Propagating the
		// block up breaks the cycle and surfaces the stuck subtree.
		if blockedChild != "" && !resumed && !c.dryRun && t.Status == models.StatusReady {
			c.log.Log("lifecycle: %s gated by blocked child %s, blocking", t.ID, blockedChild)
			update := store.StatusUpdate{
				Status: models.StatusBlocked,
				Note:   c.annotate(fmt.Sprintf("Blocked: child %s is blocked", blockedChild)),
			}
			if err := c.store.SetStatus(ctx, t.ID, update); err != nil {
				c.log.Log("lifecycle: block %s failed: %v", t.ID, err)
			}
			return DispositionBlocked
		}
		c.log.Log("lifecycle: %s has incomplete children, not closing", t.ID)
		return DispositionSkipped
	}

	if c.dryRun {
		return DispositionDryRun
	}

	if !resumed {
		if !c.claim(ctx, t.ID) {
			return DispositionSkipped
		}
	}

	if !c.autoComplete {
		return DispositionExecuted
	}

	if err := c.store.SetStatus(ctx, t.ID, store.StatusUpdate{Status: models.StatusClosed}); err != nil {
		c.log.Log("lifecycle: close %s failed: %v, marking blocked", t.ID, err)
		// Blocking here keeps the scheduler from re-selecting the same
		// un-closeable parent forever.
		c.block(ctx, t.ID, "Failed to mark task as done")
		return DispositionBlocked
	}
	return DispositionCompleted
}

// processLeaf claims a leaf task and runs the agent on it.
func (c *Controller) processLeaf(ctx context.Context, t *models.Task, resumed bool) Disposition {
	if c.dryRun {
		return DispositionDryRun
	}

	if !resumed {
		if !c.claim(ctx, t.ID) {
			return DispositionSkipped
		}
	}

	profile := c.agents.Resolve(t)
	result := c.runner.Execute(ctx, runner.Request{
		Task:    *t,
		Prompt:  runner.BuildPrompt(t, c.timeout),
		Profile: profile,
		Model:   c.model,
		Timeout: c.timeout,
	})

	switch result.Outcome {
	case runner.OutcomeSuccess:
		if !c.autoComplete {
			return DispositionExecuted
		}
		update := store.StatusUpdate{Status: models.StatusClosed, SessionRef: result.SessionRef}
		if err := c.store.SetStatus(ctx, t.ID, update); err != nil {
			c.log.Log("lifecycle: complete %s failed: %v, marking blocked", t.ID, err)
			c.block(ctx, t.ID, "Failed to mark task as done after successful agent run")
			return DispositionBlocked
		}
		return DispositionCompleted

	case runner.OutcomeCanceled:
		// The run was interrupted, not the task failed. Leave it
		// in_progress for resume; the loop stops on the canceled context.
		c.log.Log("lifecycle: %s interrupted mid-execution, leaving in progress", t.ID)
		return DispositionSkipped

	case runner.OutcomeTimeout:
		// Leave in_progress; the agent was instructed to keep progress
		// notes and a resume run continues from them.
		note := fmt.Sprintf("Agent timed out after %d minutes. Check progress notes for partial work.", int(c.timeout.Minutes()))
		if err := c.store.AppendNote(ctx, t.ID, c.annotate(note)); err != nil {
			c.log.Log("lifecycle: record timeout note on %s failed: %v", t.ID, err)
		}
		return DispositionTimedOut

	default:
		reason := result.Diagnostic
		if reason == "" {
			reason = "Agent execution failed"
		}
		c.block(ctx, t.ID, reason)
		return DispositionBlocked
	}
}

// claim attempts the atomic ready->in_progress transition. A lost race is
// normal under concurrent orchestrators and only skips this iteration.
func (c *Controller) claim(ctx context.Context, id string) bool {
	err := c.store.Claim(ctx, id)
	if err == nil {
		return true
	}
	if errors.Is(err, store.ErrClaimConflict) {
		c.log.Log("lifecycle: lost claim on %s", id)
	} else {
		c.log.Log("lifecycle: claim %s failed: %v", id, err)
	}
	return false
}

// block marks a task blocked with a failure note.
func (c *Controller) block(ctx context.Context, id, reason string) {
	update := store.StatusUpdate{
		Status: models.StatusBlocked,
		Note:   c.annotate(fmt.Sprintf("Agent failed: %s", reason)),
	}
	if err := c.store.SetStatus(ctx, id, update); err != nil {
		c.log.Log("lifecycle: block %s failed: %v", id, err)
	}
}

// annotate tags a note with the run id, when one is set.
func (c *Controller) annotate(note string) string {
	if c.runID == "" {
		return note
	}
	return fmt.Sprintf("%s [run %s]", note, c.runID)
}
