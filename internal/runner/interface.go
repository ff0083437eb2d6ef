// Package runner provides the agent execution collaborator. The
// orchestrator treats execution as an opaque, timeout-bounded call with
// four outcomes: success, failure, timeout, or canceled.
package runner

import (
	"context"
	"time"

	"github.com/beadloop/beadloop/internal/agentcfg"
	"github.com/beadloop/beadloop/pkg/models"
)

// DefaultTimeout bounds a single agent execution when no timeout is
// configured. Thirty minutes matches the progress-note cadence the prompt
// instructs agents to keep.
const DefaultTimeout = 30 * time.Minute

// Outcome classifies how an execution ended.
type Outcome string

const (
	// OutcomeSuccess indicates the agent completed without error.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailure indicates the agent reported an error before the
	// timeout.
	OutcomeFailure Outcome = "failure"
	// OutcomeTimeout indicates the agent was forcibly terminated at the
	// wall-clock bound. Not a failure: the agent is expected to have
	// persisted progress notes, and resume mode picks the task back up.
	OutcomeTimeout Outcome = "timeout"
	// OutcomeCanceled indicates the run itself was interrupted (SIGINT or
	// parent context cancel) mid-execution. Not the task's fault: it stays
	// in_progress and no failure is recorded.
	OutcomeCanceled Outcome = "canceled"
)

// Request describes one agent execution.
type Request struct {
	// Task is the leaf task being worked on.
	Task models.Task
	// Prompt is the fully assembled task prompt.
	Prompt string
	// Profile selects the agent configuration.
	Profile *agentcfg.Profile
	// Model overrides the profile's model when non-empty.
	Model string
	// Timeout is the hard wall-clock bound; <= 0 uses DefaultTimeout.
	Timeout time.Duration
}

// Result reports how an execution ended.
type Result struct {
	Outcome Outcome
	// SessionRef identifies the execution session, when the runner
	// reports one.
	SessionRef string
	// Diagnostic carries failure or timeout detail for task notes.
	Diagnostic string
	// Output is the agent's final response text, if any.
	Output string
}

// AgentRunner executes a task prompt under a hard timeout. Termination at
// the bound is forced, never cooperative; the executed work is untrusted.
type AgentRunner interface {
	Execute(ctx context.Context, req Request) Result
}
