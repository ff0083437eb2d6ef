package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/beadloop/beadloop/internal/exec"
)

// ClaudeRunner executes tasks through the Claude Code CLI in non-interactive
// mode. Each execution is a fresh subprocess under a hard deadline; when the
// deadline fires the process is killed, not asked to stop.
type ClaudeRunner struct {
	runner  exec.CommandRunner
	bin     string
	workDir string
}

// claudeOutput is the JSON envelope the CLI prints with --output-format json.
type claudeOutput struct {
	SessionID string `json:"session_id"`
	Result    string `json:"result"`
	IsError   bool   `json:"is_error"`
}

// NewClaudeRunner creates a runner that invokes the claude binary in workDir.
func NewClaudeRunner(cmdRunner exec.CommandRunner, workDir string) *ClaudeRunner {
	return &ClaudeRunner{
		runner:  cmdRunner,
		bin:     "claude",
		workDir: workDir,
	}
}

var _ AgentRunner = (*ClaudeRunner)(nil)

// Execute runs the task prompt through the CLI. File-backed profiles are
// passed via --agent so the CLI loads the full configuration; fallback
// profiles inline their prompt via --append-system-prompt.
func (r *ClaudeRunner) Execute(ctx context.Context, req Request) Result {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"--print",
		"--output-format", "json",
		"--dangerously-skip-permissions",
	}

	if req.Profile != nil {
		if req.Profile.FromFile {
			args = append(args, "--agent", req.Profile.Name)
		} else if req.Profile.SystemPrompt != "" {
			args = append(args, "--append-system-prompt", req.Profile.SystemPrompt)
		}
	}

	if model := r.model(req); model != "" {
		args = append(args, "--model", model)
	}

	args = append(args, req.Prompt)

	stdout, stderr, err := r.runner.Run(execCtx, r.workDir, r.bin, args...)

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return Result{
			Outcome:    OutcomeTimeout,
			Diagnostic: fmt.Sprintf("agent exceeded %s limit", timeout),
		}
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return Result{Outcome: OutcomeCanceled}
	}
	if err != nil {
		return Result{
			Outcome:    OutcomeFailure,
			Diagnostic: execDiagnostic(err, stderr),
		}
	}

	var out claudeOutput
	if jsonErr := json.Unmarshal(stdout, &out); jsonErr != nil {
		// Not JSON; treat the raw output as the result, same as a
		// successful run with an unparseable envelope.
		return Result{
			Outcome: OutcomeSuccess,
			Output:  strings.TrimSpace(string(stdout)),
		}
	}

	if out.IsError {
		return Result{
			Outcome:    OutcomeFailure,
			SessionRef: out.SessionID,
			Diagnostic: out.Result,
		}
	}

	return Result{
		Outcome:    OutcomeSuccess,
		SessionRef: out.SessionID,
		Output:     out.Result,
	}
}

// model picks the effective model: explicit override first, then the
// profile's frontmatter.
func (r *ClaudeRunner) model(req Request) string {
	if req.Model != "" {
		return req.Model
	}
	if req.Profile != nil {
		return req.Profile.Model
	}
	return ""
}

// execDiagnostic folds stderr into the error text when the process left any.
func execDiagnostic(err error, stderr []byte) string {
	msg := err.Error()
	if detail := strings.TrimSpace(string(stderr)); detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	return msg
}
