// Package exec provides an interface for command execution.
package exec

import (
	"context"
)

// CommandRunner defines the interface for running external commands.
// This abstraction allows mocking the bd tracker CLI and the claude CLI
// in tests.
type CommandRunner interface {
	// Run executes a command and returns stdout and stderr separately.
	// Tracker responses arrive on stdout as JSON; stderr carries
	// diagnostics only. The working directory is set to workDir if
	// non-empty. A non-zero exit is returned as err with stderr still
	// populated.
	Run(ctx context.Context, workDir string, name string, args ...string) (stdout, stderr []byte, err error)
}
