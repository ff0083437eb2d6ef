package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// CheckClaudeCLI verifies that the 'claude' CLI is available in PATH.
// Returns an error with installation instructions if not found.
func CheckClaudeCLI() error {
	_, err := exec.LookPath("claude")
	if err != nil {
		return fmt.Errorf("claude CLI not found in PATH\n\n" +
			"beadloop drives the Claude Code CLI to work on tasks.\n\n" +
			"Install it with:\n" +
			"  npm install -g @anthropic-ai/claude-code\n\n" +
			"For more information, visit:\n" +
			"  https://docs.anthropic.com/en/docs/claude-code")
	}
	return nil
}

// CheckBeadsCLI verifies that the beads tracker binary is available in PATH.
func CheckBeadsCLI(bin string) error {
	_, err := exec.LookPath(bin)
	if err != nil {
		return fmt.Errorf("%s not found in PATH\n\n"+
			"The beads backend needs the beads issue tracker CLI.\n"+
			"Install it, or switch backends with --store sqlite.", bin)
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "beadloop",
	Short: "Agent orchestrator for beads task trees",
	Long: `beadloop runs Claude Code agents against a beads task tree until the
work is done.

It repeatedly picks the deepest ready task (leaf subtasks before their
parents), claims it, and hands it to an agent selected by the task's
agent:<kind> label. Parent tasks and epics are closed automatically once
every child is done, so finishing the leaves finishes the tree.

Agents run under a hard timeout and are instructed to record progress
notes; a timed-out task stays in progress and --resume picks it back up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
