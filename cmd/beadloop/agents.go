package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/beadloop/beadloop/internal/agentcfg"
	"github.com/beadloop/beadloop/internal/config"
	"github.com/beadloop/beadloop/pkg/models"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List agent kinds and their profiles",
	Long: `List the agent kinds tasks can select via agent:<kind> labels, and
whether each kind has a profile file or falls back to its built-in prompt.

Profile files live under the configured agents directory (default
.claude/agents) as <name>.md with optional YAML frontmatter for model
and tools.`,
	RunE: runAgents,
}

func runAgents(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	registry := agentcfg.NewRegistry(cfg.Agent.Dir)

	fmt.Printf("Agents directory: %s\n\n", cfg.Agent.Dir)

	for _, kind := range agentcfg.Kinds() {
		stem := agentcfg.FileForKind(kind)
		profile := registry.Resolve(taskForKind(kind))

		if profile.FromFile {
			detail := ""
			if profile.Model != "" {
				detail = fmt.Sprintf(" (model: %s)", profile.Model)
			}
			fmt.Printf("  %-10s %s %s.md%s\n", kind, color.GreenString("✓"), stem, detail)
		} else {
			fmt.Printf("  %-10s %s fallback prompt\n", kind, color.YellowString("·"))
		}
	}

	fmt.Println("\nLabel tasks with agent:<kind> to select an agent, e.g. agent:backend.")
	return nil
}

// taskForKind fabricates a minimal task carrying the kind's label so the
// registry resolves the same profile a real task would get.
func taskForKind(kind agentcfg.Kind) *models.Task {
	return &models.Task{Labels: []string{"agent:" + string(kind)}}
}
