package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/beadloop/beadloop/internal/config"
	"github.com/beadloop/beadloop/internal/hierarchy"
	"github.com/beadloop/beadloop/internal/store"
	"github.com/beadloop/beadloop/pkg/models"
)

var statusLabel string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the task pool the orchestrator would work on",
	Long: `Display the current candidate pool: ready tasks in scheduling order and
any in-progress tasks a --resume run would pick up.

With the sqlite backend, also shows task counts by status.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusLabel, "label", "l", "", "Only show tasks with this label")
}

var (
	statusHeaderStyle = lipgloss.NewStyle().Bold(true)
	statusReadyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	statusActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	statusDimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	repoPath, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	taskStore, cleanup, err := openStore(cfg.Store.Backend, cfg, repoPath)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	opts := store.ListOptions{Label: statusLabel, Limit: cfg.Loop.PageSize}

	ready, err := taskStore.ListReady(ctx, opts)
	if err != nil {
		return fmt.Errorf("list ready tasks: %w", err)
	}
	inProgress, err := taskStore.ListInProgress(ctx, opts)
	if err != nil {
		return fmt.Errorf("list in-progress tasks: %w", err)
	}

	if len(ready) == 0 && len(inProgress) == 0 {
		fmt.Println("No ready or in-progress tasks. Nothing to orchestrate.")
		return nil
	}

	if len(inProgress) > 0 {
		fmt.Println(statusHeaderStyle.Render("In progress (picked up by --resume):"))
		printTaskTable(inProgress, statusActiveStyle)
		fmt.Println()
	}

	if len(ready) > 0 {
		fmt.Println(statusHeaderStyle.Render("Ready (in scheduling order):"))
		printTaskTable(ready, statusReadyStyle)
	}

	if sqliteStore, ok := taskStore.(*store.SQLiteStore); ok {
		counts, err := sqliteStore.CountByStatus(ctx)
		if err == nil {
			fmt.Println()
			fmt.Println(statusHeaderStyle.Render("Totals:"))
			for _, s := range []models.Status{models.StatusReady, models.StatusInProgress, models.StatusBlocked, models.StatusDone, models.StatusClosed} {
				if n := counts[s]; n > 0 {
					fmt.Printf("  %-12s %d\n", s, n)
				}
			}
		}
	}

	return nil
}

// printTaskTable renders tasks in the scheduler's order: deepest first,
// ties broken by ID.
func printTaskTable(tasks []models.Task, idStyle lipgloss.Style) {
	sorted := make([]models.Task, len(tasks))
	copy(sorted, tasks)
	hierarchy.SortDeepestFirst(sorted)

	for _, t := range sorted {
		marker := "leaf"
		if !hierarchy.IsLeaf(&t) {
			marker = fmt.Sprintf("depth %d", hierarchy.Depth(t.ID))
		}
		fmt.Printf("  %s  %s %s\n",
			idStyle.Render(fmt.Sprintf("%-14s", t.ID)),
			t.Title,
			statusDimStyle.Render("("+marker+")"))
	}
}
