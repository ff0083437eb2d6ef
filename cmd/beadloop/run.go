package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/beadloop/beadloop/internal/agentcfg"
	"github.com/beadloop/beadloop/internal/config"
	"github.com/beadloop/beadloop/internal/exec"
	"github.com/beadloop/beadloop/internal/orchestrator"
	"github.com/beadloop/beadloop/internal/runner"
	"github.com/beadloop/beadloop/internal/store"
)

var (
	runMaxIterations  int
	runLabel          string
	runModel          string
	runTimeout        time.Duration
	runDryRun         bool
	runNoAutoComplete bool
	runResume         bool
	runSingle         bool
	runStoreBackend   string
	runUseAPI         bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the orchestration loop over ready tasks",
	Long: `Run agents against the task tree until no work remains.

Each iteration picks the deepest candidate task. Leaf tasks are claimed
and executed by a Claude Code agent chosen from the task's agent:<kind>
label; parent tasks and epics are auto-closed once every child is done.

Task selection:
  -l, --label        only process tasks carrying this label
      --resume       pick up in-progress tasks before fresh ready ones
      --single       process at most one task, then stop

Execution:
      --model        override the model from agent profiles
      --timeout      hard per-agent time limit (agents record progress
                     notes, so a timed-out task resumes where it left off)
      --api          call the Anthropic API directly instead of the
                     claude CLI (advisory output, no workspace edits)

Store:
      --store        task backend: beads (bd CLI) or sqlite`,
	RunE: runLoop,
}

func init() {
	runCmd.Flags().IntVarP(&runMaxIterations, "max-iterations", "n", 0, "Maximum tasks to process (0 = until no work remains)")
	runCmd.Flags().StringVarP(&runLabel, "label", "l", "", "Only process tasks with this label")
	runCmd.Flags().StringVar(&runModel, "model", "", "Override the model from agent profiles")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Per-agent execution time limit (default from config, 30m)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Show what would run without claiming or executing")
	runCmd.Flags().BoolVar(&runNoAutoComplete, "no-auto-complete", false, "Leave tasks in progress instead of closing on success")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "Resume in-progress tasks before picking ready ones")
	runCmd.Flags().BoolVar(&runSingle, "single", false, "Process a single task and stop")
	runCmd.Flags().StringVar(&runStoreBackend, "store", "", "Task store backend: beads or sqlite (default from config)")
	runCmd.Flags().BoolVar(&runUseAPI, "api", false, "Execute via the Anthropic API instead of the claude CLI")
}

func runLoop(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	repoPath, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	// Flags override config.
	timeout := cfg.Agent.Timeout
	if cmd.Flags().Changed("timeout") {
		timeout = runTimeout
	}
	model := cfg.Agent.Model
	if cmd.Flags().Changed("model") {
		model = runModel
	}
	backend := cfg.Store.Backend
	if cmd.Flags().Changed("store") {
		backend = runStoreBackend
	}
	autoComplete := cfg.Loop.AutoComplete
	if runNoAutoComplete {
		autoComplete = false
	}
	maxIterations := runMaxIterations
	if runSingle {
		maxIterations = 1
	}

	taskStore, cleanup, err := openStore(backend, cfg, repoPath)
	if err != nil {
		return err
	}
	defer cleanup()

	agentRunner, err := buildRunner(cfg, repoPath)
	if err != nil {
		return err
	}

	registry := agentcfg.NewRegistry(cfg.Agent.Dir)
	if err := registry.Watch(); err != nil {
		fmt.Printf("Warning: profile watching unavailable: %v\n", err)
	}
	defer registry.Close()

	logger := orchestrator.NewDebugLoggerForRepo(repoPath)
	defer logger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, finishing current task...")
		cancel()
	}()

	runID := uuid.New().String()[:8]
	logger.Log("run %s: backend=%s label=%q resume=%v dry-run=%v", runID, backend, runLabel, runResume, runDryRun)

	printBanner(runID, backend, registry, maxIterations, model, timeout, autoComplete)

	orch := orchestrator.New(taskStore, agentRunner, registry, orchestrator.Config{
		MaxIterations: maxIterations,
		Label:         runLabel,
		Model:         model,
		RunID:         runID,
		Timeout:       timeout,
		PageSize:      cfg.Loop.PageSize,
		AutoComplete:  autoComplete,
		Resume:        runResume,
		DryRun:        runDryRun,
	},
		orchestrator.WithLogger(logger),
		orchestrator.WithEventHandler(printEvent),
	)

	processed, err := orch.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Printf("\nOrchestration finished. Processed %d tasks.\n", processed)

	if apiRunner, ok := agentRunner.(*runner.APIRunner); ok {
		input, output := apiRunner.Tracker().Total()
		fmt.Printf("API usage: %d calls, %d input / %d output tokens\n",
			apiRunner.Tracker().Calls(), input, output)
	}
	return nil
}

// openStore builds the configured task store backend.
func openStore(backend string, cfg *config.Config, repoPath string) (store.TaskStore, func(), error) {
	switch backend {
	case "", "beads":
		bin := cfg.Store.Beads.Bin
		if bin == "" {
			bin = store.DefaultBeadsBin
		}
		if err := CheckBeadsCLI(bin); err != nil {
			return nil, nil, err
		}
		s := store.NewBeadsStore(exec.NewRunner(), bin)
		s.SetWorkDir(repoPath)
		return s, func() {}, nil

	case "sqlite":
		path := cfg.Store.SQLite.Path
		if path == "" {
			path = store.SQLitePath(repoPath)
		}
		s, err := store.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q: must be beads or sqlite", backend)
	}
}

// buildRunner selects the agent execution backend.
func buildRunner(cfg *config.Config, repoPath string) (runner.AgentRunner, error) {
	if runUseAPI {
		apiKey, err := config.GetAPIKey(cfg)
		if err != nil && !cfg.AWS.Bedrock {
			return nil, err
		}
		return runner.NewAPIRunner(runner.APIConfig{
			Model:         cfg.Agent.Model,
			APIKey:        apiKey,
			UseAWSBedrock: cfg.AWS.Bedrock,
			AWSRegion:     cfg.AWS.Region,
			AWSProfile:    cfg.AWS.Profile,
		})
	}

	if !runDryRun {
		if err := CheckClaudeCLI(); err != nil {
			return nil, err
		}
	}
	return runner.NewClaudeRunner(exec.NewRunner(), repoPath), nil
}

func printBanner(runID, backend string, registry *agentcfg.Registry, maxIterations int, model string, timeout time.Duration, autoComplete bool) {
	bold := color.New(color.Bold)
	bold.Println("Starting beads agent orchestrator")

	agents := "(none - using fallbacks)"
	if names := registry.Names(); len(names) > 0 {
		agents = fmt.Sprintf("%v", names)
	}
	iterations := "unlimited"
	if maxIterations > 0 {
		iterations = fmt.Sprintf("%d", maxIterations)
	}
	if model == "" {
		model = "(from agent profile)"
	}

	fmt.Printf("  Run ID: %s\n", runID)
	fmt.Printf("  Store: %s\n", backend)
	fmt.Printf("  Available agents: %s\n", agents)
	fmt.Printf("  Label filter: %s\n", orEmpty(runLabel, "(none)"))
	fmt.Printf("  Max iterations: %s\n", iterations)
	fmt.Printf("  Model: %s\n", model)
	fmt.Printf("  Timeout: %s\n", timeout)
	fmt.Printf("  Auto-complete: %v\n", autoComplete)
	fmt.Printf("  Resume mode: %v\n", runResume)
	fmt.Printf("  Dry run: %v\n", runDryRun)
	fmt.Println()
}

func orEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// printEvent renders loop events to stdout.
func printEvent(e orchestrator.Event) {
	switch e.Type {
	case orchestrator.EventTaskSelected:
		suffix := ""
		if e.Resumed {
			suffix = " (resuming)"
		}
		fmt.Printf("\n[Iteration %d] %s - %s%s\n", e.Iteration, e.TaskID, e.TaskTitle, suffix)
	case orchestrator.EventTaskCompleted:
		color.Green("  ✓ completed: %s", e.TaskID)
	case orchestrator.EventTaskBlocked:
		color.Red("  ✗ blocked: %s", e.TaskID)
	case orchestrator.EventTaskTimedOut:
		color.Yellow("  ⏱ timed out: %s (%s)", e.TaskID, e.Message)
	case orchestrator.EventTaskSkipped:
		fmt.Printf("  - skipped: %s\n", e.TaskID)
	case orchestrator.EventTaskExecuted:
		fmt.Printf("  · executed: %s (%s)\n", e.TaskID, e.Message)
	case orchestrator.EventDryRun:
		fmt.Printf("  [dry run] would process %s\n", e.TaskID)
	case orchestrator.EventLoopFinished:
		if e.Message != "" {
			fmt.Printf("\n%s\n", e.Message)
		}
	}
}
