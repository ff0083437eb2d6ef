package main

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

//go:embed scaffold/agents/*.md
var scaffoldFS embed.FS

var (
	initForce           bool
	initMerge           bool
	initSkipClaudeCheck bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a project for beadloop",
	Long: `Initialize a directory for use with beadloop.

This command sets up everything needed to run the orchestrator:
  - Verifies prerequisites (claude CLI, beads CLI)
  - Creates the .beadloop directory structure
  - Installs the default agent profiles under .claude/agents
  - Creates a .beadloop.yaml template

The directory argument is optional and defaults to the current directory.

Examples:
  beadloop init            # Initialize current directory
  beadloop init ./myrepo   # Initialize specific directory
  beadloop init --force    # Overwrite existing agent profiles
  beadloop init --merge    # Add missing profiles, keep edited ones`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing agent profiles and config")
	initCmd.Flags().BoolVar(&initMerge, "merge", false, "Install only missing agent profiles")
	initCmd.Flags().BoolVar(&initSkipClaudeCheck, "skip-claude-check", false, "Skip Claude CLI availability check")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing beadloop in %s...\n\n", absPath)

	beadloopDir := filepath.Join(absPath, ".beadloop")
	if _, err := os.Stat(beadloopDir); err == nil && !initForce && !initMerge {
		fmt.Println("Directory already initialized. Use --force to reinitialize or --merge to add missing files.")
		return nil
	}

	if !initSkipClaudeCheck {
		if err := CheckClaudeCLI(); err != nil {
			printStatus("✗", "Claude Code CLI not found", color.FgRed)
			return err
		}
		printStatus("✓", "Claude Code CLI found", color.FgGreen)
	}

	if err := CheckBeadsCLI("bd"); err != nil {
		printStatus("⚠", "beads CLI not found (sqlite backend still works)", color.FgYellow)
	} else {
		printStatus("✓", "beads CLI found", color.FgGreen)
	}

	if err := os.MkdirAll(filepath.Join(beadloopDir, "logs"), 0755); err != nil {
		return fmt.Errorf("creating .beadloop directory: %w", err)
	}
	printStatus("✓", "Created .beadloop directory structure", color.FgGreen)

	installed, skipped, err := installAgentProfiles(absPath)
	if err != nil {
		return fmt.Errorf("installing agent profiles: %w", err)
	}
	msg := fmt.Sprintf("Installed %d agent profiles", installed)
	if skipped > 0 {
		msg = fmt.Sprintf("%s (%d existing kept)", msg, skipped)
	}
	printStatus("✓", msg, color.FgGreen)

	if err := updateGitignore(absPath); err != nil {
		return fmt.Errorf("updating .gitignore: %w", err)
	}
	printStatus("✓", "Updated .gitignore", color.FgGreen)

	if err := createProjectConfig(absPath); err != nil {
		return fmt.Errorf("creating project config: %w", err)
	}
	printStatus("✓", "Created .beadloop.yaml template", color.FgGreen)

	fmt.Printf("\n%s beadloop initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  1. Create tasks in your tracker:")
	fmt.Println("     bd create \"Build the settings page\" --label agent:frontend")
	fmt.Println()
	fmt.Println("  2. Run the orchestrator:")
	fmt.Println("     beadloop run")
	fmt.Println()
	fmt.Println("  3. Learn more:")
	fmt.Println("     beadloop --help")

	return nil
}

// installAgentProfiles copies the embedded profiles into .claude/agents.
// Existing files are kept unless --force is set.
func installAgentProfiles(repoPath string) (installed, skipped int, err error) {
	agentsDir := filepath.Join(repoPath, ".claude", "agents")
	if err := os.MkdirAll(agentsDir, 0755); err != nil {
		return 0, 0, err
	}

	entries, err := fs.ReadDir(scaffoldFS, "scaffold/agents")
	if err != nil {
		return 0, 0, err
	}

	for _, entry := range entries {
		target := filepath.Join(agentsDir, entry.Name())
		if _, err := os.Stat(target); err == nil && !initForce {
			skipped++
			continue
		}

		data, err := scaffoldFS.ReadFile("scaffold/agents/" + entry.Name())
		if err != nil {
			return installed, skipped, err
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return installed, skipped, err
		}
		installed++
	}
	return installed, skipped, nil
}

// updateGitignore adds beadloop entries to .gitignore if not present.
func updateGitignore(repoPath string) error {
	gitignorePath := filepath.Join(repoPath, ".gitignore")

	var existingContent string
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existingContent = string(data)
	}

	entries := []string{
		".beadloop/logs/",
		".beadloop/tasks.db*",
	}

	needsUpdate := false
	for _, entry := range entries {
		if !strings.Contains(existingContent, entry) {
			needsUpdate = true
			break
		}
	}
	if !needsUpdate {
		return nil
	}

	var newContent strings.Builder
	newContent.WriteString(existingContent)
	if len(existingContent) > 0 && !strings.HasSuffix(existingContent, "\n") {
		newContent.WriteString("\n")
	}
	newContent.WriteString("\n# beadloop\n")
	for _, entry := range entries {
		if !strings.Contains(existingContent, entry) {
			newContent.WriteString(entry + "\n")
		}
	}

	return os.WriteFile(gitignorePath, []byte(newContent.String()), 0644)
}

// createProjectConfig creates a .beadloop.yaml template.
func createProjectConfig(repoPath string) error {
	configPath := filepath.Join(repoPath, ".beadloop.yaml")

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return nil
	}

	template := `# beadloop project configuration
# Overrides defaults from ~/.config/beadloop/config.yaml

# agent:
#   dir: .claude/agents
#   model: sonnet
#   timeout: 30m

# loop:
#   page_size: 50
#   auto_complete: true

# store:
#   backend: beads      # or: sqlite
#   beads:
#     bin: bd
#   sqlite:
#     path: .beadloop/tasks.db
`

	return os.WriteFile(configPath, []byte(template), 0644)
}

// printStatus prints a status line with color.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
