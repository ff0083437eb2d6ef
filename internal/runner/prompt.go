package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/beadloop/beadloop/pkg/models"
)

// BuildPrompt assembles the task prompt for an agent run. The prompt carries
// the task content plus progress-tracking instructions so work survives a
// forced termination at the timeout: a fresh agent resuming the task reads
// the notes and continues.
func BuildPrompt(t *models.Task, timeout time.Duration) string {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	minutes := int(timeout.Minutes())

	var b strings.Builder
	fmt.Fprintf(&b, "## Task: %s\n", t.Title)
	fmt.Fprintf(&b, "**Task ID:** %s\n\n", t.ID)

	b.WriteString("## Description\n")
	if t.Description != "" {
		b.WriteString(t.Description)
	} else {
		b.WriteString("(No description provided)")
	}
	b.WriteString("\n\n")

	if t.AcceptanceCriteria != "" {
		b.WriteString("## Acceptance Criteria\n")
		b.WriteString(t.AcceptanceCriteria)
		b.WriteString("\n\n")
	}

	b.WriteString("## Instructions\n")
	b.WriteString("1. Read the design document referenced in the description above\n")
	b.WriteString("2. Implement the requirements as specified\n")
	b.WriteString("3. Ensure all acceptance criteria are met\n")
	b.WriteString("4. Run relevant tests to verify your implementation\n\n")

	b.WriteString("## IMPORTANT: Progress Tracking\n\n")
	fmt.Fprintf(&b, "You have a **%d-minute timeout**. To ensure your work isn't lost if time runs out:\n\n", minutes)
	b.WriteString("**Record progress notes periodically** using the beads CLI:\n")
	b.WriteString("```bash\n")
	fmt.Fprintf(&b, "bd update %s --notes \"Progress: <describe what you've completed and what remains>\"\n", t.ID)
	b.WriteString("```\n\n")
	b.WriteString("**When to record progress:**\n")
	b.WriteString("- After completing each major step (reading design doc, writing tests, implementing code)\n")
	b.WriteString("- After every 5-10 minutes of work\n")
	b.WriteString("- Before starting any long-running operation (builds, test suites)\n")
	b.WriteString("- When you encounter blockers or make key decisions\n\n")
	b.WriteString("**What to include in progress notes:**\n")
	b.WriteString("- Files you've created or modified\n")
	b.WriteString("- Tests written and their status\n")
	b.WriteString("- Key implementation decisions made\n")
	b.WriteString("- What remains to be done\n")
	b.WriteString("- Any blockers or issues encountered\n\n")
	b.WriteString("This ensures that if a fresh agent picks up this task, it can continue from where you left off.\n\n")
	b.WriteString("Begin working on this task now.")

	return b.String()
}
