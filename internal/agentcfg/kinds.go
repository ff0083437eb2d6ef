// Package agentcfg resolves tasks to agent execution profiles. Profiles live
// as markdown files with YAML frontmatter under .claude/agents/; when a file
// is missing, a built-in fallback prompt for the kind is used instead.
package agentcfg

import (
	"strings"

	"github.com/beadloop/beadloop/pkg/models"
)

// Kind identifies an agent specialization. The set is closed; labels that
// name an unknown kind resolve to KindGeneral.
type Kind string

const (
	KindFrontend Kind = "frontend"
	KindBackend  Kind = "backend"
	KindAI       Kind = "ai"
	KindSDET     Kind = "sdet"
	KindQA       Kind = "qa"
	KindGeneral  Kind = "general"
)

// labelPrefix is the label namespace that selects an agent kind.
const labelPrefix = "agent:"

// profileFiles maps each kind to its profile file stem under the agents
// directory.
var profileFiles = map[Kind]string{
	KindFrontend: "dev-frontend",
	KindBackend:  "dev-backend",
	KindAI:       "dev-ai",
	KindSDET:     "dev-sdet",
	KindQA:       "dev-qa",
	KindGeneral:  "dev-general",
}

// fallbackPrompts are used when no profile file exists for a kind.
var fallbackPrompts = map[Kind]string{
	KindFrontend: "You are a Frontend Development Agent. Focus on UI components, client-side logic, and user experience.",
	KindBackend:  "You are a Backend Development Agent. Focus on APIs, server logic, and database operations.",
	KindAI:       "You are an AI Specialization Agent. Focus on prompt engineering, LLM integration, and AI pipelines.",
	KindSDET:     "You are an SDET Agent. Focus on test infrastructure, E2E testing, and automation frameworks.",
	KindQA:       "You are a QA Validation Agent. Focus on test execution, acceptance criteria verification, and bug reporting.",
	KindGeneral:  "You are a General Development Agent. Complete the assigned task following best practices.",
}

// KindForTask derives the agent kind from a task's agent:<kind> label.
// Tasks without a recognized label fall back to KindGeneral.
func KindForTask(t *models.Task) Kind {
	for _, label := range t.Labels {
		name, ok := strings.CutPrefix(label, labelPrefix)
		if !ok {
			continue
		}
		kind := Kind(name)
		if _, known := profileFiles[kind]; known {
			return kind
		}
	}
	return KindGeneral
}

// FileForKind returns the profile file stem for a kind.
func FileForKind(kind Kind) string {
	if stem, ok := profileFiles[kind]; ok {
		return stem
	}
	return profileFiles[KindGeneral]
}

// FallbackPrompt returns the built-in system prompt for a kind.
func FallbackPrompt(kind Kind) string {
	if p, ok := fallbackPrompts[kind]; ok {
		return p
	}
	return fallbackPrompts[KindGeneral]
}

// Kinds returns all known kinds in a stable order.
func Kinds() []Kind {
	return []Kind{KindFrontend, KindBackend, KindAI, KindSDET, KindQA, KindGeneral}
}
