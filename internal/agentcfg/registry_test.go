package agentcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/beadloop/beadloop/pkg/models"
)

func TestKindForTask(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   Kind
	}{
		{"backend label", []string{"agent:backend"}, KindBackend},
		{"first recognized label wins", []string{"agent:qa", "agent:frontend"}, KindQA},
		{"unknown kind falls back", []string{"agent:wizard"}, KindGeneral},
		{"no agent label", []string{"sprint-3"}, KindGeneral},
		{"no labels", nil, KindGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &models.Task{ID: "fb-x0.1.1", Labels: tt.labels}
			if got := KindForTask(task); got != tt.want {
				t.Errorf("KindForTask = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveFallbackWhenNoFile(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "missing"))

	task := &models.Task{ID: "fb-x0.1.1", Labels: []string{"agent:sdet"}}
	profile := r.Resolve(task)

	if profile.FromFile {
		t.Error("expected fallback profile")
	}
	if profile.Kind != KindSDET {
		t.Errorf("kind = %q, want sdet", profile.Kind)
	}
	if profile.SystemPrompt != FallbackPrompt(KindSDET) {
		t.Errorf("unexpected prompt: %q", profile.SystemPrompt)
	}
}

func TestResolveFileProfileWithFrontmatter(t *testing.T) {
	dir := t.TempDir()
	content := `---
description: Backend specialist
model: sonnet
tools:
  - Read
  - Edit
  - Bash
---
You own the API layer. Keep handlers thin.
`
	if err := os.WriteFile(filepath.Join(dir, "dev-backend.md"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(dir)
	task := &models.Task{ID: "fb-x0.1.1", Labels: []string{"agent:backend"}}
	profile := r.Resolve(task)

	if !profile.FromFile {
		t.Fatal("expected file-backed profile")
	}
	if profile.Model != "sonnet" {
		t.Errorf("model = %q, want sonnet", profile.Model)
	}
	if len(profile.Tools) != 3 {
		t.Errorf("tools = %v", profile.Tools)
	}
	if profile.SystemPrompt != "You own the API layer. Keep handlers thin." {
		t.Errorf("prompt = %q", profile.SystemPrompt)
	}
}

func TestProfileWithoutFrontmatterIsAllBody(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "dev-qa.md"), []byte("Just a prompt.\n"), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(dir)
	profile := r.Resolve(&models.Task{ID: "fb-x1", Labels: []string{"agent:qa"}})

	if !profile.FromFile {
		t.Fatal("expected file-backed profile")
	}
	if profile.SystemPrompt != "Just a prompt." {
		t.Errorf("prompt = %q", profile.SystemPrompt)
	}
}

func TestLoadSkipsBrokenProfiles(t *testing.T) {
	dir := t.TempDir()
	broken := "---\nmodel: [unclosed\n---\nbody\n"
	if err := os.WriteFile(filepath.Join(dir, "dev-ai.md"), []byte(broken), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "dev-general.md"), []byte("ok\n"), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(dir)
	names := r.Names()
	if len(names) != 1 || names[0] != "dev-general" {
		t.Errorf("names = %v, want only dev-general", names)
	}

	// The broken kind still resolves, via fallback.
	profile := r.Resolve(&models.Task{ID: "fb-x1", Labels: []string{"agent:ai"}})
	if profile.FromFile {
		t.Error("broken profile should not be served from file")
	}
}

func TestReloadPicksUpNewProfiles(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)

	if len(r.Names()) != 0 {
		t.Fatalf("expected empty registry, got %v", r.Names())
	}

	if err := os.WriteFile(filepath.Join(dir, "dev-frontend.md"), []byte("prompt\n"), 0644); err != nil {
		t.Fatal(err)
	}
	r.Load()

	names := r.Names()
	if len(names) != 1 || names[0] != "dev-frontend" {
		t.Errorf("names = %v", names)
	}
}
