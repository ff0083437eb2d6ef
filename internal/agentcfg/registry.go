package agentcfg

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/beadloop/beadloop/pkg/models"
)

// Profile is a resolved agent configuration for a task.
type Profile struct {
	// Kind is the agent specialization this profile serves.
	Kind Kind
	// Name is the profile file stem (e.g. "dev-backend").
	Name string
	// Path is the profile file location, empty for fallback profiles.
	Path string
	// Model overrides the default model when set in the frontmatter.
	Model string
	// Tools lists the tools the agent may use, per the frontmatter.
	Tools []string
	// SystemPrompt is the profile's markdown body, or the built-in
	// fallback prompt when no file exists.
	SystemPrompt string
	// FromFile distinguishes file-backed profiles from fallbacks.
	FromFile bool
}

// frontmatter is the YAML header of a profile file.
type frontmatter struct {
	Description string   `yaml:"description"`
	Model       string   `yaml:"model"`
	Tools       []string `yaml:"tools"`
}

// Registry loads and caches agent profiles from a directory. It is safe for
// concurrent use; Watch keeps it current when profile files change on disk.
type Registry struct {
	dir string

	mu       sync.RWMutex
	profiles map[string]*Profile

	watchDone chan struct{}
}

// NewRegistry creates a registry over the given agents directory and
// performs an initial load. A missing directory is not an error; every kind
// then resolves to its fallback prompt.
func NewRegistry(dir string) *Registry {
	r := &Registry{
		dir:      dir,
		profiles: make(map[string]*Profile),
	}
	r.Load()
	return r
}

// Dir returns the agents directory this registry reads from.
func (r *Registry) Dir() string {
	return r.dir
}

// Load re-scans the agents directory. Unreadable or unparseable files are
// skipped so one bad profile cannot take down the registry.
func (r *Registry) Load() {
	loaded := make(map[string]*Profile)

	entries, err := os.ReadDir(r.dir)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}
			path := filepath.Join(r.dir, entry.Name())
			profile, err := parseProfile(path)
			if err != nil {
				continue
			}
			loaded[profile.Name] = profile
		}
	}

	r.mu.Lock()
	r.profiles = loaded
	r.mu.Unlock()
}

// parseProfile reads a profile markdown file, splitting YAML frontmatter
// from the prompt body. Files without frontmatter are all body.
func parseProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), ".md")
	profile := &Profile{
		Name:     name,
		Path:     path,
		FromFile: true,
	}

	body := string(data)
	if head, rest, ok := splitFrontmatter(body); ok {
		var fm frontmatter
		if err := yaml.Unmarshal([]byte(head), &fm); err != nil {
			return nil, fmt.Errorf("parse frontmatter of %s: %w", path, err)
		}
		profile.Model = fm.Model
		profile.Tools = fm.Tools
		body = rest
	}
	profile.SystemPrompt = strings.TrimSpace(body)

	return profile, nil
}

// splitFrontmatter separates a leading "---" delimited YAML block from the
// markdown body.
func splitFrontmatter(content string) (head, body string, ok bool) {
	const delim = "---"
	if !strings.HasPrefix(content, delim+"\n") {
		return "", content, false
	}
	rest := content[len(delim)+1:]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return "", content, false
	}
	head = rest[:idx]
	body = rest[idx+len(delim)+1:]
	body = strings.TrimPrefix(body, "\n")
	return head, body, true
}

// Resolve returns the profile for a task: the file-backed profile for the
// task's kind when one exists, otherwise a fallback profile built from the
// kind's built-in prompt.
func (r *Registry) Resolve(t *models.Task) *Profile {
	kind := KindForTask(t)
	stem := FileForKind(kind)

	r.mu.RLock()
	profile, ok := r.profiles[stem]
	r.mu.RUnlock()

	if ok {
		// Copy so callers cannot mutate the cache; Kind is per-task.
		p := *profile
		p.Kind = kind
		return &p
	}

	return &Profile{
		Kind:         kind,
		Name:         stem,
		SystemPrompt: FallbackPrompt(kind),
	}
}

// Names returns the stems of all file-backed profiles, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
