// Package hooks runs user commands around snapshot exports. Hooks are read
// from hooks.yaml in the casegraph config directory and run before the
// snapshots are written (pre-export) and after they are (post-export).
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/casegraph/pkg/config"
)

// Phase is when a hook runs.
type Phase string

const (
	// PreExport runs before any snapshot is written. Failure cancels the
	// export by default.
	PreExport Phase = "pre-export"
	// PostExport runs after every snapshot is written. Failure is reported
	// but the files stay.
	PostExport Phase = "post-export"
)

// OnError values.
const (
	OnErrorFail     = "fail"
	OnErrorContinue = "continue"
)

// DefaultTimeout bounds a hook without an explicit timeout.
const DefaultTimeout = 30 * time.Second

// Hook is one configured command.
type Hook struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"` // run with sh -c
	Timeout time.Duration     `yaml:"timeout,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"` // values may reference $VARS
	OnError string            `yaml:"on_error,omitempty"`
}

// Config is the hooks.yaml document.
type Config struct {
	Hooks ByPhase `yaml:"hooks"`
}

// ByPhase groups hooks by phase.
type ByPhase struct {
	PreExport  []Hook `yaml:"pre-export,omitempty"`
	PostExport []Hook `yaml:"post-export,omitempty"`
}

// Get returns the hooks of phase p.
func (c Config) Get(p Phase) []Hook {
	switch p {
	case PreExport:
		return c.Hooks.PreExport
	case PostExport:
		return c.Hooks.PostExport
	}
	return nil
}

// Empty reports whether no hooks are configured.
func (c Config) Empty() bool {
	return len(c.Hooks.PreExport) == 0 && len(c.Hooks.PostExport) == 0
}

// ExportContext describes the export to the hook commands.
type ExportContext struct {
	Paths     []string
	Formats   []string
	Nodes     int
	Edges     int
	Timestamp time.Time
}

// ToEnv renders the context as CG_* environment entries. Lists are
// comma-separated, matching the --export flag.
func (c ExportContext) ToEnv() []string {
	return []string{
		"CG_EXPORT_PATHS=" + strings.Join(c.Paths, ","),
		"CG_EXPORT_FORMATS=" + strings.Join(c.Formats, ","),
		"CG_NODE_COUNT=" + strconv.Itoa(c.Nodes),
		"CG_EDGE_COUNT=" + strconv.Itoa(c.Edges),
		"CG_TIMESTAMP=" + c.Timestamp.UTC().Format(time.RFC3339),
	}
}

// DefaultPath is hooks.yaml next to the user config file.
func DefaultPath() string {
	dir := config.ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "hooks.yaml")
}

// Load reads hooks from path. A missing file is an empty config. The
// returned warnings name hooks that were skipped.
func Load(path string) (Config, []string, error) {
	if path == "" {
		return Config{}, nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil, nil
		}
		return Config{}, nil, fmt.Errorf("reading hooks config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	var warnings []string
	cfg.Hooks.PreExport, warnings = normalize(cfg.Hooks.PreExport, PreExport, warnings)
	cfg.Hooks.PostExport, warnings = normalize(cfg.Hooks.PostExport, PostExport, warnings)
	return cfg, warnings, nil
}

// normalize fills defaults and drops hooks without a command.
func normalize(hooks []Hook, phase Phase, warnings []string) ([]Hook, []string) {
	var out []Hook
	for i, h := range hooks {
		if strings.TrimSpace(h.Command) == "" {
			warnings = append(warnings, fmt.Sprintf("%s hook %d has no command; skipping", phase, i+1))
			continue
		}
		if h.Timeout <= 0 {
			h.Timeout = DefaultTimeout
		}
		switch h.OnError {
		case OnErrorFail, OnErrorContinue:
		case "":
			h.OnError = OnErrorContinue
			if phase == PreExport {
				h.OnError = OnErrorFail
			}
		default:
			warnings = append(warnings, fmt.Sprintf("%s hook %d: unknown on_error %q, using %q", phase, i+1, h.OnError, OnErrorFail))
			h.OnError = OnErrorFail
		}
		if h.Name == "" {
			h.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		out = append(out, h)
	}
	return out, warnings
}

// UnmarshalYAML accepts timeouts as durations ("5s") or bare seconds.
// The DTO mirrors Hook with Timeout as a string.
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	var dto struct {
		Name    string            `yaml:"name"`
		Command string            `yaml:"command"`
		Timeout string            `yaml:"timeout,omitempty"`
		Env     map[string]string `yaml:"env,omitempty"`
		OnError string            `yaml:"on_error,omitempty"`
	}
	if err := node.Decode(&dto); err != nil {
		return err
	}
	*h = Hook{Name: dto.Name, Command: dto.Command, Env: dto.Env, OnError: dto.OnError}
	if dto.Timeout == "" {
		return nil
	}
	if d, err := time.ParseDuration(dto.Timeout); err == nil {
		h.Timeout = d
		return nil
	}
	secs, err := strconv.ParseFloat(dto.Timeout, 64)
	if err != nil {
		return fmt.Errorf("invalid timeout %q", dto.Timeout)
	}
	h.Timeout = time.Duration(secs * float64(time.Second))
	return nil
}
