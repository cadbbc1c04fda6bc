package driver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/hourmaster/proto"
)

// Manifest is a plugin descriptor: a YAML file listing the triggers the
// like-named executable wants to fire on.
type Manifest struct {
	Triggers []string `yaml:"triggers"`
	Enabled  *bool    `yaml:"enabled"`
}

// DiscoverPlugins scans dir for *.yaml / *.yml descriptors and pairs each
// with an executable of the same name (extension stripped). Disabled,
// malformed or unpaired descriptors are skipped with a warning; only a
// missing directory is an error.
func DiscoverPlugins(dir string, log *slog.Logger) ([]*ExecTarget, error) {
	if log == nil {
		log = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read plugins directory %s: %w", dir, err)
	}

	var targets []*ExecTarget
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		manifestPath := filepath.Join(dir, entry.Name())
		execPath := strings.TrimSuffix(manifestPath, ext)

		target, err := loadPlugin(manifestPath, execPath)
		if err != nil {
			log.Warn("skipping plugin", "manifest", manifestPath, "error", err)
			continue
		}
		if target == nil {
			log.Info("plugin disabled", "manifest", manifestPath)
			continue
		}
		log.Debug("discovered plugin", "name", target.Name(), "triggers", len(target.triggers))
		targets = append(targets, target)
	}
	return targets, nil
}

// loadPlugin parses one manifest. A nil, nil return means "valid but
// disabled".
func loadPlugin(manifestPath, execPath string) (*ExecTarget, error) {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Enabled != nil && !*m.Enabled {
		return nil, nil
	}
	if len(m.Triggers) == 0 {
		return nil, fmt.Errorf("manifest lists no triggers")
	}

	triggers := make([]proto.Trigger, 0, len(m.Triggers))
	for _, raw := range m.Triggers {
		t, err := proto.ParseTrigger(raw)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, t)
	}

	info, err := os.Stat(execPath)
	if err != nil {
		return nil, fmt.Errorf("no executable next to manifest: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, expected an executable", execPath)
	}

	return NewExecTarget(execPath, triggers), nil
}

// runFunc executes a command and returns its error; injectable in tests.
type runFunc func(ctx context.Context, path string, args []string) error

// ExecTarget invokes an external executable with three positional
// arguments: the trigger's discriminant name, the hour's accounted minutes
// and its debt, both as decimal text. Exit code 0 is success.
type ExecTarget struct {
	path     string
	triggers []proto.Trigger
	run      runFunc
}

// NewExecTarget builds a target for the executable at path.
func NewExecTarget(path string, triggers []proto.Trigger) *ExecTarget {
	return &ExecTarget{
		path:     path,
		triggers: triggers,
		run: func(ctx context.Context, path string, args []string) error {
			cmd := exec.CommandContext(ctx, path, args...)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			return cmd.Run()
		},
	}
}

// Name returns the executable's base name.
func (t *ExecTarget) Name() string { return filepath.Base(t.path) }

// Path returns the executable path.
func (t *ExecTarget) Path() string { return t.path }

// Triggers returns the trigger set from the manifest.
func (t *ExecTarget) Triggers() []proto.Trigger { return t.triggers }

// Invoke launches the executable. A non-zero exit, launch failure or
// timeout comes back as an error for the driver to log and isolate.
func (t *ExecTarget) Invoke(ctx context.Context, trigger proto.Trigger, hour proto.HourSummary) error {
	args := []string{
		string(trigger),
		strconv.Itoa(hour.AccountedActiveMinutes),
		strconv.Itoa(hour.Debt),
	}
	if err := t.run(ctx, t.path, args); err != nil {
		return fmt.Errorf("run %s: %w", t.path, err)
	}
	return nil
}
