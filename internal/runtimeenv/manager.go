// Package runtimeenv locates the OCR runtime interpreter and caches whether
// it can actually run the recognition engine.
package runtimeenv

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/coverscan/internal/models"
	"github.com/lehigh-university-libraries/coverscan/internal/procexec"
)

// State of the runtime check cache.
type State int

const (
	Unchecked State = iota
	Checking
	Valid
	Invalid
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "unchecked"
	}
}

// Options configures a Manager.
type Options struct {
	// Command is the bare fallback command, python3 by default.
	Command string
	// PythonPath is an explicit interpreter path checked before any venv.
	PythonPath string
	// SmokeModule is imported by the smoke check, easyocr by default.
	SmokeModule string
	// WorkDir anchors the virtualenv candidates, the process cwd by default.
	WorkDir string
	// Timeout bounds one smoke check.
	Timeout time.Duration
}

// CheckResult reports one smoke check.
type CheckResult struct {
	Success     bool   `json:"success" yaml:"success"`
	Cached      bool   `json:"cached" yaml:"cached"`
	CommandPath string `json:"command_path" yaml:"command_path"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Details     string `json:"details,omitempty" yaml:"details,omitempty"`
}

// Manager owns the resolved command path and the last check verdict.
type Manager struct {
	opts   Options
	runner procexec.Runner
	stat   func(string) (os.FileInfo, error)

	mu       sync.Mutex
	state    State
	resolved string
	last     CheckResult
	inflight chan struct{}
}

// NewManager creates a manager in the Unchecked state.
func NewManager(runner procexec.Runner, opts Options) *Manager {
	if opts.Command == "" {
		opts.Command = "python3"
	}
	if opts.SmokeModule == "" {
		opts.SmokeModule = "easyocr"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.WorkDir == "" {
		if wd, err := os.Getwd(); err == nil {
			opts.WorkDir = wd
		}
	}
	return &Manager{
		opts:   opts,
		runner: runner,
		stat:   os.Stat,
	}
}

// SetStat replaces the file existence probe used by ResolveCommand.
func (m *Manager) SetStat(stat func(string) (os.FileInfo, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stat = stat
}

// Candidates lists the interpreter locations in resolution order.
func (m *Manager) Candidates() []string {
	var candidates []string
	if m.opts.PythonPath != "" {
		candidates = append(candidates, m.opts.PythonPath)
	}
	for _, rel := range []string{
		filepath.Join(".venv", "bin", "python"),
		filepath.Join("venv", "bin", "python"),
		filepath.Join(".venv", "Scripts", "python.exe"),
		filepath.Join("venv", "Scripts", "python.exe"),
	} {
		candidates = append(candidates, filepath.Join(m.opts.WorkDir, rel))
	}
	return candidates
}

// ResolveCommand returns the first existing candidate, or the bare command.
// The answer is cached until ResetCache.
func (m *Manager) ResolveCommand() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveLocked()
}

func (m *Manager) resolveLocked() string {
	if m.resolved != "" {
		return m.resolved
	}
	m.resolved = m.opts.Command
	for _, candidate := range m.Candidates() {
		if info, err := m.stat(candidate); err == nil && !info.IsDir() {
			m.resolved = candidate
			break
		}
	}
	slog.Debug("Resolved OCR runtime", "command", m.resolved)
	return m.resolved
}

// CheckEnvironment runs the smoke check. Without force, a previous verdict
// is returned as is and no process is spawned. Concurrent callers share one
// smoke process.
func (m *Manager) CheckEnvironment(ctx context.Context, force bool) CheckResult {
	for {
		m.mu.Lock()
		if !force && (m.state == Valid || m.state == Invalid) {
			res := m.last
			res.Cached = true
			m.mu.Unlock()
			return res
		}
		if m.state != Checking {
			break
		}
		wait := m.inflight
		m.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return CheckResult{CommandPath: m.ResolveCommand(), Details: ctx.Err().Error()}
		}
		// a check that finished while we waited satisfies a forced request too
		force = false
	}

	command := m.resolveLocked()
	m.state = Checking
	done := make(chan struct{})
	m.inflight = done
	m.mu.Unlock()

	// waiters share this verdict, so one caller giving up must not fail it
	res := m.smoke(context.WithoutCancel(ctx), command)

	m.mu.Lock()
	if res.Success {
		m.state = Valid
	} else {
		m.state = Invalid
	}
	m.last = res
	m.inflight = nil
	close(done)
	m.mu.Unlock()

	return res
}

func (m *Manager) smoke(ctx context.Context, command string) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	script := fmt.Sprintf("import %s; import sys; print(sys.version)", m.opts.SmokeModule)
	out := m.runner.Run(ctx, procexec.Command{Name: command, Args: []string{"-c", script}})

	res := CheckResult{CommandPath: command}
	switch {
	case out.StartErr != nil:
		res.Details = fmt.Sprintf("failed to start %s: %v", command, out.StartErr)
	case out.ExitCode != 0:
		res.Details = strings.TrimSpace(string(out.Stderr))
		if res.Details == "" {
			res.Details = fmt.Sprintf("%s exited with code %d", command, out.ExitCode)
		}
	default:
		res.Success = true
		res.Version = strings.TrimSpace(string(out.Stdout))
	}

	if res.Success {
		slog.Info("OCR runtime available", "command", command, "version", res.Version)
	} else {
		slog.Warn("OCR runtime unavailable", "command", command, "details", res.Details)
	}
	return res
}

// ResetCache forgets the verdict and the resolved command.
func (m *Manager) ResetCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Checking {
		// the in-flight check will publish its verdict; only the path is dropped
		m.resolved = ""
		return
	}
	m.state = Unchecked
	m.resolved = ""
	m.last = CheckResult{}
}

// State returns the current cache state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Health snapshots the cache without running anything.
func (m *Manager) Health() models.RuntimeHealth {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.RuntimeHealth{
		Checked:     m.state == Valid || m.state == Invalid,
		Valid:       m.state == Valid,
		CommandPath: m.resolved,
	}
}
