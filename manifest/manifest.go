// Package manifest handles intcode.toml configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/intcode/console"
	"github.com/chazu/intcode/vm"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "intcode.toml"

// Manifest represents an intcode.toml configuration.
type Manifest struct {
	Machine Machine `toml:"machine"`
	Console Console `toml:"console"`
	Server  Server  `toml:"server"`
	History History `toml:"history"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the intcode.toml file (set at load time).
	Dir string `toml:"-"`
}

// Machine configures every run.
type Machine struct {
	StartPC  int    `toml:"start-pc"`
	Overflow string `toml:"overflow"`
	MaxSteps uint64 `toml:"max-steps"`
	Trace    bool   `toml:"trace"`
}

// Console configures the interactive input/output adapters.
type Console struct {
	Prompt       string `toml:"prompt"`
	OutputPrefix string `toml:"output-prefix"`
}

// Server configures the RPC server.
type Server struct {
	Addr          string `toml:"addr"`
	GRPCAddr      string `toml:"grpc-addr"`
	MaxConcurrent int    `toml:"max-concurrent"`
	MaxSessions   int    `toml:"max-sessions"`
	MaxSteps      uint64 `toml:"max-steps"`
}

// History configures the run history database.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

// Default returns the configuration used when no intcode.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Machine.Overflow == "" {
		m.Machine.Overflow = vm.OverflowCheck.String()
	}
	if m.Console.Prompt == "" {
		m.Console.Prompt = console.DefaultPrompt
	}
	if m.Console.OutputPrefix == "" {
		m.Console.OutputPrefix = console.DefaultOutputPrefix
	}
	if m.Server.Addr == "" {
		m.Server.Addr = ":4568"
	}
	if m.Server.MaxConcurrent == 0 {
		m.Server.MaxConcurrent = 8
	}
	if m.Server.MaxSessions == 0 {
		m.Server.MaxSessions = 64
	}
	if m.Server.MaxSteps == 0 {
		m.Server.MaxSteps = 10_000_000
	}
	if m.History.Path == "" {
		m.History.Path = filepath.Join(".intcode", "history.db")
	}
}

// Load parses an intcode.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find an intcode.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// HistoryPath returns the history database path, resolved against Dir.
func (m *Manifest) HistoryPath() string {
	if filepath.IsAbs(m.History.Path) || m.Dir == "" {
		return m.History.Path
	}
	return filepath.Join(m.Dir, m.History.Path)
}

// OverflowPolicy returns the configured overflow policy.
func (m *Manifest) OverflowPolicy() (vm.OverflowPolicy, error) {
	return vm.ParseOverflowPolicy(m.Machine.Overflow)
}

// MachineOptions translates the [machine] section into vm options.
func (m *Manifest) MachineOptions() ([]vm.Option, error) {
	policy, err := m.OverflowPolicy()
	if err != nil {
		return nil, err
	}
	return []vm.Option{
		vm.WithStartPC(m.Machine.StartPC),
		vm.WithOverflow(policy),
		vm.WithMaxSteps(m.Machine.MaxSteps),
		vm.WithTrace(m.Machine.Trace),
	}, nil
}
