// Package config holds the weaver's naming constants and the weave.yaml
// configuration: precedence constraints between aspects, the introduction
// conflict policy, and switches for inlining and discard-safety.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level weave.yaml configuration.
type Config struct {
	// Precedence lists pairwise ordering constraints. Before runs first, so
	// it is the outer layer. Either end names an aspect ("Logging") or one
	// of its layers ("Logging:build").
	Precedence []Precedence `yaml:"precedence,omitempty"`

	Introduce Introduce `yaml:"introduce,omitempty"`

	// Inlining splices single-use links into their caller. Disabled, every
	// link is emitted as a helper member.
	Inlining *bool `yaml:"inlining,omitempty"`

	// RequireProceed makes a template that never proceeds still run the inner
	// chain once. Disabled, the inner chain of such a template is dropped.
	RequireProceed *bool `yaml:"require_proceed,omitempty"`

	// Parallelism bounds concurrent declaration weaving; 0 uses GOMAXPROCS.
	Parallelism int `yaml:"parallelism,omitempty"`
}

type Precedence struct {
	Before string `yaml:"before"`
	After  string `yaml:"after"`
}

// Introduce configures what happens when an introduced member collides with
// an existing one.
type Introduce struct {
	// DefaultPolicy applies to introductions that do not carry their own:
	// fail, new, override or ignore. Defaults to fail.
	DefaultPolicy string `yaml:"default_policy,omitempty"`

	// NewNames picks how the "new" policy names the introduced member:
	// counter (Name_1, Name_2) or layer (Name_<Aspect>). Defaults to counter.
	NewNames string `yaml:"new_names,omitempty"`
}

const (
	PolicyFail     = "fail"
	PolicyNew      = "new"
	PolicyOverride = "override"
	PolicyIgnore   = "ignore"

	NewNamesCounter = "counter"
	NewNamesLayer   = "layer"
)

// Default returns the configuration used when no weave.yaml exists.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses a weave.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses weave.yaml content from bytes.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig looks for weave.yaml in dir. It returns an empty path and nil
// error when there is none.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for _, name := range []string{DefaultFileName, strings.TrimSuffix(DefaultFileName, ".yaml") + ".yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

func (c *Config) validate(path string) error {
	for i, p := range c.Precedence {
		if p.Before == "" || p.After == "" {
			return fmt.Errorf("%s: precedence[%d]: before and after are required", path, i)
		}
		if p.Before == p.After {
			return fmt.Errorf("%s: precedence[%d]: %s cannot precede itself", path, i, p.Before)
		}
	}
	switch c.Introduce.DefaultPolicy {
	case "", PolicyFail, PolicyNew, PolicyOverride, PolicyIgnore:
	default:
		return fmt.Errorf("%s: introduce.default_policy: unknown policy %q (want fail, new, override or ignore)",
			path, c.Introduce.DefaultPolicy)
	}
	switch c.Introduce.NewNames {
	case "", NewNamesCounter, NewNamesLayer:
	default:
		return fmt.Errorf("%s: introduce.new_names: unknown strategy %q (want counter or layer)",
			path, c.Introduce.NewNames)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("%s: parallelism must not be negative", path)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Introduce.DefaultPolicy == "" {
		c.Introduce.DefaultPolicy = PolicyFail
	}
	if c.Introduce.NewNames == "" {
		c.Introduce.NewNames = NewNamesCounter
	}
	if c.Inlining == nil {
		on := true
		c.Inlining = &on
	}
	if c.RequireProceed == nil {
		on := true
		c.RequireProceed = &on
	}
}

// InliningEnabled reports the effective inlining switch.
func (c *Config) InliningEnabled() bool {
	return c.Inlining == nil || *c.Inlining
}

// ProceedRequired reports the effective discard-safety switch.
func (c *Config) ProceedRequired() bool {
	return c.RequireProceed == nil || *c.RequireProceed
}
