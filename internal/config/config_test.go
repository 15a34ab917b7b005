package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfig_Full(t *testing.T) {
	yaml := `
precedence:
  - before: Logging
    after: Caching
  - before: Caching:build
    after: Retry
introduce:
  default_policy: new
  new_names: layer
inlining: false
require_proceed: false
parallelism: 4
`
	cfg, err := ParseConfig([]byte(yaml), "weave.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Precedence) != 2 {
		t.Fatalf("expected 2 constraints, got %d", len(cfg.Precedence))
	}
	if p := cfg.Precedence[1]; p.Before != "Caching:build" || p.After != "Retry" {
		t.Errorf("precedence[1] = %+v", p)
	}
	if cfg.Introduce.DefaultPolicy != PolicyNew {
		t.Errorf("default_policy = %q, want new", cfg.Introduce.DefaultPolicy)
	}
	if cfg.Introduce.NewNames != NewNamesLayer {
		t.Errorf("new_names = %q, want layer", cfg.Introduce.NewNames)
	}
	if cfg.InliningEnabled() {
		t.Error("expected inlining to be disabled")
	}
	if cfg.ProceedRequired() {
		t.Error("expected require_proceed to be disabled")
	}
	if cfg.Parallelism != 4 {
		t.Errorf("parallelism = %d, want 4", cfg.Parallelism)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("{}"), "weave.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Introduce.DefaultPolicy != PolicyFail {
		t.Errorf("default_policy = %q, want fail", cfg.Introduce.DefaultPolicy)
	}
	if cfg.Introduce.NewNames != NewNamesCounter {
		t.Errorf("new_names = %q, want counter", cfg.Introduce.NewNames)
	}
	if !cfg.InliningEnabled() || !cfg.ProceedRequired() {
		t.Error("inlining and require_proceed default to true")
	}
	if d := Default(); d.Introduce.DefaultPolicy != PolicyFail || !d.InliningEnabled() {
		t.Errorf("Default() = %+v", d)
	}
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing after", "precedence:\n  - before: A\n", "before and after are required"},
		{"self precedence", "precedence:\n  - before: A\n    after: A\n", "cannot precede itself"},
		{"unknown policy", "introduce:\n  default_policy: merge\n", "unknown policy"},
		{"unknown naming", "introduce:\n  new_names: random\n", "unknown strategy"},
		{"negative parallelism", "parallelism: -1\n", "must not be negative"},
		{"malformed", "precedence: [", "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml), "weave.yaml")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadAndFindConfig(t *testing.T) {
	dir := t.TempDir()
	if path, err := FindConfig(dir); err != nil || path != "" {
		t.Fatalf("FindConfig on empty dir = %q, %v", path, err)
	}
	path := filepath.Join(dir, DefaultFileName)
	if err := os.WriteFile(path, []byte("parallelism: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	found, err := FindConfig(dir)
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}
	if found != path {
		t.Errorf("FindConfig = %q, want %q", found, path)
	}
	cfg, err := LoadConfig(found)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Parallelism != 2 {
		t.Errorf("parallelism = %d, want 2", cfg.Parallelism)
	}
	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}
