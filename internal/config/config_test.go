package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ewilliams-labs/setforge/internal/core/domain"
	"github.com/ewilliams-labs/setforge/internal/core/sequencing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "setforge.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: ":9090"
  shutdown_timeout: 3s
storage:
  path: /tmp/lib.db
worker:
  queue_size: 5
log:
  format: json
sequencing:
  default_beam_width: 5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" || cfg.HTTP.ShutdownTimeout != 3*time.Second {
		t.Fatalf("http section not applied: %+v", cfg.HTTP)
	}
	if cfg.HTTP.ReadHeaderTimeout != 15*time.Second {
		t.Fatalf("unset field lost its default: %v", cfg.HTTP.ReadHeaderTimeout)
	}
	if cfg.Storage.Path != "/tmp/lib.db" || cfg.Storage.Driver != "sqlite" {
		t.Fatalf("storage section: %+v", cfg.Storage)
	}
	if cfg.Worker.QueueSize != 5 || cfg.Worker.Workers != 2 {
		t.Fatalf("worker section: %+v", cfg.Worker)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Fatalf("log section: %+v", cfg.Log)
	}
	if cfg.Sequencing.DefaultBeamWidth != 5 || cfg.Sequencing.DefaultDriftPct != 6 {
		t.Fatalf("sequencing section: %+v", cfg.Sequencing)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	path := writeConfig(t, "htp:\n  addr: x\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "failed to decode") {
		t.Fatalf("expected decode error for unknown field, got %v", err)
	}
	empty := writeConfig(t, "")
	if _, err := Load(empty); err != nil {
		t.Fatalf("empty file should load defaults: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, c Config)
	}{
		{
			name: "overrides",
			env: map[string]string{
				EnvHTTPAddr: ":7000",
				EnvDBPath:   "/data/x.db",
				EnvLogLevel: "debug",
				EnvWorkers:  "8",
			},
			check: func(t *testing.T, c Config) {
				if c.HTTP.Addr != ":7000" || c.Storage.Path != "/data/x.db" || c.Log.Level != "debug" || c.Worker.Workers != 8 {
					t.Fatalf("env not applied: %+v", c)
				}
			},
		},
		{
			name: "invalid workers keep default",
			env:  map[string]string{EnvWorkers: "many"},
			check: func(t *testing.T, c Config) {
				if c.Worker.Workers != 2 {
					t.Fatalf("workers = %d", c.Worker.Workers)
				}
			},
		},
		{
			name: "non-positive workers keep default",
			env:  map[string]string{EnvWorkers: "0"},
			check: func(t *testing.T, c Config) {
				if c.Worker.Workers != 2 {
					t.Fatalf("workers = %d", c.Worker.Workers)
				}
			},
		},
		{
			name: "blank values ignored",
			env:  map[string]string{EnvHTTPAddr: "  "},
			check: func(t *testing.T, c Config) {
				if c.HTTP.Addr != ":8080" {
					t.Fatalf("addr = %q", c.HTTP.Addr)
				}
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.applyEnv(func(k string) string { return tc.env[k] })
			tc.check(t, cfg)
		})
	}
}

func TestSequencingConfig_HarmonicPolicy(t *testing.T) {
	factor := 0.25
	s := SequencingConfig{Harmonic: []HarmonicOverride{
		{
			Style:      "adventurous",
			Factor:     &factor,
			Thresholds: map[string]float64{"peak": 0.3, "none": 0.2},
		},
	}}
	policy, err := s.HarmonicPolicy()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	peak := domain.PhasePeak
	build := domain.PhaseBuild
	if got := policy.Factor(sequencing.StyleAdventurous); got != 0.25 {
		t.Fatalf("factor = %v", got)
	}
	if got := policy.Threshold(sequencing.StyleAdventurous, &peak); got != 0.3 {
		t.Fatalf("peak threshold = %v", got)
	}
	if got := policy.Threshold(sequencing.StyleAdventurous, nil); got != 0.2 {
		t.Fatalf("no-phase threshold = %v", got)
	}
	if got := policy.Threshold(sequencing.StyleAdventurous, &build); got != 0.1 {
		t.Fatalf("untouched threshold = %v", got)
	}

	bad := []SequencingConfig{
		{Harmonic: []HarmonicOverride{{Style: "wild"}}},
		{Harmonic: []HarmonicOverride{{Style: "balanced", Thresholds: map[string]float64{"drop": 0.5}}}},
		{Harmonic: []HarmonicOverride{{Style: "balanced", Thresholds: map[string]float64{"peak": 1.5}}}},
	}
	for i, cfg := range bad {
		if _, err := cfg.HarmonicPolicy(); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
