// Package config loads process settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ewilliams-labs/setforge/internal/core/domain"
	"github.com/ewilliams-labs/setforge/internal/core/sequencing"
	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvHTTPAddr = "SETFORGE_HTTP_ADDR"
	EnvDBPath   = "SETFORGE_DB_PATH"
	EnvLogLevel = "SETFORGE_LOG_LEVEL"
	EnvWorkers  = "SETFORGE_WORKERS"
)

type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Storage    StorageConfig    `yaml:"storage"`
	Taxonomy   TaxonomyConfig   `yaml:"taxonomy"`
	Worker     WorkerConfig     `yaml:"worker"`
	Log        LogConfig        `yaml:"log"`
	Sequencing SequencingConfig `yaml:"sequencing"`
}

type HTTPConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// TaxonomyConfig.Path replaces the built-in genre table when set.
type TaxonomyConfig struct {
	Path string `yaml:"path"`
}

type WorkerConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SequencingConfig sets service defaults and harmonic policy overrides.
type SequencingConfig struct {
	DefaultBeamWidth int                `yaml:"default_beam_width"`
	DefaultDriftPct  float64            `yaml:"default_drift_pct"`
	Harmonic         []HarmonicOverride `yaml:"harmonic"`
}

// HarmonicOverride changes one style's factor and, per phase, its
// threshold. The phase key "none" addresses the no-phase slot.
type HarmonicOverride struct {
	Style      string             `yaml:"style"`
	Factor     *float64           `yaml:"factor"`
	Thresholds map[string]float64 `yaml:"thresholds"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Storage: StorageConfig{Driver: "sqlite", Path: "setforge.db"},
		Worker:  WorkerConfig{Workers: 2, QueueSize: 100},
		Log:     LogConfig{Level: "info", Format: "text"},
		Sequencing: SequencingConfig{
			DefaultBeamWidth: 3,
			DefaultDriftPct:  6,
		},
	}
}

// Load reads path (when non-empty) over the defaults, then applies the
// environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: failed to open %s: %w", path, err)
		}
		defer f.Close()
		if err := decode(f, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: failed to decode: %w", err)
	}
	return nil
}

// applyEnv overlays environment values. Unparseable numbers keep the
// current value.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvHTTPAddr)); v != "" {
		c.HTTP.Addr = v
	}
	if v := strings.TrimSpace(getenv(EnvDBPath)); v != "" {
		c.Storage.Path = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
	if v := strings.TrimSpace(getenv(EnvWorkers)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Worker.Workers = n
		}
	}
}

// HarmonicPolicy applies the overrides to the default policy.
func (s SequencingConfig) HarmonicPolicy() (sequencing.HarmonicPolicy, error) {
	policy := sequencing.DefaultHarmonicPolicy()
	for _, o := range s.Harmonic {
		style, err := sequencing.ParseHarmonicStyle(o.Style)
		if err != nil {
			return sequencing.HarmonicPolicy{}, fmt.Errorf("config: harmonic: %w", err)
		}
		if o.Factor != nil {
			if policy, err = policy.WithFactor(style, *o.Factor); err != nil {
				return sequencing.HarmonicPolicy{}, fmt.Errorf("config: harmonic %s: %w", o.Style, err)
			}
		}
		for name, threshold := range o.Thresholds {
			var phase *domain.EnergyPhase
			if !strings.EqualFold(strings.TrimSpace(name), "none") {
				p, err := domain.ParseEnergyPhase(name)
				if err != nil {
					return sequencing.HarmonicPolicy{}, fmt.Errorf("config: harmonic %s: %w", o.Style, err)
				}
				phase = &p
			}
			if policy, err = policy.WithThreshold(style, phase, threshold); err != nil {
				return sequencing.HarmonicPolicy{}, fmt.Errorf("config: harmonic %s: %w", o.Style, err)
			}
		}
	}
	return policy, nil
}
