package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/ewilliams-labs/setforge/internal/core/domain"
	"github.com/ewilliams-labs/setforge/internal/core/ports"
	"github.com/ewilliams-labs/setforge/internal/core/sequencing"
)

// Bounds applied to caller input before it reaches the constructors.
const (
	minBeamWidth       = 1
	maxBeamWidth       = 8
	defaultBeamWidth   = 3
	defaultDriftPct    = 6.0
	defaultQueryLimit  = 10
	maxQueryLimit      = 50
	defaultTrackLength = 6 * 60
)

// Config tunes the Sequencer. Zero fields fall back to built-in defaults.
type Config struct {
	DefaultBeamWidth int
	DefaultDriftPct  float64
	Policy           *sequencing.HarmonicPolicy
}

// Sequencer loads tracks and cached analysis, builds profiles and runs the
// scoring core.
type Sequencer struct {
	tracks   ports.TrackStore
	cache    ports.AnalysisCache
	taxonomy ports.GenreTaxonomy

	beamWidth int
	driftPct  float64
	policy    sequencing.HarmonicPolicy

	resolvePath func(string) string
}

// NewSequencer constructs a Sequencer.
func NewSequencer(tracks ports.TrackStore, cache ports.AnalysisCache, taxonomy ports.GenreTaxonomy, cfg Config) *Sequencer {
	s := &Sequencer{
		tracks:      tracks,
		cache:       cache,
		taxonomy:    taxonomy,
		beamWidth:   defaultBeamWidth,
		driftPct:    defaultDriftPct,
		policy:      sequencing.DefaultHarmonicPolicy(),
		resolvePath: ResolveAudioPath,
	}
	if cfg.DefaultBeamWidth > 0 {
		s.beamWidth = clampBeamWidth(cfg.DefaultBeamWidth)
	}
	if cfg.DefaultDriftPct > 0 {
		s.driftPct = cfg.DefaultDriftPct
	}
	if cfg.Policy != nil {
		s.policy = *cfg.Policy
	}
	return s
}

// ResolveAudioPath returns raw if it exists on disk, else its percent-decoded
// form if that exists, else raw unchanged. Cache entries are keyed by the
// resolved path.
func ResolveAudioPath(raw string) string {
	if raw == "" {
		return raw
	}
	if _, err := os.Stat(raw); err == nil {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil || decoded == raw {
		return raw
	}
	if _, err := os.Stat(decoded); err == nil {
		return decoded
	}
	return raw
}

func (s *Sequencer) options(priority *sequencing.Priority, style *sequencing.HarmonicStyle, masterTempo *bool) sequencing.Options {
	opts := sequencing.Options{MasterTempo: true, Policy: &s.policy}
	if priority != nil {
		opts.Priority = *priority
	}
	if style != nil {
		opts.Style = *style
	}
	if masterTempo != nil {
		opts.MasterTempo = *masterTempo
	}
	return opts
}

// profile merges a catalog track with whatever analysis is cached for it.
// Cached JSON that no longer decodes counts as absent.
func (s *Sequencer) profile(ctx context.Context, t domain.Track) (domain.TrackProfile, error) {
	var (
		tempo *domain.TempoAnalysis
		desc  *domain.DescriptorAnalysis
	)
	if t.FilePath != "" && s.cache != nil {
		path := s.resolvePath(t.FilePath)

		raw, ok, err := s.cache.GetAnalysis(ctx, path, domain.AnalyzerTempo)
		if err != nil {
			return domain.TrackProfile{}, fmt.Errorf("service: failed to read %s analysis for %s: %w", domain.AnalyzerTempo, t.ID, err)
		}
		if ok {
			var v domain.TempoAnalysis
			if json.Unmarshal([]byte(raw.FeaturesJSON), &v) == nil {
				tempo = &v
			}
		}

		raw, ok, err = s.cache.GetAnalysis(ctx, path, domain.AnalyzerDescriptors)
		if err != nil {
			return domain.TrackProfile{}, fmt.Errorf("service: failed to read %s analysis for %s: %w", domain.AnalyzerDescriptors, t.ID, err)
		}
		if ok {
			var v domain.DescriptorAnalysis
			if json.Unmarshal([]byte(raw.FeaturesJSON), &v) == nil {
				desc = &v
			}
		}
	}
	return domain.BuildProfile(t, tempo, desc, s.taxonomy.Classify(t.Genre)), nil
}

func (s *Sequencer) loadProfile(ctx context.Context, id string) (domain.TrackProfile, error) {
	t, err := s.tracks.GetTrack(ctx, id)
	if err != nil {
		return domain.TrackProfile{}, fmt.Errorf("service: failed to load track %s: %w", id, err)
	}
	return s.profile(ctx, t)
}

func clampBeamWidth(w int) int {
	return max(minBeamWidth, min(w, maxBeamWidth))
}

// dedupIDs drops repeats and blanks while keeping first-seen order.
func dedupIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
