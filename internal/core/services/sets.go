package services

import (
	"context"
	"fmt"
	"math"

	"github.com/ewilliams-labs/setforge/internal/core/domain"
	"github.com/ewilliams-labs/setforge/internal/core/sequencing"
)

// BuildSetRequest asks for up to BeamWidth candidate sets over a track pool.
// Candidates is the older name for BeamWidth; BeamWidth wins when both are
// set. BPMRange is the [start, end] tempo the trajectory plans between.
type BuildSetRequest struct {
	TrackIDs       []string                  `json:"track_ids"`
	TargetTracks   int                       `json:"target_tracks"`
	Priority       *sequencing.Priority      `json:"priority,omitempty"`
	EnergyCurve    *domain.EnergyCurve       `json:"energy_curve,omitempty"`
	OpeningTrackID string                    `json:"start_track_id,omitempty"`
	Candidates     *int                      `json:"candidates,omitempty"`
	BeamWidth      *int                      `json:"beam_width,omitempty"`
	MasterTempo    *bool                     `json:"master_tempo,omitempty"`
	HarmonicStyle  *sequencing.HarmonicStyle `json:"harmonic_style,omitempty"`
	BPMDriftPct    *float64                  `json:"bpm_drift_pct,omitempty"`
	BPMRange       *[2]float64               `json:"bpm_range,omitempty"`
}

// SetTrack is one position of a candidate set.
type SetTrack struct {
	TrackView
	PlayAtBPM          *float64 `json:"play_at_bpm,omitempty"`
	PitchAdjustmentPct *float64 `json:"pitch_adjustment_pct,omitempty"`
	EffectiveKey       string   `json:"effective_key,omitempty"`
}

// SetTransition is one scored step of a candidate set.
type SetTransition struct {
	FromIndex           int        `json:"from_index"`
	ToIndex             int        `json:"to_index"`
	Scores              ScoresView `json:"scores"`
	KeyRelation         string     `json:"key_relation"`
	BPMAdjustmentPct    float64    `json:"bpm_adjustment_pct"`
	EffectiveToKey      string     `json:"effective_to_key,omitempty"`
	PitchShiftSemitones int        `json:"pitch_shift_semitones,omitempty"`
}

// CandidateSet is one labelled ordering.
type CandidateSet struct {
	ID                       string          `json:"id"`
	Tracks                   []SetTrack      `json:"tracks"`
	Transitions              []SetTransition `json:"transitions"`
	SetScore                 float64         `json:"set_score"`
	EstimatedDurationMinutes int             `json:"estimated_duration_minutes"`
	BPMTrajectory            []float64       `json:"bpm_trajectory,omitempty"`
}

// BuildSetResult holds every candidate set plus request-level facts.
type BuildSetResult struct {
	Candidates    []CandidateSet `json:"candidates"`
	PoolSize      int            `json:"pool_size"`
	TracksUsed    int            `json:"tracks_used"`
	BeamWidth     int            `json:"beam_width"`
	BPMTrajectory []float64      `json:"bpm_trajectory,omitempty"`
}

// BuildSet sequences the pool into candidate sets.
func (s *Sequencer) BuildSet(ctx context.Context, req BuildSetRequest) (BuildSetResult, error) {
	if len(req.TrackIDs) == 0 {
		return BuildSetResult{}, domain.NewValidationError("track_ids must include at least one track")
	}
	if req.TargetTracks < 1 {
		return BuildSetResult{}, domain.NewValidationError("target_tracks must be at least 1")
	}
	ids := dedupIDs(req.TrackIDs)
	if len(ids) == 0 {
		return BuildSetResult{}, domain.NewValidationError("track_ids must include at least one unique track ID")
	}
	if req.BPMDriftPct != nil && *req.BPMDriftPct < 0 {
		return BuildSetResult{}, domain.NewValidationError("bpm_drift_pct must not be negative")
	}
	if req.BPMRange != nil && (req.BPMRange[0] <= 0 || req.BPMRange[1] <= 0) {
		return BuildSetResult{}, domain.NewValidationError("bpm_range values must be positive")
	}

	width := s.beamWidth
	switch {
	case req.BeamWidth != nil:
		width = clampBeamWidth(*req.BeamWidth)
	case req.Candidates != nil:
		width = clampBeamWidth(*req.Candidates)
	}

	tracks, err := s.tracks.GetTracksByIDs(ctx, ids)
	if err != nil {
		return BuildSetResult{}, fmt.Errorf("service: failed to load tracks: %w", err)
	}
	if len(tracks) == 0 {
		return BuildSetResult{}, domain.NewValidationError("no valid tracks found for provided track_ids")
	}
	profiles := make([]domain.TrackProfile, 0, len(tracks))
	for _, t := range tracks {
		p, err := s.profile(ctx, t)
		if err != nil {
			return BuildSetResult{}, err
		}
		profiles = append(profiles, p)
	}
	pool := sequencing.NewPool(profiles)

	if req.OpeningTrackID != "" {
		if _, ok := pool.Profile(req.OpeningTrackID); !ok {
			return BuildSetResult{}, domain.NewValidationError("opening_track_id '%s' is not in track_ids", req.OpeningTrackID)
		}
	}

	target := min(req.TargetTracks, pool.Len())
	phases, err := s.phases(req.EnergyCurve, req.TargetTracks, target)
	if err != nil {
		return BuildSetResult{}, err
	}

	var trajectory []float64
	if req.BPMRange != nil {
		trajectory = domain.ComputeBPMTrajectory(phases, req.BPMRange[0], req.BPMRange[1])
	}

	drift := s.driftPct
	if req.BPMDriftPct != nil {
		drift = *req.BPMDriftPct
	}
	opts := s.options(req.Priority, req.HarmonicStyle, req.MasterTempo)

	plans, err := sequencing.BuildCandidateSets(pool, sequencing.SetConfig{
		BuildConfig: sequencing.BuildConfig{
			TargetTracks: target,
			Phases:       phases,
			Trajectory:   trajectory,
			DriftPct:     drift,
			Options:      opts,
		},
		BeamWidth:      width,
		OpeningTrackID: req.OpeningTrackID,
	})
	if err != nil {
		return BuildSetResult{}, err
	}

	result := BuildSetResult{
		Candidates:    make([]CandidateSet, 0, len(plans)),
		PoolSize:      pool.Len(),
		TracksUsed:    target,
		BeamWidth:     width,
		BPMTrajectory: roundAll(trajectory),
	}
	for i, plan := range plans {
		result.Candidates = append(result.Candidates, renderSet(pool, plan, i, trajectory, opts.MasterTempo))
	}
	return result, nil
}

// phases resolves the curve. A custom curve must match the requested length
// and is cut down when the pool is smaller; presets are laid over the
// tracks actually used.
func (s *Sequencer) phases(curve *domain.EnergyCurve, requested, used int) ([]domain.EnergyPhase, error) {
	if curve != nil && curve.IsCustom() {
		all, err := domain.ResolveEnergyCurve(curve, requested)
		if err != nil {
			return nil, err
		}
		return all[:used], nil
	}
	return domain.ResolveEnergyCurve(curve, used)
}

func renderSet(pool *sequencing.Pool, plan sequencing.CandidatePlan, index int, trajectory []float64, masterTempo bool) CandidateSet {
	set := CandidateSet{
		ID:            setLabel(index),
		Tracks:        make([]SetTrack, 0, len(plan.OrderedIDs)),
		Transitions:   make([]SetTransition, 0, len(plan.Transitions)),
		SetScore:      plan.SetScore(),
		BPMTrajectory: roundAll(trajectory),
	}

	seconds := 0
	for pos, id := range plan.OrderedIDs {
		p, ok := pool.Profile(id)
		if !ok {
			continue
		}
		if p.Track.Length > 0 {
			seconds += p.Track.Length
		} else {
			seconds += defaultTrackLength
		}

		st := SetTrack{TrackView: newTrackView(p)}
		st.BPM = p.BPM
		st.Energy = p.Energy
		if pos < len(trajectory) {
			play := trajectory[pos]
			rounded := sequencing.Round3(play)
			pct := 0.0
			if p.BPM > 0 {
				pct = math.Abs(play-p.BPM) / p.BPM * 100
			}
			pct = sequencing.Round3(pct)
			st.PlayAtBPM = &rounded
			st.PitchAdjustmentPct = &pct
			if !masterTempo && p.BPM > 0 && p.CamelotKey != nil {
				if shift := int(math.Round(12 * math.Log2(play/p.BPM))); shift != 0 {
					st.EffectiveKey = p.CamelotKey.Transpose(shift).String()
				}
			}
		}
		set.Tracks = append(set.Tracks, st)
	}
	set.EstimatedDurationMinutes = int(math.Round(float64(seconds) / 60))

	for _, t := range plan.Transitions {
		set.Transitions = append(set.Transitions, SetTransition{
			FromIndex:           t.FromIndex,
			ToIndex:             t.ToIndex,
			Scores:              newScoresView(t.Scores),
			KeyRelation:         t.Scores.KeyRelation,
			BPMAdjustmentPct:    sequencing.Round3(t.Scores.BPMAdjustmentPct),
			EffectiveToKey:      effectiveKeyString(t.Scores.EffectiveToKey),
			PitchShiftSemitones: t.Scores.PitchShiftSemitones,
		})
	}
	return set
}

// setLabel names candidates A, B, C…
func setLabel(i int) string {
	return string(rune('A' + i))
}

func roundAll(values []float64) []float64 {
	if values == nil {
		return nil
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = sequencing.Round3(v)
	}
	return out
}
