package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/ewilliams-labs/setforge/internal/core/domain"
	"github.com/ewilliams-labs/setforge/internal/core/sequencing"
)

// ScoreTransitionRequest asks for the breakdown of one from→to mix.
type ScoreTransitionRequest struct {
	FromTrackID   string                    `json:"from_track_id"`
	ToTrackID     string                    `json:"to_track_id"`
	EnergyPhase   *domain.EnergyPhase       `json:"energy_phase,omitempty"`
	Priority      *sequencing.Priority      `json:"priority,omitempty"`
	MasterTempo   *bool                     `json:"master_tempo,omitempty"`
	HarmonicStyle *sequencing.HarmonicStyle `json:"harmonic_style,omitempty"`
}

// ScoreTransitionResult is the scored pair.
type ScoreTransitionResult struct {
	From                TrackView  `json:"from"`
	To                  TrackView  `json:"to"`
	Scores              ScoresView `json:"scores"`
	KeyRelation         string     `json:"key_relation"`
	BPMAdjustmentPct    float64    `json:"bpm_adjustment_pct"`
	EffectiveToKey      string     `json:"effective_to_key,omitempty"`
	PitchShiftSemitones int        `json:"pitch_shift_semitones,omitempty"`
}

// ScoreTransition scores a single transition. The requested energy phase is
// used for both ends.
func (s *Sequencer) ScoreTransition(ctx context.Context, req ScoreTransitionRequest) (ScoreTransitionResult, error) {
	if req.FromTrackID == "" || req.ToTrackID == "" {
		return ScoreTransitionResult{}, domain.NewValidationError("from_track_id and to_track_id are required")
	}
	from, err := s.loadProfile(ctx, req.FromTrackID)
	if err != nil {
		return ScoreTransitionResult{}, err
	}
	to, err := s.loadProfile(ctx, req.ToTrackID)
	if err != nil {
		return ScoreTransitionResult{}, err
	}

	opts := s.options(req.Priority, req.HarmonicStyle, req.MasterTempo)
	scores := sequencing.ScoreTransition(from, to, opts, sequencing.TransitionContext{
		FromPhase: req.EnergyPhase,
		ToPhase:   req.EnergyPhase,
	})

	return ScoreTransitionResult{
		From:                newTrackView(from),
		To:                  newTrackView(to),
		Scores:              newScoresView(scores),
		KeyRelation:         scores.KeyRelation,
		BPMAdjustmentPct:    sequencing.Round3(scores.BPMAdjustmentPct),
		EffectiveToKey:      effectiveKeyString(scores.EffectiveToKey),
		PitchShiftSemitones: scores.PitchShiftSemitones,
	}, nil
}

// CandidateQuery ranks a pool of possible next tracks against one source.
type CandidateQuery struct {
	FromTrackID   string                    `json:"from_track_id"`
	PoolTrackIDs  []string                  `json:"pool_track_ids,omitempty"`
	PlaylistID    string                    `json:"playlist_id,omitempty"`
	TargetBPM     *float64                  `json:"target_bpm,omitempty"`
	EnergyPhase   *domain.EnergyPhase       `json:"energy_phase,omitempty"`
	Priority      *sequencing.Priority      `json:"priority,omitempty"`
	MasterTempo   *bool                     `json:"master_tempo,omitempty"`
	HarmonicStyle *sequencing.HarmonicStyle `json:"harmonic_style,omitempty"`
	Limit         *int                      `json:"limit,omitempty"`
}

// SourceView describes the fixed source of a candidate query.
type SourceView struct {
	TrackID   string  `json:"track_id"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	NativeBPM float64 `json:"native_bpm"`
	Key       string  `json:"key"`
	Energy    float64 `json:"energy"`
	Genre     string  `json:"genre"`
}

// Candidate is one ranked next-track option.
type Candidate struct {
	TrackID             string     `json:"track_id"`
	Title               string     `json:"title"`
	Artist              string     `json:"artist"`
	NativeBPM           float64    `json:"native_bpm"`
	NativeKey           string     `json:"native_key"`
	BPMDifferencePct    float64    `json:"bpm_difference_pct"`
	KeyRelation         string     `json:"key_relation"`
	Scores              ScoresView `json:"scores"`
	PlayAtBPM           *float64   `json:"play_at_bpm,omitempty"`
	PitchAdjustmentPct  *float64   `json:"pitch_adjustment_pct,omitempty"`
	PitchShiftSemitones int        `json:"pitch_shift_semitones,omitempty"`
	EffectiveKey        string     `json:"effective_key,omitempty"`
}

// CandidateResult is the ranked, truncated candidate list.
type CandidateResult struct {
	From            SourceView  `json:"from"`
	ReferenceBPM    float64     `json:"reference_bpm"`
	MasterTempo     bool        `json:"master_tempo"`
	Candidates      []Candidate `json:"candidates"`
	TotalPoolSize   int         `json:"total_pool_size"`
	SkippedProfiles int         `json:"skipped_profiles,omitempty"`
}

// QueryTransitionCandidates ranks every pool track as the next track after
// the source. With a target tempo each candidate is assumed to play at it
// while the source stays at its native tempo.
func (s *Sequencer) QueryTransitionCandidates(ctx context.Context, q CandidateQuery) (CandidateResult, error) {
	if q.FromTrackID == "" {
		return CandidateResult{}, domain.NewValidationError("from_track_id is required")
	}
	if q.PoolTrackIDs == nil && q.PlaylistID == "" {
		return CandidateResult{}, domain.NewValidationError("at least one of pool_track_ids or playlist_id must be provided")
	}
	limit := defaultQueryLimit
	if q.Limit != nil {
		if *q.Limit < 0 {
			return CandidateResult{}, domain.NewValidationError("limit must not be negative")
		}
		limit = min(*q.Limit, maxQueryLimit)
	}

	from, err := s.loadProfile(ctx, q.FromTrackID)
	if err != nil {
		return CandidateResult{}, err
	}

	var pool []domain.Track
	if q.PoolTrackIDs != nil {
		pool, err = s.tracks.GetTracksByIDs(ctx, dedupIDs(q.PoolTrackIDs))
	} else {
		pool, err = s.tracks.GetPlaylistTracks(ctx, q.PlaylistID)
	}
	if err != nil {
		return CandidateResult{}, fmt.Errorf("service: failed to load candidate pool: %w", err)
	}
	if len(pool) == 0 {
		return CandidateResult{}, domain.NewValidationError("no tracks found in the specified pool")
	}

	opts := s.options(q.Priority, q.HarmonicStyle, q.MasterTempo)
	tc := sequencing.TransitionContext{FromPhase: q.EnergyPhase, ToPhase: q.EnergyPhase}
	reference := from.BPM
	if q.TargetBPM != nil {
		if *q.TargetBPM <= 0 {
			return CandidateResult{}, domain.NewValidationError("target_bpm must be positive")
		}
		reference = *q.TargetBPM
		tc.Play = &sequencing.PlayTempos{From: from.BPM, To: *q.TargetBPM}
	}

	type scored struct {
		profile domain.TrackProfile
		scores  sequencing.TransitionScores
	}
	var (
		ranked  []scored
		skipped int
	)
	for _, t := range pool {
		if t.ID == from.ID() {
			continue
		}
		p, err := s.profile(ctx, t)
		if err != nil {
			if ctx.Err() != nil {
				return CandidateResult{}, ctx.Err()
			}
			skipped++
			continue
		}
		ranked = append(ranked, scored{profile: p, scores: sequencing.ScoreTransition(from, p, opts, tc)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].scores.Composite != ranked[j].scores.Composite {
			return ranked[i].scores.Composite > ranked[j].scores.Composite
		}
		return ranked[i].profile.ID() < ranked[j].profile.ID()
	})

	result := CandidateResult{
		From: SourceView{
			TrackID:   from.ID(),
			Title:     from.Track.Title,
			Artist:    from.Track.Artist,
			NativeBPM: sequencing.Round3(from.BPM),
			Key:       from.KeyDisplay,
			Energy:    sequencing.Round3(from.Energy),
			Genre:     from.Track.Genre,
		},
		ReferenceBPM:    sequencing.Round3(reference),
		MasterTempo:     opts.MasterTempo,
		Candidates:      []Candidate{},
		TotalPoolSize:   len(ranked),
		SkippedProfiles: skipped,
	}
	for i, r := range ranked {
		if i == limit {
			break
		}
		c := Candidate{
			TrackID:          r.profile.ID(),
			Title:            r.profile.Track.Title,
			Artist:           r.profile.Track.Artist,
			NativeBPM:        sequencing.Round3(r.profile.BPM),
			NativeKey:        r.profile.KeyDisplay,
			BPMDifferencePct: sequencing.Round3(r.scores.BPMAdjustmentPct),
			KeyRelation:      r.scores.KeyRelation,
			Scores:           newScoresView(r.scores),
		}
		if q.TargetBPM != nil {
			play := sequencing.Round3(*q.TargetBPM)
			pct := sequencing.Round3(r.scores.BPMAdjustmentPct)
			c.PlayAtBPM = &play
			c.PitchAdjustmentPct = &pct
			c.PitchShiftSemitones = r.scores.PitchShiftSemitones
			c.EffectiveKey = effectiveKeyString(r.scores.EffectiveToKey)
		}
		result.Candidates = append(result.Candidates, c)
	}
	return result, nil
}
