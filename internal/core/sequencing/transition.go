package sequencing

import (
	"math"

	"github.com/ewilliams-labs/setforge/internal/core/domain"
)

// TransitionScores is the full breakdown for one from→to pair.
type TransitionScores struct {
	Key                 AxisScore
	BPM                 AxisScore
	Energy              AxisScore
	Genre               AxisScore
	Brightness          AxisScore
	Rhythm              AxisScore
	Composite           float64
	KeyRelation         string
	BPMAdjustmentPct    float64
	PitchShiftSemitones int
	EffectiveToKey      *domain.CamelotKey
}

// Options are the caller-selected scoring knobs. The zero value scores
// with balanced priority, balanced style, master tempo off and the default
// harmonic policy.
type Options struct {
	Priority    Priority
	Style       HarmonicStyle
	MasterTempo bool
	// Policy overrides the built-in harmonic table when non-nil.
	Policy *HarmonicPolicy
}

func (o Options) policy() HarmonicPolicy {
	if o.Policy != nil {
		return *o.Policy
	}
	return DefaultHarmonicPolicy()
}

// PlayTempos are the tempos both tracks are actually played at.
type PlayTempos struct {
	From, To float64
}

// TransitionContext is the positional state of one scoring call.
type TransitionContext struct {
	FromPhase, ToPhase *domain.EnergyPhase
	GenreRunLength     int
	// Play carries planned playback tempos; nil means the destination
	// is matched to the source's native tempo.
	Play *PlayTempos
}

// ScoreTransition scores from→to on every axis and blends the composite.
func ScoreTransition(from, to domain.TrackProfile, opts Options, tc TransitionContext) TransitionScores {
	fromKey := from.CamelotKey
	toKey := to.CamelotKey

	var (
		bpm       AxisScore
		adjustPct float64
		shift     int
		effective *domain.CamelotKey
	)

	if tc.Play != nil {
		if !opts.MasterTempo {
			fromKey = transposed(fromKey, semitoneShift(from.BPM, tc.Play.From))
			shift = semitoneShift(to.BPM, tc.Play.To)
			toKey = transposed(toKey, shift)
		}
		bpm = ScoreBPM(tc.Play.To, to.BPM)
		adjustPct = adjustmentPct(tc.Play.To, to.BPM)
	} else {
		if !opts.MasterTempo {
			shift = semitoneShift(to.BPM, from.BPM)
			toKey = transposed(toKey, shift)
		}
		bpm = ScoreBPM(from.BPM, to.BPM)
		adjustPct = adjustmentPct(from.BPM, to.BPM)
	}
	if shift != 0 && to.CamelotKey != nil {
		effective = toKey
	}

	fromGenre := domain.GenreClass{Canonical: from.CanonicalGenre, Family: from.GenreFamily}
	toGenre := domain.GenreClass{Canonical: to.CanonicalGenre, Family: to.GenreFamily}

	s := TransitionScores{
		Key:                 ScoreKey(fromKey, toKey),
		BPM:                 bpm,
		Energy:              ScoreEnergy(from.Energy, to.Energy, tc.FromPhase, tc.ToPhase, to.LoudnessRange),
		Genre:               ScoreGenre(fromGenre, toGenre, tc.GenreRunLength),
		Brightness:          ScoreBrightness(from.Brightness, to.Brightness),
		Rhythm:              ScoreRhythm(from.RhythmRegularity, to.RhythmRegularity),
		BPMAdjustmentPct:    adjustPct,
		PitchShiftSemitones: shift,
		EffectiveToKey:      effective,
	}
	s.KeyRelation = s.Key.Label

	composite := Composite(WeightsFor(opts.Priority), s,
		from.Brightness != nil && to.Brightness != nil,
		from.RhythmRegularity != nil && to.RhythmRegularity != nil)
	s.Composite = opts.policy().Apply(composite, s.Key.Value, opts.Style, tc.ToPhase)
	return s
}

// Composite is the weighted mean of the present axes. Brightness and rhythm
// leave both numerator and denominator when absent.
func Composite(w Weights, s TransitionScores, hasBrightness, hasRhythm bool) float64 {
	sum := w.Key*s.Key.Value + w.BPM*s.BPM.Value + w.Energy*s.Energy.Value + w.Genre*s.Genre.Value
	total := w.Key + w.BPM + w.Energy + w.Genre
	if hasBrightness {
		sum += w.Brightness * s.Brightness.Value
		total += w.Brightness
	}
	if hasRhythm {
		sum += w.Rhythm * s.Rhythm.Value
		total += w.Rhythm
	}
	if total <= 0 {
		return 0
	}
	return clampUnit(sum / total)
}

// semitoneShift is the pitch change caused by playing native at play when
// pitch correction is off. Unknown tempos never shift.
func semitoneShift(native, play float64) int {
	if native <= 0 || play <= 0 {
		return 0
	}
	return int(math.Round(12 * math.Log2(play/native)))
}

func transposed(k *domain.CamelotKey, semitones int) *domain.CamelotKey {
	if k == nil || semitones == 0 {
		return k
	}
	t := k.Transpose(semitones)
	return &t
}

func adjustmentPct(play, native float64) float64 {
	if native <= 0 {
		return 0
	}
	return math.Abs(play-native) / native * 100
}

// Round3 rounds to three decimals for presentation.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
