package sequencing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ewilliams-labs/setforge/internal/core/domain"
)

// Priority selects which axes dominate the composite.
type Priority int

const (
	PriorityBalanced Priority = iota
	PriorityHarmonic
	PriorityEnergy
	PriorityGenre
)

func (p Priority) String() string {
	switch p {
	case PriorityHarmonic:
		return "harmonic"
	case PriorityEnergy:
		return "energy"
	case PriorityGenre:
		return "genre"
	default:
		return "balanced"
	}
}

// ParsePriority accepts balanced, harmonic, energy or genre.
func ParsePriority(raw string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "balanced":
		return PriorityBalanced, nil
	case "harmonic":
		return PriorityHarmonic, nil
	case "energy":
		return PriorityEnergy, nil
	case "genre":
		return PriorityGenre, nil
	default:
		return 0, domain.NewValidationError("unknown priority %q", raw)
	}
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.NewValidationError("priority must be a string")
	}
	parsed, err := ParsePriority(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Weights are the per-axis composite weights.
type Weights struct {
	Key, BPM, Energy, Genre, Brightness, Rhythm float64
}

// WeightsFor returns the fixed weight set of a priority.
func WeightsFor(p Priority) Weights {
	switch p {
	case PriorityHarmonic:
		return Weights{Key: 0.48, BPM: 0.18, Energy: 0.12, Genre: 0.08, Brightness: 0.08, Rhythm: 0.06}
	case PriorityEnergy:
		return Weights{Key: 0.12, BPM: 0.18, Energy: 0.42, Genre: 0.12, Brightness: 0.08, Rhythm: 0.08}
	case PriorityGenre:
		return Weights{Key: 0.18, BPM: 0.18, Energy: 0.12, Genre: 0.38, Brightness: 0.08, Rhythm: 0.06}
	default:
		return Weights{Key: 0.30, BPM: 0.20, Energy: 0.18, Genre: 0.17, Brightness: 0.08, Rhythm: 0.07}
	}
}

// HarmonicStyle controls how harshly weak key matches are punished.
// The zero value is the default, Balanced.
type HarmonicStyle int

const (
	StyleBalanced HarmonicStyle = iota
	StyleConservative
	StyleAdventurous

	styleCount = 3
)

func (s HarmonicStyle) String() string {
	switch s {
	case StyleConservative:
		return "conservative"
	case StyleAdventurous:
		return "adventurous"
	default:
		return "balanced"
	}
}

// ParseHarmonicStyle accepts conservative, balanced or adventurous.
func ParseHarmonicStyle(raw string) (HarmonicStyle, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "balanced":
		return StyleBalanced, nil
	case "conservative":
		return StyleConservative, nil
	case "adventurous":
		return StyleAdventurous, nil
	default:
		return 0, domain.NewValidationError("unknown harmonic style %q", raw)
	}
}

func (s HarmonicStyle) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *HarmonicStyle) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.NewValidationError("harmonic_style must be a string")
	}
	parsed, err := ParseHarmonicStyle(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// noPhaseSlot is the threshold column used when no phase is in effect.
const (
	noPhaseSlot = 4
	phaseSlots  = 5
)

// HarmonicPolicy holds a key-score threshold per style and phase, and a
// multiplicative penalty per style. A transition whose key axis falls
// strictly below its threshold has its composite multiplied by the factor.
type HarmonicPolicy struct {
	thresholds [styleCount][phaseSlots]float64
	factors    [styleCount]float64
}

// DefaultHarmonicPolicy returns the built-in table. Cells not pinned by
// observed behaviour copy their nearest confirmed neighbour.
func DefaultHarmonicPolicy() HarmonicPolicy {
	var p HarmonicPolicy
	p.thresholds[StyleConservative] = [phaseSlots]float64{0.8, 0.8, 0.8, 0.8, 0.8}
	p.thresholds[StyleBalanced] = [phaseSlots]float64{0.45, 0.45, 0.45, 0.45, 0.45}
	p.thresholds[StyleAdventurous] = [phaseSlots]float64{0.45, 0.1, 0.1, 0.45, 0.1}
	p.factors[StyleConservative] = 0.1
	p.factors[StyleBalanced] = 0.5
	p.factors[StyleAdventurous] = 0.5
	return p
}

// Threshold returns the key-score threshold for a style at a phase.
// A nil phase uses the no-phase column.
func (p HarmonicPolicy) Threshold(style HarmonicStyle, phase *domain.EnergyPhase) float64 {
	return p.thresholds[styleIndex(style)][phaseSlot(phase)]
}

// Factor returns the penalty multiplier for a style.
func (p HarmonicPolicy) Factor(style HarmonicStyle) float64 {
	return p.factors[styleIndex(style)]
}

// WithThreshold returns a copy with one cell replaced.
func (p HarmonicPolicy) WithThreshold(style HarmonicStyle, phase *domain.EnergyPhase, value float64) (HarmonicPolicy, error) {
	if value < 0 || value > 1 {
		return p, domain.NewValidationError("harmonic threshold %v out of range [0,1]", value)
	}
	p.thresholds[styleIndex(style)][phaseSlot(phase)] = value
	return p, nil
}

// WithFactor returns a copy with the penalty for a style replaced.
func (p HarmonicPolicy) WithFactor(style HarmonicStyle, value float64) (HarmonicPolicy, error) {
	if value < 0 || value > 1 {
		return p, domain.NewValidationError("harmonic penalty factor %v out of range [0,1]", value)
	}
	p.factors[styleIndex(style)] = value
	return p, nil
}

// Apply penalises composite if key falls below the threshold.
func (p HarmonicPolicy) Apply(composite, key float64, style HarmonicStyle, phase *domain.EnergyPhase) float64 {
	if key < p.Threshold(style, phase) {
		return composite * p.Factor(style)
	}
	return composite
}

func (p HarmonicPolicy) String() string {
	var b strings.Builder
	for s := HarmonicStyle(0); s < styleCount; s++ {
		fmt.Fprintf(&b, "%s=%v×%.2f ", s, p.thresholds[s], p.factors[s])
	}
	return strings.TrimSpace(b.String())
}

func styleIndex(s HarmonicStyle) int {
	if s < 0 || s >= styleCount {
		return int(StyleBalanced)
	}
	return int(s)
}

func phaseSlot(phase *domain.EnergyPhase) int {
	if phase == nil {
		return noPhaseSlot
	}
	switch *phase {
	case domain.PhaseWarmup, domain.PhaseBuild, domain.PhasePeak, domain.PhaseRelease:
		return int(*phase)
	default:
		return noPhaseSlot
	}
}
