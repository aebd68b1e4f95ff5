package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EnergyPhase is the intended intensity of a set position.
type EnergyPhase int

const (
	PhaseWarmup EnergyPhase = iota
	PhaseBuild
	PhasePeak
	PhaseRelease
)

func (p EnergyPhase) String() string {
	switch p {
	case PhaseWarmup:
		return "warmup"
	case PhaseBuild:
		return "build"
	case PhasePeak:
		return "peak"
	case PhaseRelease:
		return "release"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParseEnergyPhase accepts warmup, build, peak or release in any case.
func ParseEnergyPhase(raw string) (EnergyPhase, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "warmup":
		return PhaseWarmup, nil
	case "build":
		return PhaseBuild, nil
	case "peak":
		return PhasePeak, nil
	case "release":
		return PhaseRelease, nil
	default:
		return 0, NewValidationError("unknown energy phase %q", raw)
	}
}

func (p EnergyPhase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *EnergyPhase) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return NewValidationError("energy phase must be a string")
	}
	parsed, err := ParseEnergyPhase(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// EnergyCurvePreset names a built-in phase layout.
type EnergyCurvePreset int

const (
	CurveWarmupBuildPeakRelease EnergyCurvePreset = iota
	CurveFlat
	CurvePeakOnly
)

// Preset phase boundaries, as fractions of the set length.
const (
	warmupPhaseEnd     = 0.15
	buildPhaseEnd      = 0.45
	peakPhaseEnd       = 0.75
	peakOnlyBuildEnd   = 0.10
	peakOnlyReleaseEnd = 0.85
)

func (c EnergyCurvePreset) String() string {
	switch c {
	case CurveFlat:
		return "flat"
	case CurvePeakOnly:
		return "peak_only"
	default:
		return "warmup_build_peak_release"
	}
}

// ParseEnergyCurvePreset accepts the preset names used on the wire.
func ParseEnergyCurvePreset(raw string) (EnergyCurvePreset, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "warmup_build_peak_release":
		return CurveWarmupBuildPeakRelease, nil
	case "flat":
		return CurveFlat, nil
	case "peak_only":
		return CurvePeakOnly, nil
	default:
		return 0, NewValidationError("unknown energy curve preset %q", raw)
	}
}

func (c EnergyCurvePreset) phaseAt(position, total int) EnergyPhase {
	fraction := 0.0
	if total > 0 {
		fraction = float64(position) / float64(total)
	}
	switch c {
	case CurveFlat:
		return PhasePeak
	case CurvePeakOnly:
		switch {
		case fraction < peakOnlyBuildEnd:
			return PhaseBuild
		case fraction < peakOnlyReleaseEnd:
			return PhasePeak
		default:
			return PhaseRelease
		}
	default:
		switch {
		case fraction < warmupPhaseEnd:
			return PhaseWarmup
		case fraction < buildPhaseEnd:
			return PhaseBuild
		case fraction < peakPhaseEnd:
			return PhasePeak
		default:
			return PhaseRelease
		}
	}
}

// EnergyCurve is either a preset or an explicit phase per position.
// The zero value is the warmup-build-peak-release preset.
type EnergyCurve struct {
	Preset EnergyCurvePreset
	Custom []EnergyPhase
}

// IsCustom reports whether the curve carries an explicit phase array.
func (c EnergyCurve) IsCustom() bool {
	return c.Custom != nil
}

// MarshalJSON writes a preset name or a phase array.
func (c EnergyCurve) MarshalJSON() ([]byte, error) {
	if c.IsCustom() {
		return json.Marshal(c.Custom)
	}
	return json.Marshal(c.Preset.String())
}

// UnmarshalJSON reads either a preset name or an array of phase names.
func (c *EnergyCurve) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		preset, err := ParseEnergyCurvePreset(name)
		if err != nil {
			return err
		}
		*c = EnergyCurve{Preset: preset}
		return nil
	}
	var phases []EnergyPhase
	if err := json.Unmarshal(data, &phases); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		return NewValidationError("energy_curve must be a preset name or an array of phases")
	}
	if phases == nil {
		phases = []EnergyPhase{}
	}
	*c = EnergyCurve{Custom: phases}
	return nil
}

// ResolveEnergyCurve expands a curve into one phase per set position.
// A nil curve means warmup-build-peak-release.
func ResolveEnergyCurve(curve *EnergyCurve, targetTracks int) ([]EnergyPhase, error) {
	if targetTracks < 1 {
		return nil, NewValidationError("target_tracks must be at least 1")
	}
	if curve != nil && curve.IsCustom() {
		if len(curve.Custom) != targetTracks {
			return nil, NewValidationError(
				"custom phase array length (%d) must match target_tracks (%d)",
				len(curve.Custom), targetTracks)
		}
		out := make([]EnergyPhase, len(curve.Custom))
		copy(out, curve.Custom)
		return out, nil
	}

	preset := CurveWarmupBuildPeakRelease
	if curve != nil {
		preset = curve.Preset
	}
	phases := make([]EnergyPhase, targetTracks)
	for i := range phases {
		phases[i] = preset.phaseAt(i, targetTracks)
	}
	return phases, nil
}

// ComputeBPMTrajectory plans a target tempo per position. Warmup holds the
// start tempo and Peak holds the end tempo. Each contiguous Build run ramps
// start→end inclusive, each contiguous Release run ramps end→start; a run of
// one position sits at the midpoint.
func ComputeBPMTrajectory(phases []EnergyPhase, startBPM, endBPM float64) []float64 {
	out := make([]float64, len(phases))
	for first := 0; first < len(phases); {
		last := first
		for last+1 < len(phases) && phases[last+1] == phases[first] {
			last++
		}
		for i := first; i <= last; i++ {
			switch phases[first] {
			case PhaseWarmup:
				out[i] = startBPM
			case PhasePeak:
				out[i] = endBPM
			case PhaseBuild:
				out[i] = ramp(i, first, last, startBPM, endBPM)
			case PhaseRelease:
				out[i] = ramp(i, first, last, endBPM, startBPM)
			}
		}
		first = last + 1
	}
	return out
}

func ramp(i, first, last int, from, to float64) float64 {
	if first == last {
		return (from + to) / 2
	}
	progress := float64(i-first) / float64(last-first)
	return from + (to-from)*progress
}
