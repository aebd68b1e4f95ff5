package sequencing

import (
	"fmt"
	"math"
	"strings"

	"github.com/ewilliams-labs/setforge/internal/core/domain"
)

// AxisScore is one compatibility dimension. Value drives ranking; Label is
// for humans only.
type AxisScore struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

const neutralScore = 0.5

// bpmDecay controls how fast the tempo axis falls off with percentage
// difference: exp(-bpmDecay * pct^2).
const bpmDecay = 0.019

// Brightness (spectral centroid, Hz) and rhythm-regularity bands.
const (
	brightnessSimilarHz = 300.0
	brightnessShiftHz   = 800.0
	brightnessJumpHz    = 1500.0

	rhythmMatchedDelta     = 0.1
	rhythmManageableDelta  = 0.25
	rhythmChallengingDelta = 0.5
)

// Genre streak rules.
const (
	streakBonus          = 0.1
	streakBonusMaxRun    = 5
	earlySwitchPenalty   = 0.1
	earlySwitchMaxRun    = 2
	dynamicBoundaryBoost = 0.1
	dynamicBoundaryLRA   = 8.0
	sustainedPeakBoost   = 0.05
	sustainedPeakLRA     = 4.0
)

// ScoreKey classifies the Camelot relationship between two keys.
func ScoreKey(from, to *domain.CamelotKey) AxisScore {
	if from == nil || to == nil {
		return AxisScore{Value: 0.1, Label: "Clash (missing key)"}
	}
	if from.Number == to.Number {
		if from.Letter == to.Letter {
			return AxisScore{Value: 1.0, Label: "Perfect"}
		}
		return AxisScore{Value: 0.8, Label: "Mood shift (A↔B)"}
	}

	clockwise := ((to.Number-from.Number)%12 + 12) % 12
	sameLetter := from.Letter == to.Letter
	switch {
	case sameLetter && clockwise == 1:
		return AxisScore{Value: 0.9, Label: "Camelot adjacent (+1)"}
	case sameLetter && clockwise == 11:
		return AxisScore{Value: 0.9, Label: "Camelot adjacent (-1)"}
	case !sameLetter && (clockwise == 1 || clockwise == 11):
		return AxisScore{Value: 0.55, Label: "Energy diagonal (+/-1 cross)"}
	case sameLetter && (clockwise == 2 || clockwise == 10):
		return AxisScore{Value: 0.45, Label: "Extended (+/-2)"}
	default:
		return AxisScore{Value: 0.1, Label: "Clash"}
	}
}

// ScoreBPM decays continuously with the tempo difference expressed as a
// percentage of fromBPM.
func ScoreBPM(fromBPM, toBPM float64) AxisScore {
	if fromBPM <= 0 {
		return AxisScore{Value: neutralScore, Label: "Unknown BPM"}
	}
	delta := math.Abs(fromBPM - toBPM)
	pct := delta / fromBPM * 100
	value := clampUnit(math.Exp(-bpmDecay * pct * pct))

	var band string
	switch {
	case pct < 2:
		band = "Seamless"
	case pct < 4:
		band = "Comfortable"
	case pct < 6:
		band = "Noticeable"
	case pct < 9:
		band = "Creative transition needed"
	default:
		band = "Jarring"
	}
	return AxisScore{Value: value, Label: fmt.Sprintf("%s (%.1f%%, %.1f BPM)", band, pct, delta)}
}

// ScoreEnergy judges the energy delta against the destination's phase.
// fromPhase only matters for the phase-boundary boost.
func ScoreEnergy(fromEnergy, toEnergy float64, fromPhase, toPhase *domain.EnergyPhase, toLoudnessRange *float64) AxisScore {
	delta := toEnergy - fromEnergy

	var axis AxisScore
	if toPhase == nil {
		axis = AxisScore{Value: 1.0, Label: "No phase preference"}
	} else {
		switch *toPhase {
		case domain.PhaseWarmup:
			axis = phaseAxis(delta >= -0.03 && delta <= 0.12, 0.5,
				"Stable/slight rise (warmup phase)", "Too abrupt for warmup")
		case domain.PhaseBuild:
			axis = phaseAxis(delta >= 0.03, 0.3,
				"Rising (build phase)", "Not rising (build phase)")
		case domain.PhasePeak:
			axis = phaseAxis(toEnergy >= 0.65 && math.Abs(delta) <= 0.10, 0.5,
				"High and stable (peak phase)", "Not high/stable (peak phase)")
		case domain.PhaseRelease:
			axis = phaseAxis(delta <= -0.03, 0.3,
				"Dropping (release phase)", "Not dropping (release phase)")
		}
	}

	if toPhase == nil || toLoudnessRange == nil {
		return axis
	}
	boundary := fromPhase != nil && *fromPhase != *toPhase
	switch {
	case boundary && *toLoudnessRange > dynamicBoundaryLRA:
		axis.Value = math.Min(axis.Value+dynamicBoundaryBoost, 1.0)
		axis.Label += " + dynamic boundary boost"
	case !boundary && *toPhase == domain.PhasePeak && *toLoudnessRange < sustainedPeakLRA:
		axis.Value = math.Min(axis.Value+sustainedPeakBoost, 1.0)
		axis.Label += " + sustained-peak consistency boost"
	}
	return axis
}

func phaseAxis(met bool, missed float64, metLabel, missedLabel string) AxisScore {
	if met {
		return AxisScore{Value: 1.0, Label: metLabel}
	}
	return AxisScore{Value: missed, Label: missedLabel}
}

// ScoreGenre compares canonical genres and families and applies the streak
// adjustment for the current family run length.
func ScoreGenre(from, to domain.GenreClass, runLength int) AxisScore {
	if !from.Known() || !to.Known() {
		return AxisScore{Value: neutralScore, Label: "Unknown genre"}
	}

	sameGenre := strings.EqualFold(from.Canonical, to.Canonical)
	sameFamily := from.Family == to.Family && from.Family != domain.FamilyOther

	var axis AxisScore
	switch {
	case sameGenre:
		axis = AxisScore{Value: 1.0, Label: "Same genre"}
	case sameFamily:
		axis = AxisScore{Value: 0.7, Label: "Same family"}
	default:
		axis = AxisScore{Value: 0.3, Label: "Different families"}
	}

	compatible := sameGenre || sameFamily
	switch {
	case compatible && from.Family != domain.FamilyOther && runLength >= 1 && runLength < streakBonusMaxRun:
		axis.Value = math.Min(axis.Value+streakBonus, 1.0)
		axis.Label += " + streak bonus"
	case !compatible && runLength >= 1 && runLength < earlySwitchMaxRun:
		axis.Value = math.Max(axis.Value-earlySwitchPenalty, 0)
		axis.Label += " + early switch penalty"
	}
	return axis
}

// ScoreBrightness bands the spectral-centroid difference.
func ScoreBrightness(from, to *float64) AxisScore {
	if from == nil || to == nil {
		return AxisScore{Value: neutralScore, Label: "Unknown brightness"}
	}
	delta := math.Abs(*to - *from)
	switch {
	case delta < brightnessSimilarHz:
		return AxisScore{Value: 1.0, Label: fmt.Sprintf("Similar timbre (delta %.0f Hz)", delta)}
	case delta < brightnessShiftHz:
		return AxisScore{Value: 0.7, Label: fmt.Sprintf("Noticeable brightness shift (delta %.0f Hz)", delta)}
	case delta < brightnessJumpHz:
		return AxisScore{Value: 0.4, Label: fmt.Sprintf("Large timbral jump (delta %.0f Hz)", delta)}
	default:
		return AxisScore{Value: 0.2, Label: fmt.Sprintf("Jarring brightness jump (delta %.0f Hz)", delta)}
	}
}

// ScoreRhythm bands the rhythm-regularity difference.
func ScoreRhythm(from, to *float64) AxisScore {
	if from == nil || to == nil {
		return AxisScore{Value: neutralScore, Label: "Unknown groove"}
	}
	delta := math.Abs(*to - *from)
	switch {
	case delta < rhythmMatchedDelta:
		return AxisScore{Value: 1.0, Label: fmt.Sprintf("Matching groove (delta %.2f)", delta)}
	case delta < rhythmManageableDelta:
		return AxisScore{Value: 0.7, Label: fmt.Sprintf("Manageable groove shift (delta %.2f)", delta)}
	case delta < rhythmChallengingDelta:
		return AxisScore{Value: 0.4, Label: fmt.Sprintf("Challenging groove shift (delta %.2f)", delta)}
	default:
		return AxisScore{Value: 0.2, Label: fmt.Sprintf("Groove clash (delta %.2f)", delta)}
	}
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
