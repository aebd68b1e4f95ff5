package domain

import "strings"

// Energy normalisation bounds for the descriptor composite and the BPM proxy.
const (
	bpmProxyFloor = 95.0
	bpmProxyRange = 50.0

	danceabilityMax    = 3.0
	loudnessFloorLUFS  = -30.0
	loudnessRangeLUFS  = 30.0
	onsetRateMax       = 10.0
	energyWeightDance  = 0.4
	energyWeightLoud   = 0.3
	energyWeightOnsets = 0.3
)

// TrackProfile is a catalog track merged with cached analysis, ready for scoring.
// Profiles are built once per sequencing call and never mutated.
type TrackProfile struct {
	Track            Track
	BPM              float64
	CamelotKey       *CamelotKey
	KeyDisplay       string
	Energy           float64
	Brightness       *float64
	RhythmRegularity *float64
	LoudnessRange    *float64
	CanonicalGenre   string
	GenreFamily      GenreFamily
}

// ID is a shorthand for the catalog track id.
func (p TrackProfile) ID() string {
	return p.Track.ID
}

// BuildProfile merges a catalog record with optional analyzer output.
// Missing inputs degrade to catalog values or neutral defaults.
func BuildProfile(track Track, tempo *TempoAnalysis, desc *DescriptorAnalysis, genre GenreClass) TrackProfile {
	bpm := track.BPM
	if tempo != nil && tempo.BPM != nil {
		bpm = *tempo.BPM
	}
	if bpm < 0 {
		bpm = 0
	}

	var key *CamelotKey
	if tempo != nil {
		if k, ok := ParseCamelot(tempo.KeyCamelot); ok {
			key = &k
		}
	}
	if key == nil {
		if k, ok := ResolveKey(track.Key); ok {
			key = &k
		}
	}

	display := "Unknown"
	switch {
	case key != nil:
		display = key.String()
	case strings.TrimSpace(track.Key) != "":
		display = track.Key
	}

	p := TrackProfile{
		Track:          track,
		BPM:            bpm,
		CamelotKey:     key,
		KeyDisplay:     display,
		Energy:         ComputeEnergy(desc, bpm),
		CanonicalGenre: genre.Canonical,
		GenreFamily:    genre.Family,
	}
	if !genre.Known() {
		p.GenreFamily = FamilyOther
	}
	if desc != nil {
		p.Brightness = desc.SpectralCentroidMean
		p.RhythmRegularity = desc.RhythmRegularity
		p.LoudnessRange = desc.LoudnessRange
	}
	return p
}

// ComputeEnergy blends danceability, integrated loudness and onset rate into
// a 0-1 energy value. Without all three descriptors it falls back to a
// BPM-derived proxy.
func ComputeEnergy(desc *DescriptorAnalysis, bpm float64) float64 {
	proxy := clamp01((bpm - bpmProxyFloor) / bpmProxyRange)
	if desc == nil || desc.Danceability == nil || desc.LoudnessIntegrated == nil || desc.OnsetRate == nil {
		return proxy
	}
	dance := clamp01(*desc.Danceability / danceabilityMax)
	loudness := clamp01((*desc.LoudnessIntegrated - loudnessFloorLUFS) / loudnessRangeLUFS)
	onsets := clamp01(*desc.OnsetRate / onsetRateMax)
	return clamp01(energyWeightDance*dance + energyWeightLoud*loudness + energyWeightOnsets*onsets)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
