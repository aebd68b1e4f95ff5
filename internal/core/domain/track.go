package domain

// Track represents a catalog record from the DJ library.
type Track struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Album    string  `json:"album,omitempty"`
	Genre    string  `json:"genre"`
	BPM      float64 `json:"bpm"`
	Key      string  `json:"key"`
	Length   int     `json:"length"` // seconds, 0 when unknown
	FilePath string  `json:"file_path,omitempty"`
	Rating   int     `json:"rating,omitempty"` // 0-5 stars
	Year     int     `json:"year,omitempty"`
	Label    string  `json:"label,omitempty"`
}

// Analyzer names used as audio-analysis cache keys.
const (
	AnalyzerTempo       = "stratum-dsp"
	AnalyzerDescriptors = "essentia"
)

// TempoAnalysis is the cached output of the tempo/key analyzer.
type TempoAnalysis struct {
	BPM        *float64 `json:"bpm"`
	KeyCamelot string   `json:"key_camelot"`
}

// DescriptorAnalysis is the cached output of the descriptor analyzer.
// Every field is optional.
type DescriptorAnalysis struct {
	Danceability         *float64 `json:"danceability"`
	LoudnessIntegrated   *float64 `json:"loudness_integrated"`
	LoudnessRange        *float64 `json:"loudness_range"`
	OnsetRate            *float64 `json:"onset_rate"`
	RhythmRegularity     *float64 `json:"rhythm_regularity"`
	SpectralCentroidMean *float64 `json:"spectral_centroid_mean"`
}
