package services

import (
	"github.com/ewilliams-labs/setforge/internal/core/domain"
	"github.com/ewilliams-labs/setforge/internal/core/sequencing"
)

// AxisView is an axis score rounded for output.
type AxisView struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// ScoresView is the rounded per-axis breakdown of one transition.
type ScoresView struct {
	Key        AxisView `json:"key"`
	BPM        AxisView `json:"bpm"`
	Energy     AxisView `json:"energy"`
	Genre      AxisView `json:"genre"`
	Brightness AxisView `json:"brightness"`
	Rhythm     AxisView `json:"rhythm"`
	Composite  float64  `json:"composite"`
}

func newAxisView(a sequencing.AxisScore) AxisView {
	return AxisView{Value: sequencing.Round3(a.Value), Label: a.Label}
}

func newScoresView(s sequencing.TransitionScores) ScoresView {
	return ScoresView{
		Key:        newAxisView(s.Key),
		BPM:        newAxisView(s.BPM),
		Energy:     newAxisView(s.Energy),
		Genre:      newAxisView(s.Genre),
		Brightness: newAxisView(s.Brightness),
		Rhythm:     newAxisView(s.Rhythm),
		Composite:  sequencing.Round3(s.Composite),
	}
}

// TrackView summarises a profile for output.
type TrackView struct {
	TrackID string  `json:"track_id"`
	Title   string  `json:"title"`
	Artist  string  `json:"artist"`
	Key     string  `json:"key"`
	BPM     float64 `json:"bpm"`
	Energy  float64 `json:"energy"`
	Genre   string  `json:"genre"`
}

func newTrackView(p domain.TrackProfile) TrackView {
	return TrackView{
		TrackID: p.ID(),
		Title:   p.Track.Title,
		Artist:  p.Track.Artist,
		Key:     p.KeyDisplay,
		BPM:     sequencing.Round3(p.BPM),
		Energy:  sequencing.Round3(p.Energy),
		Genre:   p.Track.Genre,
	}
}

func effectiveKeyString(k *domain.CamelotKey) string {
	if k == nil {
		return ""
	}
	return k.String()
}
