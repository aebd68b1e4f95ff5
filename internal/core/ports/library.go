package ports

import (
	"context"
	"time"

	"github.com/ewilliams-labs/setforge/internal/core/domain"
)

// TrackStore reads catalog records.
type TrackStore interface {
	// GetTrack returns domain.ErrNotFound when the id is unknown.
	GetTrack(ctx context.Context, id string) (domain.Track, error)
	// GetTracksByIDs returns the tracks that exist, in request order.
	// Unknown ids are skipped.
	GetTracksByIDs(ctx context.Context, ids []string) ([]domain.Track, error)
	// GetPlaylistTracks returns domain.ErrNotFound for an unknown playlist.
	GetPlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error)
}

// LibraryWriter persists catalog records produced by the importer.
type LibraryWriter interface {
	UpsertTrack(ctx context.Context, t domain.Track) error
	AddToPlaylist(ctx context.Context, playlistID, name string, trackIDs []string) error
}

// CachedAnalysis is one analyzer result for one audio file.
type CachedAnalysis struct {
	FilePath        string
	Analyzer        string
	FileSize        int64
	FileModTime     int64
	AnalysisVersion string
	FeaturesJSON    string
	CreatedAt       time.Time
}

// AnalysisCache stores analyzer output keyed by resolved file path and
// analyzer name.
type AnalysisCache interface {
	// GetAnalysis reports ok=false when nothing is cached.
	GetAnalysis(ctx context.Context, filePath, analyzer string) (CachedAnalysis, bool, error)
	PutAnalysis(ctx context.Context, entry CachedAnalysis) error
}

// GenreTaxonomy maps free-text genre tags onto canonical genres.
type GenreTaxonomy interface {
	Classify(raw string) domain.GenreClass
}
