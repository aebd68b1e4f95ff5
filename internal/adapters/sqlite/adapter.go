// Package sqlite provides a SQLite-backed track library and analysis cache.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ewilliams-labs/setforge/internal/core/domain"
	"github.com/ewilliams-labs/setforge/internal/core/ports"
	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously
)

const trackColumns = `t.id, t.title, t.artist, IFNULL(t.album, ''), IFNULL(t.genre, ''),
	IFNULL(t.bpm, 0), IFNULL(t.musical_key, ''), IFNULL(t.length_sec, 0), IFNULL(t.file_path, ''),
	IFNULL(t.rating, 0), IFNULL(t.year, 0), IFNULL(t.label, '')`

// Adapter implements the track store, library writer and analysis cache ports.
type Adapter struct {
	db *sql.DB
}

var (
	_ ports.TrackStore    = (*Adapter)(nil)
	_ ports.LibraryWriter = (*Adapter)(nil)
	_ ports.AnalysisCache = (*Adapter)(nil)
)

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// Every pooled connection to ":memory:" would get its own empty database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db}
	if err := adapter.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

// GetTrack loads one catalog record.
func (a *Adapter) GetTrack(ctx context.Context, id string) (domain.Track, error) {
	row := a.db.QueryRowContext(ctx, "SELECT "+trackColumns+" FROM tracks t WHERE t.id = ?", id)
	track, err := scanTrack(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Track{}, domain.NotFoundError{Kind: "track", ID: id}
		}
		return domain.Track{}, fmt.Errorf("failed to load track: %w", err)
	}
	return track, nil
}

// GetTracksByIDs loads the known ids in the order they were requested.
func (a *Adapter) GetTracksByIDs(ctx context.Context, ids []string) ([]domain.Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := a.db.QueryContext(ctx,
		"SELECT "+trackColumns+" FROM tracks t WHERE t.id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]domain.Track, len(ids))
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		byID[track.ID] = track
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tracks: %w", err)
	}

	out := make([]domain.Track, 0, len(byID))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
			delete(byID, id)
		}
	}
	return out, nil
}

// GetPlaylistTracks returns a playlist's tracks in the order they were added.
func (a *Adapter) GetPlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error) {
	var id string
	if err := a.db.QueryRowContext(ctx, "SELECT id FROM playlists WHERE id = ?", playlistID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError{Kind: "playlist", ID: playlistID}
		}
		return nil, fmt.Errorf("failed to load playlist: %w", err)
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT `+trackColumns+`
		FROM tracks t
		JOIN playlist_tracks pt ON pt.track_id = t.id
		WHERE pt.playlist_id = ?
		ORDER BY pt.position ASC
	`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist tracks: %w", err)
	}
	defer rows.Close()

	tracks := []domain.Track{}
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist track: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate playlist tracks: %w", err)
	}
	return tracks, nil
}

// UpsertTrack creates or replaces a catalog record.
func (a *Adapter) UpsertTrack(ctx context.Context, t domain.Track) error {
	query := `
		INSERT INTO tracks (
			id, title, artist, album, genre, bpm, musical_key, length_sec,
			file_path, rating, year, label
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title,
			artist=excluded.artist,
			album=excluded.album,
			genre=excluded.genre,
			bpm=excluded.bpm,
			musical_key=excluded.musical_key,
			length_sec=excluded.length_sec,
			file_path=excluded.file_path,
			rating=excluded.rating,
			year=excluded.year,
			label=excluded.label;
	`
	if _, err := a.db.ExecContext(ctx, query,
		t.ID, t.Title, t.Artist, t.Album, t.Genre, t.BPM, t.Key, t.Length,
		t.FilePath, t.Rating, t.Year, t.Label,
	); err != nil {
		return fmt.Errorf("failed to save track %s: %w", t.ID, err)
	}
	return nil
}

// AddToPlaylist creates the playlist if needed and appends the tracks after
// its current last position. Tracks already on the playlist keep their slot.
func (a *Adapter) AddToPlaylist(ctx context.Context, playlistID, name string, trackIDs []string) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO playlists (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name;
	`, playlistID, name); err != nil {
		return fmt.Errorf("failed to save playlist metadata: %w", err)
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		"SELECT IFNULL(MAX(position), -1) + 1 FROM playlist_tracks WHERE playlist_id = ?", playlistID,
	).Scan(&next); err != nil {
		return fmt.Errorf("failed to read playlist position: %w", err)
	}

	stmtLink, err := tx.PrepareContext(ctx, `
		INSERT INTO playlist_tracks (playlist_id, track_id, position)
		VALUES (?, ?, ?)
		ON CONFLICT(playlist_id, track_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare playlist link: %w", err)
	}
	defer stmtLink.Close()

	for _, id := range trackIDs {
		res, err := stmtLink.ExecContext(ctx, playlistID, id, next)
		if err != nil {
			return fmt.Errorf("failed to link track %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			next++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// GetAnalysis reads one cached analyzer result.
func (a *Adapter) GetAnalysis(ctx context.Context, filePath, analyzer string) (ports.CachedAnalysis, bool, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT file_path, analyzer, IFNULL(file_size, 0), IFNULL(file_mtime, 0),
			IFNULL(analysis_version, ''), features_json, created_at
		FROM audio_analysis_cache
		WHERE file_path = ? AND analyzer = ?
	`, filePath, analyzer)

	var entry ports.CachedAnalysis
	if err := row.Scan(
		&entry.FilePath,
		&entry.Analyzer,
		&entry.FileSize,
		&entry.FileModTime,
		&entry.AnalysisVersion,
		&entry.FeaturesJSON,
		&entry.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ports.CachedAnalysis{}, false, nil
		}
		return ports.CachedAnalysis{}, false, fmt.Errorf("failed to load cached analysis: %w", err)
	}
	return entry, true, nil
}

// PutAnalysis stores or replaces an analyzer result.
func (a *Adapter) PutAnalysis(ctx context.Context, entry ports.CachedAnalysis) error {
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	query := `
		INSERT INTO audio_analysis_cache (
			file_path, analyzer, file_size, file_mtime, analysis_version, features_json, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_path, analyzer) DO UPDATE SET
			file_size=excluded.file_size,
			file_mtime=excluded.file_mtime,
			analysis_version=excluded.analysis_version,
			features_json=excluded.features_json,
			created_at=excluded.created_at;
	`
	if _, err := a.db.ExecContext(ctx, query,
		entry.FilePath, entry.Analyzer, entry.FileSize, entry.FileModTime,
		entry.AnalysisVersion, entry.FeaturesJSON, created,
	); err != nil {
		return fmt.Errorf("failed to save cached analysis: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (domain.Track, error) {
	var t domain.Track
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Artist,
		&t.Album,
		&t.Genre,
		&t.BPM,
		&t.Key,
		&t.Length,
		&t.FilePath,
		&t.Rating,
		&t.Year,
		&t.Label,
	)
	return t, err
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		album TEXT,
		genre TEXT,
		bpm REAL,
		musical_key TEXT,
		length_sec INTEGER,
		file_path TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS playlists (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS playlist_tracks (
		playlist_id TEXT,
		track_id TEXT,
		position INTEGER NOT NULL DEFAULT 0,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (playlist_id, track_id),
		FOREIGN KEY(playlist_id) REFERENCES playlists(id) ON DELETE CASCADE,
		FOREIGN KEY(track_id) REFERENCES tracks(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS audio_analysis_cache (
		file_path TEXT NOT NULL,
		analyzer TEXT NOT NULL,
		file_size INTEGER,
		file_mtime INTEGER,
		analysis_version TEXT,
		features_json TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (file_path, analyzer)
	);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	// Columns added after the first schema shipped.
	for _, column := range []string{
		"ALTER TABLE tracks ADD COLUMN rating INTEGER",
		"ALTER TABLE tracks ADD COLUMN year INTEGER",
		"ALTER TABLE tracks ADD COLUMN label TEXT",
	} {
		if _, err := a.db.Exec(column); err != nil && !isDuplicateColumnError(err) {
			return err
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}
