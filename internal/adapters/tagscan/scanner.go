// Package tagscan turns audio files into catalog tracks by reading their
// embedded tags.
package tagscan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"github.com/ewilliams-labs/setforge/internal/core/domain"
	"github.com/google/uuid"
)

// trackNamespace seeds the name-based ids so the same path always maps to
// the same track.
var trackNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("setforge:track"))

// TrackID returns the stable id for an audio file path.
func TrackID(path string) string {
	return uuid.NewSHA1(trackNamespace, []byte(filepath.Clean(path))).String()
}

// ReadTrack reads title, artist, album, genre, year and, for ID3v2 files,
// tempo and key. Files without tags still produce a track titled after the
// file name.
func ReadTrack(path string) (domain.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Track{}, fmt.Errorf("tagscan: failed to open %s: %w", path, err)
	}
	defer f.Close()

	track := domain.Track{
		ID:       TrackID(path),
		FilePath: path,
	}

	m, err := tag.ReadFrom(f)
	switch {
	case errors.Is(err, tag.ErrNoTagsFound):
	case err != nil:
		return domain.Track{}, fmt.Errorf("tagscan: failed to read tags from %s: %w", path, err)
	default:
		track.Title = strings.TrimSpace(m.Title())
		track.Artist = strings.TrimSpace(m.Artist())
		track.Album = strings.TrimSpace(m.Album())
		track.Genre = strings.TrimSpace(m.Genre())
		track.Year = m.Year()
		applyRaw(&track, m.Raw())
	}

	if track.Title == "" {
		track.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return track, nil
}

// applyRaw picks up the ID3v2 TBPM and TKEY text frames.
func applyRaw(t *domain.Track, raw map[string]interface{}) {
	if v, ok := raw["TBPM"].(string); ok {
		if bpm, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && bpm > 0 {
			t.BPM = bpm
		}
	}
	if v, ok := raw["TKEY"].(string); ok {
		t.Key = strings.TrimSpace(v)
	}
}
