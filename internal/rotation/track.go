package rotation

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/dhowden/tag"

	"github.com/slbailey/retrowaves-sub001/internal/events"
)

var lastTrackID atomic.Int64

func nextTrackID() int64 {
	return lastTrackID.Add(1)
}

// SetLastTrackID seeds the global track ID counter, used when loading
// persisted rotation state so new tracks don't collide with existing IDs.
func SetLastTrackID(id int64) {
	lastTrackID.Store(id)
}

// SupportedFormats lists the audio file extensions recognised during asset
// discovery.
var SupportedFormats = []string{".mp3", ".wav", ".flac", ".aac", ".ogg"}

// IsSupportedFormat reports whether ext (including the leading dot) names a
// supported audio format.
func IsSupportedFormat(ext string) bool {
	lower := strings.ToLower(ext)
	for _, f := range SupportedFormats {
		if lower == f {
			return true
		}
	}
	return false
}

// Track is a library entry: one audio file with its metadata and checksum.
type Track struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
	Genre    string `json:"genre,omitempty"`
	Year     int    `json:"year,omitempty"`
	Duration int    `json:"duration,omitempty"`
	FilePath string `json:"filePath"`
	Format   string `json:"format"`
	Checksum string `json:"checksum"`
	Tag      events.Tag `json:"tag"`
}

// NewTrackFromFile reads metadata and computes a checksum for the audio file
// at path. The track is tagged TagSong by default; callers scanning
// intro/outro/ID/announcement pools override Tag afterward.
func NewTrackFromFile(path string) (*Track, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	ext := strings.ToLower(filepath.Ext(absPath))
	filename := filepath.Base(absPath)
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))

	checksum, err := computeChecksum(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to compute checksum for %s: %w", absPath, err)
	}

	track := &Track{
		ID:       nextTrackID(),
		Title:    nameWithoutExt,
		FilePath: absPath,
		Format:   strings.TrimPrefix(ext, "."),
		Checksum: checksum,
		Tag:      events.TagSong,
	}

	extractTrackMetadata(track, absPath)
	return track, nil
}

func computeChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func extractTrackMetadata(track *Track, path string) {
	f, err := os.Open(path)
	if err != nil {
		slog.Warn("rotation: could not open file for metadata", "path", path, "error", err)
		return
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		slog.Debug("rotation: could not read tags", "path", path, "error", err)
		return
	}

	if m.Title() != "" {
		track.Title = m.Title()
	}
	if m.Artist() != "" {
		track.Artist = m.Artist()
	}
	if m.Album() != "" {
		track.Album = m.Album()
	}
	if m.Genre() != "" {
		track.Genre = m.Genre()
	}
	if m.Year() != 0 {
		track.Year = m.Year()
	}
}

// FileExists reports whether the track's file path points to an existing,
// non-directory file.
func (t *Track) FileExists() bool {
	info, err := os.Stat(t.FilePath)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// AudioEvent converts the track into a playable AudioEvent with the given
// gain. IntentID is left empty; the caller (THINK) fills it in once the
// containing DJIntent's ID is known.
func (t *Track) AudioEvent(gain float64) events.AudioEvent {
	var meta *events.Metadata
	if t.Title != "" || t.Artist != "" {
		meta = &events.Metadata{Title: t.Title, Artist: t.Artist, Duration: t.Duration}
	}
	return events.AudioEvent{
		Path: t.FilePath,
		Tag:  t.Tag,
		Gain: gain,
		Meta: meta,
	}
}

// MaxTrackID returns the highest ID across tracks, or 0 if empty.
func MaxTrackID(tracks []*Track) int64 {
	var max int64
	for _, t := range tracks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max
}
