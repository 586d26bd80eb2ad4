package rotation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/slbailey/retrowaves-sub001/internal/events"
)

// ScanResult holds the outcome of scanning an asset directory.
type ScanResult struct {
	// Tracks contains every discovered audio file, sorted by path.
	Tracks []*Track
	// Errors maps file paths to non-fatal errors encountered while
	// processing them; the scan continues past individual file failures.
	Errors map[string]error
}

// ScanDirectory walks dir recursively and builds a Track for every
// supported audio file found, tagging each with tag.
func ScanDirectory(dir string, tag events.Tag) (*ScanResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot access asset directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", dir)
	}

	result := &ScanResult{
		Tracks: make([]*Track, 0),
		Errors: make(map[string]error),
	}

	err = filepath.Walk(dir, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			result.Errors[path] = walkErr
			slog.Warn("rotation: error accessing path during scan", "path", path, "error", walkErr)
			return nil
		}
		if fi.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !IsSupportedFormat(ext) {
			return nil
		}

		track, err := NewTrackFromFile(path)
		if err != nil {
			result.Errors[path] = err
			slog.Warn("rotation: failed to create track from file", "path", path, "error", err)
			return nil
		}
		track.Tag = tag
		result.Tracks = append(result.Tracks, track)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking asset directory %q: %w", dir, err)
	}

	sort.Slice(result.Tracks, func(i, j int) bool {
		return result.Tracks[i].FilePath < result.Tracks[j].FilePath
	})

	slog.Info("rotation: directory scan complete", "directory", dir, "tracks", len(result.Tracks), "errors", len(result.Errors))
	return result, nil
}
