package rotation

import (
	"sync"

	"github.com/slbailey/retrowaves-sub001/internal/events"
)

// Library is the single source of truth for all track data, organised by
// tag so THINK can pull candidate songs, intros, outros, IDs, and
// announcements from separate pools.
type Library struct {
	mu   sync.RWMutex
	byTag map[events.Tag][]*Track
}

// NewLibrary returns an empty Library.
func NewLibrary() *Library {
	return &Library{byTag: make(map[events.Tag][]*Track)}
}

// Add registers tracks, appending to whichever tag pool each belongs to.
func (l *Library) Add(tracks ...*Track) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range tracks {
		l.byTag[t.Tag] = append(l.byTag[t.Tag], t)
	}
}

// Pool returns a snapshot slice of every track registered under tag.
func (l *Library) Pool(tag events.Tag) []*Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	src := l.byTag[tag]
	out := make([]*Track, len(src))
	copy(out, src)
	return out
}

// Count returns the total number of tracks across all tags.
func (l *Library) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, ts := range l.byTag {
		n += len(ts)
	}
	return n
}

// RemoveStale drops tracks whose backing file no longer exists and returns
// the number removed.
func (l *Library) RemoveStale() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for tag, ts := range l.byTag {
		alive := make([]*Track, 0, len(ts))
		for _, t := range ts {
			if t.FileExists() {
				alive = append(alive, t)
			} else {
				removed++
			}
		}
		l.byTag[tag] = alive
	}
	return removed
}

// MaxID returns the highest track ID registered, across all tags.
func (l *Library) MaxID() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var max int64
	for _, ts := range l.byTag {
		if id := MaxTrackID(ts); id > max {
			max = id
		}
	}
	return max
}
