// Package playback provides the playback controller: playlist, transport
// state and favorites, reconciled with the player adapter.
package playback

import "github.com/osa030/vinylbox/internal/domain/track"

// Tonearm angles in degrees.
const (
	ArmOnRecord = 0.0
	ArmAtRest   = -45.0
)

// ArmAngle returns the tonearm angle for the given transport state.
func ArmAngle(isPlaying bool) float64 {
	if isPlaying {
		return ArmOnRecord
	}
	return ArmAtRest
}

// Snapshot is a copy of the controller state.
type Snapshot struct {
	Tracks       []track.Track `json:"tracks"`
	CurrentIndex int           `json:"currentIndex"`
	IsPlaying    bool          `json:"isPlaying"`
	Position     float64       `json:"position"`
	Duration     float64       `json:"duration"`
	Volume       float64       `json:"volume"`
	AdapterReady bool          `json:"adapterReady"`
	Favorites    []string      `json:"favorites"`
	Generation   uint64        `json:"generation"`
}

// Current returns the current track, if any.
func (s Snapshot) Current() (track.Track, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Tracks) {
		return track.Track{}, false
	}
	return s.Tracks[s.CurrentIndex], true
}

// IsFavorite reports whether id is a favorite.
func (s Snapshot) IsFavorite(id string) bool {
	for _, f := range s.Favorites {
		if f == id {
			return true
		}
	}
	return false
}

// ArmAngle returns the tonearm angle for this snapshot.
func (s Snapshot) ArmAngle() float64 {
	return ArmAngle(s.IsPlaying)
}
