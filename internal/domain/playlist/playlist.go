// Package playlist provides the Playlist domain entity.
package playlist

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/osa030/vinylbox/internal/domain/track"
)

// Playlist is an ordered sequence of tracks with unique IDs.
// It is not safe for concurrent use; the playback controller guards it.
type Playlist struct {
	tracks []track.Track
}

// New creates a playlist from the given tracks, dropping duplicate IDs.
func New(tracks ...track.Track) *Playlist {
	p := &Playlist{tracks: make([]track.Track, 0, len(tracks))}
	for _, t := range tracks {
		p.Append(t)
	}
	return p
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.tracks)
}

// IsEmpty returns true if the playlist has no tracks.
func (p *Playlist) IsEmpty() bool {
	return len(p.tracks) == 0
}

// At returns the track at index i.
func (p *Playlist) At(i int) (track.Track, bool) {
	if i < 0 || i >= len(p.tracks) {
		return track.Track{}, false
	}
	return p.tracks[i], true
}

// Contains checks if a track with the given ID is in the playlist.
func (p *Playlist) Contains(id string) bool {
	return p.IndexOf(id) >= 0
}

// IndexOf returns the index of the track with the given ID, or -1.
func (p *Playlist) IndexOf(id string) int {
	for i, t := range p.tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Append adds a track to the end. Returns false if the ID is already present.
func (p *Playlist) Append(t track.Track) bool {
	if p.Contains(t.ID) {
		return false
	}
	p.tracks = append(p.tracks, t)
	return true
}

// Remove deletes the track with the given ID and returns its former index, or -1.
func (p *Playlist) Remove(id string) int {
	i := p.IndexOf(id)
	if i < 0 {
		return -1
	}
	p.tracks = append(p.tracks[:i], p.tracks[i+1:]...)
	return i
}

// Update applies fn to the track with the given ID in place.
func (p *Playlist) Update(id string, fn func(*track.Track)) bool {
	i := p.IndexOf(id)
	if i < 0 {
		return false
	}
	fn(&p.tracks[i])
	return true
}

// Tracks returns a copy of all tracks.
func (p *Playlist) Tracks() []track.Track {
	result := make([]track.Track, len(p.tracks))
	copy(result, p.tracks)
	return result
}

// TrackIDs returns all track IDs in order.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.tracks))
	for i, t := range p.tracks {
		ids[i] = t.ID
	}
	return ids
}

// Match reports whether a track's title or artist contains term, ignoring case.
// An empty term matches every track.
func Match(t track.Track, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	fold := cases.Fold()
	needle := fold.String(term)
	return strings.Contains(fold.String(t.Title), needle) ||
		strings.Contains(fold.String(t.Artist), needle)
}

// Search returns the indexes of tracks matching term, in playlist order.
func (p *Playlist) Search(term string) []int {
	result := make([]int, 0, len(p.tracks))
	for i, t := range p.tracks {
		if Match(t, term) {
			result = append(result, i)
		}
	}
	return result
}
