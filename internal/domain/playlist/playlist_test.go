package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/vinylbox/internal/domain/track"
)

func sampleTracks() []track.Track {
	return []track.Track{
		{ID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up", Artist: "Rick Astley"},
		{ID: "Zi_XLOBDo_Y", Title: "Billie Jean", Artist: "Michael Jackson"},
		{ID: "QUQsqBqxoR4", Title: "Wake Me Up", Artist: "Avicii"},
	}
}

func TestPlaylist_New_DropsDuplicates(t *testing.T) {
	tracks := sampleTracks()
	p := New(append(tracks, tracks[0])...)

	assert.Equal(t, 3, p.Len())
	assert.Equal(t, []string{"dQw4w9WgXcQ", "Zi_XLOBDo_Y", "QUQsqBqxoR4"}, p.TrackIDs())
}

func TestPlaylist_Append(t *testing.T) {
	p := New()
	assert.True(t, p.IsEmpty())

	assert.True(t, p.Append(track.Track{ID: "track-1"}))
	assert.False(t, p.Append(track.Track{ID: "track-1", Title: "again"}))
	assert.Equal(t, 1, p.Len())
}

func TestPlaylist_Remove(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		wantIndex int
		wantIDs   []string
	}{
		{
			name:      "remove middle",
			id:        "Zi_XLOBDo_Y",
			wantIndex: 1,
			wantIDs:   []string{"dQw4w9WgXcQ", "QUQsqBqxoR4"},
		},
		{
			name:      "remove first",
			id:        "dQw4w9WgXcQ",
			wantIndex: 0,
			wantIDs:   []string{"Zi_XLOBDo_Y", "QUQsqBqxoR4"},
		},
		{
			name:      "unknown id",
			id:        "missing0000",
			wantIndex: -1,
			wantIDs:   []string{"dQw4w9WgXcQ", "Zi_XLOBDo_Y", "QUQsqBqxoR4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(sampleTracks()...)

			assert.Equal(t, tt.wantIndex, p.Remove(tt.id))
			assert.Equal(t, tt.wantIDs, p.TrackIDs())
		})
	}
}

func TestPlaylist_AtAndUpdate(t *testing.T) {
	p := New(sampleTracks()...)

	_, ok := p.At(-1)
	assert.False(t, ok)
	_, ok = p.At(3)
	assert.False(t, ok)

	assert.True(t, p.Update("QUQsqBqxoR4", func(t *track.Track) { t.DurationLabel = "4:32" }))
	got, ok := p.At(2)
	require.True(t, ok)
	assert.Equal(t, "4:32", got.DurationLabel)

	assert.False(t, p.Update("missing0000", func(t *track.Track) {}))
}

func TestPlaylist_TracksReturnsCopy(t *testing.T) {
	p := New(sampleTracks()...)

	tracks := p.Tracks()
	tracks[0].Title = "changed"

	got, _ := p.At(0)
	assert.Equal(t, "Never Gonna Give You Up", got.Title)
}

func TestPlaylist_Search(t *testing.T) {
	tests := []struct {
		name     string
		term     string
		expected []int
	}{
		{name: "empty term matches all", term: "", expected: []int{0, 1, 2}},
		{name: "title match ignores case", term: "billie", expected: []int{1}},
		{name: "artist match", term: "AVICII", expected: []int{2}},
		{name: "shared substring", term: "up", expected: []int{0, 2}},
		{name: "no match", term: "beatles", expected: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(sampleTracks()...)
			assert.Equal(t, tt.expected, p.Search(tt.term))
		})
	}
}
