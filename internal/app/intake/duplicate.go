package intake

import "context"

// DuplicateFilterName is the config name of DuplicateFilter.
const DuplicateFilterName = "duplicate_track_filter"

// CodeDuplicateTrack is returned when the video is already in the playlist.
const CodeDuplicateTrack = "duplicate_track"

// PlaylistView is the read access the duplicate filter needs.
type PlaylistView interface {
	Contains(id string) bool
}

// PlaylistFunc adapts a function to PlaylistView.
type PlaylistFunc func(id string) bool

// Contains calls f(id).
func (f PlaylistFunc) Contains(id string) bool { return f(id) }

// DuplicateFilter rejects videos that are already in the playlist.
type DuplicateFilter struct {
	playlist PlaylistView
}

// NewDuplicateFilter creates a new duplicate filter.
func NewDuplicateFilter(playlist PlaylistView) *DuplicateFilter {
	return &DuplicateFilter{playlist: playlist}
}

func (f *DuplicateFilter) Name() string {
	return DuplicateFilterName
}

func (f *DuplicateFilter) Description() string {
	return "Rejects videos that are already in the playlist"
}

func (f *DuplicateFilter) ReturnCodes() []string {
	return []string{CodeDuplicateTrack}
}

func (f *DuplicateFilter) ValidateConfig(settings map[string]any) error {
	// No configuration needed
	return nil
}

func (f *DuplicateFilter) Check(ctx context.Context, req Request) Result {
	if f.playlist == nil || req.VideoID == "" {
		return Accept()
	}
	if f.playlist.Contains(req.VideoID) {
		return Reject(CodeDuplicateTrack)
	}
	return Accept()
}

func init() {
	// Registered for listing and config validation; the chain builds it with a playlist.
	Register(DuplicateFilterName, func() Filter {
		return &DuplicateFilter{}
	})
}
