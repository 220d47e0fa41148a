package catalog

import "github.com/osa030/vinylbox/internal/domain/track"

// DefaultVideos returns the showcase videos the player starts with.
func DefaultVideos() []track.Track {
	return []track.Track{
		{ID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up", Artist: "Rick Astley", ThumbnailURL: track.ThumbnailURLFor("dQw4w9WgXcQ"), DurationLabel: "3:32"},
		{ID: "Zi_XLOBDo_Y", Title: "Billie Jean", Artist: "Michael Jackson", ThumbnailURL: track.ThumbnailURLFor("Zi_XLOBDo_Y"), DurationLabel: "4:54"},
		{ID: "yPYZpwSpKmA", Title: "Together Forever", Artist: "Rick Astley", ThumbnailURL: track.ThumbnailURLFor("yPYZpwSpKmA"), DurationLabel: "3:25"},
		{ID: "QUQsqBqxoR4", Title: "Wake Me Up", Artist: "Avicii", ThumbnailURL: track.ThumbnailURLFor("QUQsqBqxoR4"), DurationLabel: "4:32"},
		{ID: "H9nPf7w7pDI", Title: "Imagine", Artist: "John Lennon", ThumbnailURL: track.ThumbnailURLFor("H9nPf7w7pDI"), DurationLabel: "3:04"},
	}
}
