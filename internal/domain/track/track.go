// Package track provides the Track domain entity.
package track

import "fmt"

// PlaceholderDuration is the duration label used until the player reports one.
const PlaceholderDuration = "0:00"

// Track represents one playable YouTube video.
type Track struct {
	ID            string `json:"id"`            // 11-character video ID
	Title         string `json:"title"`         // Display title
	Artist        string `json:"artist"`        // Display artist or channel name
	ThumbnailURL  string `json:"thumbnailUrl"`  // Cover image URL
	DurationLabel string `json:"durationLabel"` // "M:SS"
}

// ThumbnailURLFor returns the default medium-quality thumbnail URL for a video ID.
func ThumbnailURLFor(id string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/mqdefault.jpg", id)
}

// WatchURLFor returns the canonical watch URL for a video ID.
func WatchURLFor(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// HasPlaceholderDuration reports whether the duration label has not been corrected yet.
func (t *Track) HasPlaceholderDuration() bool {
	return t.DurationLabel == "" || t.DurationLabel == PlaceholderDuration
}

// CorrectDuration replaces a placeholder duration label.
// Returns true if the label changed.
func (t *Track) CorrectDuration(label string) bool {
	if !t.HasPlaceholderDuration() || label == "" || label == PlaceholderDuration {
		return false
	}
	t.DurationLabel = label
	return true
}
