// Package catalog provides the video catalog: known videos, URL parsing,
// time formatting and metadata resolution.
package catalog

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vinylbox/internal/domain/track"
)

// VideoIDLength is the length of a YouTube video ID.
const VideoIDLength = 11

var (
	// ErrInvalidURL is returned when no video ID can be extracted from the input.
	ErrInvalidURL = errors.New("invalid YouTube URL")
	// ErrEmptyURL is returned for blank input.
	ErrEmptyURL = errors.New("empty YouTube URL")
)

var videoIDPattern = regexp.MustCompile(`^.*(youtu.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*).*`)

// ExtractVideoID parses the known YouTube URL shapes (watch?v=, youtu.be/,
// embed/, v/) and returns the video ID. The ID is only returned when the
// extracted segment is exactly 11 characters long.
func ExtractVideoID(url string) (string, bool) {
	m := videoIDPattern.FindStringSubmatch(url)
	if m == nil || len(m[2]) != VideoIDLength {
		return "", false
	}
	return m[2], true
}

// ParseVideoRef accepts either a URL or a bare 11-character video ID.
func ParseVideoRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrEmptyURL
	}
	if id, ok := ExtractVideoID(ref); ok {
		return id, nil
	}
	if isBareVideoID(ref) {
		return ref, nil
	}
	return "", errors.Wrapf(ErrInvalidURL, "ref=%q", ref)
}

func isBareVideoID(s string) bool {
	if len(s) != VideoIDLength {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// FormatTime formats seconds as M:SS. Minutes are not padded.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	minutes := int(math.Floor(seconds / 60))
	remaining := int(math.Floor(math.Mod(seconds, 60)))
	return fmt.Sprintf("%d:%02d", minutes, remaining)
}

// ParseTime parses an M:SS label back into seconds.
func ParseTime(label string) (float64, bool) {
	minStr, secStr, found := strings.Cut(strings.TrimSpace(label), ":")
	if !found || len(secStr) != 2 {
		return 0, false
	}
	minutes, err := strconv.Atoi(minStr)
	if err != nil || minutes < 0 {
		return 0, false
	}
	secs, err := strconv.Atoi(secStr)
	if err != nil || secs < 0 || secs > 59 {
		return 0, false
	}
	return float64(minutes*60 + secs), true
}

// Metadata is the provider-side description of a video.
type Metadata struct {
	Title        string
	AuthorName   string
	ThumbnailURL string
}

// MetadataSource resolves metadata for a video ID.
type MetadataSource interface {
	VideoMetadata(ctx context.Context, id string) (*Metadata, error)
}

// Catalog resolves video IDs into tracks.
type Catalog struct {
	sources []MetadataSource
}

// New creates a catalog that asks each source in order until one succeeds.
func New(sources ...MetadataSource) *Catalog {
	return &Catalog{sources: sources}
}

// FetchVideoDetails resolves a video ID into a Track.
// It never fails: when every source fails, a placeholder track is returned.
func (c *Catalog) FetchVideoDetails(ctx context.Context, id string) track.Track {
	for i, src := range c.sources {
		md, err := src.VideoMetadata(ctx, id)
		if err != nil {
			zlog.Warn().Err(err).Msgf("catalog: metadata source failed: id=%s source=%d", id, i)
			continue
		}
		if md == nil || strings.TrimSpace(md.Title) == "" {
			zlog.Warn().Msgf("catalog: metadata source returned no title: id=%s source=%d", id, i)
			continue
		}
		return trackFromMetadata(id, md)
	}
	return Placeholder(id)
}

// Placeholder returns the fallback track used when no metadata is available.
func Placeholder(id string) track.Track {
	return track.Track{
		ID:            id,
		Title:         fmt.Sprintf("YouTube Video (%s)", id),
		Artist:        "Unknown Artist",
		ThumbnailURL:  track.ThumbnailURLFor(id),
		DurationLabel: track.PlaceholderDuration,
	}
}

// SplitTitle splits an "Artist - Title" string on the first " - " separator.
// When no separator is present, fallbackArtist is used and the title is kept whole.
func SplitTitle(raw, fallbackArtist string) (artist, title string) {
	raw = strings.TrimSpace(raw)
	if before, after, found := strings.Cut(raw, " - "); found {
		artist = strings.TrimSpace(before)
		title = strings.TrimSpace(after)
		if artist != "" && title != "" {
			return artist, title
		}
	}
	return fallbackArtist, raw
}

func trackFromMetadata(id string, md *Metadata) track.Track {
	artist, title := SplitTitle(md.Title, md.AuthorName)
	if artist == "" {
		artist = "Unknown Artist"
	}
	thumb := md.ThumbnailURL
	if thumb == "" {
		thumb = track.ThumbnailURLFor(id)
	}
	return track.Track{
		ID:            id,
		Title:         title,
		Artist:        artist,
		ThumbnailURL:  thumb,
		DurationLabel: track.PlaceholderDuration,
	}
}
