package playback

import "time"

// Notice codes.
const (
	NoticeTrackAdded      = "track_added"
	NoticeDuplicateTrack  = "duplicate_track"
	NoticeNotReady        = "not_ready"
	NoticePlaybackError   = "playback_error"
	NoticeFavoriteAdded   = "favorite_added"
	NoticeFavoriteRemoved = "favorite_removed"
	NoticeInvalidURL      = "invalid_url"
	NoticeEmptyURL        = "empty_url"
)

// Level represents how a notice is presented.
type Level int

const (
	LevelInfo    Level = iota // Neutral information
	LevelSuccess              // Completed action
	LevelError                // Rejected action or failure
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Notice is a transient user-facing message.
type Notice struct {
	Code    string    `json:"code"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	VideoID string    `json:"videoId,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher receives notices and state changes. Implementations must not block.
type Publisher interface {
	PublishNotice(n Notice)
	PublishState(s Snapshot)
}
