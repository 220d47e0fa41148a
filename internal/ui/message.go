package ui

import (
	"time"

	"github.com/osa030/vinylbox/internal/app/notification"
	"github.com/osa030/vinylbox/internal/app/playback"
)

// notificationMsg carries one notification from the manager.
type notificationMsg struct {
	n  *notification.Notification
	ok bool // false once the channel is closed
}

// noticeMsg shows a notice raised by the UI itself (intake rejections).
type noticeMsg playback.Notice

// dismissNoticeMsg hides the notice with the given sequence if it is still shown.
type dismissNoticeMsg struct {
	seq int
}

// addDoneMsg reports the outcome of an asynchronous AddTrack.
type addDoneMsg struct {
	ref string
	err error
}

// frameMsg advances the disc animation.
type frameMsg time.Time
