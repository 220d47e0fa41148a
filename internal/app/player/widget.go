// Package player adapts an embeddable player widget to desired-state commands.
package player

import "context"

// WidgetState is the state reported by the widget itself.
// Values follow the YouTube IFrame API player states.
type WidgetState int

const (
	WidgetUnstarted WidgetState = -1
	WidgetEnded     WidgetState = 0
	WidgetPlaying   WidgetState = 1
	WidgetPaused    WidgetState = 2
	WidgetBuffering WidgetState = 3
	WidgetCued      WidgetState = 5
)

// String returns the string representation of the widget state.
func (s WidgetState) String() string {
	switch s {
	case WidgetUnstarted:
		return "unstarted"
	case WidgetEnded:
		return "ended"
	case WidgetPlaying:
		return "playing"
	case WidgetPaused:
		return "paused"
	case WidgetBuffering:
		return "buffering"
	case WidgetCued:
		return "cued"
	default:
		return "unknown"
	}
}

// Widget error codes, following the YouTube IFrame API.
const (
	ErrorInvalidParam   = 2
	ErrorPlaybackFailed = 5
	ErrorNotFound       = 100
	ErrorNotEmbeddable  = 101
	ErrorEmbedBlocked   = 150
)

// WidgetEventKind identifies a widget callback.
type WidgetEventKind int

const (
	WidgetEventReady WidgetEventKind = iota
	WidgetEventStateChange
	WidgetEventError
)

// WidgetEvent is a callback raised by a widget.
type WidgetEvent struct {
	Kind  WidgetEventKind
	State WidgetState // For WidgetEventStateChange
	Code  int         // For WidgetEventError
}

// WidgetOptions configures a new widget instance.
type WidgetOptions struct {
	VideoID  string
	Autoplay bool
	Volume   int // 0-100

	// Events receives widget callbacks. It is invoked from a goroutine owned
	// by the widget, never from inside a Widget method call.
	Events func(WidgetEvent)
}

// Widget is one embedded player instance bound to one video.
type Widget interface {
	VideoID() string
	Play() error
	Pause() error
	SeekTo(seconds float64) error
	SetVolume(percent int) error
	CurrentTime() (float64, error)
	Duration() (float64, error)
	State() (WidgetState, error)
	// Close destroys the instance. No events are delivered after Close returns.
	Close() error
}

// Backend loads the widget API and constructs widget instances.
type Backend interface {
	Name() string
	// Open loads the widget API. It is called once before the first NewWidget.
	Open(ctx context.Context) error
	NewWidget(ctx context.Context, opts WidgetOptions) (Widget, error)
	Close() error
}
