// Package simplayer provides a wall-clock simulated widget backend.
// It plays nothing; it only reports the positions and callbacks a real
// embedded player would.
package simplayer

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vinylbox/internal/app/player"
)

// ErrClosed is returned by widget calls after Close.
var ErrClosed = errors.New("simplayer: widget closed")

// Config holds simulated backend configuration.
type Config struct {
	Durations       map[string]float64 // Seconds by video ID
	DefaultDuration time.Duration      // Used for unknown videos
	ReadyDelay      time.Duration      // Delay before the ready callback
	Speed           float64            // Playback speed multiplier
	Unavailable     []string           // Video IDs that fail with ErrorNotFound
}

// Backend is a player.Backend backed by simulated widgets.
type Backend struct {
	config Config

	mu     sync.Mutex
	opened bool
}

// New creates a simulated backend.
func New(config Config) *Backend {
	if config.DefaultDuration <= 0 {
		config.DefaultDuration = 3 * time.Minute
	}
	if config.Speed <= 0 {
		config.Speed = 1
	}
	return &Backend{config: config}
}

func (b *Backend) Name() string { return "sim" }

// Open marks the simulated API loaded.
func (b *Backend) Open(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened = true
	return nil
}

// NewWidget creates a simulated widget for the given video.
func (b *Backend) NewWidget(ctx context.Context, opts player.WidgetOptions) (player.Widget, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.opened {
		return nil, errors.New("simplayer: backend not opened")
	}

	duration, ok := b.config.Durations[opts.VideoID]
	if !ok || duration <= 0 {
		duration = b.config.DefaultDuration.Seconds()
	}
	w := &Widget{
		opts:     opts,
		duration: duration,
		speed:    b.config.Speed,
		volume:   opts.Volume,
		state:    player.WidgetUnstarted,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	failCode := 0
	for _, id := range b.config.Unavailable {
		if id == opts.VideoID {
			failCode = player.ErrorNotFound
		}
	}

	go w.dispatch()
	go w.boot(b.config.ReadyDelay, failCode)
	return w, nil
}

// Close releases the backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened = false
	return nil
}

// Widget is a simulated player instance.
type Widget struct {
	opts     player.WidgetOptions
	duration float64
	speed    float64

	mu        sync.Mutex
	state     player.WidgetState
	base      float64   // Position at startedAt
	startedAt time.Time // Zero unless playing
	volume    int
	endTimer  *time.Timer
	endSeq    uint64
	closed    bool

	qmu    sync.Mutex
	queue  []player.WidgetEvent
	notify chan struct{}
	done   chan struct{}
}

func (w *Widget) VideoID() string { return w.opts.VideoID }

// Play starts or resumes playback. Playing after the end restarts from zero.
func (w *Widget) Play() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.state == player.WidgetPlaying {
		return nil
	}
	if w.base >= w.duration {
		w.base = 0
	}
	w.startLocked()
	return nil
}

// Pause freezes the position.
func (w *Widget) Pause() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.state != player.WidgetPlaying {
		return nil
	}
	w.base = w.positionLocked()
	w.startedAt = time.Time{}
	w.stopTimerLocked()
	w.state = player.WidgetPaused
	w.enqueue(player.WidgetEvent{Kind: player.WidgetEventStateChange, State: player.WidgetPaused})
	return nil
}

// SeekTo moves the position, clamped to the video bounds.
func (w *Widget) SeekTo(seconds float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.base = min(max(seconds, 0), w.duration)
	if w.state == player.WidgetPlaying {
		w.startedAt = time.Now()
		w.scheduleEndLocked()
	}
	return nil
}

func (w *Widget) SetVolume(percent int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.volume = min(max(percent, 0), 100)
	return nil
}

// Volume returns the current volume (0-100).
func (w *Widget) Volume() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.volume
}

func (w *Widget) CurrentTime() (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, ErrClosed
	}
	return w.positionLocked(), nil
}

func (w *Widget) Duration() (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, ErrClosed
	}
	return w.duration, nil
}

func (w *Widget) State() (player.WidgetState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return player.WidgetUnstarted, ErrClosed
	}
	return w.state, nil
}

// Close destroys the widget and stops callback delivery.
func (w *Widget) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.stopTimerLocked()
	close(w.done)
	return nil
}

func (w *Widget) boot(delay time.Duration, failCode int) {
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-w.done:
			return
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.enqueue(player.WidgetEvent{Kind: player.WidgetEventReady})
	if failCode != 0 {
		w.enqueue(player.WidgetEvent{Kind: player.WidgetEventError, Code: failCode})
		return
	}
	if w.opts.Autoplay {
		w.startLocked()
	}
}

func (w *Widget) startLocked() {
	w.startedAt = time.Now()
	w.state = player.WidgetPlaying
	w.scheduleEndLocked()
	w.enqueue(player.WidgetEvent{Kind: player.WidgetEventStateChange, State: player.WidgetPlaying})
}

func (w *Widget) scheduleEndLocked() {
	w.stopTimerLocked()
	w.endSeq++
	seq := w.endSeq
	remaining := (w.duration - w.base) / w.speed
	w.endTimer = time.AfterFunc(time.Duration(remaining*float64(time.Second)), func() {
		w.onEnd(seq)
	})
}

func (w *Widget) stopTimerLocked() {
	w.endSeq++
	if w.endTimer != nil {
		w.endTimer.Stop()
		w.endTimer = nil
	}
}

func (w *Widget) onEnd(seq uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || seq != w.endSeq || w.state != player.WidgetPlaying {
		return
	}
	w.base = w.duration
	w.startedAt = time.Time{}
	w.endTimer = nil
	w.state = player.WidgetEnded
	w.enqueue(player.WidgetEvent{Kind: player.WidgetEventStateChange, State: player.WidgetEnded})
}

func (w *Widget) positionLocked() float64 {
	if w.startedAt.IsZero() {
		return w.base
	}
	pos := w.base + time.Since(w.startedAt).Seconds()*w.speed
	return min(pos, w.duration)
}

// enqueue queues a callback for the dispatcher goroutine.
func (w *Widget) enqueue(ev player.WidgetEvent) {
	w.qmu.Lock()
	w.queue = append(w.queue, ev)
	w.qmu.Unlock()
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// dispatch delivers queued callbacks in order until the widget is closed.
func (w *Widget) dispatch() {
	for {
		select {
		case <-w.done:
			return
		case <-w.notify:
		}
		for {
			w.qmu.Lock()
			if len(w.queue) == 0 {
				w.qmu.Unlock()
				break
			}
			ev := w.queue[0]
			w.queue = w.queue[1:]
			w.qmu.Unlock()

			select {
			case <-w.done:
				return
			default:
			}
			if w.opts.Events != nil {
				w.opts.Events(ev)
			} else {
				zlog.Debug().Msgf("simplayer: dropped callback without handler: video=%s", w.opts.VideoID)
			}
		}
	}
}
