// Package playertest provides an in-memory widget backend for tests.
package playertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/osa030/vinylbox/internal/app/player"
)

// Backend is a player.Backend whose widgets are driven by the test.
type Backend struct {
	mu        sync.Mutex
	OpenErr   error
	CreateErr error
	opened    int
	closed    bool
	widgets   []*Widget
}

// NewBackend creates a new fake backend.
func NewBackend() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string { return "fake" }

func (b *Backend) Open(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened++
	return b.OpenErr
}

func (b *Backend) NewWidget(ctx context.Context, opts player.WidgetOptions) (player.Widget, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CreateErr != nil {
		return nil, b.CreateErr
	}
	w := &Widget{opts: opts, state: player.WidgetUnstarted, volume: opts.Volume}
	b.widgets = append(b.widgets, w)
	return w, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// OpenCount returns how many times Open was called.
func (b *Backend) OpenCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Widgets returns every widget created so far.
func (b *Backend) Widgets() []*Widget {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Widget(nil), b.widgets...)
}

// Last returns the most recently created widget, or nil.
func (b *Backend) Last() *Widget {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.widgets) == 0 {
		return nil
	}
	return b.widgets[len(b.widgets)-1]
}

// Widget is a fake player.Widget that records every call.
type Widget struct {
	mu       sync.Mutex
	opts     player.WidgetOptions
	state    player.WidgetState
	position float64
	duration float64
	volume   int
	closed   bool
	calls    []string
}

func (w *Widget) VideoID() string { return w.opts.VideoID }

// Options returns the options the widget was created with.
func (w *Widget) Options() player.WidgetOptions { return w.opts }

func (w *Widget) Play() error {
	w.record("play")
	return nil
}

func (w *Widget) Pause() error {
	w.record("pause")
	return nil
}

func (w *Widget) SeekTo(seconds float64) error {
	w.mu.Lock()
	w.position = seconds
	w.mu.Unlock()
	w.record(fmt.Sprintf("seek:%.1f", seconds))
	return nil
}

func (w *Widget) SetVolume(percent int) error {
	w.mu.Lock()
	w.volume = percent
	w.mu.Unlock()
	w.record(fmt.Sprintf("volume:%d", percent))
	return nil
}

func (w *Widget) CurrentTime() (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.position, nil
}

func (w *Widget) Duration() (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.duration, nil
}

func (w *Widget) State() (player.WidgetState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state, nil
}

func (w *Widget) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// Closed reports whether the widget was destroyed.
func (w *Widget) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Volume returns the last volume set on the widget.
func (w *Widget) Volume() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.volume
}

// Calls returns the recorded method calls.
func (w *Widget) Calls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

// Count returns how many times call was recorded.
func (w *Widget) Count(call string) int {
	n := 0
	for _, c := range w.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

// SetTimes sets the values reported by CurrentTime and Duration.
func (w *Widget) SetTimes(position, duration float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.position = position
	w.duration = duration
}

// Ready raises the ready callback.
func (w *Widget) Ready() {
	w.emit(player.WidgetEvent{Kind: player.WidgetEventReady})
}

// SetState sets the widget state without raising a callback.
func (w *Widget) SetState(s player.WidgetState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = s
}

// Transition sets the widget state and raises a state change callback.
func (w *Widget) Transition(s player.WidgetState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
	w.emit(player.WidgetEvent{Kind: player.WidgetEventStateChange, State: s})
}

// Fail raises an error callback.
func (w *Widget) Fail(code int) {
	w.emit(player.WidgetEvent{Kind: player.WidgetEventError, Code: code})
}

func (w *Widget) emit(ev player.WidgetEvent) {
	if w.opts.Events != nil {
		w.opts.Events(ev)
	}
}

func (w *Widget) record(call string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, call)
}
