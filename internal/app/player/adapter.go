package player

import (
	"context"
	"math"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// DefaultPollInterval is the position sampling interval while playing.
const DefaultPollInterval = 500 * time.Millisecond

// Config holds adapter configuration.
type Config struct {
	PollInterval time.Duration // Position sampling interval while playing
	EventBuffer  int           // Size of the event channel
}

// Adapter drives a single widget instance so that it reflects a Desired state.
// Widget failures are logged and never returned to the caller.
type Adapter struct {
	mu sync.Mutex

	backend  Backend
	config   Config
	apiReady bool
	state    State

	// Current widget instance
	widget     Widget
	widgetSeq  uint64 // Bumped whenever the instance changes; stale callbacks are ignored
	videoID    string
	generation uint64
	volume     int // Last volume applied to the instance, -1 when unknown

	desired Desired

	// Poller
	pollCancel func()

	// Events
	eventCh chan Event

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewAdapter creates a new adapter over the given widget backend.
func NewAdapter(backend Backend, config Config) *Adapter {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Adapter{
		backend: backend,
		config:  config,
		state:   StateUnloaded,
		volume:  -1,
		eventCh: make(chan Event, config.EventBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Events returns the event channel.
func (a *Adapter) Events() <-chan Event {
	return a.eventCh
}

// State returns the current lifecycle state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// VideoID returns the video bound to the current widget instance.
func (a *Adapter) VideoID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.videoID
}

// Sync makes the widget reflect the desired state.
// A different VideoID replaces the instance; a different Generation for the
// same VideoID restarts it from the beginning.
func (a *Adapter) Sync(d Desired) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ctx.Err() != nil {
		return
	}
	a.desired = d

	if d.VideoID == "" {
		a.disposeLocked()
		return
	}

	if err := a.ensureAPILocked(); err != nil {
		zlog.Error().Err(err).Msgf("player: failed to load %s widget api", a.backend.Name())
		return
	}

	if a.widget == nil || a.videoID != d.VideoID {
		a.disposeLocked()
		a.createLocked(d)
		return
	}

	if !a.state.hasInstance() {
		// Not ready yet; the ready callback applies the desired state.
		a.generation = d.Generation
		return
	}

	if d.Generation != a.generation {
		a.generation = d.Generation
		if err := a.widget.SeekTo(0); err != nil {
			zlog.Warn().Err(err).Msgf("player: restart failed: video=%s", a.videoID)
		}
	}
	a.applyVolumeLocked(d.Volume)
	a.applyPlaybackLocked(d.Playing)
}

// Seek moves the playhead. Ignored until the instance is ready.
func (a *Adapter) Seek(seconds float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.widget == nil || !a.state.hasInstance() {
		zlog.Debug().Msgf("player: seek ignored, widget not ready: state=%s", a.state)
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	if err := a.widget.SeekTo(seconds); err != nil {
		zlog.Warn().Err(err).Msgf("player: seek failed: video=%s position=%.1f", a.videoID, seconds)
	}
}

// Close destroys the widget instance and releases the backend.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ctx.Err() != nil {
		return nil
	}
	a.disposeLocked()
	a.cancel()
	if a.apiReady {
		a.apiReady = false
		a.state = StateUnloaded
		return a.backend.Close()
	}
	return nil
}

func (a *Adapter) ensureAPILocked() error {
	if a.apiReady {
		return nil
	}
	a.state = StateAPILoading
	if err := a.backend.Open(a.ctx); err != nil {
		a.state = StateUnloaded
		return err
	}
	a.apiReady = true
	a.state = StateAPIReady
	zlog.Debug().Msgf("player: %s widget api ready", a.backend.Name())
	return nil
}

func (a *Adapter) createLocked(d Desired) {
	a.widgetSeq++
	seq := a.widgetSeq

	w, err := a.backend.NewWidget(a.ctx, WidgetOptions{
		VideoID:  d.VideoID,
		Autoplay: d.Playing,
		Volume:   volumePercent(d.Volume),
		Events: func(ev WidgetEvent) {
			a.onWidgetEvent(seq, ev)
		},
	})
	if err != nil {
		zlog.Error().Err(err).Msgf("player: failed to create widget: video=%s", d.VideoID)
		a.state = StateAPIReady
		return
	}

	a.widget = w
	a.videoID = d.VideoID
	a.generation = d.Generation
	a.volume = -1
	a.state = StatePlayerCreated
	zlog.Debug().Msgf("player: widget created: video=%s autoplay=%t", d.VideoID, d.Playing)
}

// disposeLocked destroys the current instance, if any.
func (a *Adapter) disposeLocked() {
	a.stopPollLocked()
	a.widgetSeq++
	if a.widget != nil {
		if err := a.widget.Close(); err != nil {
			zlog.Warn().Err(err).Msgf("player: failed to destroy widget: video=%s", a.videoID)
		}
		zlog.Debug().Msgf("player: widget destroyed: video=%s", a.videoID)
	}
	a.widget = nil
	a.videoID = ""
	a.volume = -1
	if a.apiReady {
		a.state = StateAPIReady
	} else {
		a.state = StateUnloaded
	}
}

func (a *Adapter) applyVolumeLocked(volume float64) {
	pct := volumePercent(volume)
	if pct == a.volume {
		return
	}
	if err := a.widget.SetVolume(pct); err != nil {
		zlog.Warn().Err(err).Msgf("player: set volume failed: volume=%d", pct)
		return
	}
	a.volume = pct
}

// applyPlaybackLocked issues play or pause only when the widget disagrees.
func (a *Adapter) applyPlaybackLocked(playing bool) {
	ws, err := a.widget.State()
	if err != nil {
		zlog.Warn().Err(err).Msg("player: failed to read widget state")
		return
	}
	switch {
	case playing && ws != WidgetPlaying && ws != WidgetBuffering:
		if err := a.widget.Play(); err != nil {
			zlog.Warn().Err(err).Msgf("player: play failed: video=%s", a.videoID)
		}
	case !playing && (ws == WidgetPlaying || ws == WidgetBuffering):
		if err := a.widget.Pause(); err != nil {
			zlog.Warn().Err(err).Msgf("player: pause failed: video=%s", a.videoID)
		}
	}
	if !playing {
		a.stopPollLocked()
	}
}

// onWidgetEvent handles a widget callback for the instance identified by seq.
func (a *Adapter) onWidgetEvent(seq uint64, ev WidgetEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if seq != a.widgetSeq || a.widget == nil {
		return
	}

	switch ev.Kind {
	case WidgetEventReady:
		a.state = StateReady
		a.applyVolumeLocked(a.desired.Volume)
		a.applyPlaybackLocked(a.desired.Playing)
		a.sendEventLocked(Event{Type: EventReady, VideoID: a.videoID})

	case WidgetEventStateChange:
		switch ev.State {
		case WidgetPlaying:
			a.state = StatePlaying
			if !a.desired.Playing {
				// Autoplay raced a pause; the widget reports paused next.
				zlog.Debug().Msgf("player: playing while paused is desired: video=%s", a.videoID)
				a.applyPlaybackLocked(false)
				return
			}
			a.startPollLocked(seq)
			a.sendEventLocked(Event{Type: EventPlaying, VideoID: a.videoID})
		case WidgetPaused:
			a.state = StatePaused
			a.stopPollLocked()
			a.sendEventLocked(Event{Type: EventPaused, VideoID: a.videoID})
		case WidgetEnded:
			a.state = StateEnded
			a.stopPollLocked()
			a.sendEventLocked(Event{Type: EventEnded, VideoID: a.videoID})
		}

	case WidgetEventError:
		a.state = StateError
		a.stopPollLocked()
		zlog.Warn().Msgf("player: widget error: video=%s code=%d", a.videoID, ev.Code)
		a.sendEventLocked(Event{Type: EventError, VideoID: a.videoID, Code: ev.Code})
	}
}

func (a *Adapter) startPollLocked(seq uint64) {
	if a.pollCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(a.ctx)
	a.pollCancel = cancel

	go func() {
		ticker := time.NewTicker(a.config.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.sample(ctx, seq)
			}
		}
	}()
}

func (a *Adapter) stopPollLocked() {
	if a.pollCancel != nil {
		a.pollCancel()
		a.pollCancel = nil
	}
}

// sample reads position and duration from the widget and emits a time update.
func (a *Adapter) sample(ctx context.Context, seq uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ctx.Err() != nil || seq != a.widgetSeq || a.widget == nil {
		return
	}
	pos, err := a.widget.CurrentTime()
	if err != nil {
		zlog.Debug().Err(err).Msg("player: failed to read position")
		return
	}
	dur, err := a.widget.Duration()
	if err != nil {
		zlog.Debug().Err(err).Msg("player: failed to read duration")
		return
	}
	a.sendEventLocked(Event{
		Type:     EventTimeUpdate,
		VideoID:  a.videoID,
		Position: pos,
		Duration: dur,
	})
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (a *Adapter) sendEventLocked(e Event) {
	e.Generation = a.generation
	select {
	case a.eventCh <- e:
	case <-a.ctx.Done():
	default:
		zlog.Warn().Msgf("player: event dropped: type=%s video=%s", e.Type, e.VideoID)
	}
}

// volumePercent converts a 0..1 volume to the widget's 0..100 scale.
func volumePercent(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 100
	}
	return int(math.Round(v * 100))
}
