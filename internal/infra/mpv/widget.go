package mpv

import (
	"encoding/json"
	"strings"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vinylbox/internal/app/player"
)

// Observed property IDs.
const (
	observePause = 1
	observeEOF   = 2
)

// Widget is one mpv process bound to one video.
type Widget struct {
	opts player.WidgetOptions
	proc process
	conn *conn

	mu      sync.Mutex
	state   player.WidgetState
	loaded  bool
	paused  bool
	closed  bool
	onClose func()

	qmu    sync.Mutex
	queue  []message
	notify chan struct{}
	done   chan struct{}
}

func newWidget(opts player.WidgetOptions, proc process) *Widget {
	return &Widget{
		opts:   opts,
		proc:   proc,
		state:  player.WidgetUnstarted,
		paused: !opts.Autoplay,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// attach binds the IPC connection and starts callback delivery.
func (w *Widget) attach(c *conn) error {
	w.conn = c
	go w.dispatch()
	go func() {
		<-c.Done()
		w.enqueue(message{Event: "ipc-lost"})
	}()

	if _, err := c.Call("observe_property", observePause, "pause"); err != nil {
		return err
	}
	if _, err := c.Call("observe_property", observeEOF, "eof-reached"); err != nil {
		return err
	}
	return nil
}

func (w *Widget) VideoID() string { return w.opts.VideoID }

// Play resumes playback. Playing after the end restarts from zero.
func (w *Widget) Play() error {
	if st, _ := w.State(); st == player.WidgetEnded {
		if err := w.SeekTo(0); err != nil {
			return err
		}
	}
	_, err := w.conn.Call("set_property", "pause", false)
	return err
}

func (w *Widget) Pause() error {
	_, err := w.conn.Call("set_property", "pause", true)
	return err
}

func (w *Widget) SeekTo(seconds float64) error {
	_, err := w.conn.Call("seek", max(seconds, 0), "absolute")
	return err
}

func (w *Widget) SetVolume(percent int) error {
	_, err := w.conn.Call("set_property", "volume", min(max(percent, 0), 100))
	return err
}

func (w *Widget) CurrentTime() (float64, error) {
	return w.conn.GetFloat("time-pos")
}

func (w *Widget) Duration() (float64, error) {
	return w.conn.GetFloat("duration")
}

func (w *Widget) State() (player.WidgetState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return player.WidgetUnstarted, ErrConnClosed
	}
	return w.state, nil
}

// Close quits mpv and stops callback delivery.
func (w *Widget) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	onClose := w.onClose
	w.mu.Unlock()

	if w.conn != nil {
		_, _ = w.conn.Call("quit")
		_ = w.conn.Close()
	}
	err := w.proc.Stop()
	if onClose != nil {
		onClose()
	}
	return err
}

func (w *Widget) enqueue(msg message) {
	w.qmu.Lock()
	w.queue = append(w.queue, msg)
	w.qmu.Unlock()
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// dispatch translates mpv events into widget callbacks. It runs apart from
// the IPC reader so translation may issue IPC requests.
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
			msg := w.queue[0]
			w.queue = w.queue[1:]
			w.qmu.Unlock()

			select {
			case <-w.done:
				return
			default:
			}
			for _, ev := range w.translate(msg) {
				if w.opts.Events != nil {
					w.opts.Events(ev)
				}
			}
		}
	}
}

func (w *Widget) translate(msg message) []player.WidgetEvent {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch msg.Event {
	case "file-loaded":
		if w.loaded {
			return nil
		}
		w.loaded = true
		events := []player.WidgetEvent{{Kind: player.WidgetEventReady}}
		if w.paused {
			w.state = player.WidgetCued
		} else {
			w.state = player.WidgetPlaying
			events = append(events, stateChange(player.WidgetPlaying))
		}
		return events

	case "property-change":
		switch msg.ID {
		case observePause:
			var paused bool
			if json.Unmarshal(msg.Data, &paused) != nil {
				return nil
			}
			w.paused = paused
			if !w.loaded || (w.state == player.WidgetEnded && paused) {
				return nil
			}
			if paused {
				// keep-open pauses at the end of the file; report that as ended.
				if eof, err := w.conn.GetBool("eof-reached"); err == nil && eof {
					w.state = player.WidgetEnded
					return []player.WidgetEvent{stateChange(player.WidgetEnded)}
				}
				w.state = player.WidgetPaused
				return []player.WidgetEvent{stateChange(player.WidgetPaused)}
			}
			w.state = player.WidgetPlaying
			return []player.WidgetEvent{stateChange(player.WidgetPlaying)}

		case observeEOF:
			var eof bool
			if json.Unmarshal(msg.Data, &eof) != nil || !w.loaded {
				return nil
			}
			if eof {
				if w.state == player.WidgetEnded {
					return nil
				}
				w.state = player.WidgetEnded
				return []player.WidgetEvent{stateChange(player.WidgetEnded)}
			}
			if w.state == player.WidgetEnded {
				w.state = player.WidgetPaused
				if !w.paused {
					w.state = player.WidgetPlaying
					return []player.WidgetEvent{stateChange(player.WidgetPlaying)}
				}
			}
		}

	case "end-file":
		if msg.Reason != "error" {
			return nil
		}
		w.state = player.WidgetUnstarted
		zlog.Warn().Msgf("mpv: playback failed: video=%s error=%s", w.opts.VideoID, msg.FileError)
		return []player.WidgetEvent{{Kind: player.WidgetEventError, Code: errorCode(msg.FileError)}}

	case "ipc-lost":
		if w.closed {
			return nil
		}
		zlog.Warn().Msgf("mpv: ipc connection lost: video=%s", w.opts.VideoID)
		return []player.WidgetEvent{{Kind: player.WidgetEventError, Code: player.ErrorPlaybackFailed}}
	}
	return nil
}

func stateChange(s player.WidgetState) player.WidgetEvent {
	return player.WidgetEvent{Kind: player.WidgetEventStateChange, State: s}
}

// errorCode maps an mpv file error to a widget error code.
func errorCode(fileError string) int {
	switch {
	case strings.Contains(fileError, "unrecognized"), strings.Contains(fileError, "loading failed"):
		return player.ErrorNotFound
	default:
		return player.ErrorPlaybackFailed
	}
}
