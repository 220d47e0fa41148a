package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/vinylbox/internal/app/player"
)

// fakeMPV serves a minimal subset of the mpv JSON IPC protocol.
type fakeMPV struct {
	t        *testing.T
	ln       net.Listener
	args     []string
	paused   bool
	eof      bool
	mu       sync.Mutex
	conn     net.Conn
	commands []string
	stopped  bool
}

func (f *fakeMPV) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	_ = f.ln.Close()
	if f.conn != nil {
		_ = f.conn.Close()
	}
	return nil
}

func (f *fakeMPV) send(v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return
	}
	b, _ := json.Marshal(v)
	_, _ = f.conn.Write(append(b, '\n'))
}

func (f *fakeMPV) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func (f *fakeMPV) serve() {
	nc, err := f.ln.Accept()
	if err != nil {
		return
	}
	f.mu.Lock()
	f.conn = nc
	f.mu.Unlock()

	observed := 0
	scanner := bufio.NewScanner(nc)
	for scanner.Scan() {
		var req struct {
			Command   []any `json:"command"`
			RequestID int64 `json:"request_id"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		name, _ := req.Command[0].(string)
		f.mu.Lock()
		f.commands = append(f.commands, strings.TrimSpace(strings.Trim(stringify(req.Command), "[]")))
		f.mu.Unlock()

		reply := map[string]any{"request_id": req.RequestID, "error": "success"}
		var events []map[string]any
		switch name {
		case "get_property":
			switch req.Command[1] {
			case "time-pos":
				reply["data"] = 12.5
			case "duration":
				reply["data"] = 212.0
			case "eof-reached":
				f.mu.Lock()
				reply["data"] = f.eof
				f.mu.Unlock()
			default:
				reply["error"] = "property unavailable"
			}
		case "set_property":
			if req.Command[1] == "pause" {
				f.paused = req.Command[2].(bool)
				events = append(events, map[string]any{"event": "property-change", "id": observePause, "name": "pause", "data": f.paused})
			}
		case "observe_property":
			observed++
			id := int(req.Command[1].(float64))
			if id == observePause {
				events = append(events, map[string]any{"event": "property-change", "id": id, "name": "pause", "data": f.paused})
			}
			if observed == 2 {
				events = append(events, map[string]any{"event": "file-loaded"})
			}
		case "quit":
			f.send(reply)
			return
		}
		f.send(reply)
		for _, ev := range events {
			f.send(ev)
		}
	}
}

func stringify(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

type fakeLauncher struct {
	mu    sync.Mutex
	procs []*fakeMPV
}

func (l *fakeLauncher) launch(t *testing.T) launcher {
	return func(ctx context.Context, binary string, args []string) (process, error) {
		var socket string
		paused := false
		for _, a := range args {
			if s, ok := strings.CutPrefix(a, "--input-ipc-server="); ok {
				socket = s
			}
			if a == "--pause" {
				paused = true
			}
		}
		ln, err := net.Listen("unix", socket)
		if err != nil {
			return nil, err
		}
		f := &fakeMPV{t: t, ln: ln, args: args, paused: paused}
		go f.serve()
		l.mu.Lock()
		l.procs = append(l.procs, f)
		l.mu.Unlock()
		return f, nil
	}
}

func (l *fakeLauncher) last() *fakeMPV {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.procs[len(l.procs)-1]
}

type recorder struct {
	mu     sync.Mutex
	events []player.WidgetEvent
}

func (r *recorder) handle(ev player.WidgetEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []player.WidgetEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]player.WidgetEvent(nil), r.events...)
}

func newTestBackend(t *testing.T) (*Backend, *fakeLauncher) {
	t.Helper()
	cfg, err := DecodeConfig(map[string]any{
		"binary":     "sh",
		"socket_dir": t.TempDir(),
	})
	require.NoError(t, err)
	b := New(cfg)
	l := &fakeLauncher{}
	b.launch = l.launch(t)
	require.NoError(t, b.Open(context.Background()))
	t.Cleanup(func() { _ = b.Close() })
	return b, l
}

func TestDecodeConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := DecodeConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, "mpv", cfg.Binary)
		assert.Equal(t, "bestaudio/best", cfg.Format)
		assert.Equal(t, 5*time.Second, cfg.StartTimeout)
		assert.Equal(t, 2*time.Second, cfg.CommandTimeout)
		assert.False(t, cfg.Video)
	})

	t.Run("overrides", func(t *testing.T) {
		cfg, err := DecodeConfig(map[string]any{
			"binary":          "/usr/local/bin/mpv",
			"video":           true,
			"start_timeout":   "10s",
			"command_timeout": "500ms",
			"extra_args":      []string{"--ao=pulse"},
		})
		require.NoError(t, err)
		assert.Equal(t, "/usr/local/bin/mpv", cfg.Binary)
		assert.True(t, cfg.Video)
		assert.Equal(t, 10*time.Second, cfg.StartTimeout)
		assert.Equal(t, 500*time.Millisecond, cfg.CommandTimeout)
		assert.Equal(t, []string{"--ao=pulse"}, cfg.ExtraArgs)
	})

	t.Run("invalid duration", func(t *testing.T) {
		_, err := DecodeConfig(map[string]any{"start_timeout": "soon"})
		assert.Error(t, err)
	})
}

func TestBackend_Args(t *testing.T) {
	b := New(Config{Binary: "mpv", Format: "bestaudio/best", ExtraArgs: []string{"--ao=null"}})

	args := b.args(player.WidgetOptions{VideoID: "dQw4w9WgXcQ", Volume: 70}, "/tmp/x.sock")
	assert.Contains(t, args, "--input-ipc-server=/tmp/x.sock")
	assert.Contains(t, args, "--volume=70")
	assert.Contains(t, args, "--no-video")
	assert.Contains(t, args, "--pause")
	assert.Contains(t, args, "--ao=null")
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", args[len(args)-1])

	args = b.args(player.WidgetOptions{VideoID: "dQw4w9WgXcQ", Autoplay: true}, "/tmp/x.sock")
	assert.NotContains(t, args, "--pause")
}

func TestBackend_NewWidgetRequiresOpen(t *testing.T) {
	b := New(Config{Binary: "mpv"})
	_, err := b.NewWidget(context.Background(), player.WidgetOptions{VideoID: "dQw4w9WgXcQ"})
	assert.Error(t, err)
}

func TestWidget_AutoplayLifecycle(t *testing.T) {
	b, l := newTestBackend(t)
	rec := &recorder{}

	pw, err := b.NewWidget(context.Background(), player.WidgetOptions{VideoID: "dQw4w9WgXcQ", Autoplay: true, Volume: 70, Events: rec.handle})
	require.NoError(t, err)
	w := pw.(*Widget)

	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 2 }, time.Second, 5*time.Millisecond)
	events := rec.snapshot()
	assert.Equal(t, player.WidgetEventReady, events[0].Kind)
	assert.Equal(t, player.WidgetEvent{Kind: player.WidgetEventStateChange, State: player.WidgetPlaying}, events[1])

	pos, err := w.CurrentTime()
	require.NoError(t, err)
	assert.Equal(t, 12.5, pos)
	dur, err := w.Duration()
	require.NoError(t, err)
	assert.Equal(t, 212.0, dur)

	require.NoError(t, w.Pause())
	require.Eventually(t, func() bool {
		st, _ := w.State()
		return st == player.WidgetPaused
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, w.SeekTo(30))
	require.NoError(t, w.SetVolume(150))
	cmds := l.last().Commands()
	assert.Contains(t, cmds, `"seek",30,"absolute"`)
	assert.Contains(t, cmds, `"set_property","volume",100`)

	require.NoError(t, w.Close())
	assert.True(t, l.last().stopped)
	_, err = w.State()
	assert.Error(t, err)
}

func TestWidget_CuedWithoutAutoplay(t *testing.T) {
	b, _ := newTestBackend(t)
	rec := &recorder{}

	pw, err := b.NewWidget(context.Background(), player.WidgetOptions{VideoID: "dQw4w9WgXcQ", Events: rec.handle})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	events := rec.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, player.WidgetEventReady, events[0].Kind)

	st, err := pw.State()
	require.NoError(t, err)
	assert.Equal(t, player.WidgetCued, st)
}

func TestWidget_EndOfFile(t *testing.T) {
	b, l := newTestBackend(t)
	rec := &recorder{}

	pw, err := b.NewWidget(context.Background(), player.WidgetOptions{VideoID: "dQw4w9WgXcQ", Autoplay: true, Events: rec.handle})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 2 }, time.Second, 5*time.Millisecond)

	f := l.last()
	f.mu.Lock()
	f.eof = true
	f.mu.Unlock()
	f.send(map[string]any{"event": "property-change", "id": observePause, "name": "pause", "data": true})
	f.send(map[string]any{"event": "property-change", "id": observeEOF, "name": "eof-reached", "data": true})

	require.Eventually(t, func() bool {
		st, _ := pw.State()
		return st == player.WidgetEnded
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	ended := 0
	for _, ev := range rec.snapshot() {
		if ev.Kind != player.WidgetEventStateChange {
			continue
		}
		assert.NotEqual(t, player.WidgetPaused, ev.State)
		if ev.State == player.WidgetEnded {
			ended++
		}
	}
	assert.Equal(t, 1, ended)
}

func TestWidget_LoadError(t *testing.T) {
	b, l := newTestBackend(t)
	rec := &recorder{}

	_, err := b.NewWidget(context.Background(), player.WidgetOptions{VideoID: "dQw4w9WgXcQ", Events: rec.handle})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 1 }, time.Second, 5*time.Millisecond)

	l.last().send(map[string]any{"event": "end-file", "reason": "error", "file_error": "loading failed"})

	require.Eventually(t, func() bool {
		for _, ev := range rec.snapshot() {
			if ev.Kind == player.WidgetEventError {
				return ev.Code == player.ErrorNotFound
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, player.ErrorNotFound, errorCode("loading failed"))
	assert.Equal(t, player.ErrorNotFound, errorCode("unrecognized file format"))
	assert.Equal(t, player.ErrorPlaybackFailed, errorCode("audio output initialization failed"))
}
