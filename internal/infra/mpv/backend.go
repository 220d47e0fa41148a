package mpv

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vinylbox/internal/app/player"
	"github.com/osa030/vinylbox/internal/domain/track"
)

// process is a running mpv instance.
type process interface {
	// Stop terminates the process and waits for it to exit.
	Stop() error
}

// launcher starts mpv with the given arguments.
type launcher func(ctx context.Context, binary string, args []string) (process, error)

// Backend creates one mpv process per widget.
type Backend struct {
	config Config
	launch launcher

	mu        sync.Mutex
	socketDir string
	ownsDir   bool
	seq       int
	widgets   map[*Widget]struct{}
}

// New creates an mpv backend.
func New(config Config) *Backend {
	return &Backend{
		config:  config,
		launch:  execLauncher,
		widgets: make(map[*Widget]struct{}),
	}
}

func (b *Backend) Name() string { return "mpv" }

// Open checks the mpv binary and prepares the socket directory.
func (b *Backend) Open(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.socketDir != "" {
		return nil
	}
	if _, err := exec.LookPath(b.config.Binary); err != nil {
		return errors.Wrapf(err, "mpv binary not found: %s", b.config.Binary)
	}

	if b.config.SocketDir != "" {
		if err := os.MkdirAll(b.config.SocketDir, 0o700); err != nil {
			return errors.Wrap(err, "failed to create socket directory")
		}
		b.socketDir = b.config.SocketDir
		return nil
	}
	dir, err := os.MkdirTemp("", "vinylbox-mpv-")
	if err != nil {
		return errors.Wrap(err, "failed to create socket directory")
	}
	b.socketDir = dir
	b.ownsDir = true
	return nil
}

// NewWidget starts mpv for the video and connects to its IPC socket.
func (b *Backend) NewWidget(ctx context.Context, opts player.WidgetOptions) (player.Widget, error) {
	b.mu.Lock()
	if b.socketDir == "" {
		b.mu.Unlock()
		return nil, errors.New("mpv backend not opened")
	}
	b.seq++
	socket := filepath.Join(b.socketDir, fmt.Sprintf("mpv-%d.sock", b.seq))
	b.mu.Unlock()

	_ = os.Remove(socket)
	args := b.args(opts, socket)
	zlog.Debug().Msgf("mpv: starting: video=%s socket=%s", opts.VideoID, socket)

	proc, err := b.launch(ctx, b.config.Binary, args)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start mpv")
	}

	nc, err := dialSocket(ctx, socket, b.config.StartTimeout)
	if err != nil {
		_ = proc.Stop()
		return nil, err
	}

	w := newWidget(opts, proc)
	if err := w.attach(newConn(nc, b.config.CommandTimeout, w.enqueue)); err != nil {
		_ = w.Close()
		return nil, errors.Wrap(err, "failed to observe mpv properties")
	}

	b.mu.Lock()
	b.widgets[w] = struct{}{}
	b.mu.Unlock()
	w.onClose = func() {
		b.mu.Lock()
		delete(b.widgets, w)
		b.mu.Unlock()
		_ = os.Remove(socket)
	}
	return w, nil
}

// Close stops every running widget and removes the socket directory.
func (b *Backend) Close() error {
	b.mu.Lock()
	widgets := make([]*Widget, 0, len(b.widgets))
	for w := range b.widgets {
		widgets = append(widgets, w)
	}
	dir, owns := b.socketDir, b.ownsDir
	b.socketDir = ""
	b.ownsDir = false
	b.mu.Unlock()

	for _, w := range widgets {
		_ = w.Close()
	}
	if owns && dir != "" {
		return os.RemoveAll(dir)
	}
	return nil
}

func (b *Backend) args(opts player.WidgetOptions, socket string) []string {
	args := []string{
		"--idle=no",
		"--keep-open=yes",
		"--no-terminal",
		"--input-ipc-server=" + socket,
		"--volume=" + strconv.Itoa(opts.Volume),
	}
	if !b.config.Video {
		args = append(args, "--no-video")
	}
	if b.config.Format != "" {
		args = append(args, "--ytdl-format="+b.config.Format)
	}
	if !opts.Autoplay {
		args = append(args, "--pause")
	}
	args = append(args, b.config.ExtraArgs...)
	return append(args, track.WatchURLFor(opts.VideoID))
}

// dialSocket waits for mpv to create its IPC socket.
func dialSocket(ctx context.Context, socket string, timeout time.Duration) (net.Conn, error) {
	deadline := time.Now().Add(timeout)
	var d net.Dialer
	for {
		nc, err := d.DialContext(ctx, "unix", socket)
		if err == nil {
			return nc, nil
		}
		if time.Now().After(deadline) {
			return nil, errors.Wrapf(err, "mpv ipc socket not ready after %s", timeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan error
}

func execLauncher(ctx context.Context, binary string, args []string) (process, error) {
	cmd := exec.Command(binary, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &execProcess{cmd: cmd, done: make(chan error, 1)}
	go func() { p.done <- cmd.Wait() }()
	return p, nil
}

func (p *execProcess) Stop() error {
	select {
	case <-p.done:
		return nil
	case <-time.After(time.Second):
	}
	if err := p.cmd.Process.Kill(); err != nil {
		return errors.Wrap(err, "failed to kill mpv")
	}
	<-p.done
	return nil
}
