package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/vinylbox/internal/app/catalog"
	"github.com/osa030/vinylbox/internal/app/intake"
	"github.com/osa030/vinylbox/internal/app/notification"
	"github.com/osa030/vinylbox/internal/app/playback"
	"github.com/osa030/vinylbox/internal/app/player"
	"github.com/osa030/vinylbox/internal/domain/track"
)

type stubAdapter struct {
	events chan player.Event
}

func (a *stubAdapter) Sync(player.Desired)         {}
func (a *stubAdapter) Seek(float64)                {}
func (a *stubAdapter) Events() <-chan player.Event { return a.events }
func (a *stubAdapter) Close() error                { return nil }

type allFilters struct{}

func (allFilters) IsFilterEnabled(string) bool             { return true }
func (allFilters) GetFilterSettings(string) map[string]any { return nil }

type testEnv struct {
	ctrl     *playback.Controller
	notifier *notification.Manager
	client   *Client
	server   *httptest.Server
}

func newTestEnv(t *testing.T, serverToken, clientToken string) *testEnv {
	t.Helper()

	notifier := notification.NewManager()
	tracks := []track.Track{catalog.Placeholder("aaaaaaaaaaa"), catalog.Placeholder("bbbbbbbbbbb")}
	tracks[0].DurationLabel = "3:00"
	ctrl := playback.New(context.Background(), playback.Config{InitialTracks: tracks, InitialVolume: 0.7}, playback.Deps{
		Adapter:   &stubAdapter{events: make(chan player.Event)},
		Resolver:  catalog.New(),
		Publisher: notifier,
	})

	chain, err := intake.NewChainFromConfig(allFilters{}, intake.PlaylistFunc(func(id string) bool {
		for _, tr := range ctrl.Snapshot().Tracks {
			if tr.ID == id {
				return true
			}
		}
		return false
	}))
	require.NoError(t, err)

	done := make(chan struct{})
	svc := NewPlayerService(ctrl, chain, notifier, func(code string) string { return "msg:" + code }, done)

	var opts []connect.HandlerOption
	if serverToken != "" {
		opts = append(opts, connect.WithInterceptors(NewControlAuthInterceptor(serverToken)))
	}
	path, handler := NewPlayerServiceHandler(svc, opts...)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		close(done)
		server.Close()
		notifier.Close()
		_ = ctrl.Close()
	})

	return &testEnv{
		ctrl:     ctrl,
		notifier: notifier,
		client:   NewClient(server.Client(), server.URL, clientToken),
		server:   server,
	}
}

// ready marks the player ready the way the adapter would.
func (e *testEnv) ready() {
	s := e.ctrl.Snapshot()
	cur, _ := s.Current()
	e.ctrl.HandleEvent(player.Event{Type: player.EventReady, VideoID: cur.ID, Generation: s.Generation})
}

func TestPlayerService_GetState(t *testing.T) {
	env := newTestEnv(t, "", "")

	resp, err := env.client.GetState(context.Background())
	require.NoError(t, err)
	assert.Len(t, resp.State.Tracks, 2)
	assert.Equal(t, 0.7, resp.State.Volume)
	assert.Equal(t, 180.0, resp.State.Duration)
}

func TestPlayerService_AddTrack(t *testing.T) {
	env := newTestEnv(t, "", "")
	ctx := context.Background()

	resp, err := env.client.AddTrack(ctx, "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, playback.NoticeTrackAdded, resp.Code)
	assert.Equal(t, "msg:track_added", resp.Message)
	require.NotNil(t, resp.Track)
	assert.Equal(t, "dQw4w9WgXcQ", resp.Track.ID)
	assert.Equal(t, 2, resp.State.CurrentIndex)
	assert.True(t, resp.State.IsPlaying)

	tests := []struct {
		name string
		url  string
		code string
	}{
		{"duplicate", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", intake.CodeDuplicateTrack},
		{"invalid", "https://example.com/", intake.CodeInvalidURL},
		{"empty", " ", intake.CodeEmptyURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.client.AddTrack(ctx, tt.url)
			require.NoError(t, err)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Code)
			assert.Nil(t, resp.Track)
			assert.Len(t, resp.State.Tracks, 3)
		})
	}
}

func TestPlayerService_Transport(t *testing.T) {
	env := newTestEnv(t, "", "")
	ctx := context.Background()

	_, err := env.client.PlayPause(ctx)
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	env.ready()
	resp, err := env.client.PlayPause(ctx)
	require.NoError(t, err)
	assert.True(t, resp.State.IsPlaying)

	resp, err = env.client.SkipNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.State.CurrentIndex)
	assert.True(t, resp.State.IsPlaying)

	resp, err = env.client.SkipPrevious(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.State.CurrentIndex)

	resp, err = env.client.SetVolume(ctx, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, resp.State.Volume)

	resp, err = env.client.SelectTrack(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.State.CurrentIndex)

	_, err = env.client.SelectTrack(ctx, 9)
	assert.Equal(t, connect.CodeOutOfRange, connect.CodeOf(err))
}

func TestPlayerService_Seek(t *testing.T) {
	env := newTestEnv(t, "", "")
	ctx := context.Background()
	env.ready()

	resp, err := env.client.Seek(ctx, SeekAbsolute, 30)
	require.NoError(t, err)
	assert.Equal(t, 30.0, resp.State.Position)

	resp, err = env.client.Seek(ctx, SeekRelative, 10)
	require.NoError(t, err)
	assert.Equal(t, 40.0, resp.State.Position)

	resp, err = env.client.Seek(ctx, SeekFraction, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 90.0, resp.State.Position)

	_, err = env.client.Seek(ctx, "sideways", 1)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestPlayerService_RemoveAndFavorite(t *testing.T) {
	env := newTestEnv(t, "", "")
	ctx := context.Background()

	fav, err := env.client.ToggleFavorite(ctx, "")
	require.NoError(t, err)
	assert.True(t, fav.Favorite)
	assert.Equal(t, []string{"aaaaaaaaaaa"}, fav.State.Favorites)

	fav, err = env.client.ToggleFavorite(ctx, "bbbbbbbbbbb")
	require.NoError(t, err)
	assert.True(t, fav.Favorite)

	_, err = env.client.ToggleFavorite(ctx, "zzzzzzzzzzz")
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	resp, err := env.client.RemoveTrack(ctx, "bbbbbbbbbbb")
	require.NoError(t, err)
	assert.Len(t, resp.State.Tracks, 1)

	_, err = env.client.RemoveTrack(ctx, "bbbbbbbbbbb")
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestPlayerService_Subscribe(t *testing.T) {
	env := newTestEnv(t, "", "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := env.client.Subscribe(ctx)
	require.NoError(t, err)
	// The server stream only ends with the context; cancel before Close drains it.
	defer func() {
		cancel()
		_ = stream.Close()
	}()

	require.True(t, stream.Receive())
	first := stream.Msg()
	assert.Equal(t, notification.TypeState, first.Type)
	require.NotNil(t, first.State)
	assert.Len(t, first.State.Tracks, 2)

	require.Eventually(t, func() bool {
		return env.notifier.SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	env.ctrl.SetVolume(0.2)

	require.True(t, stream.Receive())
	next := stream.Msg()
	assert.Equal(t, notification.TypeState, next.Type)
	assert.Equal(t, 0.2, next.State.Volume)
	assert.Greater(t, next.SequenceNo, first.SequenceNo)
}

func TestControlAuthInterceptor(t *testing.T) {
	tests := []struct {
		name        string
		clientToken string
		wantCode    connect.Code
	}{
		{"valid token", "secret", 0},
		{"missing token", "", connect.CodeUnauthenticated},
		{"wrong token", "guess", connect.CodeUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, "secret", tt.clientToken)

			_, err := env.client.GetState(context.Background())
			if tt.wantCode == 0 {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.wantCode, connect.CodeOf(err))
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			stream, err := env.client.Subscribe(ctx)
			if err == nil {
				defer func() {
					cancel()
					_ = stream.Close()
				}()
				if !stream.Receive() {
					err = stream.Err()
				}
			}
			if tt.wantCode == 0 {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.wantCode, connect.CodeOf(err))
			}
		})
	}
}

func TestToConnectError(t *testing.T) {
	tests := []struct {
		err  error
		want connect.Code
	}{
		{playback.ErrNotReady, connect.CodeFailedPrecondition},
		{playback.ErrEmptyPlaylist, connect.CodeFailedPrecondition},
		{playback.ErrIndexOutOfRange, connect.CodeOutOfRange},
		{playback.ErrTrackNotFound, connect.CodeNotFound},
		{playback.ErrDuplicateTrack, connect.CodeAlreadyExists},
		{catalog.ErrInvalidURL, connect.CodeInvalidArgument},
		{context.DeadlineExceeded, connect.CodeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, connect.CodeOf(toConnectError(tt.err)), tt.err.Error())
	}
}
