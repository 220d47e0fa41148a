package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/vinylbox/internal/app/catalog"
	"github.com/osa030/vinylbox/internal/app/favorites"
	"github.com/osa030/vinylbox/internal/app/player"
	"github.com/osa030/vinylbox/internal/domain/track"
)

type fakeAdapter struct {
	mu     sync.Mutex
	syncs  []player.Desired
	seeks  []float64
	events chan player.Event
	closed bool
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{events: make(chan player.Event, 16)}
}

func (f *fakeAdapter) Sync(d player.Desired) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs = append(f.syncs, d)
}

func (f *fakeAdapter) Seek(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, seconds)
}

func (f *fakeAdapter) Events() <-chan player.Event { return f.events }

func (f *fakeAdapter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeAdapter) last() (player.Desired, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.syncs) == 0 {
		return player.Desired{}, false
	}
	return f.syncs[len(f.syncs)-1], true
}

func (f *fakeAdapter) seekCalls() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.seeks...)
}

type recordingPublisher struct {
	mu      sync.Mutex
	notices []Notice
	states  int
}

func (p *recordingPublisher) PublishNotice(n Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, n)
}

func (p *recordingPublisher) PublishState(s Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states++
}

func (p *recordingPublisher) codes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.notices))
	for _, n := range p.notices {
		out = append(out, n.Code)
	}
	return out
}

type recordingSlot struct {
	mu     sync.Mutex
	values [][]byte
}

func (s *recordingSlot) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return nil, false, nil
	}
	return s.values[len(s.values)-1], true, nil
}

func (s *recordingSlot) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, value)
	return nil
}

func testTracks(ids ...string) []track.Track {
	out := make([]track.Track, 0, len(ids))
	for _, id := range ids {
		t := catalog.Placeholder(id)
		t.DurationLabel = "3:00"
		out = append(out, t)
	}
	return out
}

type harness struct {
	c         *Controller
	adapter   *fakeAdapter
	publisher *recordingPublisher
	slot      *recordingSlot
}

func newHarness(t *testing.T, config Config, tracks ...track.Track) *harness {
	t.Helper()
	h := &harness{
		adapter:   newFakeAdapter(),
		publisher: &recordingPublisher{},
		slot:      &recordingSlot{},
	}
	config.InitialTracks = tracks
	if config.InitialVolume == 0 {
		config.InitialVolume = 0.7
	}
	h.c = New(context.Background(), config, Deps{
		Adapter:   h.adapter,
		Resolver:  catalog.New(),
		Favorites: favorites.NewRepository(h.slot),
		Publisher: h.publisher,
	})
	t.Cleanup(func() { _ = h.c.Close() })
	return h
}

// ready delivers a ready event for the current widget.
func (h *harness) ready() {
	s := h.c.Snapshot()
	cur, _ := s.Current()
	h.c.HandleEvent(player.Event{Type: player.EventReady, VideoID: cur.ID, Generation: s.Generation})
}

func (h *harness) event(typ player.EventType) player.Event {
	s := h.c.Snapshot()
	cur, _ := s.Current()
	return player.Event{Type: typ, VideoID: cur.ID, Generation: s.Generation}
}

func (h *harness) waitDesired(t *testing.T, cond func(player.Desired) bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		d, ok := h.adapter.last()
		return ok && cond(d)
	}, time.Second, 5*time.Millisecond)
}

func TestController_InitialState(t *testing.T) {
	h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb")...)

	s := h.c.Snapshot()
	assert.Len(t, s.Tracks, 2)
	assert.Equal(t, 0, s.CurrentIndex)
	assert.False(t, s.IsPlaying)
	assert.Equal(t, 0.7, s.Volume)
	assert.Equal(t, 180.0, s.Duration)
	assert.False(t, s.AdapterReady)
	assert.Equal(t, ArmAtRest, s.ArmAngle())

	h.waitDesired(t, func(d player.Desired) bool {
		return d.VideoID == "aaaaaaaaaaa" && !d.Playing && d.Volume == 0.7
	})
}

func TestController_AddTrack(t *testing.T) {
	h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa")...)

	added, err := h.c.AddTrack(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", added.ID)
	assert.Equal(t, "YouTube Video (dQw4w9WgXcQ)", added.Title)

	s := h.c.Snapshot()
	require.Len(t, s.Tracks, 2)
	assert.Equal(t, 1, s.CurrentIndex)
	assert.True(t, s.IsPlaying)
	assert.Equal(t, 0.0, s.Position)
	assert.Contains(t, h.publisher.codes(), NoticeTrackAdded)

	h.waitDesired(t, func(d player.Desired) bool {
		return d.VideoID == "dQw4w9WgXcQ" && d.Playing
	})
}

func TestController_AddTrackDuplicate(t *testing.T) {
	h := newHarness(t, Config{}, testTracks("dQw4w9WgXcQ")...)

	_, err := h.c.AddTrack(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	assert.True(t, errors.Is(err, ErrDuplicateTrack))
	assert.Len(t, h.c.Snapshot().Tracks, 1)
	assert.Equal(t, []string{NoticeDuplicateTrack}, h.publisher.codes())
}

func TestController_AddTrackInvalid(t *testing.T) {
	h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa")...)

	_, err := h.c.AddTrack(context.Background(), "https://example.com/video")
	assert.True(t, errors.Is(err, catalog.ErrInvalidURL))

	_, err = h.c.AddTrack(context.Background(), "  ")
	assert.True(t, errors.Is(err, catalog.ErrEmptyURL))

	assert.Equal(t, []string{NoticeInvalidURL, NoticeEmptyURL}, h.publisher.codes())
	assert.Len(t, h.c.Snapshot().Tracks, 1)
}

func TestController_AddTrackToEmptyPlaylist(t *testing.T) {
	h := newHarness(t, Config{})

	_, err := h.c.AddTrack(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)

	s := h.c.Snapshot()
	assert.Equal(t, 0, s.CurrentIndex)
	assert.True(t, s.IsPlaying)
}

func TestController_PlayPause(t *testing.T) {
	h := newHarness(t, Config{Messages: func(code string) string { return "msg:" + code }}, testTracks("aaaaaaaaaaa")...)

	err := h.c.PlayPause()
	assert.True(t, errors.Is(err, ErrNotReady))
	assert.False(t, h.c.Snapshot().IsPlaying)
	require.Len(t, h.publisher.notices, 1)
	assert.Equal(t, NoticeNotReady, h.publisher.notices[0].Code)
	assert.Equal(t, LevelError, h.publisher.notices[0].Level)
	assert.Equal(t, "msg:not_ready", h.publisher.notices[0].Message)

	h.ready()
	require.NoError(t, h.c.PlayPause())
	assert.True(t, h.c.Snapshot().IsPlaying)
	assert.Equal(t, ArmOnRecord, h.c.Snapshot().ArmAngle())
	h.waitDesired(t, func(d player.Desired) bool { return d.Playing })

	require.NoError(t, h.c.PlayPause())
	assert.False(t, h.c.Snapshot().IsPlaying)
	h.waitDesired(t, func(d player.Desired) bool { return !d.Playing })
}

func TestController_SkipWrapsAndPreservesPlaying(t *testing.T) {
	tests := []struct {
		name    string
		playing bool
	}{
		{"playing", true},
		{"paused", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc")...)
			h.ready()
			if tt.playing {
				require.NoError(t, h.c.PlayPause())
			}
			h.c.OnTimeUpdate(42, 180)

			require.NoError(t, h.c.SkipPrevious())
			s := h.c.Snapshot()
			assert.Equal(t, 2, s.CurrentIndex)
			assert.Equal(t, 0.0, s.Position)
			assert.Equal(t, tt.playing, s.IsPlaying)

			require.NoError(t, h.c.SkipNext())
			s = h.c.Snapshot()
			assert.Equal(t, 0, s.CurrentIndex)
			assert.Equal(t, 0.0, s.Position)
			assert.Equal(t, tt.playing, s.IsPlaying)
		})
	}
}

func TestController_SkipScenario(t *testing.T) {
	h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb")...)
	h.ready()
	require.NoError(t, h.c.PlayPause())
	h.c.OnTimeUpdate(30, 180)

	require.NoError(t, h.c.SkipNext())

	s := h.c.Snapshot()
	assert.Equal(t, 1, s.CurrentIndex)
	assert.Equal(t, 0.0, s.Position)
	assert.True(t, s.IsPlaying)
	h.waitDesired(t, func(d player.Desired) bool { return d.VideoID == "bbbbbbbbbbb" && d.Playing })
}

func TestController_SkipEmptyPlaylist(t *testing.T) {
	h := newHarness(t, Config{})

	assert.True(t, errors.Is(h.c.SkipNext(), ErrEmptyPlaylist))
	assert.True(t, errors.Is(h.c.SkipPrevious(), ErrEmptyPlaylist))
}

func TestController_SingleTrackWrapRestarts(t *testing.T) {
	h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa")...)
	before := h.c.Snapshot().Generation

	require.NoError(t, h.c.SkipNext())

	s := h.c.Snapshot()
	assert.Equal(t, 0, s.CurrentIndex)
	assert.Greater(t, s.Generation, before)
	h.waitDesired(t, func(d player.Desired) bool {
		return d.VideoID == "aaaaaaaaaaa" && d.Generation == s.Generation
	})
}

func TestController_EndThreshold(t *testing.T) {
	t.Run("just before the end advances once", func(t *testing.T) {
		h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc")...)

		late := h.event(player.EventTimeUpdate)
		h.c.OnTimeUpdate(180-0.3, 180)
		assert.Equal(t, 1, h.c.Snapshot().CurrentIndex)

		// A late sample from the previous track does not advance again.
		late.Position, late.Duration = 180-0.2, 180
		h.c.HandleEvent(late)
		assert.Equal(t, 1, h.c.Snapshot().CurrentIndex)
	})

	t.Run("latch resets on track change", func(t *testing.T) {
		h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc")...)

		h.c.OnTimeUpdate(179.8, 180)
		require.Equal(t, 1, h.c.Snapshot().CurrentIndex)

		// First sample of the new track is already inside the end window.
		h.c.HandleEvent(player.Event{
			Type:       player.EventTimeUpdate,
			VideoID:    "bbbbbbbbbbb",
			Generation: h.c.Snapshot().Generation,
			Position:   179.9,
			Duration:   180,
		})
		assert.Equal(t, 2, h.c.Snapshot().CurrentIndex)
	})

	t.Run("one second before the end does not advance", func(t *testing.T) {
		h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb")...)

		h.c.OnTimeUpdate(180-1.0, 180)
		s := h.c.Snapshot()
		assert.Equal(t, 0, s.CurrentIndex)
		assert.Equal(t, 179.0, s.Position)
	})

	t.Run("unknown duration never advances", func(t *testing.T) {
		h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb")...)

		h.c.OnTimeUpdate(5, 0)
		assert.Equal(t, 0, h.c.Snapshot().CurrentIndex)
	})

	t.Run("latch resets below the threshold", func(t *testing.T) {
		h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc")...)

		h.c.OnTimeUpdate(179.8, 180)
		h.c.OnTimeUpdate(1, 180)
		h.c.OnTimeUpdate(179.8, 180)
		assert.Equal(t, 2, h.c.Snapshot().CurrentIndex)
	})
}

func TestController_HandleEvent(t *testing.T) {
	h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb")...)

	h.c.HandleEvent(h.event(player.EventReady))
	assert.True(t, h.c.Snapshot().AdapterReady)

	h.c.HandleEvent(h.event(player.EventPlaying))
	assert.True(t, h.c.Snapshot().IsPlaying)

	h.c.HandleEvent(h.event(player.EventPaused))
	assert.False(t, h.c.Snapshot().IsPlaying)

	ev := h.event(player.EventTimeUpdate)
	ev.Position, ev.Duration = 12, 200
	h.c.HandleEvent(ev)
	s := h.c.Snapshot()
	assert.Equal(t, 12.0, s.Position)
	assert.Equal(t, 200.0, s.Duration)

	h.c.HandleEvent(h.event(player.EventEnded))
	assert.Equal(t, 1, h.c.Snapshot().CurrentIndex)
}

func TestController_IgnoresStaleEvents(t *testing.T) {
	h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc")...)
	h.ready()
	stale := h.event(player.EventEnded)

	require.NoError(t, h.c.SkipNext())

	// Ended for the previous track arrives after the skip.
	h.c.HandleEvent(stale)
	assert.Equal(t, 1, h.c.Snapshot().CurrentIndex)

	// Same video, older generation.
	ev := h.event(player.EventPlaying)
	ev.Generation--
	h.c.HandleEvent(ev)
	assert.False(t, h.c.Snapshot().IsPlaying)
}

func TestController_ErrorAutoSkip(t *testing.T) {
	h := newHarness(t, Config{ErrorSkipDelay: 20 * time.Millisecond}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb")...)
	h.ready()

	h.c.HandleEvent(player.Event{
		Type:       player.EventError,
		VideoID:    "aaaaaaaaaaa",
		Generation: h.c.Snapshot().Generation,
		Code:       player.ErrorNotEmbeddable,
	})

	// The failing track stays visible during the grace delay.
	assert.Equal(t, 0, h.c.Snapshot().CurrentIndex)
	assert.Contains(t, h.publisher.codes(), NoticePlaybackError)

	require.Eventually(t, func() bool {
		return h.c.Snapshot().CurrentIndex == 1
	}, time.Second, 5*time.Millisecond)
}

func TestController_ErrorAutoSkipCancelled(t *testing.T) {
	t.Run("track changed", func(t *testing.T) {
		h := newHarness(t, Config{ErrorSkipDelay: 30 * time.Millisecond}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc")...)

		h.c.OnAdapterError(player.ErrorNotFound)
		require.NoError(t, h.c.SelectTrack(2))

		time.Sleep(80 * time.Millisecond)
		assert.Equal(t, 2, h.c.Snapshot().CurrentIndex)
	})

	t.Run("closed", func(t *testing.T) {
		h := newHarness(t, Config{ErrorSkipDelay: 30 * time.Millisecond}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb")...)

		h.c.OnAdapterError(player.ErrorNotFound)
		require.NoError(t, h.c.Close())

		time.Sleep(80 * time.Millisecond)
		assert.Equal(t, 0, h.c.Snapshot().CurrentIndex)
		assert.True(t, h.adapter.closed)
	})
}

func TestController_FavoritesRoundTrip(t *testing.T) {
	h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb")...)
	ctx := context.Background()

	added, err := h.c.ToggleFavorite(ctx)
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, h.c.Snapshot().IsFavorite("aaaaaaaaaaa"))

	added, err = h.c.ToggleFavorite(ctx)
	require.NoError(t, err)
	assert.False(t, added)
	assert.False(t, h.c.Snapshot().IsFavorite("aaaaaaaaaaa"))

	require.Len(t, h.slot.values, 2)
	assert.JSONEq(t, `["aaaaaaaaaaa"]`, string(h.slot.values[0]))
	assert.JSONEq(t, `[]`, string(h.slot.values[1]))
	assert.Equal(t, []string{NoticeFavoriteAdded, NoticeFavoriteRemoved}, h.publisher.codes())
}

func TestController_FavoritesLoadedOnInit(t *testing.T) {
	slot := &recordingSlot{values: [][]byte{[]byte(`["bbbbbbbbbbb"]`)}}
	c := New(context.Background(), Config{InitialTracks: testTracks("aaaaaaaaaaa", "bbbbbbbbbbb")}, Deps{
		Adapter:   newFakeAdapter(),
		Resolver:  catalog.New(),
		Favorites: favorites.NewRepository(slot),
	})
	defer c.Close()

	assert.Equal(t, []string{"bbbbbbbbbbb"}, c.Snapshot().Favorites)

	added, err := c.ToggleFavoriteID(context.Background(), "bbbbbbbbbbb")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = c.ToggleFavoriteID(context.Background(), "zzzzzzzzzzz")
	assert.True(t, errors.Is(err, ErrTrackNotFound))
}

func TestController_Seek(t *testing.T) {
	h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa")...)

	assert.True(t, errors.Is(h.c.Seek(10), ErrNotReady))

	h.ready()
	h.c.OnTimeUpdate(50, 180)

	require.NoError(t, h.c.Seek(90))
	assert.Equal(t, 90.0, h.c.Snapshot().Position)
	require.Eventually(t, func() bool {
		seeks := h.adapter.seekCalls()
		return len(seeks) > 0 && seeks[len(seeks)-1] == 90
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, h.c.SeekRelative(h.c.SeekStep()))
	assert.Equal(t, 100.0, h.c.Snapshot().Position)

	require.NoError(t, h.c.SeekRelative(-500))
	assert.Equal(t, 0.0, h.c.Snapshot().Position)

	require.NoError(t, h.c.Seek(1000))
	assert.Equal(t, 180.0, h.c.Snapshot().Position)

	require.NoError(t, h.c.SeekFraction(0.5))
	assert.Equal(t, 90.0, h.c.Snapshot().Position)
}

func TestController_SelectTrack(t *testing.T) {
	h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb")...)
	h.c.OnTimeUpdate(20, 180)

	require.NoError(t, h.c.SelectTrack(1))
	s := h.c.Snapshot()
	assert.Equal(t, 1, s.CurrentIndex)
	assert.True(t, s.IsPlaying)
	assert.Equal(t, 0.0, s.Position)

	assert.True(t, errors.Is(h.c.SelectTrack(2), ErrIndexOutOfRange))
	assert.True(t, errors.Is(h.c.SelectTrack(-1), ErrIndexOutOfRange))
}

func TestController_SelectID(t *testing.T) {
	h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc")...)

	// Rows shift after a remove; selection follows the ID, not the old index.
	require.NoError(t, h.c.RemoveTrack("aaaaaaaaaaa"))
	index, err := h.c.SelectID("ccccccccccc")
	require.NoError(t, err)
	assert.Equal(t, 1, index)

	s := h.c.Snapshot()
	cur, _ := s.Current()
	assert.Equal(t, "ccccccccccc", cur.ID)
	assert.True(t, s.IsPlaying)

	_, err = h.c.SelectID("aaaaaaaaaaa")
	assert.True(t, errors.Is(err, ErrTrackNotFound))
}

func TestController_RemoveTrack(t *testing.T) {
	t.Run("before current", func(t *testing.T) {
		h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc")...)
		require.NoError(t, h.c.SelectTrack(2))
		gen := h.c.Snapshot().Generation

		require.NoError(t, h.c.RemoveTrack("aaaaaaaaaaa"))
		s := h.c.Snapshot()
		assert.Equal(t, 1, s.CurrentIndex)
		cur, _ := s.Current()
		assert.Equal(t, "ccccccccccc", cur.ID)
		assert.Equal(t, gen, s.Generation)
	})

	t.Run("current last", func(t *testing.T) {
		h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb")...)
		require.NoError(t, h.c.SelectTrack(1))

		require.NoError(t, h.c.RemoveTrack("bbbbbbbbbbb"))
		s := h.c.Snapshot()
		assert.Equal(t, 0, s.CurrentIndex)
		assert.True(t, s.IsPlaying)
	})

	t.Run("only track", func(t *testing.T) {
		h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa")...)
		require.NoError(t, h.c.SelectTrack(0))

		require.NoError(t, h.c.RemoveTrack("aaaaaaaaaaa"))
		s := h.c.Snapshot()
		assert.Empty(t, s.Tracks)
		assert.False(t, s.IsPlaying)
		h.waitDesired(t, func(d player.Desired) bool { return d.VideoID == "" })
	})

	t.Run("missing", func(t *testing.T) {
		h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa")...)
		assert.True(t, errors.Is(h.c.RemoveTrack("zzzzzzzzzzz"), ErrTrackNotFound))
	})
}

func TestController_SetVolume(t *testing.T) {
	h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa")...)

	h.c.SetVolume(0.25)
	assert.Equal(t, 0.25, h.c.Snapshot().Volume)
	h.waitDesired(t, func(d player.Desired) bool { return d.Volume == 0.25 })

	h.c.SetVolume(3)
	assert.Equal(t, 1.0, h.c.Snapshot().Volume)

	h.c.SetVolume(-1)
	assert.Equal(t, 0.0, h.c.Snapshot().Volume)
}

func TestController_PositionClamp(t *testing.T) {
	h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa", "bbbbbbbbbbb")...)

	// Unknown widget duration keeps the label's 3:00.
	h.c.OnTimeUpdate(42, 0)
	s := h.c.Snapshot()
	assert.Equal(t, 42.0, s.Position)
	assert.Equal(t, 180.0, s.Duration)

	h.c.OnTimeUpdate(400, 0)
	s = h.c.Snapshot()
	assert.Equal(t, 0, s.CurrentIndex)
	assert.Equal(t, 180.5, s.Position)
	assert.LessOrEqual(t, s.Position, s.Duration+0.5)

	h.c.OnTimeUpdate(-3, 0)
	assert.Equal(t, 0.0, h.c.Snapshot().Position)
}

func TestController_DurationCorrection(t *testing.T) {
	h := newHarness(t, Config{}, catalog.Placeholder("aaaaaaaaaaa"))

	h.c.OnTimeUpdate(1, 212)
	cur, _ := h.c.Snapshot().Current()
	assert.Equal(t, "3:32", cur.DurationLabel)

	h.c.OnTimeUpdate(2, 215)
	cur, _ = h.c.Snapshot().Current()
	assert.Equal(t, "3:32", cur.DurationLabel)
}

func TestController_Run(t *testing.T) {
	h := newHarness(t, Config{}, testTracks("aaaaaaaaaaa")...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.c.Run(ctx) }()

	h.adapter.events <- h.event(player.EventReady)
	require.Eventually(t, func() bool {
		return h.c.Snapshot().AdapterReady
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestArmAngle(t *testing.T) {
	assert.Equal(t, 0.0, ArmAngle(true))
	assert.Equal(t, -45.0, ArmAngle(false))
}
