package playback

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vinylbox/internal/app/catalog"
	"github.com/osa030/vinylbox/internal/app/favorites"
	"github.com/osa030/vinylbox/internal/app/player"
	"github.com/osa030/vinylbox/internal/domain/playlist"
	"github.com/osa030/vinylbox/internal/domain/track"
)

// Errors
var (
	ErrDuplicateTrack  = errors.New("track already in playlist")
	ErrNotReady        = errors.New("player not ready")
	ErrEmptyPlaylist   = errors.New("playlist is empty")
	ErrIndexOutOfRange = errors.New("track index out of range")
	ErrTrackNotFound   = errors.New("track not found")
)

// Adapter is the player side of the controller.
type Adapter interface {
	Sync(d player.Desired)
	Seek(seconds float64)
	Events() <-chan player.Event
	Close() error
}

// Resolver resolves a video ID into a track. It never fails.
type Resolver interface {
	FetchVideoDetails(ctx context.Context, id string) track.Track
}

// Config holds controller configuration.
type Config struct {
	InitialTracks  []track.Track
	InitialVolume  float64                 // 0..1
	ErrorSkipDelay time.Duration           // Delay before skipping a failed video
	EndThreshold   float64                 // Seconds before the end that count as ended
	SeekStep       float64                 // Seconds for relative seeks
	Messages       func(code string) string // Notice texts, optional
}

// Deps holds the controller collaborators.
type Deps struct {
	Adapter   Adapter
	Resolver  Resolver
	Favorites *favorites.Repository // Optional; favorites are kept in memory without it
	Publisher Publisher             // Optional
}

type pendingSeek struct {
	generation uint64
	position   float64
}

// Controller owns the playlist and transport state and drives the adapter.
type Controller struct {
	mu sync.Mutex

	// Playlist
	playlist *playlist.Playlist
	current  int

	// Transport state
	isPlaying    bool
	position     float64
	duration     float64
	volume       float64
	adapterReady bool
	generation   uint64 // Bumped on every track (re)selection
	endLatched   bool   // Auto-advance fired for the current end-of-track window

	// Favorites
	favorites *favorites.Set

	// Collaborators
	adapter   Adapter
	resolver  Resolver
	repo      *favorites.Repository
	publisher Publisher

	// Timers
	errorSkipTimer *time.Timer

	// Adapter sync
	syncCh   chan struct{}
	seek     *pendingSeek
	syncDone chan struct{}

	// Configuration
	config Config

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a controller. Favorites are loaded once here.
func New(ctx context.Context, config Config, deps Deps) *Controller {
	if config.ErrorSkipDelay <= 0 {
		config.ErrorSkipDelay = 2 * time.Second
	}
	if config.EndThreshold <= 0 {
		config.EndThreshold = 0.5
	}
	if config.SeekStep <= 0 {
		config.SeekStep = 10
	}

	favs := favorites.NewSet()
	if deps.Favorites != nil {
		favs = deps.Favorites.Load(ctx)
	}

	cctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		playlist:  playlist.New(config.InitialTracks...),
		volume:    clamp(config.InitialVolume, 0, 1),
		favorites: favs,
		adapter:   deps.Adapter,
		resolver:  deps.Resolver,
		repo:      deps.Favorites,
		publisher: deps.Publisher,
		syncCh:    make(chan struct{}, 1),
		syncDone:  make(chan struct{}),
		config:    config,
		ctx:       cctx,
		cancel:    cancel,
	}
	c.duration = c.labelDurationLocked()

	go c.syncLoop()

	c.mu.Lock()
	c.requestSyncLocked()
	c.mu.Unlock()
	return c
}

// Run consumes adapter events until ctx is done or the controller is closed.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ctx.Done():
			return nil
		case ev, ok := <-c.adapter.Events():
			if !ok {
				return nil
			}
			c.HandleEvent(ev)
		}
	}
}

// Close cancels pending timers and closes the adapter.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return nil
	}
	c.cancel()
	c.stopErrorSkipLocked()
	c.mu.Unlock()

	<-c.syncDone
	return c.adapter.Close()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// AddTrack parses ref (a URL or a bare video ID), resolves its metadata and
// appends it. The new track becomes current and starts playing.
func (c *Controller) AddTrack(ctx context.Context, ref string) (track.Track, error) {
	id, err := catalog.ParseVideoRef(ref)
	if err != nil {
		code := NoticeInvalidURL
		if errors.Is(err, catalog.ErrEmptyURL) {
			code = NoticeEmptyURL
		}
		c.mu.Lock()
		c.noticeLocked(code, LevelError, "")
		c.mu.Unlock()
		return track.Track{}, err
	}

	c.mu.Lock()
	if c.playlist.Contains(id) {
		c.noticeLocked(NoticeDuplicateTrack, LevelInfo, id)
		c.mu.Unlock()
		return track.Track{}, errors.Wrapf(ErrDuplicateTrack, "id=%s", id)
	}
	c.mu.Unlock()

	// Metadata lookup runs unlocked; it may take seconds.
	t := c.resolver.FetchVideoDetails(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.playlist.Append(t) {
		c.noticeLocked(NoticeDuplicateTrack, LevelInfo, id)
		return track.Track{}, errors.Wrapf(ErrDuplicateTrack, "id=%s", id)
	}
	zlog.Info().Msgf("playback: track added: id=%s title=%q artist=%q", t.ID, t.Title, t.Artist)

	c.setCurrentLocked(c.playlist.Len() - 1)
	c.isPlaying = true
	c.noticeLocked(NoticeTrackAdded, LevelSuccess, id)
	c.changedLocked()
	return t, nil
}

// PlayPause toggles playback. It requires the player to be ready.
func (c *Controller) PlayPause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.adapterReady {
		c.noticeLocked(NoticeNotReady, LevelError, "")
		return ErrNotReady
	}
	if c.playlist.IsEmpty() {
		return ErrEmptyPlaylist
	}

	c.isPlaying = !c.isPlaying
	zlog.Debug().Msgf("playback: play/pause: playing=%t", c.isPlaying)
	c.changedLocked()
	return nil
}

// SkipNext moves to the next track, wrapping to the first.
func (c *Controller) SkipNext() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.skipLocked(1)
}

// SkipPrevious moves to the previous track, wrapping to the last.
func (c *Controller) SkipPrevious() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.skipLocked(-1)
}

// Seek moves the playhead to seconds and optimistically updates the position.
func (c *Controller) Seek(seconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seekLocked(seconds)
}

// SeekRelative moves the playhead by delta seconds, clamped to the track.
func (c *Controller) SeekRelative(delta float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seekLocked(c.position + delta)
}

// SeekStep returns the relative seek step in seconds.
func (c *Controller) SeekStep() float64 {
	return c.config.SeekStep
}

// SeekFraction moves the playhead to fraction (0..1) of the track duration.
func (c *Controller) SeekFraction(fraction float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.duration <= 0 {
		return ErrNotReady
	}
	return c.seekLocked(clamp(fraction, 0, 1) * c.duration)
}

// SelectTrack makes the track at index current and starts playing it.
func (c *Controller) SelectTrack(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= c.playlist.Len() {
		return errors.Wrapf(ErrIndexOutOfRange, "index=%d len=%d", index, c.playlist.Len())
	}
	c.setCurrentLocked(index)
	c.isPlaying = true
	c.changedLocked()
	return nil
}

// SelectID starts playing the track with the given ID and returns its index.
func (c *Controller) SelectID(id string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := c.playlist.IndexOf(id)
	if index < 0 {
		return -1, errors.Wrapf(ErrTrackNotFound, "id=%s", id)
	}
	c.setCurrentLocked(index)
	c.isPlaying = true
	c.changedLocked()
	return index, nil
}

// RemoveTrack removes a track from the playlist. The current track stays
// selected unless it is the one removed.
func (c *Controller) RemoveTrack(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.playlist.Remove(id)
	if idx < 0 {
		return errors.Wrapf(ErrTrackNotFound, "id=%s", id)
	}
	zlog.Info().Msgf("playback: track removed: id=%s", id)

	switch {
	case c.playlist.IsEmpty():
		c.setCurrentLocked(0)
		c.isPlaying = false
	case idx < c.current:
		c.current--
	case idx == c.current:
		c.setCurrentLocked(min(idx, c.playlist.Len()-1))
	}
	c.changedLocked()
	return nil
}

// ToggleFavorite flips the favorite state of the current track.
func (c *Controller) ToggleFavorite(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.playlist.At(c.current)
	if !ok {
		return false, ErrEmptyPlaylist
	}
	return c.toggleFavoriteLocked(ctx, t.ID), nil
}

// ToggleFavoriteID flips the favorite state of any playlist track.
func (c *Controller) ToggleFavoriteID(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.playlist.Contains(id) {
		return false, errors.Wrapf(ErrTrackNotFound, "id=%s", id)
	}
	return c.toggleFavoriteLocked(ctx, id), nil
}

// SetVolume sets the volume, clamped to 0..1.
func (c *Controller) SetVolume(volume float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.volume = clamp(volume, 0, 1)
	c.changedLocked()
}

// HandleEvent applies an adapter event. Events from a widget that no longer
// serves the current track are ignored.
func (c *Controller) HandleEvent(ev player.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.playlist.At(c.current)
	if !ok || ev.VideoID != t.ID || ev.Generation != c.generation {
		zlog.Debug().Msgf("playback: stale %s event ignored: video=%s generation=%d", ev.Type, ev.VideoID, ev.Generation)
		return
	}

	switch ev.Type {
	case player.EventReady:
		if !c.adapterReady {
			zlog.Info().Msg("playback: player ready")
		}
		c.adapterReady = true
		c.publishLocked()
	case player.EventPlaying:
		c.isPlaying = true
		c.publishLocked()
	case player.EventPaused:
		c.isPlaying = false
		c.publishLocked()
	case player.EventEnded:
		zlog.Debug().Msgf("playback: track ended: id=%s", t.ID)
		_ = c.skipLocked(1)
	case player.EventError:
		c.onAdapterErrorLocked(ev.Code)
	case player.EventTimeUpdate:
		c.onTimeUpdateLocked(ev.Position, ev.Duration)
	}
}

// OnTimeUpdate applies a position sample for the current track.
func (c *Controller) OnTimeUpdate(position, duration float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTimeUpdateLocked(position, duration)
}

// OnAdapterError reports a widget error for the current track.
func (c *Controller) OnAdapterError(code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAdapterErrorLocked(code)
}

func (c *Controller) onTimeUpdateLocked(position, duration float64) {
	if math.IsNaN(position) || math.IsNaN(duration) {
		return
	}
	// A widget that has not learned the duration yet reports 0; keep the label's.
	if duration > 0 {
		c.duration = duration
	}
	c.position = max(position, 0)
	if c.duration > 0 {
		c.position = min(c.position, c.duration+c.config.EndThreshold)
	}

	if duration > 0 {
		if t, ok := c.playlist.At(c.current); ok {
			label := catalog.FormatTime(duration)
			c.playlist.Update(t.ID, func(t *track.Track) {
				if t.CorrectDuration(label) {
					zlog.Debug().Msgf("playback: duration corrected: id=%s duration=%s", t.ID, label)
				}
			})
		}
	}

	if duration > 0 && position >= duration-c.config.EndThreshold {
		if !c.endLatched {
			c.endLatched = true
			zlog.Debug().Msgf("playback: end threshold reached: position=%.2f duration=%.2f", position, duration)
			_ = c.skipLocked(1)
			return
		}
	} else {
		c.endLatched = false
	}
	c.publishLocked()
}

func (c *Controller) onAdapterErrorLocked(code int) {
	t, _ := c.playlist.At(c.current)
	zlog.Error().Msgf("playback: player error: id=%s code=%d", t.ID, code)
	c.noticeLocked(NoticePlaybackError, LevelError, t.ID)

	c.stopErrorSkipLocked()
	generation := c.generation
	c.errorSkipTimer = time.AfterFunc(c.config.ErrorSkipDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		// Skip only if nothing changed the track in the meantime.
		if c.ctx.Err() != nil || c.generation != generation {
			return
		}
		c.errorSkipTimer = nil
		zlog.Info().Msgf("playback: skipping failed track: id=%s", t.ID)
		_ = c.skipLocked(1)
	})
}

func (c *Controller) stopErrorSkipLocked() {
	if c.errorSkipTimer != nil {
		c.errorSkipTimer.Stop()
		c.errorSkipTimer = nil
	}
}

func (c *Controller) skipLocked(step int) error {
	n := c.playlist.Len()
	if n == 0 {
		return ErrEmptyPlaylist
	}
	c.setCurrentLocked(((c.current+step)%n + n) % n)
	c.changedLocked()
	return nil
}

func (c *Controller) seekLocked(seconds float64) error {
	if c.playlist.IsEmpty() {
		return ErrEmptyPlaylist
	}
	if !c.adapterReady {
		return ErrNotReady
	}
	seconds = max(seconds, 0)
	if c.duration > 0 {
		seconds = min(seconds, c.duration)
	}
	c.position = seconds
	c.seek = &pendingSeek{generation: c.generation, position: seconds}
	c.changedLocked()
	return nil
}

// setCurrentLocked selects index and resets the position. The generation is
// bumped even when index is unchanged so a one-track wrap restarts the video.
func (c *Controller) setCurrentLocked(index int) {
	c.current = index
	c.generation++
	c.position = 0
	c.duration = c.labelDurationLocked()
	c.endLatched = false
	c.seek = nil
	c.stopErrorSkipLocked()
}

func (c *Controller) labelDurationLocked() float64 {
	t, ok := c.playlist.At(c.current)
	if !ok {
		return 0
	}
	d, _ := catalog.ParseTime(t.DurationLabel)
	return d
}

func (c *Controller) toggleFavoriteLocked(ctx context.Context, id string) bool {
	added := c.favorites.Toggle(id)
	if c.repo != nil {
		if err := c.repo.Save(ctx, c.favorites); err != nil {
			zlog.Error().Err(err).Msg("playback: failed to persist favorites")
		}
	}
	if added {
		c.noticeLocked(NoticeFavoriteAdded, LevelSuccess, id)
	} else {
		c.noticeLocked(NoticeFavoriteRemoved, LevelInfo, id)
	}
	c.publishLocked()
	return added
}

// changedLocked publishes the state and asks the sync loop to reconcile the adapter.
func (c *Controller) changedLocked() {
	c.publishLocked()
	c.requestSyncLocked()
}

func (c *Controller) requestSyncLocked() {
	select {
	case c.syncCh <- struct{}{}:
	default:
	}
}

func (c *Controller) desiredLocked() player.Desired {
	d := player.Desired{
		Generation: c.generation,
		Playing:    c.isPlaying,
		Volume:     c.volume,
	}
	if t, ok := c.playlist.At(c.current); ok {
		d.VideoID = t.ID
	}
	return d
}

// syncLoop applies the latest desired state to the adapter. Adapter calls may
// block on the widget, so they run here rather than under the controller lock.
func (c *Controller) syncLoop() {
	defer close(c.syncDone)
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.syncCh:
		}

		c.mu.Lock()
		d := c.desiredLocked()
		seek := c.seek
		c.seek = nil
		c.mu.Unlock()

		c.adapter.Sync(d)
		if seek != nil && seek.generation == d.Generation {
			c.adapter.Seek(seek.position)
		}
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Tracks:       c.playlist.Tracks(),
		CurrentIndex: c.current,
		IsPlaying:    c.isPlaying,
		Position:     c.position,
		Duration:     c.duration,
		Volume:       c.volume,
		AdapterReady: c.adapterReady,
		Favorites:    c.favorites.IDs(),
		Generation:   c.generation,
	}
}

func (c *Controller) publishLocked() {
	if c.publisher == nil {
		return
	}
	c.publisher.PublishState(c.snapshotLocked())
}

func (c *Controller) noticeLocked(code string, level Level, videoID string) {
	n := Notice{Code: code, Level: level, VideoID: videoID, At: time.Now()}
	if c.config.Messages != nil {
		n.Message = c.config.Messages(code)
	}
	zlog.Debug().Msgf("playback: notice: code=%s video=%s", code, videoID)
	if c.publisher != nil {
		c.publisher.PublishNotice(n)
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return min(max(v, lo), hi)
}
