package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vinylbox/internal/app/catalog"
	"github.com/osa030/vinylbox/internal/app/intake"
	"github.com/osa030/vinylbox/internal/app/notification"
	"github.com/osa030/vinylbox/internal/app/playback"
	"github.com/osa030/vinylbox/internal/domain/track"
)

// Controller is the playback surface exposed over RPC.
type Controller interface {
	Snapshot() playback.Snapshot
	AddTrack(ctx context.Context, ref string) (track.Track, error)
	PlayPause() error
	SkipNext() error
	SkipPrevious() error
	Seek(seconds float64) error
	SeekRelative(delta float64) error
	SeekFraction(fraction float64) error
	SetVolume(volume float64)
	SelectTrack(index int) error
	RemoveTrack(id string) error
	ToggleFavorite(ctx context.Context) (bool, error)
	ToggleFavoriteID(ctx context.Context, id string) (bool, error)
}

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	ctrl     Controller
	chain    *intake.Chain
	notifier *notification.Manager
	messages func(code string) string
	done     <-chan struct{}
}

// NewPlayerService creates a new PlayerService. Subscribe streams end when
// done is closed.
func NewPlayerService(ctrl Controller, chain *intake.Chain, notifier *notification.Manager, messages func(code string) string, done <-chan struct{}) *PlayerService {
	if chain == nil {
		chain = intake.NewChain()
	}
	if messages == nil {
		messages = func(code string) string { return code }
	}
	return &PlayerService{
		ctrl:     ctrl,
		chain:    chain,
		notifier: notifier,
		messages: messages,
		done:     done,
	}
}

// NewPlayerServiceHandler builds an HTTP handler serving every PlayerService
// procedure. Mount it on the returned path.
func NewPlayerServiceHandler(svc *PlayerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(GetStateProcedure, connect.NewUnaryHandler(GetStateProcedure, svc.GetState, opts...))
	mux.Handle(AddTrackProcedure, connect.NewUnaryHandler(AddTrackProcedure, svc.AddTrack, opts...))
	mux.Handle(PlayPauseProcedure, connect.NewUnaryHandler(PlayPauseProcedure, svc.PlayPause, opts...))
	mux.Handle(SkipNextProcedure, connect.NewUnaryHandler(SkipNextProcedure, svc.SkipNext, opts...))
	mux.Handle(SkipPreviousProcedure, connect.NewUnaryHandler(SkipPreviousProcedure, svc.SkipPrevious, opts...))
	mux.Handle(SeekProcedure, connect.NewUnaryHandler(SeekProcedure, svc.Seek, opts...))
	mux.Handle(SetVolumeProcedure, connect.NewUnaryHandler(SetVolumeProcedure, svc.SetVolume, opts...))
	mux.Handle(SelectTrackProcedure, connect.NewUnaryHandler(SelectTrackProcedure, svc.SelectTrack, opts...))
	mux.Handle(RemoveTrackProcedure, connect.NewUnaryHandler(RemoveTrackProcedure, svc.RemoveTrack, opts...))
	mux.Handle(ToggleFavoriteProcedure, connect.NewUnaryHandler(ToggleFavoriteProcedure, svc.ToggleFavorite, opts...))
	mux.Handle(SubscribeProcedure, connect.NewServerStreamHandler(SubscribeProcedure, svc.Subscribe, opts...))

	return "/" + ServiceName + "/", mux
}

// GetState returns the current player state.
func (s *PlayerService) GetState(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StateResponse], error) {
	return s.state(), nil
}

// AddTrack validates the URL with the intake chain and adds the track.
// Rejections are reported in the response, not as errors.
func (s *PlayerService) AddTrack(
	ctx context.Context,
	req *connect.Request[AddTrackRequest],
) (*connect.Response[AddTrackResponse], error) {
	result := s.chain.Execute(ctx, req.Msg.URL)
	if !result.Accepted {
		zlog.Debug().Msgf("rpc: add track rejected: code=%s", result.Code)
		return s.addTrackResponse(nil, result.Code), nil
	}

	t, err := s.ctrl.AddTrack(ctx, result.VideoID)
	if err != nil {
		code := noticeCode(err)
		if code == "" {
			return nil, toConnectError(err)
		}
		return s.addTrackResponse(nil, code), nil
	}
	return s.addTrackResponse(&t, playback.NoticeTrackAdded), nil
}

func (s *PlayerService) addTrackResponse(t *track.Track, code string) *connect.Response[AddTrackResponse] {
	return connect.NewResponse(&AddTrackResponse{
		Success: t != nil,
		Code:    code,
		Message: s.messages(code),
		Track:   t,
		State:   s.ctrl.Snapshot(),
	})
}

// PlayPause toggles playback.
func (s *PlayerService) PlayPause(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StateResponse], error) {
	if err := s.ctrl.PlayPause(); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

// SkipNext moves to the next track.
func (s *PlayerService) SkipNext(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StateResponse], error) {
	if err := s.ctrl.SkipNext(); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

// SkipPrevious moves to the previous track.
func (s *PlayerService) SkipPrevious(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StateResponse], error) {
	if err := s.ctrl.SkipPrevious(); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

// Seek moves the playhead.
func (s *PlayerService) Seek(
	ctx context.Context,
	req *connect.Request[SeekRequest],
) (*connect.Response[StateResponse], error) {
	var err error
	switch req.Msg.Mode {
	case SeekAbsolute, "":
		err = s.ctrl.Seek(req.Msg.Value)
	case SeekRelative:
		err = s.ctrl.SeekRelative(req.Msg.Value)
	case SeekFraction:
		err = s.ctrl.SeekFraction(req.Msg.Value)
	default:
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.Newf("unknown seek mode: %s", req.Msg.Mode))
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

// SetVolume sets the volume.
func (s *PlayerService) SetVolume(
	ctx context.Context,
	req *connect.Request[SetVolumeRequest],
) (*connect.Response[StateResponse], error) {
	s.ctrl.SetVolume(req.Msg.Volume)
	return s.state(), nil
}

// SelectTrack plays the track at an index.
func (s *PlayerService) SelectTrack(
	ctx context.Context,
	req *connect.Request[SelectTrackRequest],
) (*connect.Response[StateResponse], error) {
	if err := s.ctrl.SelectTrack(req.Msg.Index); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

// RemoveTrack removes a track from the playlist.
func (s *PlayerService) RemoveTrack(
	ctx context.Context,
	req *connect.Request[RemoveTrackRequest],
) (*connect.Response[StateResponse], error) {
	if err := s.ctrl.RemoveTrack(req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

// ToggleFavorite flips the favorite flag of a track, or of the current track
// when no ID is given.
func (s *PlayerService) ToggleFavorite(
	ctx context.Context,
	req *connect.Request[ToggleFavoriteRequest],
) (*connect.Response[ToggleFavoriteResponse], error) {
	var (
		favorite bool
		err      error
	)
	if req.Msg.ID == "" {
		favorite, err = s.ctrl.ToggleFavorite(ctx)
	} else {
		favorite, err = s.ctrl.ToggleFavoriteID(ctx, req.Msg.ID)
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ToggleFavoriteResponse{
		Favorite: favorite,
		State:    s.ctrl.Snapshot(),
	}), nil
}

// Subscribe streams the current state followed by every notice and state change.
func (s *PlayerService) Subscribe(
	ctx context.Context,
	req *connect.Request[Empty],
	stream *connect.ServerStream[notification.Notification],
) error {
	state := s.ctrl.Snapshot()
	initial := &notification.Notification{
		SequenceNo: s.notifier.NextSequenceNo(),
		Type:       notification.TypeState,
		State:      &state,
	}
	if err := stream.Send(initial); err != nil {
		return err
	}

	subscriptionID := s.notifier.Subscribe(&notificationStreamAdapter{stream: stream})
	defer s.notifier.Unsubscribe(subscriptionID)

	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

func (s *PlayerService) state() *connect.Response[StateResponse] {
	return connect.NewResponse(&StateResponse{State: s.ctrl.Snapshot()})
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
type notificationStreamAdapter struct {
	stream *connect.ServerStream[notification.Notification]
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	return a.stream.Send(n)
}

// noticeCode returns the notice code for controller errors reported in
// AddTrack responses, or "" for unexpected errors.
func noticeCode(err error) string {
	switch {
	case errors.Is(err, playback.ErrDuplicateTrack):
		return playback.NoticeDuplicateTrack
	case errors.Is(err, catalog.ErrEmptyURL):
		return playback.NoticeEmptyURL
	case errors.Is(err, catalog.ErrInvalidURL):
		return playback.NoticeInvalidURL
	default:
		return ""
	}
}

// toConnectError maps controller errors onto connect codes.
func toConnectError(err error) error {
	var code connect.Code
	switch {
	case errors.Is(err, playback.ErrNotReady), errors.Is(err, playback.ErrEmptyPlaylist):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, playback.ErrIndexOutOfRange):
		code = connect.CodeOutOfRange
	case errors.Is(err, playback.ErrTrackNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, playback.ErrDuplicateTrack):
		code = connect.CodeAlreadyExists
	case errors.Is(err, catalog.ErrInvalidURL), errors.Is(err, catalog.ErrEmptyURL):
		code = connect.CodeInvalidArgument
	default:
		code = connect.CodeInternal
	}
	return connect.NewError(code, err)
}
