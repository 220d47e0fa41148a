package connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/osa030/vinylbox/internal/app/notification"
)

// Client is a PlayerService client.
type Client struct {
	getState       *connect.Client[Empty, StateResponse]
	addTrack       *connect.Client[AddTrackRequest, AddTrackResponse]
	playPause      *connect.Client[Empty, StateResponse]
	skipNext       *connect.Client[Empty, StateResponse]
	skipPrevious   *connect.Client[Empty, StateResponse]
	seek           *connect.Client[SeekRequest, StateResponse]
	setVolume      *connect.Client[SetVolumeRequest, StateResponse]
	selectTrack    *connect.Client[SelectTrackRequest, StateResponse]
	removeTrack    *connect.Client[RemoveTrackRequest, StateResponse]
	toggleFavorite *connect.Client[ToggleFavoriteRequest, ToggleFavoriteResponse]
	subscribe      *connect.Client[Empty, notification.Notification]
}

// NewClient creates a client for the server at baseURL. A non-empty token is
// sent with every call.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	if token != "" {
		opts = append(opts, connect.WithInterceptors(NewControlTokenInterceptor(token)))
	}

	return &Client{
		getState:       connect.NewClient[Empty, StateResponse](httpClient, baseURL+GetStateProcedure, opts...),
		addTrack:       connect.NewClient[AddTrackRequest, AddTrackResponse](httpClient, baseURL+AddTrackProcedure, opts...),
		playPause:      connect.NewClient[Empty, StateResponse](httpClient, baseURL+PlayPauseProcedure, opts...),
		skipNext:       connect.NewClient[Empty, StateResponse](httpClient, baseURL+SkipNextProcedure, opts...),
		skipPrevious:   connect.NewClient[Empty, StateResponse](httpClient, baseURL+SkipPreviousProcedure, opts...),
		seek:           connect.NewClient[SeekRequest, StateResponse](httpClient, baseURL+SeekProcedure, opts...),
		setVolume:      connect.NewClient[SetVolumeRequest, StateResponse](httpClient, baseURL+SetVolumeProcedure, opts...),
		selectTrack:    connect.NewClient[SelectTrackRequest, StateResponse](httpClient, baseURL+SelectTrackProcedure, opts...),
		removeTrack:    connect.NewClient[RemoveTrackRequest, StateResponse](httpClient, baseURL+RemoveTrackProcedure, opts...),
		toggleFavorite: connect.NewClient[ToggleFavoriteRequest, ToggleFavoriteResponse](httpClient, baseURL+ToggleFavoriteProcedure, opts...),
		subscribe:      connect.NewClient[Empty, notification.Notification](httpClient, baseURL+SubscribeProcedure, opts...),
	}
}

// NewDefaultClient creates a client using http.DefaultClient.
func NewDefaultClient(baseURL, token string) *Client {
	return NewClient(http.DefaultClient, baseURL, token)
}

func (c *Client) GetState(ctx context.Context) (*StateResponse, error) {
	return call(ctx, c.getState, &Empty{})
}

func (c *Client) AddTrack(ctx context.Context, url string) (*AddTrackResponse, error) {
	return call(ctx, c.addTrack, &AddTrackRequest{URL: url})
}

func (c *Client) PlayPause(ctx context.Context) (*StateResponse, error) {
	return call(ctx, c.playPause, &Empty{})
}

func (c *Client) SkipNext(ctx context.Context) (*StateResponse, error) {
	return call(ctx, c.skipNext, &Empty{})
}

func (c *Client) SkipPrevious(ctx context.Context) (*StateResponse, error) {
	return call(ctx, c.skipPrevious, &Empty{})
}

func (c *Client) Seek(ctx context.Context, mode SeekMode, value float64) (*StateResponse, error) {
	return call(ctx, c.seek, &SeekRequest{Mode: mode, Value: value})
}

func (c *Client) SetVolume(ctx context.Context, volume float64) (*StateResponse, error) {
	return call(ctx, c.setVolume, &SetVolumeRequest{Volume: volume})
}

func (c *Client) SelectTrack(ctx context.Context, index int) (*StateResponse, error) {
	return call(ctx, c.selectTrack, &SelectTrackRequest{Index: index})
}

func (c *Client) RemoveTrack(ctx context.Context, id string) (*StateResponse, error) {
	return call(ctx, c.removeTrack, &RemoveTrackRequest{ID: id})
}

func (c *Client) ToggleFavorite(ctx context.Context, id string) (*ToggleFavoriteResponse, error) {
	return call(ctx, c.toggleFavorite, &ToggleFavoriteRequest{ID: id})
}

// Subscribe opens the notification stream. The first message is the current
// state. Close the stream to stop.
func (c *Client) Subscribe(ctx context.Context) (*connect.ServerStreamForClient[notification.Notification], error) {
	return c.subscribe.CallServerStream(ctx, connect.NewRequest(&Empty{}))
}

func call[Req, Res any](ctx context.Context, client *connect.Client[Req, Res], msg *Req) (*Res, error) {
	resp, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
