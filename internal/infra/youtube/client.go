// Package youtube provides a metadata client for YouTube videos.
package youtube

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vinylbox/internal/app/catalog"
	"github.com/osa030/vinylbox/internal/domain/track"
)

const (
	defaultOEmbedURL = "https://www.youtube.com/oembed"
	defaultWatchURL  = "https://www.youtube.com/watch"
	defaultTimeout   = 10 * time.Second
)

// ErrNotFound is returned when the provider does not know the video.
var ErrNotFound = errors.New("video not found")

// Config represents YouTube client configuration.
type Config struct {
	OEmbedURL string
	WatchURL  string
	Timeout   time.Duration
}

// OEmbedResponse represents the subset of the oEmbed response the player uses.
type OEmbedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	ProviderName string `json:"provider_name"`
	Type         string `json:"type"`
}

// Client is a YouTube oEmbed client with an in-memory cache.
type Client struct {
	oembedURL  string
	watchURL   string
	httpClient *http.Client

	cache   map[string]*catalog.Metadata
	cacheMu sync.RWMutex
}

// Ensure Client implements catalog.MetadataSource.
var _ catalog.MetadataSource = (*Client)(nil)

// New creates a new YouTube client.
func New(cfg Config) *Client {
	oembedURL := cfg.OEmbedURL
	if oembedURL == "" {
		oembedURL = defaultOEmbedURL
	}
	watchURL := cfg.WatchURL
	if watchURL == "" {
		watchURL = defaultWatchURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		oembedURL:  oembedURL,
		watchURL:   watchURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      make(map[string]*catalog.Metadata),
	}
}

// VideoMetadata resolves metadata through the oEmbed endpoint.
func (c *Client) VideoMetadata(ctx context.Context, id string) (*catalog.Metadata, error) {
	resp, err := c.OEmbed(ctx, id)
	if err != nil {
		return nil, err
	}
	return &catalog.Metadata{
		Title:        resp.Title,
		AuthorName:   resp.AuthorName,
		ThumbnailURL: resp.ThumbnailURL,
	}, nil
}

// OEmbed fetches the oEmbed document for a video ID.
// Reference: https://oembed.com/
func (c *Client) OEmbed(ctx context.Context, id string) (*OEmbedResponse, error) {
	if id == "" {
		return nil, errors.New("video id is required")
	}

	c.cacheMu.RLock()
	if md, ok := c.cache[id]; ok {
		c.cacheMu.RUnlock()
		zlog.Debug().Msgf("youtube: using cached oembed: id=%s", id)
		return &OEmbedResponse{Title: md.Title, AuthorName: md.AuthorName, ThumbnailURL: md.ThumbnailURL}, nil
	}
	c.cacheMu.RUnlock()

	params := url.Values{}
	params.Set("url", track.WatchURLFor(id))
	params.Set("format", "json")

	body, err := c.get(ctx, c.oembedURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var response OEmbedResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, "failed to parse oembed response")
	}
	if strings.TrimSpace(response.Title) == "" {
		return nil, errors.New("oembed response has no title")
	}

	c.cacheMu.Lock()
	c.cache[id] = &catalog.Metadata{
		Title:        response.Title,
		AuthorName:   response.AuthorName,
		ThumbnailURL: response.ThumbnailURL,
	}
	c.cacheMu.Unlock()
	zlog.Debug().Msgf("youtube: cached oembed: id=%s title=%q", id, response.Title)

	return &response, nil
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Wrapf(ErrNotFound, "status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, errors.Newf("youtube request failed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	return body, nil
}
