// Package web provides the HTTP router: health check, deep links, the
// showcase catalog and the mounted RPC handler.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vinylbox/internal/app/catalog"
	"github.com/osa030/vinylbox/internal/app/playback"
	"github.com/osa030/vinylbox/internal/domain/track"
)

const (
	tokenHeader = "X-Control-Token"
	tokenQuery  = "token"

	notFoundMessage = "The record you're looking for has been misplaced"
)

// Controller is the playback surface deep links drive.
type Controller interface {
	Snapshot() playback.Snapshot
	AddTrack(ctx context.Context, ref string) (track.Track, error)
	SelectID(id string) (int, error)
}

// Config holds router configuration.
type Config struct {
	Token       string       // Required on deep links when set
	RPCPath     string       // Mount path of the RPC handler
	RPCHandler  http.Handler // Optional
	Controller  Controller
	DefaultList []track.Track // Showcase list served at /catalog
}

type router struct {
	config Config
}

// NewRouter creates the HTTP handler.
func NewRouter(config Config) http.Handler {
	if config.DefaultList == nil {
		config.DefaultList = catalog.DefaultVideos()
	}
	rt := &router{config: config}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", rt.health)
	r.Get("/catalog", rt.catalog)
	r.Get("/player/{videoID}", rt.player)
	if config.RPCHandler != nil && config.RPCPath != "" {
		r.Handle(config.RPCPath+"*", config.RPCHandler)
	}
	r.NotFound(rt.notFound)

	return r
}

func (rt *router) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *router) catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"videos": rt.config.DefaultList})
}

// player opens /player/{videoID}: a known video is selected, an unknown one
// is added. Either way it starts playing.
func (rt *router) player(w http.ResponseWriter, r *http.Request) {
	if !rt.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid control token")
		return
	}

	id, err := catalog.ParseVideoRef(chi.URLParam(r, "videoID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctrl := rt.config.Controller
	if rt.selectKnown(w, id) {
		return
	}

	if _, err := ctrl.AddTrack(r.Context(), id); err != nil {
		// Added concurrently since the lookup.
		if errors.Is(err, playback.ErrDuplicateTrack) {
			if !rt.selectKnown(w, id) {
				writeError(w, http.StatusConflict, err.Error())
			}
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	zlog.Info().Msgf("web: deep link added: id=%s", id)
	writeJSON(w, http.StatusCreated, map[string]any{"state": ctrl.Snapshot()})
}

// selectKnown selects id when it is already listed and writes the response.
func (rt *router) selectKnown(w http.ResponseWriter, id string) bool {
	ctrl := rt.config.Controller
	index, err := ctrl.SelectID(id)
	if errors.Is(err, playback.ErrTrackNotFound) {
		return false
	}
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return true
	}
	zlog.Info().Msgf("web: deep link selected: id=%s index=%d", id, index)
	writeJSON(w, http.StatusOK, map[string]any{"state": ctrl.Snapshot()})
	return true
}

func (rt *router) notFound(w http.ResponseWriter, r *http.Request) {
	zlog.Warn().Msgf("web: route not found: path=%s", r.URL.Path)
	writeError(w, http.StatusNotFound, notFoundMessage)
}

func (rt *router) authorized(r *http.Request) bool {
	if rt.config.Token == "" {
		return true
	}
	token := r.Header.Get(tokenHeader)
	if token == "" {
		token = r.URL.Query().Get(tokenQuery)
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(rt.config.Token)) == 1
}

// requestLogger logs every request except health checks.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		zlog.Debug().Msgf("web: request: method=%s path=%s status=%d duration_ms=%d",
			r.Method, r.URL.Path, ww.Status(), time.Since(start).Milliseconds())
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Debug().Err(err).Msg("web: failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
