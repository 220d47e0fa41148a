// Package main provides the player entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/vinylbox/internal/api/connect"
	"github.com/osa030/vinylbox/internal/api/web"
	"github.com/osa030/vinylbox/internal/app/catalog"
	"github.com/osa030/vinylbox/internal/app/favorites"
	"github.com/osa030/vinylbox/internal/app/intake"
	"github.com/osa030/vinylbox/internal/app/notification"
	"github.com/osa030/vinylbox/internal/app/playback"
	"github.com/osa030/vinylbox/internal/app/player"
	"github.com/osa030/vinylbox/internal/domain/track"
	"github.com/osa030/vinylbox/internal/infra/backend"
	"github.com/osa030/vinylbox/internal/infra/config"
	"github.com/osa030/vinylbox/internal/infra/logger"
	"github.com/osa030/vinylbox/internal/infra/store"
	"github.com/osa030/vinylbox/internal/infra/youtube"
	"github.com/osa030/vinylbox/internal/ui"
)

var (
	app        = kingpin.New("vinyl", "Vinyl record YouTube player")
	configPath = app.Flag("config", "Path to config file (default: built-in settings)").Envar("VINYL_CONFIG").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file").String()
	listen     = app.Flag("listen", "Enable the remote control server on this address").String()
	backendArg = app.Flag("backend", "Widget backend (mpv or sim)").Enum(backend.TypeMPV, backend.TypeSim)

	// play command (default)
	playCmd      = app.Command("play", "Start the player (default)").Default()
	playRef      = playCmd.Arg("video", "YouTube URL or video ID to open").String()
	playHeadless = playCmd.Flag("headless", "Run without the terminal UI").Bool()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available intake filters and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	loggerConfig, err := loggerConfigFor(*playHeadless)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve log file: %v\n", err)
		os.Exit(1)
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		zlog.Error().Msgf("Failed to load config: %v", err)
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Server.Enabled = true
		cfg.Server.Addr = *listen
	}
	if *backendArg != "" {
		cfg.Player.Backend = *backendArg
	}

	if err := run(cfg, *playRef, *playHeadless); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loggerConfigFor returns the logger settings. The terminal UI owns the
// screen, so it logs to a file unless told otherwise.
func loggerConfigFor(headless bool) (logger.Config, error) {
	cfg := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		cfg.Level = "debug"
	}
	switch {
	case *logfile != "":
		cfg.Output = "file"
		cfg.File = *logfile
	case !headless:
		dir, err := os.UserCacheDir()
		if err != nil {
			return cfg, errors.Wrap(err, "failed to resolve user cache directory")
		}
		cfg.Output = "file"
		cfg.File = filepath.Join(dir, "vinylbox", "vinyl.log")
	}
	return cfg, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		zlog.Info().Msg("Using built-in config")
		return config.Default()
	}
	zlog.Info().Msgf("Loading config from %s", path)
	return config.Load(path)
}

// run executes the main player logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config, ref string, headless bool) error {
	if err := intake.ValidateConfig(cfg); err != nil {
		return errors.Wrap(err, "invalid filter config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Favorites
	slot, err := store.Open(cfg.Favorites.Store, cfg.Favorites.Path)
	if err != nil {
		return errors.Wrap(err, "failed to open favorites store")
	}
	defer slot.Close()

	// Metadata
	ytClient := youtube.New(youtube.Config{
		OEmbedURL: cfg.Metadata.OEmbedURL,
		WatchURL:  cfg.Metadata.WatchURL,
		Timeout:   cfg.MetadataTimeout(),
	})
	sources := []catalog.MetadataSource{ytClient}
	if !cfg.Metadata.DisablePageFallback {
		sources = append(sources, youtube.NewPageSource(ytClient))
	}
	cat := catalog.New(sources...)

	// Widget
	b, err := backend.NewFromConfig(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create widget backend")
	}
	adapter := player.NewAdapter(b, player.Config{PollInterval: cfg.PollInterval()})

	notifier := notification.NewManager()
	defer notifier.Close()

	ctrl := playback.New(ctx, playback.Config{
		InitialTracks:  initialTracks(ctx, cfg, cat),
		InitialVolume:  cfg.Player.InitialVolume,
		ErrorSkipDelay: cfg.ErrorSkipDelay(),
		EndThreshold:   cfg.Player.EndThresholdSec,
		SeekStep:       cfg.Player.SeekStepSec,
		Messages:       cfg.GetMessage,
	}, playback.Deps{
		Adapter:   adapter,
		Resolver:  cat,
		Favorites: favorites.NewRepository(slot),
		Publisher: notifier,
	})
	defer ctrl.Close()

	go func() {
		if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zlog.Error().Msgf("Controller stopped: %v", err)
		}
	}()

	chain, err := intake.NewChainFromConfig(cfg, intake.PlaylistFunc(func(id string) bool {
		for _, t := range ctrl.Snapshot().Tracks {
			if t.ID == id {
				return true
			}
		}
		return false
	}))
	if err != nil {
		return errors.Wrap(err, "failed to create intake chain")
	}

	if ref != "" {
		openRef(ctx, ctrl, ref)
	}

	// Remote control
	done := make(chan struct{})
	var server *http.Server
	serverErrCh := make(chan error, 1)
	if cfg.Server.Enabled {
		server = newServer(cfg, ctrl, chain, notifier, done)
		go func() {
			zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErrCh <- err
			}
		}()
	}

	var runErr error
	if headless {
		runErr = waitHeadless(ctx, serverErrCh)
	} else {
		runErr = runTUI(ctx, cfg, ctrl, chain, notifier)
	}

	// Graceful shutdown
	close(done)
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Msgf("Failed to shutdown server: %v", err)
		}
	}

	zlog.Info().Msg("Player stopped")
	return runErr
}

// initialTracks builds the startup playlist.
func initialTracks(ctx context.Context, cfg *config.Config, cat *catalog.Catalog) []track.Track {
	var tracks []track.Track
	if !cfg.Catalog.EmptyStart {
		tracks = catalog.DefaultVideos()
	}

	seen := make(map[string]bool, len(tracks))
	for _, t := range tracks {
		seen[t.ID] = true
	}
	for _, ref := range cfg.Catalog.Videos {
		id, err := catalog.ParseVideoRef(ref)
		if err != nil {
			zlog.Warn().Msgf("Skipping configured video: ref=%s err=%v", ref, err)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		tracks = append(tracks, cat.FetchVideoDetails(ctx, id))
	}

	zlog.Info().Msgf("Initial playlist: tracks=%d", len(tracks))
	return tracks
}

// openRef selects ref when it is already listed and adds it otherwise.
func openRef(ctx context.Context, ctrl *playback.Controller, ref string) {
	id, err := catalog.ParseVideoRef(ref)
	if err != nil {
		zlog.Warn().Msgf("Ignoring startup video: ref=%s err=%v", ref, err)
		return
	}
	if _, err := ctrl.SelectID(id); err == nil {
		return
	} else if !errors.Is(err, playback.ErrTrackNotFound) {
		zlog.Warn().Msgf("Failed to select startup video: id=%s err=%v", id, err)
		return
	}
	if _, err := ctrl.AddTrack(ctx, id); err != nil {
		zlog.Warn().Msgf("Failed to add startup video: id=%s err=%v", id, err)
	}
}

// newServer builds the remote control server with h2c (HTTP/2 cleartext) support.
func newServer(cfg *config.Config, ctrl *playback.Controller, chain *intake.Chain, notifier *notification.Manager, done <-chan struct{}) *http.Server {
	svc := apiconnect.NewPlayerService(ctrl, chain, notifier, cfg.GetMessage, done)

	var opts []connect.HandlerOption
	if cfg.Server.Token != "" {
		opts = append(opts, connect.WithInterceptors(apiconnect.NewControlAuthInterceptor(cfg.Server.Token)))
	} else {
		zlog.Warn().Msg("Remote control server has no token; any local process can control playback")
	}
	rpcPath, rpcHandler := apiconnect.NewPlayerServiceHandler(svc, opts...)

	handler := web.NewRouter(web.Config{
		Token:      cfg.Server.Token,
		RPCPath:    rpcPath,
		RPCHandler: rpcHandler,
		Controller: ctrl,
	})

	return &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func waitHeadless(ctx context.Context, serverErrCh <-chan error) error {
	zlog.Info().Msg("Running headless, press Ctrl+C to stop")
	select {
	case <-ctx.Done():
		zlog.Info().Msg("Received shutdown signal...")
		return nil
	case err := <-serverErrCh:
		return errors.Wrap(err, "server error")
	}
}

func runTUI(ctx context.Context, cfg *config.Config, ctrl *playback.Controller, chain *intake.Chain, notifier *notification.Manager) error {
	updates := make(chan *notification.Notification, 64)
	_, unsubscribe := notifier.SubscribeChan(updates)
	defer unsubscribe()

	model := ui.NewModel(ctx, ctrl, chain, updates, ui.Options{
		RotationSeconds: cfg.UI.RotationSeconds,
		NoticeDuration:  time.Duration(cfg.UI.NoticeSeconds) * time.Second,
		Messages:        cfg.GetMessage,
	})

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "terminal UI failed")
	}
	return nil
}

// printFilters prints available intake filters.
func printFilters() {
	fmt.Println("Available Filters:")
	registry := intake.GetRegistered()
	for _, name := range intake.RegisteredNames() {
		f := registry[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}
