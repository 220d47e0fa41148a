// Package main provides the remote control CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/vinylbox/internal/api/connect"
	"github.com/osa030/vinylbox/internal/app/catalog"
	"github.com/osa030/vinylbox/internal/app/notification"
	"github.com/osa030/vinylbox/internal/app/playback"
)

var (
	app    = kingpin.New("vinylctl", "Remote control for the vinyl player")
	server = app.Flag("server", "Server address").Default("http://127.0.0.1:8719").Envar("VINYL_SERVER").String()
	token  = app.Flag("token", "Control token (or set VINYL_CONTROL_TOKEN env)").Envar("VINYL_CONTROL_TOKEN").String()

	// state command
	stateCmd = app.Command("state", "Show the player state").Alias("status")

	// add command
	addCmd = app.Command("add", "Add a video to the playlist")
	addRef = addCmd.Arg("video", "YouTube URL or video ID").Required().String()

	// toggle command
	toggleCmd = app.Command("toggle", "Toggle play/pause")

	// next/prev commands
	nextCmd = app.Command("next", "Skip to the next track")
	prevCmd = app.Command("prev", "Skip to the previous track")

	// seek command
	seekCmd   = app.Command("seek", "Move the playhead")
	seekMode  = seekCmd.Flag("mode", "How the value is read").Default(string(apiconnect.SeekAbsolute)).Enum(string(apiconnect.SeekAbsolute), string(apiconnect.SeekRelative), string(apiconnect.SeekFraction))
	seekValue = seekCmd.Arg("value", "Seconds or fraction").Required().Float64()

	// volume command
	volumeCmd   = app.Command("volume", "Set the volume")
	volumeValue = volumeCmd.Arg("level", "Volume between 0 and 1").Required().Float64()

	// select command
	selectCmd   = app.Command("select", "Play the track at a playlist position")
	selectIndex = selectCmd.Arg("index", "Zero-based playlist position").Required().Int()

	// remove command
	removeCmd = app.Command("remove", "Remove a track from the playlist")
	removeID  = removeCmd.Arg("video-id", "Video ID").Required().String()

	// fav command
	favCmd = app.Command("fav", "Toggle a favorite")
	favID  = favCmd.Arg("video-id", "Video ID (default: current track)").String()

	// subscribe command
	subscribeCmd = app.Command("subscribe", "Follow player notifications")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewDefaultClient(*server, *token)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch command {
	case stateCmd.FullCommand():
		err = printState(client.GetState(ctx))
	case addCmd.FullCommand():
		err = addTrack(ctx, client, *addRef)
	case toggleCmd.FullCommand():
		err = printState(client.PlayPause(ctx))
	case nextCmd.FullCommand():
		err = printState(client.SkipNext(ctx))
	case prevCmd.FullCommand():
		err = printState(client.SkipPrevious(ctx))
	case seekCmd.FullCommand():
		err = printState(client.Seek(ctx, apiconnect.SeekMode(*seekMode), *seekValue))
	case volumeCmd.FullCommand():
		err = printState(client.SetVolume(ctx, *volumeValue))
	case selectCmd.FullCommand():
		err = printState(client.SelectTrack(ctx, *selectIndex))
	case removeCmd.FullCommand():
		err = printState(client.RemoveTrack(ctx, *removeID))
	case favCmd.FullCommand():
		err = toggleFavorite(ctx, client, *favID)
	case subscribeCmd.FullCommand():
		err = subscribe(ctx, client)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func addTrack(ctx context.Context, client *apiconnect.Client, ref string) error {
	resp, err := client.AddTrack(ctx, ref)
	if err != nil {
		return err
	}
	if !resp.Success {
		fmt.Printf("Rejected [%s]: %s\n", resp.Code, resp.Message)
		return nil
	}
	if resp.Track != nil {
		fmt.Printf("Success: %s (%s - %s)\n", resp.Message, resp.Track.Artist, resp.Track.Title)
	} else {
		fmt.Printf("Success: %s\n", resp.Message)
	}
	return nil
}

func toggleFavorite(ctx context.Context, client *apiconnect.Client, id string) error {
	resp, err := client.ToggleFavorite(ctx, id)
	if err != nil {
		return err
	}
	if resp.Favorite {
		fmt.Println("♥ Added to favorites")
	} else {
		fmt.Println("♡ Removed from favorites")
	}
	return nil
}

func subscribe(ctx context.Context, client *apiconnect.Client) error {
	stream, err := client.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	fmt.Println("Subscribed to notifications. Press Ctrl+C to exit.")

	for stream.Receive() {
		printNotification(stream.Msg())
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream error: %w", err)
	}
	fmt.Println("\nUnsubscribed.")
	return nil
}

func printNotification(n *notification.Notification) {
	fmt.Printf("\n[Sequence: %d] ", n.SequenceNo)
	switch n.Type {
	case notification.TypeNotice:
		fmt.Println("=== NOTICE ===")
		if n.Notice != nil {
			fmt.Printf("  %s [%s] %s\n", levelIcon(n.Notice.Level), n.Notice.Code, n.Notice.Message)
		}
	case notification.TypeState:
		fmt.Println("=== STATE ===")
		if n.State != nil {
			printSnapshot(*n.State)
		}
	default:
		fmt.Printf("=== UNKNOWN EVENT (%v) ===\n", n.Type)
	}
}

func printState(resp *apiconnect.StateResponse, err error) error {
	if err != nil {
		return err
	}
	printSnapshot(resp.State)
	return nil
}

func printSnapshot(s playback.Snapshot) {
	status := "⏸  Paused"
	if s.IsPlaying {
		status = "▶️  Playing"
	}
	if !s.AdapterReady {
		status += " (player loading)"
	}
	fmt.Printf("  State: %s\n", status)
	if t, ok := s.Current(); ok {
		fmt.Printf("  Now: %s - %s [%s / %s]\n", t.Artist, t.Title,
			catalog.FormatTime(s.Position), catalog.FormatTime(s.Duration))
	}
	fmt.Printf("  Volume: %d%%\n", int(s.Volume*100+0.5))

	fmt.Printf("  Playlist (%d):\n", len(s.Tracks))
	for i, t := range s.Tracks {
		marker := "  "
		if i == s.CurrentIndex {
			marker = "▶ "
		}
		fav := ""
		if s.IsFavorite(t.ID) {
			fav = " ♥"
		}
		fmt.Printf("    %s%2d. %s · %s  %s  [%s]%s\n", marker, i, t.Title, t.Artist, t.DurationLabel, t.ID, fav)
	}
	if len(s.Favorites) > 0 {
		fmt.Printf("  Favorites: %s\n", strings.Join(s.Favorites, ", "))
	}
}

func levelIcon(l playback.Level) string {
	switch l {
	case playback.LevelSuccess:
		return "✅"
	case playback.LevelError:
		return "❌"
	default:
		return "ℹ️ "
	}
}
