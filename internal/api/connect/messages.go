package connect

import (
	"github.com/osa030/vinylbox/internal/app/playback"
	"github.com/osa030/vinylbox/internal/domain/track"
)

// Procedure paths.
const (
	ServiceName = "vinyl.v1.PlayerService"

	GetStateProcedure       = "/" + ServiceName + "/GetState"
	AddTrackProcedure       = "/" + ServiceName + "/AddTrack"
	PlayPauseProcedure      = "/" + ServiceName + "/PlayPause"
	SkipNextProcedure       = "/" + ServiceName + "/SkipNext"
	SkipPreviousProcedure   = "/" + ServiceName + "/SkipPrevious"
	SeekProcedure           = "/" + ServiceName + "/Seek"
	SetVolumeProcedure      = "/" + ServiceName + "/SetVolume"
	SelectTrackProcedure    = "/" + ServiceName + "/SelectTrack"
	RemoveTrackProcedure    = "/" + ServiceName + "/RemoveTrack"
	ToggleFavoriteProcedure = "/" + ServiceName + "/ToggleFavorite"
	SubscribeProcedure      = "/" + ServiceName + "/Subscribe"
)

// Empty is the request of procedures without parameters.
type Empty struct{}

// StateResponse carries the player state after a call.
type StateResponse struct {
	State playback.Snapshot `json:"state"`
}

type AddTrackRequest struct {
	URL string `json:"url"` // YouTube URL or bare video ID
}

type AddTrackResponse struct {
	Success bool              `json:"success"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Track   *track.Track      `json:"track,omitempty"`
	State   playback.Snapshot `json:"state"`
}

// SeekRequest moves the playhead. Mode selects how Value is read.
type SeekRequest struct {
	Mode  SeekMode `json:"mode"`
	Value float64  `json:"value"`
}

// SeekMode selects the meaning of SeekRequest.Value.
type SeekMode string

const (
	SeekAbsolute SeekMode = "absolute" // Seconds from the start
	SeekRelative SeekMode = "relative" // Seconds from the current position
	SeekFraction SeekMode = "fraction" // 0..1 of the duration
)

type SetVolumeRequest struct {
	Volume float64 `json:"volume"` // 0..1
}

type SelectTrackRequest struct {
	Index int `json:"index"`
}

type RemoveTrackRequest struct {
	ID string `json:"id"`
}

type ToggleFavoriteRequest struct {
	ID string `json:"id,omitempty"` // Empty toggles the current track
}

type ToggleFavoriteResponse struct {
	Favorite bool              `json:"favorite"`
	State    playback.Snapshot `json:"state"`
}
