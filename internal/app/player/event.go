package player

// State represents the adapter lifecycle state.
type State int

const (
	StateUnloaded      State = iota // Widget API not loaded
	StateAPILoading                 // Widget API loading
	StateAPIReady                   // Widget API loaded, no instance
	StatePlayerCreated              // Instance created, waiting for ready
	StateReady                      // Instance ready
	StatePlaying                    // Instance reports playing
	StatePaused                     // Instance reports paused
	StateEnded                      // Instance reports ended
	StateError                      // Instance reported an error
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateAPILoading:
		return "api_loading"
	case StateAPIReady:
		return "api_ready"
	case StatePlayerCreated:
		return "player_created"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// hasInstance reports whether a ready widget instance exists.
func (s State) hasInstance() bool {
	switch s {
	case StateReady, StatePlaying, StatePaused, StateEnded, StateError:
		return true
	default:
		return false
	}
}

// EventType represents an adapter event type.
type EventType int

const (
	EventReady      EventType = iota // Widget instance is ready
	EventPlaying                     // Widget started playing
	EventPaused                      // Widget paused
	EventEnded                       // Widget reached the end of the video
	EventError                       // Widget reported an error
	EventTimeUpdate                  // Periodic position sample
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventReady:
		return "ready"
	case EventPlaying:
		return "playing"
	case EventPaused:
		return "paused"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	case EventTimeUpdate:
		return "time_update"
	default:
		return "unknown"
	}
}

// Event represents an adapter event.
type Event struct {
	Type       EventType
	VideoID    string  // Video of the widget that produced the event
	Generation uint64  // Desired generation the widget was serving
	Position   float64 // Seconds, for EventTimeUpdate
	Duration   float64 // Seconds, for EventTimeUpdate
	Code       int     // Widget error code, for EventError
}

// Desired is the playback state the controller wants the widget to reflect.
type Desired struct {
	VideoID    string  // Empty disposes the widget
	Generation uint64  // Bumped on every track (re)selection
	Playing    bool    // Play or pause
	Volume     float64 // 0..1
}
