package player

import (
	"fmt"
	"time"
)

// State is the engine playback state.
type State int

const (
	StateStopped State = iota
	StateLoading
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Command is a control message sent to the engine. Commands are
// fire-and-forget; outcomes are reported through events.
type Command interface {
	isCommand()
}

// Play starts a new session for the given file, replacing any current
// session, and begins playback at Position.
type Play struct {
	Path     string
	Position time.Duration
}

// Pause suspends output without losing the session.
type Pause struct{}

// Resume continues a paused session.
type Resume struct{}

// Stop tears down the current session and discards buffered audio.
type Stop struct{}

// Seek repositions the current session.
type Seek struct {
	Position time.Duration
}

// SetSpeed changes the playback rate. Factor is clamped to [0.5, 3.0].
type SetSpeed struct {
	Factor float64
}

func (Play) isCommand()     {}
func (Pause) isCommand()    {}
func (Resume) isCommand()   {}
func (Stop) isCommand()     {}
func (Seek) isCommand()     {}
func (SetSpeed) isCommand() {}

// Event is a notification emitted by the engine.
type Event interface {
	isEvent()
}

// StateChanged reports a playback state transition.
type StateChanged struct {
	State State
}

// PositionUpdate reports the session position, derived from the count of
// decoded frames at the stream sample rate.
type PositionUpdate struct {
	Position time.Duration
}

// DurationChanged reports the duration of a newly opened stream.
type DurationChanged struct {
	Duration time.Duration
}

// TrackEnded is emitted exactly once when a stream plays out to its end.
type TrackEnded struct{}

// Error reports a failure. Fatal failures are followed by
// StateChanged(StateStopped); recoverable ones are not.
type Error struct {
	Message string
}

func (StateChanged) isEvent()    {}
func (PositionUpdate) isEvent()  {}
func (DurationChanged) isEvent() {}
func (TrackEnded) isEvent()      {}
func (Error) isEvent()           {}
