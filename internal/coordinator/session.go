package coordinator

import (
	"fmt"
	"time"
)

// PlaybackState is the engine-reported state of a player session.
type PlaybackState int

const (
	// StateNone indicates no media is loaded.
	StateNone PlaybackState = iota

	// StateOpening indicates the engine is opening the media source.
	StateOpening

	// StateBuffering indicates the engine is waiting for media data.
	StateBuffering

	// StatePlaying indicates active playback.
	StatePlaying

	// StatePaused indicates playback is paused and can be resumed.
	StatePaused
)

// String returns a human-readable label for the playback state.
func (s PlaybackState) String() string {
	switch s {
	case StateNone:
		return "None"
	case StateOpening:
		return "Opening"
	case StateBuffering:
		return "Buffering"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// ParsePlaybackState parses a state label ("none", "playing", ...) into a
// PlaybackState. Matching is case-sensitive on the lowercase wire form used
// by the event API.
func ParsePlaybackState(s string) (PlaybackState, error) {
	switch s {
	case "none":
		return StateNone, nil
	case "opening":
		return StateOpening, nil
	case "buffering":
		return StateBuffering, nil
	case "playing":
		return StatePlaying, nil
	case "paused":
		return StatePaused, nil
	default:
		return StateNone, fmt.Errorf("invalid playback state: %q", s)
	}
}

// TicksPerSecond is the resolution of resume start positions: 100ns ticks,
// the convention of the media servers this coordinator fronts.
const TicksPerSecond = 10_000_000

// TicksToDuration converts a 100ns tick count to a time.Duration.
func TicksToDuration(ticks int64) time.Duration {
	return time.Duration(ticks) * 100 * time.Nanosecond
}

// DurationToTicks converts a time.Duration to 100ns ticks.
func DurationToTicks(d time.Duration) int64 {
	return int64(d / (100 * time.Nanosecond))
}

// PlayerSessionHandle is read-only access to a live player session.
// Any read may fail transiently (the property is not supported for the
// current media); CaptureSnapshot substitutes documented defaults instead
// of propagating such failures.
type PlayerSessionHandle interface {
	PlaybackState() (PlaybackState, error)
	Position() (time.Duration, error)
	NaturalDuration() (time.Duration, error)
	BufferingProgress() (float64, error)
	CanSeek() (bool, error)
	IsProtected() (bool, error)
}

// SessionSnapshot is an immutable point-in-time capture of a player
// session's observable properties. Producing one snapshot per event avoids
// tearing between property reads spread across a handler.
type SessionSnapshot struct {
	HasSession        bool
	State             PlaybackState
	Position          time.Duration
	NaturalDuration   time.Duration
	BufferingProgress float64
	CanSeek           bool
	IsProtected       bool
}

// CaptureSnapshot reads every property of h at one instant. A nil handle
// yields HasSession=false with the full default set; a failed property read
// leaves that property at its default:
//
//	State=None, Position=0, NaturalDuration=0, BufferingProgress=1.0,
//	CanSeek=true, IsProtected=false.
func CaptureSnapshot(h PlayerSessionHandle) SessionSnapshot {
	snap := SessionSnapshot{
		State:             StateNone,
		BufferingProgress: 1.0,
		CanSeek:           true,
	}
	if h == nil {
		return snap
	}
	snap.HasSession = true

	if v, err := h.PlaybackState(); err == nil {
		snap.State = v
	}
	if v, err := h.Position(); err == nil {
		snap.Position = v
	}
	if v, err := h.NaturalDuration(); err == nil {
		snap.NaturalDuration = v
	}
	if v, err := h.BufferingProgress(); err == nil {
		snap.BufferingProgress = v
	}
	if v, err := h.CanSeek(); err == nil {
		snap.CanSeek = v
	}
	if v, err := h.IsProtected(); err == nil {
		snap.IsProtected = v
	}
	return snap
}
