package coordinator

import (
	"errors"
	"sync"
	"time"
)

// ErrPropertyUnavailable is returned by EngineStateHandle for properties the
// engine has not reported yet. The snapshot layer turns it into the
// documented default for that property.
var ErrPropertyUnavailable = errors.New("property not available for current media")

// EngineStateHandle is a PlayerSessionHandle fed by engine reports arriving
// over the event API. Fields the engine never reported read as unavailable,
// exercising the snapshot defaults exactly like a transient property-read
// failure on an in-process engine.
type EngineStateHandle struct {
	mu        sync.RWMutex
	state     *PlaybackState
	position  *time.Duration
	natural   *time.Duration
	progress  *float64
	canSeek   *bool
	protected *bool
}

// NewEngineStateHandle returns a handle with no reported properties.
func NewEngineStateHandle() *EngineStateHandle {
	return &EngineStateHandle{}
}

// EngineReport is one engine-state report. Pointer fields distinguish "not
// reported" from genuine zero values; unreported fields keep their previous
// value on the handle.
type EngineReport struct {
	State             *string  `json:"state,omitempty"`
	PositionMs        *int64   `json:"position_ms,omitempty"`
	NaturalDurationMs *int64   `json:"natural_duration_ms,omitempty"`
	BufferingProgress *float64 `json:"buffering_progress,omitempty"`
	CanSeek           *bool    `json:"can_seek,omitempty"`
	IsProtected       *bool    `json:"is_protected,omitempty"`
}

// Apply merges a report into the handle. An unparseable state label is
// rejected without touching any field.
func (h *EngineStateHandle) Apply(rep EngineReport) error {
	var state *PlaybackState
	if rep.State != nil {
		parsed, err := ParsePlaybackState(*rep.State)
		if err != nil {
			return err
		}
		state = &parsed
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if state != nil {
		h.state = state
	}
	if rep.PositionMs != nil {
		d := time.Duration(*rep.PositionMs) * time.Millisecond
		h.position = &d
	}
	if rep.NaturalDurationMs != nil {
		d := time.Duration(*rep.NaturalDurationMs) * time.Millisecond
		h.natural = &d
	}
	if rep.BufferingProgress != nil {
		p := *rep.BufferingProgress
		h.progress = &p
	}
	if rep.CanSeek != nil {
		v := *rep.CanSeek
		h.canSeek = &v
	}
	if rep.IsProtected != nil {
		v := *rep.IsProtected
		h.protected = &v
	}
	return nil
}

// PlaybackState implements PlayerSessionHandle.
func (h *EngineStateHandle) PlaybackState() (PlaybackState, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.state == nil {
		return StateNone, ErrPropertyUnavailable
	}
	return *h.state, nil
}

// Position implements PlayerSessionHandle.
func (h *EngineStateHandle) Position() (time.Duration, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.position == nil {
		return 0, ErrPropertyUnavailable
	}
	return *h.position, nil
}

// NaturalDuration implements PlayerSessionHandle.
func (h *EngineStateHandle) NaturalDuration() (time.Duration, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.natural == nil {
		return 0, ErrPropertyUnavailable
	}
	return *h.natural, nil
}

// BufferingProgress implements PlayerSessionHandle.
func (h *EngineStateHandle) BufferingProgress() (float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.progress == nil {
		return 1.0, ErrPropertyUnavailable
	}
	return *h.progress, nil
}

// CanSeek implements PlayerSessionHandle.
func (h *EngineStateHandle) CanSeek() (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.canSeek == nil {
		return true, ErrPropertyUnavailable
	}
	return *h.canSeek, nil
}

// IsProtected implements PlayerSessionHandle.
func (h *EngineStateHandle) IsProtected() (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.protected == nil {
		return false, ErrPropertyUnavailable
	}
	return *h.protected, nil
}

func (h *EngineStateHandle) setPosition(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.position = &d
}

// LoopbackControl is a PlaybackControlCapability that applies resume seeks
// directly against the reported engine state. It serves hosts that only
// mirror engine reports; hosts embedding a real engine inject their own
// control wired to it.
type LoopbackControl struct {
	handle *EngineStateHandle
}

// NewLoopbackControl returns a control acting on the given handle.
func NewLoopbackControl(handle *EngineStateHandle) *LoopbackControl {
	return &LoopbackControl{handle: handle}
}

// ApplyResumeIfNeeded implements PlaybackControlCapability. The seek succeeds
// only once the engine has reported a seekable session.
func (c *LoopbackControl) ApplyResumeIfNeeded(pendingSeekTicks *int64) bool {
	if pendingSeekTicks == nil || *pendingSeekTicks <= 0 {
		return false
	}
	canSeek, err := c.handle.CanSeek()
	if err != nil || !canSeek {
		return false
	}
	c.handle.setPosition(TicksToDuration(*pendingSeekTicks))
	return true
}

// IsHlsResumeInProgress implements PlaybackControlCapability.
func (c *LoopbackControl) IsHlsResumeInProgress() bool {
	return false
}

// HlsManifestOffset implements PlaybackControlCapability.
func (c *LoopbackControl) HlsManifestOffset() time.Duration {
	return 0
}
