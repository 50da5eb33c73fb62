package coordinator

import "time"

// SessionState is the mutable per-playback-session record of adaptive-stream
// bookkeeping. It is owned exclusively by one Orchestrator for the lifetime
// of one playback session and must never be shared across sessions; all
// mutation runs through the orchestrator's serialized executor.
//
// Invariants: PendingSeekCount >= 0; HlsManifestOffsetApplied implies
// HlsManifestOffset > 0; ExpectedHlsSeekTarget is cleared once a buffering
// or seek event consumes it; HasPerformedInitialSeek becomes true at most
// once per session and only Reset clears it.
type SessionState struct {
	// IsHlsStream marks the session as adaptive (HLS) playback.
	IsHlsStream bool

	// HlsManifestOffset is re-added to reported positions after the server
	// rebased segment numbering mid-playback.
	HlsManifestOffset        time.Duration
	HlsManifestOffsetApplied bool

	// ExpectedHlsSeekTarget is the target of an outstanding seek, kept so a
	// later buffering event can detect a manifest rebase against it.
	ExpectedHlsSeekTarget time.Duration

	// LastSeekTime is when the most recent seek was requested or completed.
	LastSeekTime time.Time

	// PendingSeekCount is the number of seeks issued but not yet confirmed.
	PendingSeekCount int

	// PendingSeekPositionAfterQualitySwitch is the position (in 100ns ticks)
	// a track change must return to once the new variant is buffered.
	PendingSeekPositionAfterQualitySwitch int64

	// HasPerformedInitialSeek guards the resume flow: only the first
	// transition into Playing restores the configured start position.
	HasPerformedInitialSeek bool

	// IsHlsTrackChange marks an in-flight variant change; cleared when
	// buffering for the new variant finishes.
	IsHlsTrackChange bool

	// ActualResumePosition is where the initial resume seek actually landed,
	// used to tell a corrupted manifest from an ordinary rebase.
	ActualResumePosition time.Duration
}

// Reset returns every field to its zero value. It is idempotent and is the
// only way HasPerformedInitialSeek is ever cleared; call it when the playback
// session is torn down or a new item replaces it.
func (s *SessionState) Reset() {
	*s = SessionState{}
}
