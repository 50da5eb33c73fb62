package coordinator

import (
	"log/slog"
	"time"
)

// shortManifestMax flags manifests that collapsed to under a minute after a
// resume seek.
const shortManifestMax = time.Minute

// SeekCompletionContext carries the data for one seek-completed event.
// The state is the orchestrator-owned session record; the snapshot was
// captured inside the serialized block handling the event.
type SeekCompletionContext struct {
	State            *SessionState
	Snapshot         SessionSnapshot
	MetadataDuration time.Duration
}

// SeekCoordinator reacts to seek-completed events: it settles pending-seek
// bookkeeping and analyzes the manifest duration for anomalies, dispatching
// recovery through the handlers injected at construction.
type SeekCoordinator struct {
	recovery RecoveryHandler
	manifest ManifestChangeHandler
	log      *slog.Logger
}

// NewSeekCoordinator returns a SeekCoordinator using the given handlers and
// logger. Handlers must not be nil; pass NopHooks to ignore a channel.
func NewSeekCoordinator(recovery RecoveryHandler, manifest ManifestChangeHandler, log *slog.Logger) *SeekCoordinator {
	if log == nil {
		log = slog.Default()
	}
	return &SeekCoordinator{recovery: recovery, manifest: manifest, log: log}
}

// HandleSeekCompleted processes one seek-completed event against the session
// state. It mutates only ctx.State; every downstream effect goes through the
// injected handlers, never a return value.
func (c *SeekCoordinator) HandleSeekCompleted(ctx SeekCompletionContext) {
	st := ctx.State

	if st.PendingSeekCount > 0 {
		st.PendingSeekCount--
	}

	// The first completed seek on an adaptive stream is the resume seek;
	// remember where it actually landed.
	if st.IsHlsStream && !st.HasPerformedInitialSeek {
		st.ActualResumePosition = ctx.Snapshot.Position
		st.HasPerformedInitialSeek = true
	}

	// Outstanding seek targets are consumed once their seeks have landed.
	if st.PendingSeekCount == 0 {
		st.ExpectedHlsSeekTarget = 0
		st.PendingSeekPositionAfterQualitySwitch = 0
	}

	// A captured manifest offset takes effect once the fix seek lands;
	// from here on reported positions are rebased and the offset must be
	// re-added for display.
	if st.HlsManifestOffset > 0 && !st.HlsManifestOffsetApplied {
		st.HlsManifestOffsetApplied = true
	}

	natural := ctx.Snapshot.NaturalDuration
	metadata := ctx.MetadataDuration
	if natural <= 0 || metadata <= 0 {
		return
	}
	if absDuration(natural-metadata) <= manifestMismatchThreshold {
		return
	}

	switch {
	case st.IsHlsStream && natural*2 < metadata:
		c.log.Warn("manifest duration below half of metadata, suspected truncation",
			slog.Duration("natural", natural),
			slog.Duration("metadata", metadata),
			slog.String("playback_state", ctx.Snapshot.State.String()))
		// Resuming a paused session forces the engine to refresh the manifest.
		if ctx.Snapshot.State == StatePaused {
			c.recovery.AttemptRecovery()
		}

	case st.IsHlsStream && natural < shortManifestMax &&
		ctx.Snapshot.Position > natural && st.ActualResumePosition > 0:
		// Unlike the truncation case above, no recovery is attempted here.
		c.log.Error("manifest shorter than playback position after resume, suspected corruption",
			slog.Duration("natural", natural),
			slog.Duration("position", ctx.Snapshot.Position),
			slog.Duration("resume_position", st.ActualResumePosition))

	default:
		c.manifest.ManifestPossiblyChanged(ctx.Snapshot.Position, natural, metadata)
	}
}
