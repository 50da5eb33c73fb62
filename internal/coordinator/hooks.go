package coordinator

import "time"

// TimerControl starts and stops the host's buffering-timeout timer.
// Both operations must be safe to call repeatedly; Start restarts the
// watchdog period.
type TimerControl interface {
	Start()
	Stop()
}

// RecoveryHandler attempts to recover playback after a suspected manifest
// truncation or a buffering stall, typically by resuming playback to force
// a manifest refresh.
type RecoveryHandler interface {
	AttemptRecovery()
}

// ManifestChangeHandler reconciles position offsets after the manifest
// changed shape mid-playback in a way no specific heuristic covers.
type ManifestChangeHandler interface {
	ManifestPossiblyChanged(position, natural, metadata time.Duration)
}

// ResumeHooks are the side-effect channels of the resume flow.
type ResumeHooks interface {
	// OnResumeFailed reports that every resume attempt failed. This is a
	// terminal but recoverable outcome: playback continues from wherever
	// the engine landed.
	OnResumeFailed(ResumeFailureContext)

	// OffsetWorkaroundCompleted reports that the engine applied the resume
	// with its own manifest offset, so the session's offset bookkeeping
	// has been cleared.
	OffsetWorkaroundCompleted(offset time.Duration)
}

// SessionHooks bundles every side-effect channel an Orchestrator needs from
// its host.
type SessionHooks interface {
	RecoveryHandler
	ManifestChangeHandler
	ResumeHooks

	// TriggerHlsBufferingFix asks the host to act on a freshly captured
	// manifest offset (e.g. re-seek the engine to the displayed position).
	TriggerHlsBufferingFix()
}

// NopHooks implements SessionHooks with no-ops. Embed it to implement only
// the hooks a host cares about.
type NopHooks struct{}

func (NopHooks) AttemptRecovery() {}

func (NopHooks) ManifestPossiblyChanged(position, natural, metadata time.Duration) {}

func (NopHooks) OnResumeFailed(ResumeFailureContext) {}

func (NopHooks) OffsetWorkaroundCompleted(time.Duration) {}

func (NopHooks) TriggerHlsBufferingFix() {}
