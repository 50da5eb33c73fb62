package coordinator

import (
	"log/slog"
	"time"
)

// acceptedResumeDivergence is how far the landed position may drift from the
// requested one before the divergence is logged. The server-provided position
// wins either way.
const acceptedResumeDivergence = 3 * time.Second

// PlaybackControlCapability is the narrow control surface the resume flow
// needs from the playback engine.
type PlaybackControlCapability interface {
	// ApplyResumeIfNeeded attempts the pending resume seek. It may rewrite
	// *pendingSeekTicks with the position the engine actually accepted.
	ApplyResumeIfNeeded(pendingSeekTicks *int64) bool

	// IsHlsResumeInProgress reports whether an adaptive resume is still
	// being applied by the engine.
	IsHlsResumeInProgress() bool

	// HlsManifestOffset is the offset the engine itself currently applies
	// to reported positions, if any.
	HlsManifestOffset() time.Duration
}

// ResumeFlowContext carries the data for one resume-on-playback-start
// decision.
type ResumeFlowContext struct {
	State    *SessionState
	Snapshot SessionSnapshot

	// StartPositionTicks is the configured resume position in 100ns ticks;
	// zero or negative means there is nothing to restore.
	StartPositionTicks int64
}

// ResumeFlowOutcome is the result of one resume flow. Skipped outcomes have
// Success=false, RetryCount=0 and performed no mutation.
type ResumeFlowOutcome struct {
	Success    bool
	Skipped    bool
	RetryCount int
}

// ResumeFailureContext is handed to OnResumeFailed when every attempt failed.
type ResumeFailureContext struct {
	RetryCount      int
	CurrentPosition time.Duration
	TargetPosition  time.Duration
	StreamType      string
}

// ResumeCoordinator restores the configured start position on the first
// transition into Playing, retrying through a RetryExecutor when the engine
// is not ready yet.
type ResumeCoordinator struct {
	control PlaybackControlCapability
	retry   *RetryExecutor
	hooks   ResumeHooks
	log     *slog.Logger
}

// NewResumeCoordinator returns a ResumeCoordinator. A nil retry executor
// defaults to NewRetryExecutor, nil hooks to NopHooks.
func NewResumeCoordinator(control PlaybackControlCapability, retry *RetryExecutor, hooks ResumeHooks, log *slog.Logger) *ResumeCoordinator {
	if retry == nil {
		retry = NewRetryExecutor()
	}
	if hooks == nil {
		hooks = NopHooks{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &ResumeCoordinator{control: control, retry: retry, hooks: hooks, log: log}
}

// HandleResumeOnPlaybackStart runs the resume flow once per session. Total
// failure is terminal but recoverable: playback continues from wherever the
// engine landed, the host hears about it through OnResumeFailed, and no
// error reaches the caller.
func (c *ResumeCoordinator) HandleResumeOnPlaybackStart(ctx ResumeFlowContext) ResumeFlowOutcome {
	st := ctx.State
	if st.HasPerformedInitialSeek || ctx.StartPositionTicks <= 0 {
		return ResumeFlowOutcome{Skipped: true}
	}

	// Set before the first attempt so a concurrent event cannot start a
	// second resume flow for this session.
	st.HasPerformedInitialSeek = true

	pending := ctx.StartPositionTicks
	ok := c.control.ApplyResumeIfNeeded(&pending)
	retries := 0

	if !ok {
		isStillPending := func() bool {
			if st.IsHlsStream {
				return c.control.IsHlsResumeInProgress()
			}
			return !st.HasPerformedInitialSeek
		}
		ok, retries = c.retry.Execute(func() bool {
			return c.control.ApplyResumeIfNeeded(&pending)
		}, isStillPending, st.IsHlsStream)
	}

	target := TicksToDuration(ctx.StartPositionTicks)

	if !ok {
		c.log.Warn("resume position could not be restored",
			slog.Int("retries", retries),
			slog.Duration("target", target),
			slog.Duration("position", ctx.Snapshot.Position),
			slog.String("stream_type", streamTypeLabel(st.IsHlsStream)))
		c.hooks.OnResumeFailed(ResumeFailureContext{
			RetryCount:      retries,
			CurrentPosition: ctx.Snapshot.Position,
			TargetPosition:  target,
			StreamType:      streamTypeLabel(st.IsHlsStream),
		})
		return ResumeFlowOutcome{RetryCount: retries}
	}

	// The engine handled the offset itself, so the session's bookkeeping
	// would now double-count it.
	if st.IsHlsStream {
		if off := c.control.HlsManifestOffset(); off > 0 {
			st.HlsManifestOffset = 0
			st.HlsManifestOffsetApplied = false
			c.hooks.OffsetWorkaroundCompleted(off)
		}
	}

	actual := TicksToDuration(pending)
	if diff := absDuration(actual - target); diff > acceptedResumeDivergence {
		c.log.Info("accepting server-provided resume position",
			slog.Duration("requested", target),
			slog.Duration("actual", actual))
	}

	return ResumeFlowOutcome{Success: true, RetryCount: retries}
}

func streamTypeLabel(isHls bool) string {
	if isHls {
		return "hls"
	}
	return "default"
}
