package coordinator

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"playback-coordinator/internal/platform/metrics"
)

// SerialExecutor serializes state mutation. Every write to a session's state
// runs through one executor, so concurrent engine events cannot interleave
// their mutations. Any mutual-exclusion boundary satisfies the contract.
type SerialExecutor interface {
	RunSerialized(fn func())
}

// MutexExecutor is the default SerialExecutor.
type MutexExecutor struct {
	mu sync.Mutex
}

// RunSerialized implements SerialExecutor.
func (e *MutexExecutor) RunSerialized(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// OrchestratorConfig configures a new Orchestrator. Handle is required;
// every other collaborator has a safe default.
type OrchestratorConfig struct {
	Handle   PlayerSessionHandle
	Control  PlaybackControlCapability
	Timer    TimerControl
	Hooks    SessionHooks
	Executor SerialExecutor
	Retry    *RetryExecutor
	Log      *slog.Logger
	Metrics  *metrics.Metrics

	// IsHlsStream marks the session as adaptive playback.
	IsHlsStream bool

	// MetadataDuration is the duration the library metadata reports for the
	// item, cross-checked against the manifest's natural duration.
	MetadataDuration time.Duration

	// StartPositionTicks is the resume position in 100ns ticks; zero or
	// negative disables the resume flow.
	StartPositionTicks int64

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Orchestrator owns one playback session's state and is the sole entry point
// for that session's engine events. It captures snapshots, serializes all
// mutation, and drives the buffering, seek-completion and resume
// coordinators. Handlers never propagate errors or panics back to the
// engine's event source.
type Orchestrator struct {
	handle  PlayerSessionHandle
	timer   TimerControl
	hooks   SessionHooks
	exec    SerialExecutor
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	metadataDuration   time.Duration
	startPositionTicks int64

	seek   *SeekCoordinator
	resume *ResumeCoordinator

	disposed atomic.Bool

	// Mutated only inside the serialized executor.
	state           SessionState
	wasBuffering    bool
	videoStarted    bool
	bufferingStart  time.Time
	rawPosition     time.Duration
	displayPosition time.Duration
}

// NewOrchestrator constructs an Orchestrator with a fresh SessionState.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Hooks == nil {
		cfg.Hooks = NopHooks{}
	}
	if cfg.Executor == nil {
		cfg.Executor = &MutexExecutor{}
	}
	if cfg.Timer == nil {
		cfg.Timer = nopTimer{}
	}
	if cfg.Control == nil {
		cfg.Control = nopControl{}
	}
	if cfg.Retry == nil {
		cfg.Retry = NewRetryExecutor()
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	o := &Orchestrator{
		handle:             cfg.Handle,
		timer:              cfg.Timer,
		hooks:              cfg.Hooks,
		exec:               cfg.Executor,
		log:                cfg.Log,
		metrics:            cfg.Metrics,
		now:                cfg.Now,
		metadataDuration:   cfg.MetadataDuration,
		startPositionTicks: cfg.StartPositionTicks,
	}
	o.state.IsHlsStream = cfg.IsHlsStream
	o.seek = NewSeekCoordinator(cfg.Hooks, cfg.Hooks, cfg.Log)
	o.resume = NewResumeCoordinator(cfg.Control, cfg.Retry, cfg.Hooks, cfg.Log)
	return o
}

// Handle returns the session handle this orchestrator observes.
func (o *Orchestrator) Handle() PlayerSessionHandle {
	return o.handle
}

// HandlePlaybackStateChanged is wired to the engine's state-change event.
func (o *Orchestrator) HandlePlaybackStateChanged() {
	defer o.recoverPanic("playback state changed")

	if o.disposed.Load() {
		return
	}
	snap := CaptureSnapshot(o.handle)
	if !snap.HasSession {
		o.log.Debug("state change without session ignored")
		return
	}
	if o.metrics != nil {
		o.metrics.IncEngineEvents()
	}

	o.exec.RunSerialized(func() {
		defer o.recoverPanic("apply playback state change")
		if o.disposed.Load() {
			return
		}
		// The session may have advanced while waiting for the executor.
		snap = CaptureSnapshot(o.handle)
		o.applyStateChange(snap)
	})
}

func (o *Orchestrator) applyStateChange(snap SessionSnapshot) {
	o.rawPosition = snap.Position
	o.displayPosition = snap.Position
	if o.state.HlsManifestOffsetApplied {
		o.displayPosition += o.state.HlsManifestOffset
	}

	isBuffering := snap.State == StateBuffering
	res := HandleBuffering(BufferingRequest{
		IsBuffering:              isBuffering,
		WasBuffering:             o.wasBuffering,
		IsHlsStream:              o.state.IsHlsStream,
		ExpectedHlsSeekTarget:    o.state.ExpectedHlsSeekTarget,
		NaturalDuration:          snap.NaturalDuration,
		MetadataDuration:         o.metadataDuration,
		HlsManifestOffset:        o.state.HlsManifestOffset,
		HlsManifestOffsetApplied: o.state.HlsManifestOffsetApplied,
		Now:                      o.now(),
	})
	o.applyBufferingResult(res)
	o.wasBuffering = isBuffering

	if snap.State == StatePlaying {
		if !o.videoStarted {
			o.videoStarted = true
			o.log.Info("video started", slog.Duration("position", snap.Position))
		}
		// Idempotent across repeated Playing transitions: the flow guards
		// on HasPerformedInitialSeek.
		outcome := o.resume.HandleResumeOnPlaybackStart(ResumeFlowContext{
			State:              &o.state,
			Snapshot:           snap,
			StartPositionTicks: o.startPositionTicks,
		})
		o.recordResumeOutcome(outcome)
	}
}

func (o *Orchestrator) applyBufferingResult(res BufferingResult) {
	o.state.HlsManifestOffset = res.HlsManifestOffset
	o.state.HlsManifestOffsetApplied = res.HlsManifestOffsetApplied
	o.state.ExpectedHlsSeekTarget = res.ExpectedHlsSeekTarget

	if res.StartTimeoutTimer {
		if res.BufferingStartTime != nil {
			o.bufferingStart = *res.BufferingStartTime
		}
		o.timer.Start()
	}
	if res.StopTimeoutTimer {
		o.bufferingStart = time.Time{}
		o.timer.Stop()
	}
	if res.ResetHlsTrackChange {
		o.state.IsHlsTrackChange = false
	}
	if res.TriggerHlsBufferingFix {
		o.log.Warn("manifest rebase detected, captured position offset",
			slog.Duration("offset", res.HlsManifestOffset))
		if o.metrics != nil {
			o.metrics.IncManifestOffsetsCaptured()
		}
		o.hooks.TriggerHlsBufferingFix()
	}
}

// HandleSeekCompleted is wired to the engine's seek-completed event.
func (o *Orchestrator) HandleSeekCompleted() {
	defer o.recoverPanic("seek completed")

	if o.disposed.Load() {
		return
	}
	snap := CaptureSnapshot(o.handle)
	if !snap.HasSession {
		o.log.Debug("seek completion without session ignored")
		return
	}
	if o.metrics != nil {
		o.metrics.IncEngineEvents()
	}

	o.exec.RunSerialized(func() {
		defer o.recoverPanic("apply seek completion")
		if o.disposed.Load() {
			return
		}
		snap = CaptureSnapshot(o.handle)
		o.state.LastSeekTime = o.now()
		o.seek.HandleSeekCompleted(SeekCompletionContext{
			State:            &o.state,
			Snapshot:         snap,
			MetadataDuration: o.metadataDuration,
		})
	})
}

// HandleSeekRequested records a user- or engine-initiated seek so its
// completion can be matched up later. For adaptive streams the target also
// arms the manifest-rebase detection in the buffering coordinator.
func (o *Orchestrator) HandleSeekRequested(target time.Duration) {
	o.exec.RunSerialized(func() {
		if o.disposed.Load() {
			return
		}
		o.state.PendingSeekCount++
		o.state.LastSeekTime = o.now()
		if o.state.IsHlsStream {
			o.state.ExpectedHlsSeekTarget = target
		}
	})
}

// HandleQualitySwitch records the position a variant change must return to
// once the new variant is buffered.
func (o *Orchestrator) HandleQualitySwitch(positionTicks int64) {
	o.exec.RunSerialized(func() {
		if o.disposed.Load() {
			return
		}
		o.state.PendingSeekPositionAfterQualitySwitch = positionTicks
		if o.state.IsHlsStream {
			o.state.IsHlsTrackChange = true
		}
	})
}

// OnBufferingTimeout is invoked by the host timer when buffering exceeded the
// watchdog period. Prolonged buffering is treated as a stall; the host's
// recovery hook gets a chance to kick the engine.
func (o *Orchestrator) OnBufferingTimeout() {
	defer o.recoverPanic("buffering timeout")

	o.exec.RunSerialized(func() {
		if o.disposed.Load() || o.bufferingStart.IsZero() {
			return
		}
		o.log.Warn("buffering watchdog fired",
			slog.Duration("buffering_for", o.now().Sub(o.bufferingStart)))
		if o.metrics != nil {
			o.metrics.IncBufferingTimeouts()
		}
		o.hooks.AttemptRecovery()
	})
}

// Dispose tears the session down: later events are ignored, the timer is
// stopped and the session state is reset. Dispose is idempotent.
func (o *Orchestrator) Dispose() {
	o.exec.RunSerialized(func() {
		if o.disposed.Load() {
			return
		}
		o.disposed.Store(true)
		o.timer.Stop()
		o.state.Reset()
	})
}

// SessionStatus is a read-only view of the orchestrator's current bookkeeping
// for the host surface.
type SessionStatus struct {
	State                    PlaybackState
	Position                 time.Duration
	DisplayPosition          time.Duration
	Buffering                bool
	VideoStarted             bool
	IsHlsStream              bool
	HlsManifestOffset        time.Duration
	HlsManifestOffsetApplied bool
	PendingSeekCount         int
	HasPerformedInitialSeek  bool
}

// Status captures the current session status through the serialized executor.
func (o *Orchestrator) Status() SessionStatus {
	var s SessionStatus
	o.exec.RunSerialized(func() {
		snap := CaptureSnapshot(o.handle)
		s = SessionStatus{
			State:                    snap.State,
			Position:                 o.rawPosition,
			DisplayPosition:          o.displayPosition,
			Buffering:                o.wasBuffering,
			VideoStarted:             o.videoStarted,
			IsHlsStream:              o.state.IsHlsStream,
			HlsManifestOffset:        o.state.HlsManifestOffset,
			HlsManifestOffsetApplied: o.state.HlsManifestOffsetApplied,
			PendingSeekCount:         o.state.PendingSeekCount,
			HasPerformedInitialSeek:  o.state.HasPerformedInitialSeek,
		}
	})
	return s
}

func (o *Orchestrator) recordResumeOutcome(out ResumeFlowOutcome) {
	if o.metrics == nil || out.Skipped {
		return
	}
	o.metrics.AddResumeRetries(out.RetryCount)
	if out.Success {
		o.metrics.IncResumeSuccess()
	} else {
		o.metrics.IncResumeFailed()
	}
}

// recoverPanic keeps a single failing handler from killing the subsystem;
// the next event is processed normally.
func (o *Orchestrator) recoverPanic(op string) {
	if r := recover(); r != nil {
		o.log.Error("recovered panic in event handler",
			slog.String("op", op),
			slog.Any("panic", r))
	}
}

// nopTimer is the default TimerControl for hosts without a buffering watchdog.
type nopTimer struct{}

func (nopTimer) Start() {}
func (nopTimer) Stop()  {}

// nopControl is the default PlaybackControlCapability; it cannot apply seeks,
// so resume attempts against it fail fast through the pending predicate.
type nopControl struct{}

func (nopControl) ApplyResumeIfNeeded(*int64) bool { return false }
func (nopControl) IsHlsResumeInProgress() bool { return false }
func (nopControl) HlsManifestOffset() time.Duration { return 0 }
