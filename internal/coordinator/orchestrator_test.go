package coordinator

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

type fakeTimer struct {
	starts int
	stops  int
}

func (t *fakeTimer) Start() { t.starts++ }
func (t *fakeTimer) Stop()  { t.stops++ }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func newTestOrchestrator(t *testing.T, cfg OrchestratorConfig) *Orchestrator {
	t.Helper()
	if cfg.Retry == nil {
		cfg.Retry = NewRetryExecutorWithSleep(func(time.Duration) {})
	}
	cfg.Log = quietLogger()
	return NewOrchestrator(cfg)
}

func TestOrchestrator_buffering_starts_and_stops_watchdog(t *testing.T) {
	handle := &fakeHandle{state: StateBuffering}
	timer := &fakeTimer{}
	o := newTestOrchestrator(t, OrchestratorConfig{Handle: handle, Timer: timer})

	o.HandlePlaybackStateChanged()
	if timer.starts != 1 || timer.stops != 0 {
		t.Fatalf("buffering start: starts=%d stops=%d", timer.starts, timer.stops)
	}
	if !o.Status().Buffering {
		t.Error("status should report buffering")
	}

	// Staying in buffering must not rearm the watchdog.
	o.HandlePlaybackStateChanged()
	if timer.starts != 1 {
		t.Errorf("repeated buffering event rearmed the watchdog: starts=%d", timer.starts)
	}

	handle.state = StatePlaying
	o.HandlePlaybackStateChanged()
	if timer.stops != 1 {
		t.Errorf("leaving buffering should stop the watchdog, stops=%d", timer.stops)
	}
	if o.Status().Buffering {
		t.Error("status should no longer report buffering")
	}
}

func TestOrchestrator_ignores_events_without_session(t *testing.T) {
	timer := &fakeTimer{}
	o := newTestOrchestrator(t, OrchestratorConfig{Handle: nil, Timer: timer})

	o.HandlePlaybackStateChanged()
	o.HandleSeekCompleted()

	if timer.starts != 0 || timer.stops != 0 {
		t.Errorf("no session: timer must stay untouched, starts=%d stops=%d", timer.starts, timer.stops)
	}
}

func TestOrchestrator_resume_runs_once_per_session(t *testing.T) {
	handle := &fakeHandle{state: StatePlaying}
	control := &fakeControl{applyResults: []bool{true}}
	o := newTestOrchestrator(t, OrchestratorConfig{
		Handle:             handle,
		Control:            control,
		StartPositionTicks: 90 * TicksPerSecond,
	})

	o.HandlePlaybackStateChanged()
	o.HandlePlaybackStateChanged()

	if control.applyCalls != 1 {
		t.Errorf("resume must run once, control was called %d times", control.applyCalls)
	}
	s := o.Status()
	if !s.HasPerformedInitialSeek || !s.VideoStarted {
		t.Errorf("status after playing = %+v", s)
	}
}

func TestOrchestrator_rebase_flow_adjusts_display_position(t *testing.T) {
	handle := &fakeHandle{state: StateBuffering, natural: 50 * time.Second}
	hooks := &recordingHooks{}
	o := newTestOrchestrator(t, OrchestratorConfig{
		Handle:           handle,
		Hooks:            hooks,
		IsHlsStream:      true,
		MetadataDuration: 125 * time.Second,
	})

	// A seek to 2:00 lands in a rebased sliding-window manifest.
	o.HandleSeekRequested(120 * time.Second)
	o.HandlePlaybackStateChanged()

	if hooks.bufferingFixes != 1 {
		t.Fatalf("expected one buffering fix request, got %d", hooks.bufferingFixes)
	}
	s := o.Status()
	if s.HlsManifestOffset != 120*time.Second || s.HlsManifestOffsetApplied {
		t.Fatalf("offset should be captured but not yet applied: %+v", s)
	}

	// The fix seek lands near the rebased start of the window.
	handle.position = 2 * time.Second
	o.HandleSeekCompleted()
	if !o.Status().HlsManifestOffsetApplied {
		t.Fatal("offset should apply once the fix seek lands")
	}

	handle.state = StatePlaying
	handle.position = 5 * time.Second
	o.HandlePlaybackStateChanged()

	s = o.Status()
	if s.Position != 5*time.Second {
		t.Errorf("raw position = %v", s.Position)
	}
	if s.DisplayPosition != 125*time.Second {
		t.Errorf("display position should include the manifest offset, got %v", s.DisplayPosition)
	}
}

func TestOrchestrator_seek_requested_tracks_pending_count(t *testing.T) {
	handle := &fakeHandle{state: StatePlaying}
	o := newTestOrchestrator(t, OrchestratorConfig{Handle: handle})

	o.HandleSeekRequested(30 * time.Second)
	o.HandleSeekRequested(60 * time.Second)
	if got := o.Status().PendingSeekCount; got != 2 {
		t.Fatalf("pending seek count = %d, want 2", got)
	}

	o.HandleSeekCompleted()
	if got := o.Status().PendingSeekCount; got != 1 {
		t.Errorf("pending seek count after completion = %d, want 1", got)
	}
}

func TestOrchestrator_disposed_ignores_events(t *testing.T) {
	handle := &fakeHandle{state: StatePlaying}
	control := &fakeControl{applyResults: []bool{true}}
	timer := &fakeTimer{}
	o := newTestOrchestrator(t, OrchestratorConfig{
		Handle:             handle,
		Control:            control,
		Timer:              timer,
		StartPositionTicks: 90 * TicksPerSecond,
	})

	o.Dispose()
	o.Dispose() // idempotent

	if timer.stops != 1 {
		t.Errorf("dispose should stop the watchdog exactly once, stops=%d", timer.stops)
	}

	o.HandlePlaybackStateChanged()
	o.HandleSeekCompleted()
	o.HandleSeekRequested(30 * time.Second)

	if control.applyCalls != 0 {
		t.Error("disposed session must not run the resume flow")
	}
	s := o.Status()
	if s.VideoStarted || s.PendingSeekCount != 0 {
		t.Errorf("disposed session mutated state: %+v", s)
	}
}

func TestOrchestrator_recovers_from_panicking_handle(t *testing.T) {
	handle := &fakeHandle{state: StateBuffering, panicOnState: true}
	timer := &fakeTimer{}
	o := newTestOrchestrator(t, OrchestratorConfig{Handle: handle, Timer: timer})

	o.HandlePlaybackStateChanged() // must not crash

	handle.panicOnState = false
	o.HandlePlaybackStateChanged()
	if timer.starts != 1 {
		t.Errorf("next event should be processed normally, starts=%d", timer.starts)
	}
}

func TestOrchestrator_buffering_timeout_triggers_recovery(t *testing.T) {
	handle := &fakeHandle{state: StateBuffering}
	hooks := &recordingHooks{}
	o := newTestOrchestrator(t, OrchestratorConfig{Handle: handle, Hooks: hooks})

	o.HandlePlaybackStateChanged()
	o.OnBufferingTimeout()
	if hooks.recoveries != 1 {
		t.Fatalf("expected one recovery attempt, got %d", hooks.recoveries)
	}

	handle.state = StatePlaying
	o.HandlePlaybackStateChanged()
	o.OnBufferingTimeout()
	if hooks.recoveries != 1 {
		t.Errorf("late timeout after buffering ended must be ignored, got %d recoveries", hooks.recoveries)
	}
}

func TestOrchestrator_timeout_before_buffering_is_ignored(t *testing.T) {
	hooks := &recordingHooks{}
	o := newTestOrchestrator(t, OrchestratorConfig{Handle: &fakeHandle{state: StatePlaying}, Hooks: hooks})

	o.OnBufferingTimeout()
	if hooks.recoveries != 0 {
		t.Errorf("timeout without a buffering phase must be ignored, got %d", hooks.recoveries)
	}
}
