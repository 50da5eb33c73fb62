package coordinator

import (
	"errors"
	"testing"
	"time"
)

func strPtr(s string) *string       { return &s }
func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool          { return &v }

func TestEngineStateHandle_unreported_properties(t *testing.T) {
	h := NewEngineStateHandle()

	if _, err := h.PlaybackState(); !errors.Is(err, ErrPropertyUnavailable) {
		t.Errorf("PlaybackState err = %v", err)
	}
	if _, err := h.Position(); !errors.Is(err, ErrPropertyUnavailable) {
		t.Errorf("Position err = %v", err)
	}

	// The snapshot layer turns the unavailable reads into defaults.
	snap := CaptureSnapshot(h)
	if !snap.HasSession {
		t.Fatal("a live handle is a session even before the first report")
	}
	if snap.State != StateNone || snap.Position != 0 ||
		snap.BufferingProgress != 1.0 || !snap.CanSeek || snap.IsProtected {
		t.Errorf("snapshot of empty handle = %+v", snap)
	}
}

func TestEngineStateHandle_apply_merges_reports(t *testing.T) {
	h := NewEngineStateHandle()

	err := h.Apply(EngineReport{
		State:             strPtr("playing"),
		PositionMs:        int64Ptr(90_000),
		NaturalDurationMs: int64Ptr(7_200_000),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// A partial follow-up report keeps the earlier fields.
	if err := h.Apply(EngineReport{BufferingProgress: float64Ptr(0.5), CanSeek: boolPtr(false)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	snap := CaptureSnapshot(h)
	if snap.State != StatePlaying || snap.Position != 90*time.Second {
		t.Errorf("earlier report lost: %+v", snap)
	}
	if snap.BufferingProgress != 0.5 || snap.CanSeek {
		t.Errorf("follow-up report not applied: %+v", snap)
	}
	if snap.NaturalDuration != 2*time.Hour {
		t.Errorf("natural duration = %v", snap.NaturalDuration)
	}
}

func TestEngineStateHandle_rejects_unknown_state_label(t *testing.T) {
	h := NewEngineStateHandle()

	err := h.Apply(EngineReport{State: strPtr("stalled"), PositionMs: int64Ptr(1000)})
	if err == nil {
		t.Fatal("unknown state label should be rejected")
	}
	if _, posErr := h.Position(); !errors.Is(posErr, ErrPropertyUnavailable) {
		t.Error("rejected report must not apply any field")
	}
}

func TestLoopbackControl_requires_seekable_session(t *testing.T) {
	h := NewEngineStateHandle()
	c := NewLoopbackControl(h)

	ticks := int64(90 * TicksPerSecond)
	if c.ApplyResumeIfNeeded(&ticks) {
		t.Error("resume must fail before the engine reports seekability")
	}

	if err := h.Apply(EngineReport{CanSeek: boolPtr(true)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !c.ApplyResumeIfNeeded(&ticks) {
		t.Fatal("resume should succeed once the session is seekable")
	}
	if pos, err := h.Position(); err != nil || pos != 90*time.Second {
		t.Errorf("position after resume = (%v, %v)", pos, err)
	}
}

func TestLoopbackControl_rejects_missing_target(t *testing.T) {
	h := NewEngineStateHandle()
	h.Apply(EngineReport{CanSeek: boolPtr(true)})
	c := NewLoopbackControl(h)

	if c.ApplyResumeIfNeeded(nil) {
		t.Error("nil target must not seek")
	}
	zero := int64(0)
	if c.ApplyResumeIfNeeded(&zero) {
		t.Error("non-positive target must not seek")
	}
}
