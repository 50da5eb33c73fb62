package coordinator

import (
	"testing"
	"time"
)

func TestHandleBuffering_start_transition(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	res := HandleBuffering(BufferingRequest{
		IsBuffering:  true,
		WasBuffering: false,
		IsHlsStream:  false,
		Now:          now,
	})

	if !res.StartTimeoutTimer {
		t.Error("start transition should set StartTimeoutTimer")
	}
	if res.StopTimeoutTimer || res.ResetHlsTrackChange {
		t.Error("start transition should not set stop flags")
	}
	if res.TriggerHlsBufferingFix {
		t.Error("non-HLS start should not trigger buffering fix")
	}
	if res.BufferingStartTime == nil || !res.BufferingStartTime.Equal(now) {
		t.Errorf("expected BufferingStartTime=%v, got %v", now, res.BufferingStartTime)
	}
}

func TestHandleBuffering_start_defaults_to_wall_clock(t *testing.T) {
	before := time.Now()
	res := HandleBuffering(BufferingRequest{IsBuffering: true})
	after := time.Now()

	if res.BufferingStartTime == nil {
		t.Fatal("expected a fresh BufferingStartTime")
	}
	if res.BufferingStartTime.Before(before) || res.BufferingStartTime.After(after) {
		t.Errorf("BufferingStartTime %v not within [%v, %v]", res.BufferingStartTime, before, after)
	}
}

func TestHandleBuffering_manifest_rebase_capture(t *testing.T) {
	res := HandleBuffering(BufferingRequest{
		IsBuffering:           true,
		WasBuffering:          false,
		IsHlsStream:           true,
		ExpectedHlsSeekTarget: 120 * time.Second,
		NaturalDuration:       50 * time.Second,
		MetadataDuration:      125 * time.Second,
		Now:                   time.Now(),
	})

	if res.HlsManifestOffset != 120*time.Second {
		t.Errorf("expected captured offset 120s, got %v", res.HlsManifestOffset)
	}
	if res.HlsManifestOffsetApplied {
		t.Error("captured offset must be marked not yet applied")
	}
	if res.ExpectedHlsSeekTarget != 0 {
		t.Errorf("expected seek target consumed, got %v", res.ExpectedHlsSeekTarget)
	}
	if !res.TriggerHlsBufferingFix {
		t.Error("rebase capture should trigger the buffering fix")
	}
}

func TestHandleBuffering_stop_transition(t *testing.T) {
	res := HandleBuffering(BufferingRequest{
		IsBuffering:              false,
		WasBuffering:             true,
		HlsManifestOffset:        30 * time.Second,
		HlsManifestOffsetApplied: true,
	})

	if !res.StopTimeoutTimer {
		t.Error("stop transition should set StopTimeoutTimer")
	}
	if !res.ResetHlsTrackChange {
		t.Error("stop transition should set ResetHlsTrackChange")
	}
	if res.StartTimeoutTimer {
		t.Error("stop transition should not set StartTimeoutTimer")
	}
	if res.BufferingStartTime != nil {
		t.Errorf("stop transition should clear BufferingStartTime, got %v", res.BufferingStartTime)
	}
	// Offsets pass through untouched.
	if res.HlsManifestOffset != 30*time.Second || !res.HlsManifestOffsetApplied {
		t.Errorf("offsets should pass through: got %v applied=%v", res.HlsManifestOffset, res.HlsManifestOffsetApplied)
	}
}

func TestHandleBuffering_no_transition_is_passthrough(t *testing.T) {
	for _, buffering := range []bool{true, false} {
		res := HandleBuffering(BufferingRequest{
			IsBuffering:           buffering,
			WasBuffering:          buffering,
			IsHlsStream:           true,
			ExpectedHlsSeekTarget: 90 * time.Second,
			HlsManifestOffset:     15 * time.Second,
		})
		if res.StartTimeoutTimer || res.StopTimeoutTimer || res.ResetHlsTrackChange || res.TriggerHlsBufferingFix {
			t.Errorf("buffering=%v: no transition should set no flags: %+v", buffering, res)
		}
		if res.BufferingStartTime != nil {
			t.Errorf("buffering=%v: no transition should not touch BufferingStartTime", buffering)
		}
		if res.ExpectedHlsSeekTarget != 90*time.Second || res.HlsManifestOffset != 15*time.Second {
			t.Errorf("buffering=%v: expected passthrough of offsets, got %+v", buffering, res)
		}
	}
}

func TestHandleBuffering_no_capture_conditions(t *testing.T) {
	base := BufferingRequest{
		IsBuffering:           true,
		WasBuffering:          false,
		IsHlsStream:           true,
		ExpectedHlsSeekTarget: 120 * time.Second,
		NaturalDuration:       50 * time.Second,
		MetadataDuration:      125 * time.Second,
		Now:                   time.Now(),
	}

	tests := []struct {
		name   string
		mutate func(*BufferingRequest)
	}{
		{"not hls", func(r *BufferingRequest) { r.IsHlsStream = false }},
		{"no seek target", func(r *BufferingRequest) { r.ExpectedHlsSeekTarget = 0 }},
		{"natural unknown", func(r *BufferingRequest) { r.NaturalDuration = 0 }},
		{"metadata unknown", func(r *BufferingRequest) { r.MetadataDuration = 0 }},
		{"mismatch at threshold", func(r *BufferingRequest) { r.NaturalDuration = 115 * time.Second }},
		{"natural longer than metadata", func(r *BufferingRequest) {
			r.NaturalDuration = 150 * time.Second
		}},
	}

	for _, tt := range tests {
		req := base
		tt.mutate(&req)
		res := HandleBuffering(req)
		if res.TriggerHlsBufferingFix {
			t.Errorf("%s: should not capture an offset", tt.name)
		}
		if res.HlsManifestOffset != req.HlsManifestOffset {
			t.Errorf("%s: offset should pass through, got %v", tt.name, res.HlsManifestOffset)
		}
		if !res.StartTimeoutTimer {
			t.Errorf("%s: start transition should still arm the timer", tt.name)
		}
	}
}
