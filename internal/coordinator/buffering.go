package coordinator

import "time"

// manifestMismatchThreshold is the tolerance between the manifest-reported
// (natural) duration and the library-metadata duration before the two are
// considered out of sync.
const manifestMismatchThreshold = 10 * time.Second

// BufferingRequest describes one buffering transition: the engine's new
// buffering flag, the previous one, and the session values the decision
// depends on. It is built fresh for each event and discarded after use.
type BufferingRequest struct {
	IsBuffering  bool
	WasBuffering bool
	IsHlsStream  bool

	ExpectedHlsSeekTarget time.Duration
	NaturalDuration       time.Duration
	MetadataDuration      time.Duration

	HlsManifestOffset        time.Duration
	HlsManifestOffsetApplied bool

	// Now is the event time; zero means time.Now.
	Now time.Time
}

// BufferingResult is the decision for one buffering transition. Side effects
// are expressed only as flags; the caller owns applying them (starting or
// stopping the actual timer, mutating session state, firing the fix hook).
type BufferingResult struct {
	StartTimeoutTimer      bool
	StopTimeoutTimer       bool
	ResetHlsTrackChange    bool
	TriggerHlsBufferingFix bool

	// BufferingStartTime is set when buffering just started, nil otherwise.
	BufferingStartTime *time.Time

	HlsManifestOffset        time.Duration
	HlsManifestOffsetApplied bool
	ExpectedHlsSeekTarget    time.Duration
}

// HandleBuffering maps a buffering transition to its required side effects.
// It is pure: no I/O and no mutation of shared state. When the buffering
// flag did not change, the result is a passthrough of the current offsets
// with no flags set.
func HandleBuffering(req BufferingRequest) BufferingResult {
	res := BufferingResult{
		HlsManifestOffset:        req.HlsManifestOffset,
		HlsManifestOffsetApplied: req.HlsManifestOffsetApplied,
		ExpectedHlsSeekTarget:    req.ExpectedHlsSeekTarget,
	}

	switch {
	case req.IsBuffering && !req.WasBuffering:
		now := req.Now
		if now.IsZero() {
			now = time.Now()
		}
		res.BufferingStartTime = &now
		res.StartTimeoutTimer = true

		// HLS servers may restart segment numbering from zero after certain
		// seeks (live-to-VOD transition). When the manifest suddenly reports
		// a shorter duration than the item metadata while a seek target is
		// outstanding, that target is the offset to re-add to reported
		// positions until the resume flow confirms it was applied.
		if req.IsHlsStream && req.ExpectedHlsSeekTarget > 0 &&
			req.NaturalDuration > 0 && req.MetadataDuration > 0 &&
			absDuration(req.NaturalDuration-req.MetadataDuration) > manifestMismatchThreshold &&
			req.NaturalDuration < req.MetadataDuration {
			res.HlsManifestOffset = req.ExpectedHlsSeekTarget
			res.HlsManifestOffsetApplied = false
			res.ExpectedHlsSeekTarget = 0
			res.TriggerHlsBufferingFix = true
		}

	case !req.IsBuffering && req.WasBuffering:
		res.StopTimeoutTimer = true
		res.ResetHlsTrackChange = true
	}

	return res
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
