package coordinator

import "time"

// Retry policy for restoring the resume position. Adaptive streams get more
// and slower attempts because the server may still be rewriting the manifest.
const (
	hlsResumeMaxRetries     = 15
	defaultResumeMaxRetries = 8
	hlsResumeRetryDelay     = 5 * time.Second
	defaultResumeRetryDelay = time.Second
)

// RetryExecutor runs a resume attempt with a bounded number of fixed-delay
// retries.
type RetryExecutor struct {
	sleep func(time.Duration)
}

// NewRetryExecutor returns an executor that waits with time.Sleep between
// attempts.
func NewRetryExecutor() *RetryExecutor {
	return NewRetryExecutorWithSleep(time.Sleep)
}

// NewRetryExecutorWithSleep returns an executor with an injected sleep
// function, so tests can record delays instead of waiting them out.
func NewRetryExecutorWithSleep(sleep func(time.Duration)) *RetryExecutor {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &RetryExecutor{sleep: sleep}
}

// Execute runs tryApply immediately, then up to the per-kind retry budget
// (15 for adaptive streams, 8 otherwise) with a fixed delay (5s adaptive,
// 1s otherwise) before each further attempt.
//
// isStillPending is consulted only at the top of each iteration; once false
// the loop stops early. The wait itself is not preemptible, so an incoming
// event can shorten the flow by at most one delay.
//
// The returned count excludes the initial attempt.
func (e *RetryExecutor) Execute(tryApply func() bool, isStillPending func() bool, isAdaptive bool) (bool, int) {
	if tryApply() {
		return true, 0
	}

	maxRetries, delay := defaultResumeMaxRetries, defaultResumeRetryDelay
	if isAdaptive {
		maxRetries, delay = hlsResumeMaxRetries, hlsResumeRetryDelay
	}

	retries := 0
	for retries < maxRetries {
		if !isStillPending() {
			return false, retries
		}
		e.sleep(delay)
		retries++
		if tryApply() {
			return true, retries
		}
	}
	return false, retries
}
