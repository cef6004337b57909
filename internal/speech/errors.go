package speech

import (
	"errors"
	"fmt"
	"strings"
)

// errNoAudio marks a response that came back without an audio payload.
// It is retriable like any other transient failure.
var errNoAudio = errors.New("response contains no audio payload")

// quotaMarkers are substrings of provider error text that indicate an
// exhausted usage allowance. Quota failures are never retried.
var quotaMarkers = []string{
	"quota",
	"resource_exhausted",
	"resource exhausted",
	"rate limit",
	"429",
}

// QuotaError reports that the synthesis provider refused the call because
// the usage allowance is exhausted. Callers must stop issuing further
// chunk calls for the job.
type QuotaError struct {
	Err error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("synthesis quota exhausted: %v", e.Err)
}

func (e *QuotaError) Unwrap() error { return e.Err }

// FatalError reports that every attempt for one chunk failed with a
// non-quota error. It is isolated to that chunk.
type FatalError struct {
	Attempts int
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("synthesis failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func isQuotaExhausted(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
