package fetch

import "time"

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 100 * time.Millisecond
)

// Policy decides whether a failed attempt should be retried and how long to
// wait first. It is a pure decision function; the caller performs the sleep.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// BaseDelay is the backoff for attempt 0; it doubles per attempt.
	BaseDelay time.Duration
}

// DefaultPolicy retries transient failures up to 3 times with exponential
// backoff starting at 100ms. No jitter: backoff stays deterministic so retry
// behavior is reproducible in tests.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: defaultMaxRetries,
		BaseDelay:  defaultBaseDelay,
	}
}

// Decide returns the backoff delay for the given attempt (0-based) and
// whether to retry at all. Permanent errors never retry; transient errors
// give up once MaxRetries attempts have already failed.
func (p Policy) Decide(attempt int, kind ErrorKind) (time.Duration, bool) {
	if !kind.Transient() {
		return 0, false
	}
	if attempt >= p.MaxRetries {
		return 0, false
	}
	return p.BaseDelay << uint(attempt), true
}
