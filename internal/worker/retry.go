package worker

import "time"

// RetryPolicy shapes the backoff between redeliveries of a failed mail
// task. Delays grow geometrically from InitialDelay and never exceed
// MaxDelay.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns the wait before the given attempt, 1-based.
// Unset policy fields fall back to one-second doubling.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	d := r.InitialDelay
	if d <= 0 {
		d = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * factor)
		if r.MaxDelay > 0 && d >= r.MaxDelay {
			return r.MaxDelay
		}
	}
	if d <= 0 {
		return time.Second
	}
	return d
}
