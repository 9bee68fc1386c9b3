package tracking

import "time"

// pollDelay doubles base for each consecutive failure, capped at maxDelay.
// A zero maxDelay disables backoff.
func pollDelay(base, maxDelay time.Duration, consecutiveFailures int) time.Duration {
	if maxDelay <= 0 || consecutiveFailures <= 0 {
		return base
	}
	delay := base
	for i := 0; i < consecutiveFailures; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return delay
}
