package service

import "time"

// NextDelay returns the wait before the given attempt number (counted from 1).
// With exponential backoff the delay doubles per attempt: base * 2^(attempt-1).
// Deliberately deterministic; there is no jitter, so the documented delay
// sequence holds exactly.
func NextDelay(attempt int, base time.Duration, exponential bool) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if !exponential {
		return base
	}
	return base << uint(attempt-1)
}
