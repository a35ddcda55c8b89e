package webhook

import (
	"math"
	"math/rand/v2"
	"net/http"
	"time"
)

// Backoff returns the delay before the given retry attempt, with ±10%
// jitter. Attempt 0 is the initial request and never waits.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if limit := float64(p.MaxDelay); limit > 0 && delay > limit {
		delay = limit
	}

	jitter := delay * 0.1
	return time.Duration(delay + (rand.Float64()*2-1)*jitter)
}

func retryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
