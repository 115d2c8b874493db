package engine

import (
	"math/rand"
	"time"
)

// jittered adds up to one second of noise to a pacing delay so request
// timing never settles into a detectable rhythm.
func (s *Session) jittered(d time.Duration) time.Duration {
	return d + time.Duration(s.jitter()*float64(time.Second))
}

// backoff returns the jittered exponential delay for a retry attempt.
func (s *Session) backoff(attempt int) time.Duration {
	delay := s.baseDelay()
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay + time.Duration(s.jitter()*float64(time.Second))
}

func (s *Session) baseDelay() time.Duration {
	if s != nil && s.BaseDelay > 0 {
		return s.BaseDelay
	}
	return defaultBaseDelay
}

func (s *Session) retryFloor() time.Duration {
	if s != nil && s.RetryFloor > 0 {
		return s.RetryFloor
	}
	return defaultRetryFloor
}

func (s *Session) jitter() float64 {
	if s != nil && s.Jitter != nil {
		return s.Jitter()
	}
	return rand.Float64()
}
