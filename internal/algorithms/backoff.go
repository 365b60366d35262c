// Package algorithms holds the retry delay policies used by the probe.
//
// A Backoff is created per retry loop (one per probe call), so stateful
// policies never share state between concurrently running tasks.
package algorithms

import (
	"cmp"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const (
	maxShift = 62 // Prevent overflow in backoff calculation
)

// Backoff computes the wait before the next attempt.
type Backoff interface {
	// Next returns the delay before retry number attempt (0 = first retry).
	Next(attempt int) time.Duration
}

// BackoffType selects a Backoff implementation.
type BackoffType int

const (
	// BackoffExponential doubles the delay on every retry (default).
	BackoffExponential BackoffType = iota
	// BackoffJittered is exponential with ±jitter to spread simultaneous retries.
	BackoffJittered
	// BackoffDecorrelated picks each delay in [initial, 3*previous].
	BackoffDecorrelated
)

func (b BackoffType) String() string {
	switch b {
	case BackoffJittered:
		return "jittered"
	case BackoffDecorrelated:
		return "decorrelated"
	default:
		return "exponential"
	}
}

// ParseBackoffType maps a config value onto a BackoffType.
// The empty string selects BackoffExponential.
func ParseBackoffType(s string) (BackoffType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exponential":
		return BackoffExponential, nil
	case "jittered", "jitter":
		return BackoffJittered, nil
	case "decorrelated":
		return BackoffDecorrelated, nil
	default:
		return BackoffExponential, fmt.Errorf("unknown backoff type: %s", s)
	}
}

// defaultJitter is the ±fraction applied by BackoffJittered.
const defaultJitter = 0.1

// NewBackoff builds a fresh Backoff of the given type.
func NewBackoff(kind BackoffType, initialDelay, maxDelay time.Duration) Backoff {
	if maxDelay < initialDelay {
		maxDelay = initialDelay
	}

	switch kind {
	case BackoffJittered:
		return &jitteredBackoff{
			initialDelay: initialDelay,
			maxDelay:     maxDelay,
			jitterFactor: defaultJitter,
			rng:          newRand(),
		}
	case BackoffDecorrelated:
		return &decorrelatedBackoff{
			initialDelay: initialDelay,
			maxDelay:     maxDelay,
			rng:          newRand(),
		}
	default:
		return exponentialBackoff{initialDelay: initialDelay, maxDelay: maxDelay}
	}
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano())) // #nosec G404 -- crypto rand not needed for backoff jitter
}

// exponentialBackoff: initialDelay * 2^attempt, capped at maxDelay.
type exponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
}

func (eb exponentialBackoff) Next(attempt int) time.Duration {
	return calcExponentialDelay(attempt, eb.initialDelay, eb.maxDelay)
}

// jitteredBackoff multiplies the exponential delay by a random factor in
// [1-jitterFactor, 1+jitterFactor].
type jitteredBackoff struct {
	initialDelay, maxDelay time.Duration
	jitterFactor           float64
	rng                    *rand.Rand
}

func (jb *jitteredBackoff) Next(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}

	base := calcExponentialDelay(attempt, jb.initialDelay, jb.maxDelay)
	multiplier := 1.0 + (jb.rng.Float64()*2-1)*jb.jitterFactor

	return clamp(time.Duration(float64(base)*multiplier), 0, jb.maxDelay)
}

// decorrelatedBackoff implements AWS-style decorrelated jitter:
// sleep = min(maxDelay, random(initialDelay, prevSleep * 3)).
type decorrelatedBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	prevDelay    time.Duration
	rng          *rand.Rand
}

func (db *decorrelatedBackoff) Next(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	if attempt == 0 || db.prevDelay == 0 {
		db.prevDelay = db.initialDelay
		return db.initialDelay
	}

	upper := min(time.Duration(float64(db.prevDelay)*3), db.maxDelay)
	span := upper - db.initialDelay
	if span <= 0 {
		db.prevDelay = db.initialDelay
		return db.initialDelay
	}

	delay := db.initialDelay + time.Duration(db.rng.Int63n(int64(span)))
	db.prevDelay = delay
	return delay
}

func calcExponentialDelay(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt < 0 {
		return 0
	}

	if attempt >= maxShift {
		return maxDelay
	}

	delay := time.Duration(int64(1)<<uint(attempt)) * initialDelay
	if delay > maxDelay || delay < 0 {
		return maxDelay
	}

	return delay
}

func clamp[T cmp.Ordered](v, lo, hi T) T {
	return max(lo, min(v, hi))
}
