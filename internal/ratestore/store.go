// Package ratestore keeps the per-client submission timestamps used for
// contact-form rate limiting.
//
// Every backend treats Allow as the only writer: the check against the
// previous timestamp and the recording of the new one happen as one step
// within the backend's scope (a process for memory and file, the server for
// redis and sql).
package ratestore

import (
	"context"
	"time"
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Last       time.Time     // previous submission, zero when none was recorded
	RetryAfter time.Duration // remaining cooldown when not allowed
}

type Store interface {
	// Allow reports whether key may submit at now. When allowed, now is
	// recorded as the key's last submission; a rejected call leaves the
	// stored timestamp untouched.
	Allow(ctx context.Context, key string, now time.Time, window time.Duration) (Decision, error)
	// Prune drops entries recorded before the given time and returns how many went.
	Prune(ctx context.Context, before time.Time) (int, error)
	Close() error
}

// decide applies the cooldown rule to a previously recorded unix timestamp.
func decide(last int64, ok bool, now time.Time, window time.Duration) Decision {
	if !ok {
		return Decision{Allowed: true}
	}
	prev := time.Unix(last, 0)
	elapsed := now.Sub(prev)
	if elapsed < window {
		return Decision{Allowed: false, Last: prev, RetryAfter: window - elapsed}
	}
	return Decision{Allowed: true, Last: prev}
}
