// Package steeringstate implements ClientSteeringState, the per-(AP,
// client) back-off tracker shared across client-steering algorithm runs.
package steeringstate

import (
	"sync"
	"time"
)

type key struct {
	ap     string
	client string
}

// ClientSteeringState tracks the last time a steering action was recorded
// for each (AP serial, client MAC) pair, so repeated runs do not thrash a
// client that is already being steered.
type ClientSteeringState struct {
	mu   sync.Mutex
	last map[key]time.Time
}

// New returns an empty ClientSteeringState.
func New() *ClientSteeringState {
	return &ClientSteeringState{last: make(map[key]time.Time)}
}

// RegisterIfBackoffExpired is the single atomic primitive a steering
// algorithm uses to decide whether to emit an action: it reports whether
// the elapsed time since the last recorded action for (ap, client) exceeds
// backoff, and -- unless dryRun is set -- records now as the new last-
// action time in the same critical section. A dry-run query never mutates
// this state, even when it would otherwise report true.
func (s *ClientSteeringState) RegisterIfBackoffExpired(ap, client string, now time.Time, backoff time.Duration, dryRun bool) bool {
	k := key{ap: ap, client: client}

	s.mu.Lock()
	defer s.mu.Unlock()

	last, seen := s.last[k]
	expired := !seen || now.Sub(last) > backoff

	if expired && !dryRun {
		s.last[k] = now
	}

	return expired
}

// Len reports the number of (AP, client) pairs currently tracked, for
// diagnostics.
func (s *ClientSteeringState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.last)
}
