// Package system provides a real clock implementation.
package system

import "time"

// Clock implements ratelimit.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC. The monotonic reading is kept so
// token refills are immune to wall clock jumps.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
