// Package clock abstracts time so that fetch timing and retry backoff can be
// driven deterministically in tests.
//
// Production code uses Real(); tests use NewFakeClock() and call Advance().
package clock

import "time"

// Clock provides the time operations used by the fetcher and the dashboard.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration

	// After waits for the duration to elapse and then sends the current time.
	After(d time.Duration) <-chan time.Time
}
