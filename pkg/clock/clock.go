// Package clock provides time abstractions for production and testing
package clock

import "time"

// SystemClock provides production time implementation using the standard library
type SystemClock struct{}

// After returns a channel that sends the current time after the specified duration
func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Now returns the current time
func (SystemClock) Now() time.Time {
	return time.Now()
}

// AfterFunc runs f in its own goroutine once d has elapsed.
// The returned function stops the timer and reports whether it did so before f ran.
func (SystemClock) AfterFunc(d time.Duration, f func()) (stop func() bool) {
	return time.AfterFunc(d, f).Stop
}
