// Package clock abstracts time.Now so deadline logic (the one-hour pickup
// window, the expiration sweep) can be tested deterministically.
package clock

import "time"

// Clock provides the current time. Core packages take a Clock instead of
// calling time.Now directly.
type Clock interface {
	Now() time.Time
}

// Real returns the system time. Use at entry points (cmd/*).
type Real struct{}

func (Real) Now() time.Time { return time.Now().UTC() }

// Fixed always returns the same instant. For tests.
type Fixed struct {
	T time.Time
}

func (c Fixed) Now() time.Time { return c.T }

// Func wraps a function as a Clock, for tests that need advancing time.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }
