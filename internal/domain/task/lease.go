package task

import (
	"errors"
	"time"
)

// ErrInvalidLease indicates the configured lease bounds are unusable.
var ErrInvalidLease = errors.New("task lease must be positive and not exceed the maximum")

// LeaseSource identifies how a lease length was chosen.
type LeaseSource string

const (
	LeaseRequested LeaseSource = "requested"
	LeaseDefault   LeaseSource = "default"
	LeaseClamped   LeaseSource = "clamped"
)

// LeasePolicy turns requested lease durations into the whole seconds stored on a task.
//
// Validation of large files can run for minutes, so the policy also caps requests at
// a maximum to keep crashed workers from holding a task indefinitely.
type LeasePolicy struct {
	def time.Duration
	max time.Duration
}

// NewLeasePolicy returns a policy with the given default and maximum lease. A zero
// maximum disables the cap.
func NewLeasePolicy(def, maxLease time.Duration) (*LeasePolicy, error) {
	if def <= 0 || maxLease < 0 || (maxLease > 0 && def > maxLease) {
		return nil, ErrInvalidLease
	}
	return &LeasePolicy{def: def, max: maxLease}, nil
}

// Default returns the lease used when none is requested.
func (p *LeasePolicy) Default() time.Duration {
	if p == nil {
		return 0
	}
	return p.def
}

// Lease is a resolved lease length.
type Lease struct {
	Seconds   int
	Source    LeaseSource
	Requested time.Duration
}

// Duration returns the lease as a time.Duration.
func (l Lease) Duration() time.Duration {
	return time.Duration(l.Seconds) * time.Second
}

// Resolve picks the lease for a request. Zero selects the default, anything below one
// second becomes one second and anything above the maximum becomes the maximum.
func (p *LeasePolicy) Resolve(requested time.Duration) Lease {
	l := Lease{Requested: requested}
	if p == nil {
		l.Source = LeaseDefault
		return l
	}

	d := requested
	l.Source = LeaseRequested
	switch {
	case requested == 0:
		d = p.def
		l.Source = LeaseDefault
	case requested < time.Second:
		d = time.Second
		l.Source = LeaseClamped
	case p.max > 0 && requested > p.max:
		d = p.max
		l.Source = LeaseClamped
	}

	l.Seconds = int(d / time.Second)
	if l.Seconds < 1 {
		l.Seconds = 1
	}
	return l
}
