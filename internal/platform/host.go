// Package platform models the host's background execution facility: the
// place a drain routine is registered so that it runs outside any
// interactive session.
package platform

import (
	"context"
	"errors"
)

//go:generate mockgen -source=host.go -destination=../mock/platform_mock.go -package=mock

var (
	// ErrAlreadyRegistered is returned when a name is registered twice.
	ErrAlreadyRegistered = errors.New("drain is already registered")

	// ErrNotRegistered is returned when triggering an unknown name.
	ErrNotRegistered = errors.New("drain is not registered")

	// ErrHostUnavailable is returned when the host is not running.
	ErrHostUnavailable = errors.New("background host is unavailable")
)

// DrainFunc is a unit of background work.
type DrainFunc func(ctx context.Context) error

// BackgroundHost runs registered drains on the host's own schedule.
type BackgroundHost interface {
	// Register makes drain runnable under name.
	Register(name string, drain DrainFunc) error
	// Available reports whether triggers are currently accepted.
	Available() bool
	// Trigger asks the host to run name soon. It returns without waiting for
	// the drain; triggers arriving while a run is pending are coalesced.
	Trigger(ctx context.Context, name string) error
}
