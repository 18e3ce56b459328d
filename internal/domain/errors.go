// Package domain contains domain models and business logic errors.
package domain

import "errors"

// Common domain errors
var (
	// ErrClientClosed is returned when a launch is submitted after the
	// client has been closed.
	ErrClientClosed = errors.New("client closed")

	// ErrHostDown is returned when a spawn is attempted on a host that is
	// not UP.
	ErrHostDown = errors.New("host is down")

	// ErrInsufficientCapacity is returned when a host cannot accommodate
	// the requested flavor.
	ErrInsufficientCapacity = errors.New("insufficient capacity")

	// ErrUnknownHost is returned when an operation references a host that
	// was never registered.
	ErrUnknownHost = errors.New("unknown host")

	// ErrStopped is returned by launch futures cancelled during shutdown.
	ErrStopped = errors.New("service stopped")
)
