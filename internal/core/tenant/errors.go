package tenant

import "errors"

var (
	// ErrNoGarage is returned when no garage scope is available.
	ErrNoGarage = errors.New("garage scope is required")

	// ErrGarageNotFound is returned when garage does not exist.
	ErrGarageNotFound = errors.New("garage not found")

	// ErrGarageNotActive is returned when garage exists but is not active.
	ErrGarageNotActive = errors.New("garage is not active")
)
