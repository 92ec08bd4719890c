package domain

import "errors"

var (
	// ErrInvalidConfiguration: MaxRequests ou Window não positivos.
	ErrInvalidConfiguration = errors.New("invalid rate limit configuration")
	ErrEmptyClientID        = errors.New("client id is required")
	// ErrGovernorFailure envolve falhas inesperadas do store. O chamador deve liberar a requisição (fail open).
	ErrGovernorFailure = errors.New("rate governor failure")
)
