package models

import (
	"errors"
	"fmt"
)

// Provider error taxonomy. Adapters and the coordinator translate every
// provider-native failure into one of these before it crosses a package
// boundary; raw HTTP or parse errors never reach a controller.
var (
	// ErrNotFound means the symbol does not exist at the provider.
	ErrNotFound = errors.New("symbol not found")
	// ErrRateLimited means the provider refused the call due to quota.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrUnreachable covers network errors and timeouts.
	ErrUnreachable = errors.New("provider unreachable")
	// ErrMalformedResponse means the provider broke its response contract.
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrInsufficientHistory means the series is shorter than the
	// indicator warm-up requirement.
	ErrInsufficientHistory = errors.New("insufficient price history")
)

// FetchError ties a taxonomy kind to the provider that produced it.
type FetchError struct {
	Provider string
	Kind     error
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Kind }

// NewFetchError wraps a provider-native error with its taxonomy kind.
func NewFetchError(provider string, kind, err error) *FetchError {
	return &FetchError{Provider: provider, Kind: kind, Err: err}
}

// DataUnavailableError is the terminal failure after every adapter in the
// priority order has been exhausted. It carries the last underlying cause.
type DataUnavailableError struct {
	Symbol  string
	LastErr error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable for %s: %v", e.Symbol, e.LastErr)
}

func (e *DataUnavailableError) Unwrap() error { return e.LastErr }

// IsDataUnavailable reports whether err is a terminal resolution failure.
func IsDataUnavailable(err error) bool {
	var du *DataUnavailableError
	return errors.As(err, &du)
}

// ErrorKind maps an error to its taxonomy label for logging and metrics.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrInsufficientHistory):
		return "insufficient_history"
	case IsDataUnavailable(err):
		return "data_unavailable"
	default:
		return "unknown"
	}
}
