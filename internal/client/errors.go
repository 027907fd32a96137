package client

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("object not found")
	ErrAmbiguous    = errors.New("more than one object matched")
	ErrSiteRequired = errors.New("a site is required (set default_site or pass --site)")
)

// TransportError is returned for every failed request, whether the server
// answered with an error status or never answered at all. Callers above the
// client pass it through unchanged.
type TransportError struct {
	// Operation is the method and path, e.g. "GET /sites/1/networks/"
	Operation string

	// StatusCode is the HTTP status, zero when no response arrived
	StatusCode int

	// Code is the API error code from the response body, if any
	Code int

	// Message is the human-readable error
	Message string

	// InternalMsg holds the raw response body or network error for debug output
	InternalMsg string

	// RequestID is the X-Request-ID sent with the request
	RequestID string

	err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("nsot: %s failed: %s (status %d)", e.Operation, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("nsot: %s failed: %s", e.Operation, e.Message)
}

// DetailedError returns the full error message including internal details.
// Only for debug output.
func (e *TransportError) DetailedError() string {
	if e.InternalMsg == "" {
		return e.Error() + " [request " + e.RequestID + "]"
	}
	return fmt.Sprintf("%s (internal: %s) [request %s]", e.Error(), e.InternalMsg, e.RequestID)
}

// Is makes a 404 match ErrNotFound.
func (e *TransportError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}

func (e *TransportError) Unwrap() error {
	return e.err
}
