// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package venues

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
)

// GeocodeError represents a classified failure from the geocoding boundary.
type GeocodeError struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType classifies geocoding failures into retry classes.
type ErrorType int

const (
	// ErrorTypeUnknown is an unclassified failure.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit means the service throttled us.
	ErrorTypeRateLimit
	// ErrorTypeTimeout is a connection or response timeout.
	ErrorTypeTimeout
	// ErrorTypeServiceUnavailable is a 5xx from the service.
	ErrorTypeServiceUnavailable
	// ErrorTypeInvalidRequest means the request was rejected outright.
	ErrorTypeInvalidRequest
	// ErrorTypeNetwork is a transport-level failure.
	ErrorTypeNetwork
	// ErrorTypeMalformedResponse means the body did not parse as expected.
	ErrorTypeMalformedResponse
)

func (e *GeocodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *GeocodeError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether a failure is worth retrying. Malformed
// responses count as transient: an upstream proxy hiccup and a truncated
// body look the same from here.
func IsTransient(err error) bool {
	var geoErr *GeocodeError
	if errors.As(err, &geoErr) {
		switch geoErr.Type {
		case ErrorTypeRateLimit, ErrorTypeTimeout, ErrorTypeServiceUnavailable,
			ErrorTypeNetwork, ErrorTypeMalformedResponse:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, os.ErrDeadlineExceeded)
}

// ClassifyHTTPStatus maps an HTTP status code to a GeocodeError.
func ClassifyHTTPStatus(statusCode int) *GeocodeError {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &GeocodeError{
			Type:    ErrorTypeRateLimit,
			Message: "rate limit reached",
		}
	case statusCode == http.StatusBadRequest:
		return &GeocodeError{
			Type:    ErrorTypeInvalidRequest,
			Message: "invalid request",
		}
	case statusCode >= 500:
		return &GeocodeError{
			Type:    ErrorTypeServiceUnavailable,
			Message: fmt.Sprintf("service unavailable (status %d)", statusCode),
		}
	default:
		return &GeocodeError{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected HTTP status %d", statusCode),
		}
	}
}
