package piston

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidLanguage = errors.New("unsupported language")
	ErrTransport       = errors.New("network error")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrHTTPStatus      = errors.New("unexpected HTTP status")
	ErrResponseParse   = errors.New("response parsing failed")
)

// ErrorKind classifies a failed Execute call.
type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindRateLimited
	KindHTTPStatus
	KindResponseParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRateLimited:
		return "rate_limited"
	case KindHTTPStatus:
		return "http_status"
	case KindResponseParse:
		return "response_parse"
	default:
		return "unknown"
	}
}

// Error is returned by Client.Execute for every failure after the language
// check. It matches the sentinel of its kind with errors.Is.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Retries    int
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRateLimited:
		return fmt.Sprintf("rate limit exceeded after %d retries", e.Retries)
	case KindHTTPStatus:
		return fmt.Sprintf("execute request failed: HTTP %d", e.StatusCode)
	case KindResponseParse:
		return fmt.Sprintf("response parsing failed: %v", e.Err)
	default:
		return fmt.Sprintf("network error: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrHTTPStatus:
		return e.Kind == KindHTTPStatus
	case ErrResponseParse:
		return e.Kind == KindResponseParse
	}
	return false
}
