package stemapi

import (
	"errors"
	"fmt"
)

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError means the backend answered with a non-2xx status.
type HTTPError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: backend returned status %d", e.Endpoint, e.StatusCode)
}

// ParseError means a 2xx response body was not the JSON we expected.
type ParseError struct {
	Endpoint string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: invalid response body: %v", e.Endpoint, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type Kind string

const (
	KindNetwork Kind = "network"
	KindHTTP    Kind = "http"
	KindParse   Kind = "parse"
	KindUnknown Kind = "unknown"
)

func ErrorKind(err error) Kind {
	var netErr *NetworkError
	var httpErr *HTTPError
	var parseErr *ParseError
	switch {
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &httpErr):
		return KindHTTP
	case errors.As(err, &parseErr):
		return KindParse
	}
	return KindUnknown
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
