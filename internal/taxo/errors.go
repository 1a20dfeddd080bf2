package taxo

import "fmt"

// UpstreamError is returned when the Taxo API responds with a non-2xx status.
// Details holds the parsed JSON error body, or the raw body text when the
// response is not JSON.
type UpstreamError struct {
	StatusCode int
	Message    string
	Details    any
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("taxo api status %d: %s", e.StatusCode, e.Message)
}

// TransportError is returned when the request fails before any response is
// received (DNS failure, refused connection, timeout). Distinct from
// UpstreamError so callers can tell "the API said no" from "we never reached
// the API".
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("taxo api unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
