package gateway

import "fmt"

// UpstreamError reports a non-success status from the generation provider.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

// TimeoutError reports an exceeded per-attempt deadline.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream call timed out: %v", e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ParseError reports a response body that could not be interpreted.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable upstream response: %s", e.Msg)
}
