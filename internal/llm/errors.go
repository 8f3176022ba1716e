package llm

import "errors"

var (
	// ErrAuth means the API key was missing, invalid, or revoked.
	ErrAuth = errors.New("authentication failed")
	// ErrRateLimited means the provider throttled the request.
	ErrRateLimited = errors.New("rate limited")
	// ErrTimeout means the request exceeded its deadline.
	ErrTimeout = errors.New("request timed out")
	// ErrMalformedResponse means the provider returned a body that could
	// not be decoded into a completion.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrServiceUnavailable means the provider kept failing after all
	// retry attempts were spent.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// PermanentError wraps an error that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// NewPermanentError marks err as not worth retrying.
func NewPermanentError(err error) *PermanentError {
	return &PermanentError{Err: err}
}
