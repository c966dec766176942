package tutor

import "errors"

var (
	// ErrInvalidInput reports a request missing or mistyping a required field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedOutput reports model output that could not be parsed.
	ErrMalformedOutput = errors.New("malformed model output")
)

// UpstreamError reports a failed dependency call: the model or the store.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}
