package readiness

import "errors"

var (
	// ErrTimeout is returned when the iteration limit elapsed before any response arrived.
	ErrTimeout = errors.New("readiness probe timed out")
	// ErrNoJSON is returned when a response body holds no JSON object.
	ErrNoJSON = errors.New("response contains no JSON object")
	// ErrMalformed is returned when the extracted object is not valid JSON.
	ErrMalformed = errors.New("malformed JSON object")
)
