package ai

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedResponse means the model answered but without candidate text.
var ErrMalformedResponse = errors.New("malformed response from generation API")

// Result is the generated itinerary body.
type Result struct {
	Text        string
	Model       string
	GeneratedAt time.Time
}

// UpstreamError is a failed call to the generation API.
// StatusCode is 0 when the request never got an HTTP status (transport failure).
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("generation API unreachable: %s", e.Body)
	}
	return fmt.Sprintf("generation API error: %d %s", e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Transient reports whether retrying the call could succeed.
func (e *UpstreamError) Transient() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}
