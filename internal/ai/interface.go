package ai

import (
	"context"
)

// TextGenerator turns a prompt into generated text.
// Implementations report *UpstreamError for transport or non-2xx failures
// and wrap ErrMalformedResponse when a 2xx answer carries no usable text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (Result, error)
}
