package embedding

import "errors"

var (
	ErrMissingAPIKey     = errors.New("OPENAI_API_KEY not set")
	ErrRateLimited       = errors.New("embedding provider rate limited")
	ErrUnavailable       = errors.New("embedding provider unavailable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrCountMismatch     = errors.New("embedding count does not match input count")
)
