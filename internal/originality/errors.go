package originality

import "errors"

var (
	ErrInsufficientData = errors.New("not enough items to estimate local density")
	ErrInvalidEmbedding = errors.New("invalid embedding")
)
