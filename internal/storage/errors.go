package storage

import "errors"

var (
	ErrQdrantUnreachable  = errors.New("qdrant server unreachable")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrIdeaNotFound       = errors.New("idea not found")
	ErrCorpusMismatch     = errors.New("corpus sequences have different lengths")
)
