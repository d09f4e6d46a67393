package toc

import "errors"

var (
	ErrLengthMismatch   = errors.New("documents and originality scores differ in length")
	ErrCacheUnavailable = errors.New("toc cache unavailable")
	ErrUnknownNodeType  = errors.New("unknown node type")
)
