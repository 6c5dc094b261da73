package model

import "errors"

var (
	// ErrInvariant marks a corrupted position, such as a missing king. It is
	// never recovered from silently.
	ErrInvariant = errors.New("position invariant violated")
	ErrBadFEN    = errors.New("bad FEN")
)
