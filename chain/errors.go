package chain

import "errors"

var (
	// ErrForked is returned by Append when the header was prepared against a
	// head that is no longer current.
	ErrForked = errors.New("chain: header does not extend the current head")
	// ErrBrokenLink is returned by Restore when a stored header does not link
	// to its predecessor.
	ErrBrokenLink = errors.New("chain: broken header link")
)
