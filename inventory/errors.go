package inventory

import "errors"

var (
	// ErrNoSession is returned when an operation needs a signed-in user and there is none.
	ErrNoSession = errors.New("no user is signed in")

	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)
