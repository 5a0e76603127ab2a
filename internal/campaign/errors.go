package campaign

import "errors"

var (
	ErrInvalidTransition = errors.New("operation not allowed in current state")
	ErrBusy              = errors.New("a call is already in flight for this session")
	ErrInvalidInput      = errors.New("invalid input")
)
