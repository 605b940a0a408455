package grabbable

import "errors"

var (
	ErrMissingBody       = errors.New("grabbable has no rigidbody")
	ErrAlreadyRegistered = errors.New("already registered")
	ErrInvalidSettings   = errors.New("invalid grabbable settings")
	ErrUnknownLayer      = errors.New("grab layer not defined")
)
