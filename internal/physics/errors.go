package physics

import "errors"

var (
	ErrNoBody       = errors.New("joint endpoint has no rigidbody")
	ErrSameBody     = errors.New("joint connects a body to itself")
	ErrJointRemoved = errors.New("joint already destroyed")
)
