package engine

import "errors"

var (
	ErrUnknownComponent = errors.New("unknown component")
	ErrInvalidLayer     = errors.New("invalid layer")
	ErrInvalidProps     = errors.New("invalid component props")
)
