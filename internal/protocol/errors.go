package protocol

import "errors"

var (
	// ErrFrameValidation wraps every reason the frame scanner stopped early.
	ErrFrameValidation = errors.New("protocol: frame validation failed")
	// ErrParameterBounds wraps parameter decode failures that abandon a message.
	ErrParameterBounds = errors.New("protocol: parameter out of bounds")
)
