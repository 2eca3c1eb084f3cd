package emu

import "errors"

// Error kinds returned by Chip operations. Callers match them with errors.Is;
// the returned errors wrap these with the offending detail.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
	ErrUnsupported     = errors.New("unsupported operation")
)
