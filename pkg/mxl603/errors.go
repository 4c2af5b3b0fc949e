package mxl603

import "errors"

var (
	// ErrInvalidParameter indicates a configuration or tuning request the
	// tuner cannot honor
	ErrInvalidParameter = errors.New("invalid tuner parameter")
)
