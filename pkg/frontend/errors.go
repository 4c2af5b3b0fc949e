package frontend

import "errors"

var (
	// ErrNoFirmware is returned when a cold bridge is attached without an image
	ErrNoFirmware = errors.New("bridge is cold and no firmware was supplied")
	// ErrFrequencyRange is returned for frequencies outside 42-858 MHz
	ErrFrequencyRange = errors.New("frequency out of range")
	// ErrUnsupportedSystem is returned for delivery systems the frontend cannot receive
	ErrUnsupportedSystem = errors.New("unsupported delivery system")
)
