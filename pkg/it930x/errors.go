package it930x

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport indicates the underlying exchange primitive failed
	ErrTransport = errors.New("transport I/O error")

	// ErrChecksum indicates a response failed checksum validation
	ErrChecksum = errors.New("checksum mismatch")

	// ErrNoData indicates the bridge answered with nothing to report
	ErrNoData = errors.New("no data available")

	// ErrBufferTooSmall indicates a request does not fit the scratch buffer
	ErrBufferTooSmall = errors.New("request exceeds transfer buffer")

	// ErrUnsupportedShape indicates an I2C transaction the proxy cannot frame
	ErrUnsupportedShape = errors.New("unsupported I2C transaction shape")

	// ErrFirmwareStart indicates the firmware reported an all-zero version after boot
	ErrFirmwareStart = errors.New("firmware did not run")

	// ErrBadFirmware indicates the image ended before a full record was consumed
	ErrBadFirmware = errors.New("bad firmware")

	// ErrInvalidGPIO indicates a pin outside GPIO1..GPIO16
	ErrInvalidGPIO = errors.New("invalid GPIO pin")
)

// ChecksumError carries the computed and received checksums of a bad response
type ChecksumError struct {
	Want uint16
	Got  uint16
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: computed 0x%04X, received 0x%04X", e.Want, e.Got)
}

func (e *ChecksumError) Unwrap() error {
	return ErrChecksum
}

// StatusError is a non-zero response status for a command
type StatusError struct {
	Cmd    Command
	Status byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("command %s failed with status 0x%02X", e.Cmd, e.Status)
}
