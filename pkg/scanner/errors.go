package scanner

import "errors"

// Scanner errors
var (
	// ErrScannerRunning indicates the scanner is already running
	ErrScannerRunning = errors.New("scanner is already running")

	// ErrScannerNotRunning indicates the scanner is not running
	ErrScannerNotRunning = errors.New("scanner is not running")

	// ErrNoChannels indicates no channels were specified for scanning
	ErrNoChannels = errors.New("no channels specified for scanning")

	// ErrInvalidThreshold indicates a negative CNR threshold
	ErrInvalidThreshold = errors.New("CNR threshold must not be negative")

	// ErrInvalidDwellTime indicates an invalid dwell time
	ErrInvalidDwellTime = errors.New("dwell time must be between 0-2000 ms")

	// ErrInvalidTracking indicates lost threshold not below hold max
	ErrInvalidTracking = errors.New("lost threshold must be below hold max")

	// ErrConfigVersion indicates unsupported config file version
	ErrConfigVersion = errors.New("unsupported configuration version")
)
