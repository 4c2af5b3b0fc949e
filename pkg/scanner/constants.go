// Package scanner sweeps a channel plan with a frontend and tracks which
// channels carry a lockable signal.
package scanner

import "time"

// ConfigVersion is the scan config file version this package reads
const ConfigVersion = "1.0"

// Default scanning parameters
const (
	// DefaultMinCNR is the minimum CNR in dB for a locked channel to count
	DefaultMinCNR float64 = 0

	// DefaultDwellTime is the settle time between tune and status read
	DefaultDwellTime = 0 * time.Millisecond

	// MaxDwellTime bounds DwellTime
	MaxDwellTime = 2 * time.Second

	// DefaultScanInterval is the delay between sweeps
	DefaultScanInterval = 30 * time.Second
)

// Channel tracking defaults, counted in sweeps
const (
	// DefaultHoldMax is the hold counter value after a detection
	DefaultHoldMax = 3

	// DefaultLostThreshold is the counter value at which a channel is lost
	DefaultLostThreshold = 1
)

// CNR smoothing defaults
const (
	// DefaultSmoothThreshold is the threshold for fast/slow adaptation (dB)
	DefaultSmoothThreshold float64 = 3

	// DefaultKFast is the adaptation coefficient for large changes
	DefaultKFast float64 = 0.9

	// DefaultKSlow is the adaptation coefficient for small changes
	DefaultKSlow float64 = 0.3
)
