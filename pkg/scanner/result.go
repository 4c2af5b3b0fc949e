package scanner

import (
	"time"

	"github.com/herlein/godtv/pkg/frontend"
	"github.com/herlein/godtv/pkg/profiles"
)

// ChannelResult is the outcome of one channel in a sweep
type ChannelResult struct {
	Channel profiles.Channel `json:"channel" yaml:"channel"`
	Status  frontend.Status  `json:"status" yaml:"status"`
	// Found is set when the channel locked with enough CNR
	Found bool `json:"found" yaml:"found"`
	// Err is the tune or status error, if any
	Err string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ScanResult holds the result of a single sweep
type ScanResult struct {
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
	Duration  time.Duration   `json:"duration" yaml:"duration"`
	Channels  []ChannelResult `json:"channels" yaml:"channels"`
}

// Found returns the channels that locked in this sweep
func (r *ScanResult) Found() []ChannelResult {
	var found []ChannelResult
	for _, c := range r.Channels {
		if c.Found {
			found = append(found, c)
		}
	}
	return found
}

// Best returns the found channel with the highest CNR
func (r *ScanResult) Best() (ChannelResult, bool) {
	var best ChannelResult
	ok := false
	for _, c := range r.Channels {
		if c.Found && (!ok || c.Status.CNR > best.Status.CNR) {
			best, ok = c, true
		}
	}
	return best, ok
}

// ChannelInfo is a detected channel with history
type ChannelInfo struct {
	Channel        profiles.Channel
	CNR            float64 // dB, smoothed
	MaxCNR         float64 // dB
	Strength       int64   // last reported strength
	FirstSeen      time.Time
	LastSeen       time.Time
	DetectionCount uint32
}
