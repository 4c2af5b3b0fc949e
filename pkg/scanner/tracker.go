package scanner

import (
	"sort"
	"sync"
	"time"
)

type tracked struct {
	info     ChannelInfo
	hold     int
	smoother *LevelSmoother
}

// ChannelTracker manages detected channels with hysteresis. Each channel
// keeps its own hold counter which is refilled on detection and counts
// down once per sweep in which the channel did not lock.
type ChannelTracker struct {
	mu       sync.RWMutex
	channels map[string]*tracked
	holdMax  int // counter value after a detection
	lostAt   int // counter value when the lost callback fires
	smooth   func() *LevelSmoother

	onDetected func(ChannelInfo)
	onLost     func(ChannelInfo)
}

// NewChannelTracker creates a tracker with the given hold parameters.
// newSmoother may be nil to disable CNR smoothing.
func NewChannelTracker(holdMax, lostAt int, newSmoother func() *LevelSmoother) *ChannelTracker {
	return &ChannelTracker{
		channels: make(map[string]*tracked),
		holdMax:  holdMax,
		lostAt:   lostAt,
		smooth:   newSmoother,
	}
}

// SetCallbacks sets the channel detection callbacks
func (t *ChannelTracker) SetCallbacks(onDetected, onLost func(ChannelInfo)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDetected = onDetected
	t.onLost = onLost
}

// Update folds a sweep into the tracking state. Callbacks run after the
// tracker lock is released, in channel order.
func (t *ChannelTracker) Update(result *ScanResult) {
	var detected, lost []ChannelInfo

	t.mu.Lock()
	onDetected, onLost := t.onDetected, t.onLost
	for _, r := range result.Channels {
		key := r.Channel.Name
		tc, exists := t.channels[key]

		if !r.Found {
			if !exists {
				continue
			}
			tc.hold--
			if tc.hold == t.lostAt {
				lost = append(lost, tc.info)
			}
			if tc.hold <= 0 {
				delete(t.channels, key)
			}
			continue
		}

		cnr := r.Status.CNRdB()
		if !exists {
			tc = &tracked{
				info: ChannelInfo{
					Channel:   r.Channel,
					MaxCNR:    cnr,
					FirstSeen: result.Timestamp,
				},
			}
			if t.smooth != nil {
				tc.smoother = t.smooth()
			}
			t.channels[key] = tc
		}
		if tc.smoother != nil {
			cnr = tc.smoother.Update(cnr)
		}
		tc.hold = t.holdMax
		tc.info.CNR = cnr
		tc.info.Strength = r.Status.Strength
		tc.info.LastSeen = result.Timestamp
		tc.info.DetectionCount++
		if raw := r.Status.CNRdB(); raw > tc.info.MaxCNR {
			tc.info.MaxCNR = raw
		}
		if !exists {
			detected = append(detected, tc.info)
		}
	}
	t.mu.Unlock()

	if onDetected != nil {
		for _, info := range detected {
			onDetected(info)
		}
	}
	if onLost != nil {
		for _, info := range lost {
			onLost(info)
		}
	}
}

// Active returns the tracked channels sorted by frequency
func (t *ChannelTracker) Active() []ChannelInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	infos := make([]ChannelInfo, 0, len(t.channels))
	for _, tc := range t.channels {
		infos = append(infos, tc.info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Channel.FrequencyHz < infos[j].Channel.FrequencyHz
	})
	return infos
}

// Count returns the number of tracked channels
func (t *ChannelTracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.channels)
}

// HoldCounter returns the hold counter of a channel, 0 when untracked
func (t *ChannelTracker) HoldCounter(name string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if tc, ok := t.channels[name]; ok {
		return tc.hold
	}
	return 0
}

// Clear removes all tracked channels
func (t *ChannelTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channels = make(map[string]*tracked)
}

// PruneOld removes channels not seen since the given time
func (t *ChannelTracker) PruneOld(since time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for key, tc := range t.channels {
		if tc.info.LastSeen.Before(since) {
			delete(t.channels, key)
			count++
		}
	}
	return count
}
