package scanner

import "math"

// LevelSmoother implements adaptive smoothing of a signal level so a
// reported CNR does not jitter between sweeps while still following a real
// change quickly
type LevelSmoother struct {
	value     float64
	primed    bool
	threshold float64 // above this difference, use fast adaptation
	kFast     float64 // adaptation coefficient for large changes (0-1)
	kSlow     float64 // adaptation coefficient for small changes (0-1)
}

// NewLevelSmoother creates a smoother with default parameters
func NewLevelSmoother() *LevelSmoother {
	return NewLevelSmootherWithParams(DefaultSmoothThreshold, DefaultKFast, DefaultKSlow)
}

// NewLevelSmootherWithParams creates a smoother with custom parameters
func NewLevelSmootherWithParams(threshold, kFast, kSlow float64) *LevelSmoother {
	return &LevelSmoother{
		threshold: threshold,
		kFast:     kFast,
		kSlow:     kSlow,
	}
}

// Update applies adaptive smoothing to a new sample and returns the
// smoothed value. The first sample is returned as-is.
func (s *LevelSmoother) Update(sample float64) float64 {
	if !s.primed {
		s.value = sample
		s.primed = true
		return sample
	}

	k := s.kSlow
	if math.Abs(sample-s.value) > s.threshold {
		k = s.kFast
	}
	s.value += (sample - s.value) * k

	return s.value
}

// Value returns the current smoothed value
func (s *LevelSmoother) Value() float64 {
	return s.value
}

// Reset clears the smoother state
func (s *LevelSmoother) Reset() {
	s.value = 0
	s.primed = false
}
