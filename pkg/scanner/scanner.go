package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/herlein/godtv/pkg/frontend"
	"github.com/herlein/godtv/pkg/it930x"
)

// Tuner is the part of a frontend the scanner drives
type Tuner interface {
	Tune(system it930x.DeliverySystem, freq, bandwidthHz uint32) error
	ReadStatus() (frontend.Status, error)
}

// Scanner provides channel plan scanning
type Scanner interface {
	// Lifecycle
	Start() error
	Stop() error
	IsRunning() bool

	// Configuration
	SetConfig(config *ScanConfig) error
	GetConfig() *ScanConfig

	// Scanning
	ScanOnce(ctx context.Context) (*ScanResult, error)
	ScanContinuous(ctx context.Context, results chan<- *ScanResult) error

	// Channel tracking
	ActiveChannels() []ChannelInfo
	ClearChannelHistory()
}

// scanner implements the Scanner interface
type scanner struct {
	tuner  Tuner
	config *ScanConfig

	// State
	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}

	tracker *ChannelTracker

	sleep func(time.Duration)
	now   func() time.Time
}

// New creates a new Scanner with the given tuner and configuration
func New(tuner Tuner, config *ScanConfig) Scanner {
	s := &scanner{
		tuner:    tuner,
		stopChan: make(chan struct{}),
		sleep:    time.Sleep,
		now:      time.Now,
	}
	s.apply(config)
	return s
}

// NewFromConfigFile creates a Scanner from a YAML configuration file
func NewFromConfigFile(tuner Tuner, configPath string) (Scanner, error) {
	cf, err := LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	config, err := cf.ToScanConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return New(tuner, config), nil
}

// apply installs a config and rebuilds the tracker. Callers hold mu or own s.
func (s *scanner) apply(config *ScanConfig) {
	s.config = config

	var smoother func() *LevelSmoother
	if config.SmoothingEnabled {
		smoother = func() *LevelSmoother {
			return NewLevelSmootherWithParams(config.SmoothThreshold, config.SmoothKFast, config.SmoothKSlow)
		}
	}
	s.tracker = NewChannelTracker(config.HoldMax, config.LostThreshold, smoother)
	s.tracker.SetCallbacks(config.OnChannelDetected, config.OnChannelLost)
}

// Start marks the scanner as running
func (s *scanner) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrScannerRunning
	}

	s.running = true
	s.stopChan = make(chan struct{})
	return nil
}

// Stop stops the scanner
func (s *scanner) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrScannerNotRunning
	}

	close(s.stopChan)
	s.running = false
	return nil
}

// IsRunning returns true if the scanner is running
func (s *scanner) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// SetConfig updates the scanner configuration and resets channel tracking
func (s *scanner) SetConfig(config *ScanConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(config)
	return nil
}

// GetConfig returns the current configuration
func (s *scanner) GetConfig() *ScanConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// ScanOnce sweeps every channel of the plan once. Channels that fail to
// tune are reported with Err set; only cancellation aborts the sweep.
func (s *scanner) ScanOnce(ctx context.Context) (*ScanResult, error) {
	s.mu.RLock()
	config, tracker := s.config, s.tracker
	s.mu.RUnlock()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	system := config.system()
	log := config.Logger.WithValues("plan", config.Plan.Name, "system", system.String())
	log.V(1).Info("sweep starting", "channels", len(config.Plan.Channels))

	start := s.now()
	result := &ScanResult{
		Timestamp: start,
		Channels:  make([]ChannelResult, 0, len(config.Plan.Channels)),
	}

	for _, ch := range config.Plan.Channels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r := ChannelResult{Channel: ch}
		if err := s.tuner.Tune(system, ch.FrequencyHz, ch.BandwidthHz); err != nil {
			r.Err = err.Error()
			log.V(1).Info("tune failed", "channel", ch.Name, "error", r.Err)
			result.Channels = append(result.Channels, r)
			continue
		}
		if config.DwellTime > 0 {
			s.sleep(config.DwellTime)
		}

		st, err := s.tuner.ReadStatus()
		r.Status = st
		if err != nil {
			r.Err = err.Error()
		}
		r.Found = st.Locked && st.CNRdB() >= config.MinCNR
		if r.Found {
			log.Info("channel found", "channel", ch.Name, "frequency", ch.FrequencyHz, "cnr", st.CNRdB(), "strength", st.Strength)
		}
		result.Channels = append(result.Channels, r)
	}

	result.Duration = s.now().Sub(start)
	tracker.Update(result)

	log.V(1).Info("sweep complete", "found", len(result.Found()), "duration", result.Duration.String())
	return result, nil
}

// ScanContinuous sweeps immediately and then once per ScanInterval until
// the context is cancelled or Stop is called. Results are sent without
// blocking; a full channel drops the sweep. results is closed on return.
func (s *scanner) ScanContinuous(ctx context.Context, results chan<- *ScanResult) error {
	defer close(results)
	if err := s.Start(); err != nil {
		return err
	}
	defer func() { _ = s.Stop() }()

	s.mu.RLock()
	interval, stop := s.config.ScanInterval, s.stopChan
	s.mu.RUnlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := s.ScanOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		select {
		case results <- result:
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
		}
	}
}

// ActiveChannels returns all tracked channels
func (s *scanner) ActiveChannels() []ChannelInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.Active()
}

// ClearChannelHistory clears all tracked channels
func (s *scanner) ClearChannelHistory() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.tracker.Clear()
}
