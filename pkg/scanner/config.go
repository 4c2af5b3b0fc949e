package scanner

import (
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	"github.com/herlein/godtv/pkg/frontend"
	"github.com/herlein/godtv/pkg/it930x"
	"github.com/herlein/godtv/pkg/profiles"
)

// ScanConfig defines runtime scanning parameters
type ScanConfig struct {
	// Plan is the channel list to sweep
	Plan *profiles.Plan

	// Scan parameters
	MinCNR       float64       // dB - minimum CNR for a locked channel to count
	DwellTime    time.Duration // settle time between tune and status read
	ScanInterval time.Duration // delay between sweeps

	// Channel tracking
	HoldMax       int // hold counter value after a detection
	LostThreshold int // counter value when a channel is considered lost

	// Smoothing
	SmoothingEnabled bool
	SmoothThreshold  float64
	SmoothKFast      float64
	SmoothKSlow      float64

	// Callbacks (optional)
	OnChannelDetected func(info ChannelInfo)
	OnChannelLost     func(info ChannelInfo)

	Logger logr.Logger
}

// DefaultConfig returns a ScanConfig with default values for a plan
func DefaultConfig(plan *profiles.Plan) *ScanConfig {
	return &ScanConfig{
		Plan:             plan,
		MinCNR:           DefaultMinCNR,
		DwellTime:        DefaultDwellTime,
		ScanInterval:     DefaultScanInterval,
		HoldMax:          DefaultHoldMax,
		LostThreshold:    DefaultLostThreshold,
		SmoothingEnabled: true,
		SmoothThreshold:  DefaultSmoothThreshold,
		SmoothKFast:      DefaultKFast,
		SmoothKSlow:      DefaultKSlow,
		Logger:           logr.Discard(),
	}
}

// Validate checks the configuration for errors
func (c *ScanConfig) Validate() error {
	if c.Plan == nil || len(c.Plan.Channels) == 0 {
		return ErrNoChannels
	}
	if err := c.Plan.Validate(); err != nil {
		return err
	}
	if c.MinCNR < 0 {
		return ErrInvalidThreshold
	}
	if c.DwellTime < 0 || c.DwellTime > MaxDwellTime {
		return ErrInvalidDwellTime
	}
	if c.HoldMax < 1 || c.LostThreshold < 0 || c.LostThreshold >= c.HoldMax {
		return ErrInvalidTracking
	}
	return nil
}

func (c *ScanConfig) system() it930x.DeliverySystem {
	sys, _ := c.Plan.DeliverySystem()
	return sys
}

// --- YAML Configuration File Types ---

// ConfigFile represents the YAML scan configuration file
type ConfigFile struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Version     string    `yaml:"version"`
	Created     time.Time `yaml:"created,omitempty"`

	Channels        ChannelConfig   `yaml:"channels"`
	ScanParameters  ScanParameters  `yaml:"scan_parameters"`
	ChannelTracking ChannelTracking `yaml:"channel_tracking"`
	Smoothing       Smoothing       `yaml:"smoothing"`
	Output          OutputConfig    `yaml:"output"`
}

// ChannelConfig selects the channels to sweep. Plan names a built-in plan
// or a plan JSON file; Bands, when present, replace the plan's channels
// with a raster in the plan's delivery system.
type ChannelConfig struct {
	Plan   string       `yaml:"plan"`
	System string       `yaml:"system,omitempty"`
	MinHz  uint32       `yaml:"min_hz,omitempty"`
	MaxHz  uint32       `yaml:"max_hz,omitempty"`
	Only   []string     `yaml:"only,omitempty"`
	Bands  []BandConfig `yaml:"bands,omitempty"`
}

// BandConfig defines a frequency band for scanning
type BandConfig struct {
	Name        string `yaml:"name"`
	StartHz     uint32 `yaml:"start_hz"`
	EndHz       uint32 `yaml:"end_hz"`
	StepHz      uint32 `yaml:"step_hz"`
	BandwidthHz uint32 `yaml:"bandwidth_hz"`
	Enabled     bool   `yaml:"enabled"`
}

// ScanParameters holds scan timing and threshold settings
type ScanParameters struct {
	MinCNRdB       float64 `yaml:"min_cnr_db"`
	DwellTimeMs    uint32  `yaml:"dwell_time_ms"`
	ScanIntervalMs uint32  `yaml:"scan_interval_ms"`
}

// ChannelTracking holds channel detection hysteresis settings
type ChannelTracking struct {
	HoldMax       int `yaml:"hold_max"`
	LostThreshold int `yaml:"lost_threshold"`
}

// Smoothing holds CNR smoothing settings
type Smoothing struct {
	Enabled     bool    `yaml:"enabled"`
	ThresholdDB float64 `yaml:"threshold_db"`
	KFast       float64 `yaml:"k_fast"`
	KSlow       float64 `yaml:"k_slow"`
}

// OutputConfig defines channel logging options
type OutputConfig struct {
	LogChannels bool   `yaml:"log_channels"`
	LogPath     string `yaml:"log_path,omitempty"`
	LogFormat   string `yaml:"log_format,omitempty"` // csv, json, text
}

// LoadConfigFile loads scanner configuration from a YAML file
func LoadConfigFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cf ConfigFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cf, nil
}

// Validate checks the configuration file for errors
func (c *ConfigFile) Validate() error {
	if c.Version != ConfigVersion {
		return fmt.Errorf("%w: %s", ErrConfigVersion, c.Version)
	}
	if c.Channels.Plan == "" && len(c.Channels.Bands) == 0 {
		return ErrNoChannels
	}
	if len(c.Channels.Bands) > 0 && c.Channels.Plan == "" && c.Channels.System == "" {
		return fmt.Errorf("%w: bands need a system", frontend.ErrUnsupportedSystem)
	}
	for _, b := range c.Channels.Bands {
		if b.Enabled && (b.StepHz == 0 || b.EndHz < b.StartHz) {
			return fmt.Errorf("band %q: invalid raster", b.Name)
		}
	}
	if c.ScanParameters.MinCNRdB < 0 {
		return ErrInvalidThreshold
	}
	if time.Duration(c.ScanParameters.DwellTimeMs)*time.Millisecond > MaxDwellTime {
		return ErrInvalidDwellTime
	}
	switch c.Output.LogFormat {
	case "", FormatText, FormatCSV, FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q", c.Output.LogFormat)
	}
	return nil
}

// BuildPlan resolves the plan, band and filter settings into a plan
func (c *ConfigFile) BuildPlan() (*profiles.Plan, error) {
	plan := &profiles.Plan{Name: c.Name, System: c.Channels.System}
	if c.Channels.Plan != "" {
		p, err := profiles.ByName(c.Channels.Plan)
		if err != nil {
			return nil, err
		}
		plan = p
		if c.Channels.System != "" {
			plan.System = c.Channels.System
		}
	}

	if len(c.Channels.Bands) > 0 {
		plan.Channels = c.expandBands()
	}

	if c.Channels.MinHz != 0 || c.Channels.MaxHz != 0 {
		hi := c.Channels.MaxHz
		if hi == 0 {
			hi = frontend.MaxFrequency
		}
		plan = plan.Between(c.Channels.MinHz, hi)
	}

	if len(c.Channels.Only) > 0 {
		var keep []profiles.Channel
		for _, name := range c.Channels.Only {
			ch, ok := plan.Channel(name)
			if !ok {
				return nil, fmt.Errorf("plan %s has no channel %q", plan.Name, name)
			}
			keep = append(keep, ch)
		}
		plan.Channels = keep
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// ToScanConfig converts the file into a runtime ScanConfig
func (c *ConfigFile) ToScanConfig() (*ScanConfig, error) {
	plan, err := c.BuildPlan()
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig(plan)
	cfg.MinCNR = c.ScanParameters.MinCNRdB
	cfg.DwellTime = time.Duration(c.ScanParameters.DwellTimeMs) * time.Millisecond
	if c.ScanParameters.ScanIntervalMs != 0 {
		cfg.ScanInterval = time.Duration(c.ScanParameters.ScanIntervalMs) * time.Millisecond
	}
	if c.ChannelTracking.HoldMax != 0 {
		cfg.HoldMax = c.ChannelTracking.HoldMax
	}
	if c.ChannelTracking.LostThreshold != 0 {
		cfg.LostThreshold = c.ChannelTracking.LostThreshold
	}

	cfg.SmoothingEnabled = c.Smoothing.Enabled
	if c.Smoothing.ThresholdDB != 0 {
		cfg.SmoothThreshold = c.Smoothing.ThresholdDB
	}
	if c.Smoothing.KFast != 0 {
		cfg.SmoothKFast = c.Smoothing.KFast
	}
	if c.Smoothing.KSlow != 0 {
		cfg.SmoothKSlow = c.Smoothing.KSlow
	}

	return cfg, cfg.Validate()
}

// expandBands generates channels from band definitions
func (c *ConfigFile) expandBands() []profiles.Channel {
	var channels []profiles.Channel
	for _, band := range c.Channels.Bands {
		if !band.Enabled {
			continue
		}
		bw := band.BandwidthHz
		if bw == 0 {
			bw = profiles.BW8MHz
		}
		for freq := band.StartHz; freq <= band.EndHz; freq += band.StepHz {
			if freq < frontend.MinFrequency || freq > frontend.MaxFrequency {
				continue
			}
			channels = append(channels, profiles.Channel{
				Name:        fmt.Sprintf("%s-%d", band.Name, freq/1000),
				FrequencyHz: freq,
				BandwidthHz: bw,
			})
		}
	}
	return channels
}

// SaveConfigFile saves scanner configuration to a YAML file
func SaveConfigFile(cf *ConfigFile, path string) error {
	cf.Created = time.Now()

	data, err := yaml.Marshal(cf)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
