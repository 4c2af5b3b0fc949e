package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/herlein/godtv/pkg/config"
	"github.com/herlein/godtv/pkg/profiles"
	"github.com/herlein/godtv/pkg/publish"
)

// MonitorConfig is the dtv-monitor YAML file
type MonitorConfig struct {
	// Listen is the metrics and status HTTP address
	Listen string `yaml:"listen"`
	// Interval between status reads per stick
	Interval time.Duration `yaml:"interval"`
	// MQTT enables status publishing when set
	MQTT *publish.Config `yaml:"mqtt,omitempty"`
	// Devices lists the sticks to monitor; empty means every attached
	// stick with its stored configuration
	Devices []DeviceEntry `yaml:"devices,omitempty"`
}

// DeviceEntry selects one stick and the channel to hold
type DeviceEntry struct {
	Device      string `yaml:"device"`           // -d style selector
	Config      string `yaml:"config,omitempty"` // device config path
	Plan        string `yaml:"plan,omitempty"`
	Channel     string `yaml:"channel,omitempty"`
	System      string `yaml:"system,omitempty"`
	FrequencyHz uint32 `yaml:"frequency_hz,omitempty"`
	BandwidthHz uint32 `yaml:"bandwidth_hz,omitempty"`
}

func defaultMonitorConfig() *MonitorConfig {
	return &MonitorConfig{
		Listen:   ":9090",
		Interval: 10 * time.Second,
	}
}

// loadMonitorConfig reads path over the defaults; an empty path yields
// the defaults
func loadMonitorConfig(path string) (*MonitorConfig, error) {
	cfg := defaultMonitorConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.MQTT != nil {
		def := publish.DefaultConfig()
		if cfg.MQTT.Broker == "" {
			cfg.MQTT.Broker = def.Broker
		}
		if cfg.MQTT.Prefix == "" {
			cfg.MQTT.Prefix = def.Prefix
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the file without touching any device
func (c *MonitorConfig) Validate() error {
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if c.MQTT != nil && c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid mqtt qos %d", c.MQTT.QoS)
	}
	seen := map[string]bool{}
	for i, d := range c.Devices {
		if d.Device == "" {
			return fmt.Errorf("device %d: empty selector", i)
		}
		if seen[d.Device] {
			return fmt.Errorf("device %q listed twice", d.Device)
		}
		seen[d.Device] = true
		if d.Channel != "" && d.Plan == "" {
			return fmt.Errorf("device %q: channel needs a plan", d.Device)
		}
	}
	return nil
}

// Apply overlays the entry's channel selection on cfg and returns the
// channel name, if the entry names one
func (d DeviceEntry) Apply(cfg *config.DeviceConfig) (string, error) {
	name := ""
	if d.Plan != "" && d.Channel != "" {
		plan, err := profiles.ByName(d.Plan)
		if err != nil {
			return "", err
		}
		ch, ok := plan.Channel(d.Channel)
		if !ok {
			return "", fmt.Errorf("plan %s has no channel %q", plan.Name, d.Channel)
		}
		cfg.System = plan.System
		cfg.Frequency = ch.FrequencyHz
		cfg.Bandwidth = ch.BandwidthHz
		name = ch.Name
	}
	if d.System != "" {
		cfg.System = d.System
	}
	if d.FrequencyHz != 0 {
		cfg.Frequency = d.FrequencyHz
	}
	if d.BandwidthHz != 0 {
		cfg.Bandwidth = d.BandwidthHz
	}
	return name, cfg.Validate()
}
