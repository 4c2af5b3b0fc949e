// Package profiles provides pre-defined channel plans for the receiver.
// Each plan is a named list of channels for one delivery system, so a scan
// or a tune can refer to a channel by name instead of by frequency.
package profiles

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/herlein/godtv/pkg/config"
	"github.com/herlein/godtv/pkg/frontend"
	"github.com/herlein/godtv/pkg/it930x"
)

// Common channel bandwidths
const (
	BW6MHz = 6000000
	BW7MHz = 7000000
	BW8MHz = 8000000
)

// Channel is one tunable channel
type Channel struct {
	Name        string `json:"name"`
	FrequencyHz uint32 `json:"frequency_hz"`
	BandwidthHz uint32 `json:"bandwidth_hz"`
}

// Plan is a named channel plan for a delivery system
type Plan struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	System      string    `json:"system"`
	Channels    []Channel `json:"channels"`
}

// PlanConfig is the JSON format for storing plans
type PlanConfig struct {
	Plan      Plan      `json:"plan"`
	Timestamp time.Time `json:"timestamp"`
}

// raster appends count channels named prefix+number, starting at the
// centre frequency startHz and stepping by stepHz
func raster(channels []Channel, prefix string, first int, startHz, stepHz uint32, count int, bw uint32) []Channel {
	for i := 0; i < count; i++ {
		channels = append(channels, Channel{
			Name:        fmt.Sprintf("%s%d", prefix, first+i),
			FrequencyHz: startHz + uint32(i)*stepHz,
			BandwidthHz: bw,
		})
	}
	return channels
}

// DeliverySystem returns the parsed System
func (p *Plan) DeliverySystem() (it930x.DeliverySystem, error) {
	return config.ParseSystem(p.System)
}

// Validate checks the system, every channel's range and name uniqueness
func (p *Plan) Validate() error {
	if _, err := p.DeliverySystem(); err != nil {
		return fmt.Errorf("plan %s: %w", p.Name, err)
	}
	if len(p.Channels) == 0 {
		return fmt.Errorf("plan %s has no channels", p.Name)
	}
	seen := map[string]bool{}
	for _, c := range p.Channels {
		if c.FrequencyHz < frontend.MinFrequency || c.FrequencyHz > frontend.MaxFrequency {
			return fmt.Errorf("plan %s channel %s: %w: %d Hz", p.Name, c.Name, frontend.ErrFrequencyRange, c.FrequencyHz)
		}
		if seen[c.Name] {
			return fmt.Errorf("plan %s: duplicate channel %s", p.Name, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// Channel looks a channel up by name
func (p *Plan) Channel(name string) (Channel, bool) {
	for _, c := range p.Channels {
		if c.Name == name {
			return c, true
		}
	}
	return Channel{}, false
}

// Between returns a copy of the plan limited to [minHz, maxHz]
func (p *Plan) Between(minHz, maxHz uint32) *Plan {
	out := *p
	out.Channels = nil
	for _, c := range p.Channels {
		if c.FrequencyHz >= minHz && c.FrequencyHz <= maxHz {
			out.Channels = append(out.Channels, c)
		}
	}
	return &out
}

// SaveToFile saves a plan to a JSON file
func (p *Plan) SaveToFile(path string) error {
	pc := PlanConfig{
		Plan:      *p,
		Timestamp: time.Now(),
	}

	data, err := json.MarshalIndent(pc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// LoadPlanFromFile loads and validates a plan from a JSON file
func LoadPlanFromFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var pc PlanConfig
	if err := json.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
	}
	if err := pc.Plan.Validate(); err != nil {
		return nil, err
	}

	return &pc.Plan, nil
}

// EnsureDir ensures the directory for a file path exists
func EnsureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return os.MkdirAll(dir, 0755)
}
