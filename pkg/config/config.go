package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/herlein/godtv/pkg/avl6381"
	"github.com/herlein/godtv/pkg/frontend"
	"github.com/herlein/godtv/pkg/it930x"
	"github.com/herlein/godtv/pkg/mxl603"
)

// BridgeInfo is the bridge identity read when the config was dumped
type BridgeInfo struct {
	ChipVersion    uint8  `json:"chipVersion"`
	ChipType       uint16 `json:"chipType"`
	PrechipVersion uint8  `json:"prechipVersion"`
	Firmware       string `json:"firmware,omitempty"`
}

// DeviceConfig holds the attach configuration of one stick
type DeviceConfig struct {
	Serial       string     `json:"serial"`
	Manufacturer string     `json:"manufacturer,omitempty"`
	Product      string     `json:"product,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
	Bridge       BridgeInfo `json:"bridge"`

	FirmwarePath string `json:"firmwarePath,omitempty"`
	PatchPath    string `json:"patchPath,omitempty"`
	// FullSpeed selects the USB 1.1 stream sizes
	FullSpeed bool `json:"fullSpeed"`

	// System, Frequency and Bandwidth are the channel tuned after attach
	System    string `json:"system"`
	Frequency uint32 `json:"frequency,omitempty"`
	Bandwidth uint32 `json:"bandwidth,omitempty"`

	DemodAddress uint8         `json:"demodAddress"`
	TunerAddress uint8         `json:"tunerAddress"`
	Tuner        mxl603.Config `json:"tuner"`
}

// Default returns the reference stick configuration for serial
func Default(serial string) *DeviceConfig {
	return &DeviceConfig{
		Serial:       serial,
		Timestamp:    time.Now(),
		FirmwarePath: it930x.DefaultFirmwareName,
		System:       "dvbc",
		Bandwidth:    8000000,
		DemodAddress: avl6381.DefaultAddress,
		TunerAddress: mxl603.DefaultAddress,
		Tuner:        mxl603.DefaultConfig(),
	}
}

// DumpFromBridge reads the bridge identity and firmware version into a
// default configuration. It does not power or reset the demodulator.
func DumpFromBridge(serial, manufacturer, product string, b *it930x.Bridge) (*DeviceConfig, error) {
	id, err := b.ReadRegs(it930x.RegChipVersion, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to read chip version: %w", err)
	}
	prechip, err := b.ReadReg(it930x.RegPrechipVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to read prechip version: %w", err)
	}

	c := Default(serial)
	c.Manufacturer = manufacturer
	c.Product = product
	c.Bridge = BridgeInfo{
		ChipVersion:    id[0],
		ChipType:       uint16(id[2])<<8 | uint16(id[1]),
		PrechipVersion: prechip,
	}

	// a cold bridge has no firmware to answer the query
	if v, err := it930x.QueryFirmware(b.Framer()); err == nil && !v.IsZero() {
		c.Bridge.Firmware = v.String()
	}
	return c, nil
}

// ParseSystem maps a delivery system name to the bridge enum
func ParseSystem(s string) (it930x.DeliverySystem, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "")) {
	case "dtmb":
		return it930x.DeliveryDTMB, nil
	case "dvbt", "dvbt2":
		return it930x.DeliveryDVBT, nil
	case "dvbc", "":
		return it930x.DeliveryDVBC, nil
	}
	return 0, fmt.Errorf("%w: %q", frontend.ErrUnsupportedSystem, s)
}

// Validate checks the configuration without touching any file
func (c *DeviceConfig) Validate() error {
	if _, err := ParseSystem(c.System); err != nil {
		return err
	}
	if c.Frequency != 0 && (c.Frequency < frontend.MinFrequency || c.Frequency > frontend.MaxFrequency) {
		return fmt.Errorf("%w: %d Hz", frontend.ErrFrequencyRange, c.Frequency)
	}
	if c.DemodAddress == 0 || c.DemodAddress > 0x7F {
		return fmt.Errorf("invalid demodulator address 0x%02X", c.DemodAddress)
	}
	if c.TunerAddress == 0 || c.TunerAddress > 0x7F {
		return fmt.Errorf("invalid tuner address 0x%02X", c.TunerAddress)
	}
	if err := c.Tuner.Validate(); err != nil {
		return fmt.Errorf("invalid tuner config: %w", err)
	}
	return nil
}

// DeliverySystem returns the parsed System
func (c *DeviceConfig) DeliverySystem() it930x.DeliverySystem {
	s, _ := ParseSystem(c.System)
	return s
}

// FrontendConfig resolves the firmware and patch files into an attach
// configuration. A missing firmware file is not an error; Attach reports it
// only when the bridge turns out to be cold.
func (c *DeviceConfig) FrontendConfig() (frontend.Config, error) {
	fc := frontend.DefaultConfig()
	fc.FullSpeed = c.FullSpeed
	fc.DemodAddress = c.DemodAddress
	fc.TunerAddress = c.TunerAddress
	fc.Tuner = c.Tuner

	if c.FirmwarePath != "" {
		img, err := os.ReadFile(c.FirmwarePath)
		if err != nil && !os.IsNotExist(err) {
			return fc, fmt.Errorf("failed to read firmware: %w", err)
		}
		fc.Firmware = img
	}
	if c.PatchPath != "" {
		patch, err := os.ReadFile(c.PatchPath)
		if err != nil {
			return fc, fmt.Errorf("failed to read demodulator patch: %w", err)
		}
		fc.Patch = patch
	}
	return fc, nil
}
