package mxl603

import "fmt"

// XtalConfig describes the crystal and its clock output
type XtalConfig struct {
	Freq         XtalFreq `json:"freq"`
	Cap          uint8    `json:"cap"`
	ClkOut       bool     `json:"clkOut"`
	ClkOutDiv    bool     `json:"clkOutDiv"`
	SingleSupply bool     `json:"singleSupply"`
	Sharing      bool     `json:"sharing"`
}

// IFOutConfig describes the IF output. ManualKHz is used instead of the
// preset when Manual is set.
type IFOutConfig struct {
	Freq      IFFreq `json:"freq"`
	Inversion bool   `json:"inversion"`
	Gain      uint8  `json:"gain"`
	Manual    bool   `json:"manual"`
	ManualKHz uint32 `json:"manualKHz"`
}

// AGCConfig describes the gain control loop
type AGCConfig struct {
	Type     AGCType `json:"type"`
	SetPoint uint8   `json:"setPoint"`
	Invert   bool    `json:"invert"`
}

// ModeConfig holds the application mode calibration
type ModeConfig struct {
	IFOutKHz uint32   `json:"ifOutKHz"`
	Xtal     XtalFreq `json:"xtal"`
	IFGain   uint8    `json:"ifGain"`
}

// Config is the static tuner calibration for a board
type Config struct {
	SingleSupply bool        `json:"singleSupply"`
	Xtal         XtalConfig  `json:"xtal"`
	IFOut        IFOutConfig `json:"ifOut"`
	AGC          AGCConfig   `json:"agc"`
	Mode         ModeConfig  `json:"mode"`
	// InitMode is the application mode programmed by Init
	InitMode SignalMode `json:"initMode"`
}

// DefaultConfig returns the calibration of the reference IT9303 stick
func DefaultConfig() Config {
	return Config{
		SingleSupply: true,
		Xtal: XtalConfig{
			Freq:         Xtal24MHz,
			Cap:          12,
			ClkOut:       true,
			SingleSupply: true,
		},
		IFOut: IFOutConfig{
			Freq:      IF5000kHz,
			Inversion: true,
			Gain:      11,
			ManualKHz: 5000,
		},
		AGC: AGCConfig{
			Type:     AGCExternal,
			SetPoint: 66,
		},
		Mode: ModeConfig{
			IFOutKHz: 5000,
			Xtal:     Xtal16MHz,
			IFGain:   11,
		},
		InitMode: ModeDVBC,
	}
}

// Validate checks the ranges the tuner accepts
func (c Config) Validate() error {
	if c.Xtal.Freq > Xtal24MHz || c.Mode.Xtal > Xtal24MHz {
		return fmt.Errorf("%w: crystal selection", ErrInvalidParameter)
	}
	if c.Xtal.Cap > 0x1F {
		return fmt.Errorf("%w: crystal cap %d", ErrInvalidParameter, c.Xtal.Cap)
	}
	if c.IFOut.Freq > IF44000kHz {
		return fmt.Errorf("%w: IF preset %d", ErrInvalidParameter, c.IFOut.Freq)
	}
	if c.AGC.Type > AGCExternal || c.AGC.SetPoint > 0x7F {
		return fmt.Errorf("%w: AGC settings", ErrInvalidParameter)
	}
	if _, ok := modeIFs[c.InitMode]; !ok {
		return fmt.Errorf("%w: mode %s", ErrInvalidParameter, c.InitMode)
	}
	return nil
}
