package it930x

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// I2C master clock setting for 366 kHz
const i2cSpeed366K = 0x07

// BridgeState is the firmware state found by Identify
type BridgeState int

const (
	StateCold BridgeState = iota
	StateWarm
)

func (s BridgeState) String() string {
	if s == StateWarm {
		return "warm"
	}
	return "cold"
}

// Bridge is an IT930x USB bridge reached through an Exchanger
type Bridge struct {
	framer *Framer
	opts   []Option
	log    logr.Logger
	sleep  func(time.Duration)

	ChipVersion    byte
	ChipType       uint16
	PrechipVersion byte
	Firmware       FirmwareVersion
}

// NewBridge wraps ex with a framer and the bridge register layer
func NewBridge(ex Exchanger, opts ...Option) *Bridge {
	o := applyOptions(opts)
	return &Bridge{
		framer: NewFramer(ex, opts...),
		opts:   opts,
		log:    o.log.WithName("it930x"),
		sleep:  o.sleep,
	}
}

// Framer returns the command transport
func (b *Bridge) Framer() *Framer {
	return b.framer
}

// regWrite is one step of a fixed register sequence
type regWrite struct {
	reg    uint32
	val    byte
	mask   byte
	settle time.Duration
}

// apply runs every step and joins the failures
func (b *Bridge) apply(steps []regWrite) error {
	var errs []error
	for _, s := range steps {
		if err := b.WriteRegMask(s.reg, s.val, s.mask); err != nil {
			errs = append(errs, err)
		}
		if s.settle > 0 {
			b.sleep(s.settle)
		}
	}
	return errors.Join(errs...)
}

// Identify powers the demodulator through GPIO1, reads the chip identity and
// reports whether firmware is already running
func (b *Bridge) Identify() (BridgeState, error) {
	// configure gpio1, reset and power the slave demod; errors here are
	// superseded by the identity read below
	_ = b.GPIOSetDir(GPIO1, true)
	_ = b.GPIOEnable(GPIO1, true)
	_ = b.GPIOSet(GPIO1, false)
	b.sleep(20 * time.Millisecond)

	id, err := b.ReadRegs(RegChipVersion, 3)
	if err != nil {
		return StateCold, fmt.Errorf("failed to read chip version: %w", err)
	}
	b.ChipVersion = id[0]
	b.ChipType = uint16(id[2])<<8 | uint16(id[1])

	b.PrechipVersion, err = b.ReadReg(RegPrechipVersion)
	if err != nil {
		return StateCold, fmt.Errorf("failed to read prechip version: %w", err)
	}

	b.log.Info("bridge identified",
		"prechip", fmt.Sprintf("%02x", b.PrechipVersion),
		"version", fmt.Sprintf("%02x", b.ChipVersion),
		"type", fmt.Sprintf("%04x", b.ChipType))

	var errs []error
	v, err := QueryFirmware(b.framer)
	if err != nil {
		errs = append(errs, err)
	}
	b.sleep(7 * time.Millisecond)

	errs = append(errs, b.WriteRegMask(RegPowerCtl, 0x01, 0x01))
	errs = append(errs, b.GPIOSet(GPIO1, true))

	// reset the stream endpoint
	errs = append(errs, b.apply([]regWrite{
		{reg: RegResetPulse, val: 0x01, mask: 0xFF, settle: 2 * time.Millisecond},
		{reg: RegResetPulse, val: 0x00, mask: 0xFF, settle: 8 * time.Millisecond},
		{reg: 0x4976, val: 0x00, mask: 0xFF},
		{reg: 0x4BFB, val: 0x00, mask: 0xFF},
		{reg: 0x4978, val: 0x00, mask: 0xFF},
		{reg: 0x4977, val: 0x00, mask: 0xFF},
		{reg: 0xF103, val: i2cSpeed366K, mask: 0xFF},
	}))

	if err := errors.Join(errs...); err != nil {
		return StateCold, fmt.Errorf("failed to identify bridge: %w", err)
	}

	b.Firmware = v
	if v.IsZero() {
		return StateCold, nil
	}
	return StateWarm, nil
}

// LoadFirmware downloads img and records the running version
func (b *Bridge) LoadFirmware(img []byte, opts ...Option) (FirmwareVersion, error) {
	v, err := LoadFirmware(b.framer, img, append(append([]Option{}, b.opts...), opts...)...)
	if err != nil {
		return v, err
	}
	b.Firmware = v
	return v, nil
}

// StreamSizes returns the stream frame size in words and the bulk packet
// size in words for the USB link speed
func StreamSizes(fullSpeed bool) (frame uint16, packet byte) {
	if fullSpeed {
		return 5 * StreamPacketSize / 4, 64 / 4
	}
	return StreamFrameCount * StreamPacketSize / 4, 512 / 4
}

// Init configures the I2C masters, the stream endpoint and the transport
// stream path. fullSpeed selects the USB 1.1 frame sizes.
func (b *Bridge) Init(fullSpeed bool) error {
	frame, packet := StreamSizes(fullSpeed)

	var errs []error
	errs = append(errs, b.apply([]regWrite{
		{reg: 0xF6A7, val: i2cSpeed366K, mask: 0xFF},
		{reg: 0xF103, val: i2cSpeed366K, mask: 0xFF},
		{reg: 0xDA1A, val: 0x00, mask: 0xFF},
		{reg: 0xF41F, val: 0x04, mask: 0x04},
		{reg: 0xDA10, val: 0x00, mask: 0x00},
		{reg: 0xF41A, val: 0x05, mask: 0x05},
		{reg: RegResetPulse, val: 0x01, mask: 0x01},
		{reg: 0xDD11, val: 0x0F, mask: 0x0F},
		{reg: 0xDD13, val: 0x1B, mask: 0x1B},
		{reg: 0xDD11, val: 0x2F, mask: 0x2F},
	}))

	errs = append(errs, b.WriteRegs(RegStreamFrame, []byte{byte(frame), byte(frame >> 8)}))

	errs = append(errs, b.apply([]regWrite{
		{reg: RegStreamPacket, val: packet, mask: 0xFF},
		{reg: RegPowerCtl, val: 0x00, mask: 0x01},
		{reg: RegPowerCtl2, val: 0x00, mask: 0x01},
		{reg: RegResetPulse, val: 0x00, mask: 0x01},
		{reg: 0xD920, val: 0x00, mask: 0xFF},
		{reg: 0xD833, val: 0x01, mask: 0xFF},
		{reg: 0xD830, val: 0x00, mask: 0xFF},
		{reg: 0xD831, val: 0x01, mask: 0xFF},
		{reg: 0xD832, val: 0x00, mask: 0xFF},
		{reg: 0x4976, val: 0x01, mask: 0xFF, settle: 20 * time.Millisecond},

		{reg: 0xDA58, val: 0x00, mask: 0x01, settle: 8 * time.Millisecond}, // ts input serial
		{reg: 0xDA51, val: 0x00, mask: 0xFF, settle: 8 * time.Millisecond}, // input packet length
		{reg: 0xDA73, val: 0x01, mask: 0xFF},                                // ts0 aggregation mode
		{reg: 0xDA78, val: 0x47, mask: 0xFF, settle: 30 * time.Millisecond}, // ts0 sync byte
		{reg: 0xDA4C, val: 0x01, mask: 0xFF, settle: 8 * time.Millisecond},  // ts0 enable
		{reg: 0xDA5A, val: 0x1F, mask: 0xFF},                                // ignore ts failures
	}))

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to init bridge: %w", err)
	}

	b.log.Info("bridge initialized", "frame", frame, "packet", packet)
	return nil
}

// ResetDemod pulses GPIO1 low to reset the attached demodulator
func (b *Bridge) ResetDemod() error {
	var errs []error
	errs = append(errs, b.GPIOSetDir(GPIO1, true))
	errs = append(errs, b.GPIOEnable(GPIO1, true))
	errs = append(errs, b.GPIOSet(GPIO1, false))
	b.sleep(30 * time.Millisecond)
	errs = append(errs, b.GPIOSet(GPIO1, true))
	b.sleep(150 * time.Millisecond)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to reset demod: %w", err)
	}
	return nil
}
