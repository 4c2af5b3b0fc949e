// Package frontend composes the IT930x bridge, the AVL6381 demodulator and
// the MXL603 tuner into one receiver that can be tuned and polled for
// signal status.
package frontend

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/herlein/godtv/pkg/avl6381"
	"github.com/herlein/godtv/pkg/i2c"
	"github.com/herlein/godtv/pkg/it930x"
	"github.com/herlein/godtv/pkg/mxl603"
)

// Bridge is the part of the USB bridge a frontend drives
type Bridge interface {
	Identify() (it930x.BridgeState, error)
	LoadFirmware(img []byte, opts ...it930x.Option) (it930x.FirmwareVersion, error)
	Init(fullSpeed bool) error
	ResetDemod() error
	SelectTunerInput(system it930x.DeliverySystem) error
	I2C() i2c.Bus
}

// Demodulator is the part of the demodulator a frontend drives
type Demodulator interface {
	Initialize(p avl6381.Profile) error
	SetMode(p avl6381.Profile) error
	SetSymbolRate(rate uint32) error
	Lock(p avl6381.Profile) error
	LockStatus() (bool, error)
	SNR() (uint32, error)
	ErrorCounts() (errs, bits uint32, err error)
	GateTuner(open bool) error
	Sleep() error
	State() avl6381.State
}

// Tuner is the part of the tuner a frontend drives
type Tuner interface {
	Init() error
	SetParams(mode mxl603.SignalMode, freq, bandwidthHz uint32) error
	RxPower() (int16, error)
	Standby() error
}

// Config is the static attach configuration of one stick
type Config struct {
	// Firmware is the bridge firmware image, required for a cold bridge
	Firmware []byte
	// Patch is the demodulator micro-patch blob
	Patch []byte
	// FullSpeed selects USB 1.1 stream sizes
	FullSpeed bool
	// Profile is the demodulator profile selected at attach
	Profile avl6381.Profile

	DemodAddress uint8
	TunerAddress uint8
	Tuner        mxl603.Config
}

// DefaultConfig returns the reference stick configuration without firmware
func DefaultConfig() Config {
	return Config{
		Profile:      avl6381.BootProfile,
		DemodAddress: avl6381.DefaultAddress,
		TunerAddress: mxl603.DefaultAddress,
		Tuner:        mxl603.DefaultConfig(),
	}
}

// Frontend is an attached receiver. Tune and ReadStatus hold one lock for
// their full duration so a channel change never interleaves with a status
// read.
type Frontend struct {
	mu sync.Mutex

	name    string
	session string
	log     logr.Logger
	sleep   func(time.Duration)

	bridge Bridge
	demod  Demodulator
	tuner  Tuner

	firmware it930x.FirmwareVersion
	system   it930x.DeliverySystem
	freq     uint32
	tuned    bool
}

// Attach brings up the bridge, then the demodulator behind it, then the
// tuner behind the demodulator's I2C repeater
func Attach(b Bridge, cfg Config, opts ...Option) (*Frontend, error) {
	o := options{
		log:      logr.Discard(),
		sleep:    time.Sleep,
		newDemod: newDemod,
		newTuner: newTuner,
	}
	for _, opt := range opts {
		opt(&o)
	}

	session := uuid.NewString()
	f := &Frontend{
		name:    o.name,
		session: session,
		log:     o.log.WithName("frontend").WithValues("session", session, "device", o.name),
		sleep:   o.sleep,
		bridge:  b,
	}

	state, err := b.Identify()
	if err != nil {
		return nil, fmt.Errorf("failed to attach %s: %w", o.name, err)
	}
	if state == it930x.StateCold {
		if len(cfg.Firmware) == 0 {
			return nil, fmt.Errorf("failed to attach %s: %w", o.name, ErrNoFirmware)
		}
		v, err := b.LoadFirmware(cfg.Firmware)
		if err != nil {
			return nil, fmt.Errorf("failed to attach %s: %w", o.name, err)
		}
		f.firmware = v
		f.log.Info("firmware loaded", "version", v.String())
	} else {
		f.log.Info("bridge warm, skipping firmware")
	}

	if err := b.Init(cfg.FullSpeed); err != nil {
		return nil, fmt.Errorf("failed to attach %s: %w", o.name, err)
	}
	if err := b.ResetDemod(); err != nil {
		return nil, fmt.Errorf("failed to attach %s: %w", o.name, err)
	}

	bus := b.I2C()
	f.demod = o.newDemod(bus,
		avl6381.WithAddress(cfg.DemodAddress),
		avl6381.WithPatch(cfg.Patch),
		avl6381.WithLogger(f.log),
		avl6381.WithSleep(o.sleep))
	if err := f.demod.Initialize(cfg.Profile); err != nil {
		return nil, fmt.Errorf("failed to initialize demodulator: %w", err)
	}

	f.tuner, err = o.newTuner(bus,
		mxl603.WithAddress(cfg.TunerAddress),
		mxl603.WithConfig(cfg.Tuner),
		mxl603.WithGate(f.demod.GateTuner),
		mxl603.WithLogger(f.log),
		mxl603.WithSleep(o.sleep))
	if err != nil {
		return nil, fmt.Errorf("failed to attach tuner: %w", err)
	}
	if err := f.tuner.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize tuner: %w", err)
	}

	f.log.Info("frontend attached", "profile", cfg.Profile.String())
	return f, nil
}

func newDemod(bus i2c.Bus, opts ...avl6381.Option) Demodulator {
	return avl6381.New(bus, opts...)
}

func newTuner(bus i2c.Bus, opts ...mxl603.Option) (Tuner, error) {
	return mxl603.Attach(bus, opts...)
}

// Name returns the device name given at attach
func (f *Frontend) Name() string { return f.name }

// Session returns the id that tags this attach in logs and published status
func (f *Frontend) Session() string { return f.session }

// Firmware returns the version loaded at attach; zero when the bridge was warm
func (f *Frontend) Firmware() it930x.FirmwareVersion { return f.firmware }

// Sleep parks the tuner and the demodulator. A new Attach is needed before
// tuning again.
func (f *Frontend) Sleep() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tuned = false
	if err := f.tuner.Standby(); err != nil {
		return fmt.Errorf("failed to park tuner: %w", err)
	}
	if err := f.demod.Sleep(); err != nil {
		return fmt.Errorf("failed to park demodulator: %w", err)
	}
	f.log.Info("frontend asleep")
	return nil
}

// Channel returns the last successfully tuned channel
func (f *Frontend) Channel() (system it930x.DeliverySystem, freq uint32, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.system, f.freq, f.tuned
}
