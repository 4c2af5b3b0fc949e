// Package mxl603 drives the MaxLinear MXL603 silicon tuner. All register
// access goes through an optional gate callback so the tuner can sit behind
// the demodulator's I2C repeater.
package mxl603

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/herlein/godtv/pkg/i2c"
)

// Version identifies the tuner silicon
type Version struct {
	ChipID      uint8
	ChipVersion uint8
}

func (v Version) String() string {
	return fmt.Sprintf("id %02x ver %02x", v.ChipID, v.ChipVersion)
}

// Tuner is an attached MXL603. A Tuner is not safe for concurrent use.
type Tuner struct {
	bus   i2c.Bus
	addr  uint8
	cfg   Config
	gate  func(open bool) error
	log   logr.Logger
	sleep func(time.Duration)

	version   Version
	frequency uint32
	bandwidth uint32
	mode      SignalMode
}

// Option configures a Tuner
type Option func(*Tuner)

// WithAddress overrides DefaultAddress
func WithAddress(addr uint8) Option {
	return func(t *Tuner) { t.addr = addr }
}

// WithConfig replaces DefaultConfig
func WithConfig(cfg Config) Option {
	return func(t *Tuner) { t.cfg = cfg }
}

// WithGate sets the callback that opens and closes the path to the tuner
func WithGate(gate func(open bool) error) Option {
	return func(t *Tuner) { t.gate = gate }
}

// WithLogger sets the tuner logger
func WithLogger(log logr.Logger) Option {
	return func(t *Tuner) { t.log = log }
}

// WithSleep replaces time.Sleep for settle delays
func WithSleep(fn func(time.Duration)) Option {
	return func(t *Tuner) { t.sleep = fn }
}

// Attach soft resets the tuner and reads its version
func Attach(bus i2c.Bus, opts ...Option) (*Tuner, error) {
	t := &Tuner{
		bus:   bus,
		addr:  DefaultAddress,
		cfg:   DefaultConfig(),
		log:   logr.Discard(),
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.WithName("mxl603")
	if err := t.cfg.Validate(); err != nil {
		return nil, err
	}

	err := t.gated(func() error {
		if err := t.write(regAICReset, 0); err != nil {
			return fmt.Errorf("failed to reset tuner: %w", err)
		}
		v, err := t.readVersion()
		t.version = v
		return err
	})
	if err != nil {
		return nil, err
	}
	t.log.Info("tuner attached", "version", t.version)
	return t, nil
}

// Version returns the version read at attach
func (t *Tuner) Version() Version { return t.version }

// Frequency returns the last tuned frequency in Hz
func (t *Tuner) Frequency() uint32 { return t.frequency }

// Bandwidth returns the last requested bandwidth in Hz
func (t *Tuner) Bandwidth() uint32 { return t.bandwidth }

// Init programs the calibration and enables the tuner in cfg.InitMode
func (t *Tuner) Init() error {
	return t.gated(func() error {
		b := t.batch()
		v, err := t.readVersion()
		b.add(err)
		t.version = v

		b.write(regAICReset, 0)
		t.overwriteDefaults(b)
		t.configXtal(b)
		t.loopThrough(b, false)
		t.configIFOut(b)
		t.configAGC(b)
		t.powerMode(b, PowerActive)
		if b.err != nil {
			return b.err
		}
		return t.configMode(t.cfg.InitMode)
	})
}

// SetParams tunes to freq for the given application mode and bandwidth in
// Hz. Cable modes always use the 8 MHz filter; ISDB-T/ATSC uses 6 MHz.
func (t *Tuner) SetParams(mode SignalMode, freq, bandwidthHz uint32) error {
	bw, err := bandwidthFor(mode, bandwidthHz)
	if err != nil {
		return err
	}
	rf := NormalizeFrequency(freq)
	if rf < MinFrequency || rf > MaxFrequency {
		return fmt.Errorf("%w: frequency %d Hz out of range", ErrInvalidParameter, rf)
	}
	t.log.V(1).Info("set params", "mode", mode, "frequency", rf, "bandwidth", bandwidthHz)

	err = t.gated(func() error {
		b := t.batch()
		t.configIFOut(b)
		if b.err != nil {
			return b.err
		}
		if err := t.configMode(mode); err != nil {
			return err
		}
		return t.tune(mode, rf, bw)
	})
	if err != nil {
		return err
	}
	t.frequency = rf
	t.bandwidth = bandwidthHz
	t.mode = mode
	return nil
}

// RxPower returns the RF input power in 0.01 dBm
func (t *Tuner) RxPower() (int16, error) {
	var p int16
	err := t.gated(func() error {
		b := t.batch()
		lo := b.read(regRFPinLow)
		hi := b.read(regRFPinHigh)
		if b.err != nil {
			return b.err
		}
		p = rxPower(uint16(lo) | uint16(hi&0x03)<<8)
		return nil
	})
	return p, err
}

// rxPower converts the 10-bit power readback to 0.01 dBm
func rxPower(raw uint16) int16 {
	p := int16(raw&0x01FF) * 25
	if raw&0x02 != 0 {
		p += 50
	}
	if raw&0x01 != 0 {
		p += 25
	}
	if raw&0x0200 != 0 {
		p -= 128 * 100
	}
	return p
}

// LockStatus reports the RF synthesizer and reference locks
func (t *Tuner) LockStatus() (rf, ref bool, err error) {
	err = t.gated(func() error {
		v, err := t.read(regRFRefStatus)
		if err != nil {
			return err
		}
		rf = v&0x02 != 0
		ref = v&0x01 != 0
		return nil
	})
	return rf, ref, err
}

// AGCLocked reports whether the gain loop settled
func (t *Tuner) AGCLocked() (bool, error) {
	var locked bool
	err := t.gated(func() error {
		v, err := t.read(regAGCLockStatus)
		locked = v&0x08 != 0
		return err
	})
	return locked, err
}

// Standby stops tuning and powers down the tuner block
func (t *Tuner) Standby() error {
	return t.gated(func() error {
		b := t.batch()
		t.powerMode(b, PowerStandby)
		return b.err
	})
}

// NormalizeFrequency accepts a frequency in Hz, kHz or MHz and returns Hz
func NormalizeFrequency(f uint32) uint32 {
	switch {
	case f > 1000000:
		return f
	case f > 1000:
		return f * 1000
	default:
		return f * 1000000
	}
}

func bandwidthFor(mode SignalMode, hz uint32) (Bandwidth, error) {
	switch mode {
	case ModeISDBTATSC:
		return TerrBW6MHz, nil
	case ModeDVBC, ModeJ83B:
		return CableBW8MHz, nil
	case ModeDVBTDTMB:
		switch hz {
		case 6000000:
			return TerrBW6MHz, nil
		case 7000000:
			return TerrBW7MHz, nil
		case 8000000:
			return TerrBW8MHz, nil
		}
		return 0, fmt.Errorf("%w: bandwidth %d Hz", ErrInvalidParameter, hz)
	}
	return 0, fmt.Errorf("%w: mode %s", ErrInvalidParameter, mode)
}

func (t *Tuner) gated(fn func() error) error {
	if t.gate == nil {
		return fn()
	}
	if err := t.gate(true); err != nil {
		return fmt.Errorf("failed to open tuner gate: %w", err)
	}
	err := fn()
	if cerr := t.gate(false); cerr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close tuner gate: %w", cerr))
	}
	return err
}

func (t *Tuner) write(reg, v byte) error {
	if err := i2c.Write(t.bus, t.addr, []byte{reg, v}); err != nil {
		return fmt.Errorf("failed to write tuner reg 0x%02X: %w", reg, err)
	}
	return nil
}

func (t *Tuner) read(reg byte) (byte, error) {
	if err := t.write(readPointer, reg); err != nil {
		return 0, err
	}
	buf := []byte{0}
	if err := i2c.Read(t.bus, t.addr, buf); err != nil {
		return 0, fmt.Errorf("failed to read tuner reg 0x%02X: %w", reg, err)
	}
	return buf[0], nil
}

func (t *Tuner) readVersion() (Version, error) {
	id, err := t.read(regChipID)
	if err != nil {
		return Version{}, err
	}
	ver, err := t.read(regChipVersion)
	if err != nil {
		return Version{}, err
	}
	return Version{ChipID: id, ChipVersion: ver}, nil
}

// batch accumulates the errors of a best-effort register sequence
type batch struct {
	t   *Tuner
	err error
}

func (t *Tuner) batch() *batch { return &batch{t: t} }

func (b *batch) add(err error) {
	if err != nil {
		b.err = errors.Join(b.err, err)
	}
}

func (b *batch) write(reg, v byte) {
	b.add(b.t.write(reg, v))
}

func (b *batch) read(reg byte) byte {
	v, err := b.t.read(reg)
	b.add(err)
	return v
}

// program applies masked updates in order, stopping at the first failure
func (b *batch) program(table []regCtrl) {
	for _, r := range table {
		var v byte
		if r.mask != 0xFF {
			cur, err := b.t.read(r.addr)
			if err != nil {
				b.add(err)
				return
			}
			v = cur
		}
		v = v&^r.mask | r.data
		if err := b.t.write(r.addr, v); err != nil {
			b.add(err)
			return
		}
	}
}

func (t *Tuner) overwriteDefaults(b *batch) {
	b.program(overwriteDefaults)
	b.write(regPageChange, 0x01)
	v := b.read(regVCOBand)
	b.write(regVCOBand, v&0x2F|0xD0)
	b.write(regPageChange, 0x00)
	if t.cfg.SingleSupply {
		b.write(regMainRegAmp, 0x04)
	}
}

func (t *Tuner) configXtal(b *batch) {
	x := t.cfg.Xtal
	ctl := byte(x.Freq)<<5 | x.Cap&0x1F
	if x.ClkOut {
		ctl |= 0x80
	}
	b.write(regXtalCapCtrl, ctl)

	var div byte
	if x.ClkOutDiv {
		div = 0x01
	}
	if x.Sharing {
		div |= 0x40
	}
	b.write(regXtalEnableDiv, div)
	b.write(0x6D, 0x0A)
	if x.SingleSupply {
		b.write(regMainRegAmp, 0x14)
	}
}

func (t *Tuner) loopThrough(b *batch, on bool) {
	b.write(regPageChange, 0x01)
	v := b.read(regDigAnaLoopThru)
	if on {
		v |= 0x10
	} else {
		v &^= 0x10
	}
	b.write(regDigAnaLoopThru, v)
	b.write(regPageChange, 0x00)
}

func (t *Tuner) configIFOut(b *batch) {
	c := t.cfg.IFOut
	v := b.read(regIFFreqSel)
	if c.Manual {
		b.write(regIFFreqSel, v|0x20)
		fcw := uint16(c.ManualKHz * 8192 / 216000)
		b.write(regIFFCWLow, byte(fcw))
		b.write(regIFFCWHigh, byte(fcw>>8)&0x0F)
	} else {
		b.write(regIFFreqSel, v&0xC0|byte(c.Freq))
	}
	if b.err != nil {
		return
	}

	var ctl byte
	if c.Inversion {
		ctl = 0x3 << 6
	}
	ctl += c.Gain & 0x0F
	ctl |= 0x20
	b.write(regIFPathGain, ctl)
}

func (t *Tuner) configAGC(b *batch) {
	c := t.cfg.AGC
	v := b.read(regAGCConfig)
	b.write(regAGCConfig, v&0xF2|byte(c.Type)<<2|0x01)

	v = b.read(regAGCSetPoint)
	b.write(regAGCSetPoint, v&0x80|c.SetPoint)

	v = b.read(regAGCFlip)
	v &= 0xEF
	if c.Invert {
		v |= 0x10
	}
	b.write(regAGCFlip, v)
}

func (t *Tuner) powerMode(b *batch, mode PowerMode) {
	switch mode {
	case PowerActive:
		b.write(regTunerEnable, 1)
		b.write(regStartTune, 1)
	case PowerStandby:
		b.write(regStartTune, 0)
		b.write(regTunerEnable, 0)
	}
	b.write(regPageChange, 0x01)
	b.write(regDFESeqTune, 0x37)
	b.write(regPageChange, 0x00)
}

// configMode programs the application mode table, the IF path power and
// the crystal calibration
func (t *Tuner) configMode(mode SignalMode) error {
	m, ok := modeIFs[mode]
	if !ok {
		return fmt.Errorf("%w: mode %s", ErrInvalidParameter, mode)
	}
	c := t.cfg.Mode
	b := t.batch()
	b.program(m.table)

	path := m.lowPower
	if c.IFOutKHz >= highIFKHz {
		path = m.highPower
	}
	b.write(regDigAnaIFCfg0, path[0])
	b.write(regDigAnaIFCfg1, path[1])
	if m.pwr {
		b.write(regDigAnaIFPwr, path[2])
	}

	csf := byte(0x0D)
	if c.Xtal == Xtal24MHz {
		csf = 0x0E
	}
	b.write(regDFECSFSSSel, csf)
	if m.gains != nil {
		b.write(regDFEDACIFGain, m.gains[c.IFGain])
	}
	if b.err != nil {
		return b.err
	}

	b.write(regXtalCaliSet, 0x00)
	b.write(regXtalCaliSet, 0x01)
	t.sleep(50 * time.Millisecond)
	return b.err
}

// tune aborts any tune in progress, programs the channel and restarts the
// sequencer
func (t *Tuner) tune(mode SignalMode, rf uint32, bw Bandwidth) error {
	b := t.batch()
	b.write(regStartTune, 0x00)

	vco, band := byte(0x1F), byte(0x81)
	if rf >= 700000000 {
		vco, band = 0x9F, 0x91
	}
	if mode.cable() {
		band |= 0x40
	}
	b.write(regVCOSelect, vco)
	b.write(regPageChange, 0x01)
	b.write(regVCOBand, band)
	b.write(regPageChange, 0x00)
	b.write(regDFERefLUTByp, 0x00)
	b.write(regDFERefSXIntMod, 0xD8)

	b.write(regChanTuneBW, byte(bw))
	ch := ChannelWord(rf)
	b.write(regChanTuneLow, byte(ch))
	b.write(regChanTuneHigh, byte(ch>>8))
	b.write(regTunerEnable, 0x01)

	b.write(regPageChange, 0x01)
	lt := b.read(regDigAnaLoopThru)
	b.write(regPageChange, 0x00)
	agc := b.read(regDFEAGC)
	b.write(regPageChange, 0x01)
	seqTune := b.read(regDFESeqTune)
	seqCDC := b.read(regDFESeqCDC)

	if lt&0x10 != 0 {
		agc = agc&0xBF | 0x0E
		seqTune = seqTune&0xC0 | 0x0E
		seqCDC = seqCDC&0xC0 | 0x0E
	} else {
		agc = (agc | 0x40) & 0xC0
		seqTune = seqTune&0xC0 | 0x37
		seqCDC = seqCDC&0xC0 | 0x37
	}
	b.write(regDFESeqTune, seqTune)
	b.write(regDFESeqCDC, seqCDC)
	b.write(regPageChange, 0x00)
	b.write(regDFEAGC, agc)

	b.write(regStartTune, 0x01)
	t.sleep(15 * time.Millisecond)
	b.write(regDFEAGC, agc|0x40)
	return b.err
}

// ChannelWord is the synthesizer word for rf: 64 steps per MHz
func ChannelWord(rf uint32) uint16 {
	return uint16(uint64(rf) * 64 / 1000000)
}
