package avl6381

import (
	"fmt"
	"time"
)

// Profile is a demodulator delivery profile
type Profile int

const (
	// ProfileUnknown is reported when the chip mode is not recognized or a
	// mode switch did not complete
	ProfileUnknown Profile = iota - 1
	ProfileDTMB
	ProfileDVBC
)

// BootProfile is the profile the demodulator comes up in after Configure
const BootProfile = ProfileDVBC

func (p Profile) String() string {
	switch p {
	case ProfileDTMB:
		return "DTMB"
	case ProfileDVBC:
		return "DVB-C"
	default:
		return "unknown"
	}
}

// capabilities binds a profile to its register map and bring-up steps
type capabilities struct {
	mode   uint32
	pllRow int

	// initRx configures the receiver clocks and front end
	initRx []step
	// initADC configures the sampling path
	initADC []step
	// symbolRate is set when the profile needs an explicit symbol rate
	symbolRate bool
	// mpeg configures the transport stream output
	mpeg []step

	repeaterDiv uint32
	agcPolarity step
	perClear    step
	autoLock    []step

	haltReg uint32

	lockReg   uint32
	lockWidth Width
	locked    func(uint32) bool

	snrReg   uint32
	snrWidth Width
	// snrLatch, when set, gates SNR reads: the value is valid only while the
	// latch reads zero and the latch is re-armed after each read
	snrLatch uint32

	runningReg   uint32
	runningWidth Width

	noSignalReg   uint32
	noSignalWidth Width
	noSignal      func(uint32) bool
}

var profiles = map[Profile]*capabilities{
	ProfileDTMB: {
		mode:   0,
		pllRow: 4,
		initRx: []step{
			sendRxOp(RxOpInit),
			write32("rx.core-clock", 0x000338, 0x11E1A300),
			write32("rx.fec-clock", 0x000384, 0x0A037A00),
			write32("rx.sample-clock", 0x00033C, 0x04C4B400),
			write32("rx.if", 0x000304, 0x016E3600),
			write8("rx.input-select", 0x000321, 0x01),
			write8("rx.input-format", 0x000323, 0x01),
			write8("rx.tuner-type", 0x000319, 0x00),
			write8("rx.agc-select", 0x00032B, 0x01),
			write8("rx.lock-clear", 0x0000A6, 0x00),
			write8("rx.spectrum", 0x000322, 0x00),
			write32("rx.spectrum-offset", 0x000324, 0x004C4B40),
		},
		initADC: []step{
			write8("adc.select", 0x000320, 0x00),
			write8("adc.format", 0x0004D7, 0x00),
			sendRxOp(RxOpDTMBADC),
		},
		symbolRate: true,
		mpeg: []step{
			write8("mpeg.mode", 0x000352, 1),
			write8("mpeg.clock", 0x000353, 1),
			write8("mpeg.serial-pin", 0x000351, 0),
			write8("mpeg.serial-order", 0x000350, 0),
			write8("mpeg.sync-pulse", 0x0004E6, 0),
			write8("mpeg.error-bit", 0x000378, 1),
			write8("mpeg.error-polarity", 0x000354, 0),
			write8("mpeg.valid-polarity", 0x0004E7, 0),
			write8("mpeg.packet-len", 0x000357, 0),
		},
		repeaterDiv: 0x34,
		agcPolarity: write8("agc.polarity", 0x00030B, 0),
		perClear:    write8("per.clear", 0x0000A5, 0),
		autoLock: []step{
			write8("autolock.enable", 0x00021F, 0x01),
			write8("autolock.clear", 0x0000AD, 0x00),
			write32("autolock.reset", 0x00010C, 0),
			sendRxOp(RxOpDTMBAutoLock),
		},
		haltReg:       0x0000A4,
		lockReg:       0x0000A6,
		lockWidth:     W8,
		locked:        isNonZero,
		snrReg:        0x00011C,
		snrWidth:      W16,
		runningReg:    0x000124,
		runningWidth:  W8,
		noSignalReg:   0x000146,
		noSignalWidth: W16,
		noSignal:      func(v uint32) bool { return v > 3 },
	},
	ProfileDVBC: {
		mode:   1,
		pllRow: 5,
		initRx: []step{
			sendRxOp(RxOpInit),
			write32("rx.core-clock", 0x000560, 0x0D59F800),
			write32("rx.fec-clock", 0x0005A8, 0x0A037A00),
			write32("rx.if", 0x00055C, 0x016E3600),
			write32("rx.sample-offset", 0x000580, 0x004C4B40),
			write32("rx.symbol-rate", 0x000558, 0x0068E778),
		},
		initADC: []step{
			write8("adc.select", 0x00057D, 0x01),
			write8("adc.format", 0x00057F, 0x01),
			write8("adc.swap", 0x00057C, 0x00),
			write8("adc.dc", 0x000747, 0x00),
		},
		mpeg: []step{
			write8("mpeg.mode", 0x00056E, 0),
			write8("mpeg.clock", 0x00056F, 1),
			write8("mpeg.serial-pin", 0x00056D, 0),
			write8("mpeg.serial-order", 0x00056C, 0),
			write8("mpeg.sync-pulse", 0x00074E, 0),
			write8("mpeg.error-bit", 0x000578, 1),
			write8("mpeg.error-polarity", 0x000570, 0),
			write8("mpeg.valid-polarity", 0x00074F, 0),
			write8("mpeg.packet-len", 0x000573, 0),
		},
		repeaterDiv: 0x27,
		agcPolarity: write8("agc.polarity", 0x00059F, 0),
		perClear:    write16("per.clear", 0x0001A2, 0),
		autoLock: []step{
			sendRxOp(RxOpDVBCAutoLock),
		},
		haltReg:       0x0001A0,
		lockReg:       0x0001A4,
		lockWidth:     W32,
		locked:        func(v uint32) bool { return v == 21 },
		snrReg:        0x0001AE,
		snrWidth:      W16,
		snrLatch:      0x0005D8,
		runningReg:    0x0001A4,
		runningWidth:  W32,
		noSignalReg:   0x0001B8,
		noSignalWidth: W32,
		noSignal:      isNonZero,
	},
}

func (p Profile) caps() (*capabilities, error) {
	c, ok := profiles[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProfile, p)
	}
	return c, nil
}

// profileForMode maps the chip mode register to a profile
func profileForMode(mode uint32) Profile {
	for p, c := range profiles {
		if c.mode == mode {
			return p
		}
	}
	return ProfileUnknown
}

// rxChain is the receiver bring-up shared by Initialize and SetMode
func (c *capabilities) rxChain(symbolRate bool) []step {
	var steps []step
	steps = append(steps, c.initRx...)
	steps = append(steps, c.initADC...)
	steps = append(steps,
		write32("sdram.timing0", 0x000210, 0x00070A00),
		write32("sdram.timing1", 0x000214, 0x05060600),
		write32("sdram.timing2", 0x000218, 0x03010301),
		sendRxOp(RxOpSDRAM),
	)
	if symbolRate {
		steps = append(steps, write32("rx.dtmb-symbol-rate", RegSymbolRate, DTMBSymbolRate))
	}
	steps = append(steps, c.mpeg...)
	steps = append(steps,
		write8("mpeg.continuous-off", RegMpegContMode, 0),
		write32("mpeg.output", RegMpegOutput, 0x00000FFF),
	)
	steps = append(steps, c.repeaterSteps()...)
	steps = append(steps, c.agcPolarity, write32("agc.enable", RegAGCEnable, 1))
	steps = append(steps, c.errorStatSteps()...)
	steps = append(steps, write32("snr.tweak", RegSNRTweak, 0x0000000A))
	return steps
}

// repeaterSteps resets the tuner I2C repeater with the gate closed
func (c *capabilities) repeaterSteps() []step {
	return []step{
		write32("repeater.reset", RegRepeaterReset, 1),
		write32("repeater.gate-closed", RegRepeaterGate, gateClosed),
		modify("repeater.ctl", RegRepeaterCtl, W32, func(v uint32) uint32 { return v &^ 1 }),
		write32("repeater.divider", RegRepeaterDiv, c.repeaterDiv),
		write32("repeater.release", RegRepeaterReset, 0),
	}
}

func (c *capabilities) errorStatSteps() []step {
	return []step{
		write32("errstat.mode", RegErrStatMode, 1),
		write32("errstat.ctl", RegErrStatCtl, 1),
		write32("errstat.bits", RegErrStatBits, 0x0A037A00),
		write32("errstat.hi", RegErrStatHi, 0),
		write32("errstat.lo", RegErrStatLo, 0),
		write32("errstat.sw", RegErrStatSw, 0),
		do("errstat.reset", c.resetErrorStat),
	}
}

func (c *capabilities) resetErrorStat(d *Demod) error {
	mode, err := d.regs.Read32(RegErrStatMode)
	if err != nil {
		return err
	}
	steps := []step{}
	if mode == 1 {
		steps = append(steps,
			write32("errstat.trigger-low", RegErrStatTrigger, 0),
			write32("errstat.trigger-high", RegErrStatTrigger, 1),
			write32("errstat.trigger-done", RegErrStatTrigger, 0),
		)
	}
	steps = append(steps, c.perResetSteps()...)
	return d.run(steps)
}

// perResetSteps pulses the packet error counter reset
func (c *capabilities) perResetSteps() []step {
	return []step{
		modify("per.hold", RegPERCtl, W32, func(v uint32) uint32 { return v | 1 }),
		c.perClear,
		do("per.pulse", func(d *Demod) error {
			v, err := d.regs.Read32(RegPERCtl)
			if err != nil {
				return err
			}
			v |= 0x08
			return d.run([]step{
				write32("per.arm", RegPERCtl, v),
				write32("per.reset", RegPERCtl, v|1),
				write32("per.release", RegPERCtl, (v|1)&^1),
			})
		}),
	}
}

// haltSteps stops the receiver for this profile
func (c *capabilities) haltSteps() []step {
	return []step{
		sendRxOp(RxOpHalt).then(2 * time.Millisecond),
		modify("halt.stop", c.haltReg, W32, func(v uint32) uint32 { return v & 0xFE }),
	}
}
