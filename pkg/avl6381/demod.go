package avl6381

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/herlein/godtv/pkg/i2c"
	"github.com/herlein/godtv/pkg/metrics"
)

// Demod drives an AVL6381 demodulator. A Demod is not safe for concurrent
// use; callers serialize access.
type Demod struct {
	regs  *Regs
	log   logr.Logger
	sleep func(time.Duration)
	patch []byte

	state       State
	profile     Profile
	initialized bool
	familyID    uint32
	chipID      uint32
	lastSNR     uint32
}

// New returns a demodulator bound to bus
func New(bus i2c.Bus, opts ...Option) *Demod {
	o := options{
		log:   logr.Discard(),
		sleep: time.Sleep,
		addr:  DefaultAddress,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Demod{
		regs:    NewRegs(bus, o.addr),
		log:     o.log.WithName("avl6381"),
		sleep:   o.sleep,
		patch:   o.patch,
		profile: ProfileUnknown,
	}
}

// Regs exposes raw register access
func (d *Demod) Regs() *Regs { return d.regs }

// State returns the session state
func (d *Demod) State() State { return d.state }

// Profile returns the profile the demodulator was last configured for
func (d *Demod) Profile() Profile { return d.profile }

// ChipID returns the chip id read by Identify
func (d *Demod) ChipID() uint32 { return d.chipID }

func (d *Demod) setState(s State) {
	if d.state != s {
		d.log.V(1).Info("state change", "from", d.state, "to", s)
	}
	d.state = s
}

// fail records err as unrecoverable unless it is a poll timeout
func (d *Demod) fail(err error, recoverable State) error {
	if errors.Is(err, ErrTimeout) {
		d.setState(recoverable)
	} else {
		d.setState(StateFailed)
	}
	return err
}

// Identify checks the family id and reads the chip id
func (d *Demod) Identify() error {
	fam, err := d.regs.Read32(RegFamilyID)
	if err != nil {
		return &StepError{Step: "identify.family", Err: err}
	}
	d.familyID = fam
	if fam != FamilyID6381 {
		return &IdentityError{Family: fam}
	}
	chip, err := d.regs.Read32(RegChipID)
	if err != nil {
		return &StepError{Step: "identify.chip", Err: err}
	}
	d.chipID = chip
	d.log.Info("identified demodulator", "family", fmt.Sprintf("0x%08X", fam), "chip", fmt.Sprintf("0x%08X", chip))
	return nil
}

// Configure holds the core, programs the clocks for p, resets the digital
// core and loads the micro-patch
func (d *Demod) Configure(p Profile) error {
	c, err := p.caps()
	if err != nil {
		return err
	}
	steps := []step{write32("core.hold", RegCoreHold, 1)}
	steps = append(steps, pllSteps(pllTable[c.pllRow])...)
	steps = append(steps,
		write32("core.reset", RegCoreReset, 0).then(10*time.Millisecond),
		write32("core.run", RegCoreReset, 1),
	)
	if err := d.run(steps); err != nil {
		return err
	}
	if len(d.patch) == 0 {
		d.log.Info("no micro-patch supplied, arming boot image only")
	}
	return d.LoadPatch(d.patch)
}

// Initialize identifies and configures the chip in BootProfile, brings up
// the receiver and then switches to p. It is a mode switch when the chip is
// already initialized.
func (d *Demod) Initialize(p Profile) error {
	if _, err := p.caps(); err != nil {
		return err
	}
	if d.initialized {
		return d.SetMode(p)
	}

	d.setState(StateIdentifying)
	if err := d.Identify(); err != nil {
		return d.fail(err, StateFailed)
	}

	d.setState(StateConfiguring)
	boot, _ := BootProfile.caps()
	if err := d.Configure(BootProfile); err != nil {
		return d.fail(err, StateFailed)
	}
	steps := []step{
		pause("boot.settle", pollInterval),
		pollUntil("boot.ready", chipReady, chipReadyAttempts, pollInterval),
	}
	steps = append(steps, boot.rxChain(true)...)
	if err := d.run(steps); err != nil {
		return d.fail(err, StateFailed)
	}
	d.initialized = true
	d.profile = BootProfile
	d.log.Info("demodulator initialized", "profile", BootProfile)

	if p != BootProfile {
		return d.SetMode(p)
	}
	d.setState(StateReady)
	return nil
}

// Mode reads the profile the chip is running
func (d *Demod) Mode() (Profile, error) {
	v, err := d.regs.Read32(RegMode)
	if err != nil {
		return ProfileUnknown, err
	}
	return profileForMode(v), nil
}

// SetMode switches the chip to p. It does nothing when the chip already
// reports p. A failed switch leaves the profile unknown.
func (d *Demod) SetMode(p Profile) error {
	c, err := p.caps()
	if err != nil {
		return err
	}
	if !d.initialized {
		return ErrNotInitialized
	}
	cur, err := d.Mode()
	if err != nil {
		return d.fail(&StepError{Step: "switch.mode-read", Err: err}, StateFailed)
	}
	if cur == p {
		d.profile = p
		return nil
	}

	halt := c
	if cc, err := cur.caps(); err == nil {
		halt = cc
	}

	d.log.Info("switching mode", "from", cur, "to", p)
	d.profile = ProfileUnknown
	d.setState(StateConfiguring)

	steps := halt.haltSteps()
	steps = append(steps,
		pollUntil("switch.idle", rxOpIdle, switchIdleAttempts, pollInterval),
		write32("switch.reset-low", RegSoftReset, 0).then(10*time.Millisecond),
		write32("switch.reset-high", RegSoftReset, 1),
		write32("switch.ready-clear", RegChipReady, 0),
		write32("switch.mode", RegMode, c.mode),
		sendRxOp(RxOpSwitchMode),
		pollUntil("switch.op", rxOpIdle, switchOpAttempts, pollInterval),
		pollUntil("switch.ready", chipReady, switchReadyAttempts, pollInterval),
		write32("switch.core-hold", RegCoreHold, 1),
	)
	steps = append(steps, pllSteps(pllTable[c.pllRow])...)
	steps = append(steps,
		pause("switch.pll-settle", pollInterval),
		write32("switch.core-release", RegCoreHold, 0).then(pollInterval),
		pollUntil("switch.settle", chipReady, switchSettleAttempts, pollInterval),
	)
	steps = append(steps, c.rxChain(c.symbolRate)...)

	if err := d.run(steps); err != nil {
		return d.fail(err, StateFailed)
	}
	d.profile = p
	d.setState(StateReady)
	return nil
}

// SetSymbolRate programs the DTMB symbol rate in symbols per second
func (d *Demod) SetSymbolRate(rate uint32) error {
	return d.regs.Write32(RegSymbolRate, rate)
}

// SendRxOp waits for the receiver to go idle and issues op
func (d *Demod) SendRxOp(op RxOp) error {
	if err := d.pollFor("rxop."+op.String(), poll{until: rxOpIdle, attempts: rxOpAttempts, interval: rxOpInterval}); err != nil {
		return err
	}
	return d.regs.Write32(RegRxOpStatus, uint32(op)<<24)
}

// Halt stops the receiver running p
func (d *Demod) Halt(p Profile) error {
	c, err := p.caps()
	if err != nil {
		return err
	}
	if err := d.run(c.haltSteps()); err != nil {
		return d.fail(err, StateHalted)
	}
	d.setState(StateHalted)
	return nil
}

// Lock halts the receiver, waits for it to stop, starts channel
// acquisition for p and waits for the receiver to run again. p must be the
// profile set by Initialize or SetMode.
func (d *Demod) Lock(p Profile) (err error) {
	c, err := p.caps()
	if err != nil {
		return err
	}
	if !d.initialized {
		return ErrNotInitialized
	}
	if p != d.profile {
		return fmt.Errorf("%w: lock %s while running %s", ErrProfileMismatch, p, d.profile)
	}
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
			if errors.Is(err, ErrTimeout) {
				result = "timeout"
			}
		}
		metrics.LockAttemptsTotal.WithLabelValues(p.String(), result).Inc()
	}()

	d.setState(StateLocking)
	if err := d.Halt(p); err != nil {
		return err
	}

	idle := regMatches(c.runningReg, c.runningWidth, isZero)
	if err := d.run([]step{pollUntil("lock.stopped", idle, runningAttempts, runningInterval)}); err != nil {
		return d.fail(err, StateHalted)
	}

	d.setState(StateLocking)
	steps := append([]step{}, c.autoLock...)
	running := regMatches(c.runningReg, c.runningWidth, isNonZero)
	steps = append(steps, pollUntil("lock.running", running, runningAttempts, runningInterval))
	if err := d.run(steps); err != nil {
		return d.fail(err, StateHalted)
	}
	d.setState(StateLocked)
	return nil
}

// LockStatus reports whether the receiver is locked for the current profile
func (d *Demod) LockStatus() (bool, error) {
	c, err := d.profile.caps()
	if err != nil {
		return false, err
	}
	v, err := d.regs.Read(c.lockReg, c.lockWidth)
	if err != nil {
		return false, err
	}
	return c.locked(v), nil
}

// RunningLevel reports 2 while the receiver runs and 0 otherwise
func (d *Demod) RunningLevel() (uint32, error) {
	c, err := d.profile.caps()
	if err != nil {
		return 0, err
	}
	v, err := d.regs.Read(c.runningReg, c.runningWidth)
	if err != nil {
		return 0, err
	}
	if v != 0 {
		return 2, nil
	}
	return 0, nil
}

// SNR returns the signal to noise ratio in 0.01 dB. Profiles with a latched
// SNR return the previous sample while a new one is pending.
func (d *Demod) SNR() (uint32, error) {
	c, err := d.profile.caps()
	if err != nil {
		return 0, err
	}
	if c.snrLatch == 0 {
		v, err := d.regs.Read(c.snrReg, c.snrWidth)
		if err != nil {
			return 0, err
		}
		d.lastSNR = v
		return v, nil
	}

	pending, err := d.regs.Read32(c.snrLatch)
	if err != nil {
		return 0, err
	}
	if pending != 0 {
		return d.lastSNR, nil
	}
	v, err := d.regs.Read(c.snrReg, c.snrWidth)
	if err != nil {
		return 0, err
	}
	d.lastSNR = v
	if err := d.regs.Write32(c.snrLatch, 1); err != nil {
		return v, err
	}
	d.sleep(50 * time.Millisecond)
	return v, nil
}

// NoSignal reports whether the receiver detects no signal
func (d *Demod) NoSignal() (bool, error) {
	c, err := d.profile.caps()
	if err != nil {
		return false, err
	}
	v, err := d.regs.Read(c.noSignalReg, c.noSignalWidth)
	if err != nil {
		return false, err
	}
	return c.noSignal(v), nil
}

// ErrorCounts returns the pre-decoder bit error and bit counts
func (d *Demod) ErrorCounts() (errs, bits uint32, err error) {
	if errs, err = d.regs.Read32(RegPreBERErrors); err != nil {
		return 0, 0, err
	}
	if bits, err = d.regs.Read32(RegPreBERBits); err != nil {
		return 0, 0, err
	}
	return errs, bits, nil
}

// ResetErrorCounts restarts error accounting for the current profile
func (d *Demod) ResetErrorCounts() error {
	c, err := d.profile.caps()
	if err != nil {
		return err
	}
	return d.run([]step{do("errstat.reset", c.resetErrorStat)})
}

// GateTuner opens or closes the I2C repeater to the tuner
func (d *Demod) GateTuner(open bool) error {
	v := uint32(gateClosed)
	if open {
		v = gateOpen
	}
	for i := 0; i < gateRepeats; i++ {
		if err := d.regs.Write32(RegRepeaterGate, v); err != nil {
			return fmt.Errorf("failed to set tuner gate: %w", err)
		}
	}
	return nil
}

// Sleep moves the chip to its low power clocks and parks the receiver. The
// next Initialize runs the full bring-up.
func (d *Demod) Sleep() error {
	c, err := d.profile.caps()
	if err != nil {
		c, _ = BootProfile.caps()
	}
	steps := []step{write32("sleep.core-hold", RegCoreHold, 1)}
	steps = append(steps, pllSteps(sleepPLLTable[0])...)
	steps = append(steps,
		write32("sleep.core-release", RegCoreHold, 0).then(pollInterval),
		pollUntil("sleep.ready", chipReady, switchSettleAttempts, pollInterval),
	)
	steps = append(steps, c.repeaterSteps()...)
	steps = append(steps,
		sendRxOp(RxOpSleep),
		pollUntil("sleep.idle", rxOpIdle, sleepIdleAttempts, rxOpInterval),
		write32("sleep.park", RegSoftReset, 1),
	)
	if err := d.run(steps); err != nil {
		return d.fail(err, StateFailed)
	}
	d.initialized = false
	d.profile = ProfileUnknown
	d.setState(StateUninitialized)
	return nil
}
