package avl6381

import (
	"errors"
	"fmt"
	"time"

	"github.com/herlein/godtv/pkg/metrics"
)

// condition reports whether a polled predicate holds
type condition func(d *Demod) (bool, error)

type poll struct {
	until    condition
	attempts int
	interval time.Duration
}

// step is one entry of a bring-up sequence. A step either writes reg, polls
// a condition, or runs an action; settle is slept afterwards.
type step struct {
	name   string
	reg    uint32
	width  Width
	value  uint32
	settle time.Duration
	poll   *poll
	action func(d *Demod) error
}

func (s step) then(settle time.Duration) step {
	s.settle = settle
	return s
}

func write8(name string, reg uint32, v uint32) step {
	return step{name: name, reg: reg, width: W8, value: v}
}

func write16(name string, reg uint32, v uint32) step {
	return step{name: name, reg: reg, width: W16, value: v}
}

func write32(name string, reg uint32, v uint32) step {
	return step{name: name, reg: reg, width: W32, value: v}
}

func pause(name string, d time.Duration) step {
	return step{name: name, settle: d}
}

func pollUntil(name string, until condition, attempts int, interval time.Duration) step {
	return step{name: name, poll: &poll{until: until, attempts: attempts, interval: interval}}
}

func do(name string, fn func(d *Demod) error) step {
	return step{name: name, action: fn}
}

// modify rewrites a register through fn
func modify(name string, reg uint32, w Width, fn func(uint32) uint32) step {
	return do(name, func(d *Demod) error {
		v, err := d.regs.Read(reg, w)
		if err != nil {
			return err
		}
		return d.regs.Write(reg, fn(v), w)
	})
}

func sendRxOp(op RxOp) step {
	return do("rxop."+op.String(), func(d *Demod) error {
		return d.SendRxOp(op)
	})
}

func regMatches(reg uint32, w Width, pred func(uint32) bool) condition {
	return func(d *Demod) (bool, error) {
		v, err := d.regs.Read(reg, w)
		if err != nil {
			return false, err
		}
		return pred(v), nil
	}
}

func isZero(v uint32) bool    { return v == 0 }
func isNonZero(v uint32) bool { return v != 0 }

// rxOpIdle holds when the receiver has consumed the last operation request
var rxOpIdle = regMatches(RegRxOpStatus, W32, isZero)

// chipReady holds once the core is released and reports the boot magic
func chipReady(d *Demod) (bool, error) {
	hold, err := d.regs.Read32(RegCoreHold)
	if err != nil {
		return false, err
	}
	magic, err := d.regs.Read32(RegChipReady)
	if err != nil {
		return false, err
	}
	return hold != 1 && magic == chipReadyMagic, nil
}

// run interprets steps in order. Write and action failures accumulate; an
// exhausted poll aborts the sequence.
func (d *Demod) run(steps []step) error {
	var errs StepErrors
	for _, s := range steps {
		switch {
		case s.poll != nil:
			if err := d.pollFor(s.name, *s.poll); err != nil {
				return append(errs, &StepError{Step: s.name, Err: err})
			}
		case s.action != nil:
			if err := s.action(d); err != nil {
				errs = append(errs, asStepErrors(s.name, err)...)
				if errors.Is(err, ErrTimeout) {
					return errs
				}
			}
		case s.width != 0:
			d.log.V(2).Info("write", "step", s.name, "reg", fmt.Sprintf("0x%06X", s.reg), "value", s.value)
			if err := d.regs.Write(s.reg, s.value, s.width); err != nil {
				errs = append(errs, &StepError{Step: s.name, Err: err})
			}
		}
		if s.settle > 0 {
			d.sleep(s.settle)
		}
	}
	return errs.orNil()
}

// pollFor evaluates p until it holds or the attempt budget is spent
func (d *Demod) pollFor(name string, p poll) error {
	var last error
	for i := 0; i < p.attempts; i++ {
		ok, err := p.until(d)
		if err == nil && ok {
			d.log.V(1).Info("poll satisfied", "step", name, "attempt", i+1)
			return nil
		}
		last = err
		if i < p.attempts-1 {
			d.sleep(p.interval)
		}
	}

	metrics.DemodPollTimeoutsTotal.WithLabelValues(name).Inc()
	d.log.Info("poll budget exhausted", "step", name, "attempts", p.attempts)
	if last != nil {
		return fmt.Errorf("%w after %d attempts: %w", ErrTimeout, p.attempts, last)
	}
	return fmt.Errorf("%w after %d attempts", ErrTimeout, p.attempts)
}

// asStepErrors flattens err into step failures, naming bare errors after step
func asStepErrors(name string, err error) StepErrors {
	var many StepErrors
	if errors.As(err, &many) {
		return many
	}
	var one *StepError
	if errors.As(err, &one) {
		return StepErrors{one}
	}
	return StepErrors{{Step: name, Err: err}}
}
