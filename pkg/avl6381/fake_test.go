package avl6381

import (
	"errors"
	"time"

	"github.com/herlein/godtv/pkg/i2c"
)

// write is one register write seen by fakeChip
type write struct {
	reg  uint32
	data []byte
}

// fakeChip models the demodulator's register file and the firmware
// reactions the driver polls for
type fakeChip struct {
	mem    map[uint32]byte
	writes []write
	ops    []RxOp
	cursor uint32

	// neverReady keeps the chip-ready magic clear
	neverReady bool
	// stuckRunning keeps the running level up after a halt
	stuckRunning bool
	// noLock leaves the running level down after channel acquisition
	noLock bool
	// busyReads is how many RxOp status reads report busy
	busyReads int
	// failReg fails any write to that register
	failReg uint32
}

func newFakeChip() *fakeChip {
	f := &fakeChip{mem: map[uint32]byte{}}
	f.set(RegFamilyID, FamilyID6381, W32)
	f.set(RegChipID, 0x00000001, W32)
	f.set(RegMode, uint32(BootProfile), W32)
	return f
}

func (f *fakeChip) set(reg, v uint32, w Width) {
	for i := 0; i < int(w); i++ {
		f.mem[reg+uint32(i)] = byte(v >> (8 * (int(w) - 1 - i)))
	}
}

func (f *fakeChip) get(reg uint32, w Width) uint32 {
	var v uint32
	for i := 0; i < int(w); i++ {
		v = v<<8 | uint32(f.mem[reg+uint32(i)])
	}
	return v
}

func (f *fakeChip) Transfer(msgs ...i2c.Msg) error {
	for _, m := range msgs {
		if m.Addr != DefaultAddress {
			return errors.New("nack")
		}
		if m.IsRead() {
			f.read(m.Buf)
			continue
		}
		if len(m.Buf) < 3 {
			return errors.New("short write")
		}
		reg := uint32(m.Buf[0])<<16 | uint32(m.Buf[1])<<8 | uint32(m.Buf[2])
		f.cursor = reg
		if len(m.Buf) == 3 {
			continue
		}
		if f.failReg != 0 && reg == f.failReg {
			return errors.New("write failed")
		}
		data := append([]byte(nil), m.Buf[3:]...)
		f.writes = append(f.writes, write{reg: reg, data: data})
		for i, b := range data {
			f.mem[reg+uint32(i)] = b
		}
		f.react(reg)
	}
	return nil
}

func (f *fakeChip) read(buf []byte) {
	if f.cursor == RegRxOpStatus && f.busyReads > 0 {
		f.busyReads--
		f.set(RegRxOpStatus, 1<<24, W32)
	} else if f.cursor == RegRxOpStatus {
		f.set(RegRxOpStatus, 0, W32)
	}
	for i := range buf {
		buf[i] = f.mem[f.cursor+uint32(i)]
	}
}

// react models firmware side effects of a write
func (f *fakeChip) react(reg uint32) {
	switch reg {
	case RegRxOpStatus:
		op := RxOp(f.get(RegRxOpStatus, W32) >> 24)
		f.ops = append(f.ops, op)
		switch op {
		case RxOpSwitchMode:
			f.ready()
		case RxOpDTMBAutoLock:
			if !f.noLock {
				f.set(0x000124, 1, W8)
				f.set(0x0000A6, 1, W8)
			}
		case RxOpDVBCAutoLock:
			if !f.noLock {
				f.set(0x0001A4, 21, W32)
			}
		}
	case RegCoreHold:
		if f.get(RegCoreHold, W32) == 0 {
			f.ready()
		}
	case 0x0000A4, 0x0001A0:
		if !f.stuckRunning {
			f.set(0x000124, 0, W8)
			f.set(0x0001A4, 0, W32)
			f.set(0x0000A6, 0, W8)
		}
	}
}

func (f *fakeChip) ready() {
	if !f.neverReady {
		f.set(RegChipReady, chipReadyMagic, W32)
	}
}

// wrote reports whether reg was written with the big-endian value v
func (f *fakeChip) wrote(reg uint32, v uint32, w Width) bool {
	for _, wr := range f.writes {
		if wr.reg != reg || len(wr.data) != int(w) {
			continue
		}
		var got uint32
		for _, b := range wr.data {
			got = got<<8 | uint32(b)
		}
		if got == v {
			return true
		}
	}
	return false
}

// sleeper records requested sleeps without waiting
type sleeper struct {
	total time.Duration
	calls int
}

func (s *sleeper) sleep(d time.Duration) {
	s.total += d
	s.calls++
}

func newTestDemod(f *fakeChip, opts ...Option) (*Demod, *sleeper) {
	s := &sleeper{}
	opts = append([]Option{WithSleep(s.sleep)}, opts...)
	return New(f, opts...), s
}
