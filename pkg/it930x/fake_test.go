package it930x

import (
	"errors"
	"fmt"
	"time"
)

// request is one decoded command seen by fakeBridge
type request struct {
	cmd     Command
	mbox    byte
	seq     byte
	payload []byte
}

// fakeBridge models the bridge firmware side of the framer protocol over a
// register file
type fakeBridge struct {
	regs     map[uint32]byte
	requests []request

	version FirmwareVersion
	warm    bool
	booted  bool

	status  byte
	corrupt bool
	fail    error

	i2cRead func(req request, n int) []byte
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		regs:    map[uint32]byte{},
		version: FirmwareVersion{1, 4, 0, 0},
	}
}

func (f *fakeBridge) Exchange(w, r []byte) error {
	if f.fail != nil {
		return f.fail
	}
	if int(w[0]) != len(w)-1 {
		return fmt.Errorf("bad length byte %d for %d byte request", w[0], len(w))
	}
	want := Checksum(w, len(w)-2)
	if got := uint16(w[len(w)-2])<<8 | uint16(w[len(w)-1]); got != want {
		return errors.New("bad request checksum")
	}

	req := request{
		cmd:     Command(w[2]),
		mbox:    w[1],
		seq:     w[3],
		payload: append([]byte(nil), w[4:len(w)-2]...),
	}
	f.requests = append(f.requests, req)

	if len(r) == 0 {
		return nil
	}

	data := make([]byte, len(r)-5)
	p := req.payload
	switch req.cmd {
	case CmdMemRead:
		reg := uint32(req.mbox)<<16 | uint32(p[4])<<8 | uint32(p[5])
		for i := range data {
			data[i] = f.regs[reg+uint32(i)]
		}
	case CmdMemWrite:
		reg := uint32(req.mbox)<<16 | uint32(p[4])<<8 | uint32(p[5])
		for i, v := range p[6:] {
			f.regs[reg+uint32(i)] = v
		}
	case CmdFwBoot:
		f.booted = true
	case CmdFwQueryInfo:
		if f.booted || f.warm {
			copy(data, f.version[:])
		}
	case CmdI2CRead, CmdGenericI2CRead:
		if f.i2cRead != nil {
			copy(data, f.i2cRead(req, len(data)))
		}
	}

	r[0] = byte(len(r) - 1)
	r[1] = w[3]
	r[2] = f.status
	copy(r[3:], data)
	csum := Checksum(r, len(r)-2)
	r[len(r)-2] = byte(csum >> 8)
	r[len(r)-1] = byte(csum)
	if f.corrupt {
		r[1] ^= 0x40
	}
	return nil
}

// writes returns the register writes in order as reg/value pairs
func (f *fakeBridge) writes() [][2]uint32 {
	var out [][2]uint32
	for _, req := range f.requests {
		if req.cmd != CmdMemWrite {
			continue
		}
		p := req.payload
		reg := uint32(req.mbox)<<16 | uint32(p[4])<<8 | uint32(p[5])
		for i, v := range p[6:] {
			out = append(out, [2]uint32{reg + uint32(i), uint32(v)})
		}
	}
	return out
}

func (f *fakeBridge) count(cmd Command) int {
	n := 0
	for _, req := range f.requests {
		if req.cmd == cmd {
			n++
		}
	}
	return n
}

func noSleep(opts ...Option) []Option {
	return append(opts, WithSleep(func(time.Duration) {}))
}
