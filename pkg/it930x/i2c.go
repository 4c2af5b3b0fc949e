package it930x

import (
	"fmt"

	"github.com/herlein/godtv/pkg/i2c"
)

// i2cProxy relays I2C transactions through the bridge firmware
type i2cProxy struct {
	framer   *Framer
	chipType uint16
}

// Bus returns an i2c.Bus that proxies traffic through the bridge. Chip type
// 0x9306 uses the generic I2C commands; other types use the register
// address sub-header.
func (b *Bridge) Bus(chipType uint16) i2c.Bus {
	return &i2cProxy{framer: b.framer, chipType: chipType}
}

// I2C returns the proxy bus for the chip type found by Identify
func (b *Bridge) I2C() i2c.Bus {
	return b.Bus(b.ChipType)
}

func (p *i2cProxy) generic() bool {
	return p.chipType == ChipTypeIT9303
}

func mailbox(addr uint8) byte {
	return (addr & 0x80) >> 3
}

// Transfer supports exactly three shapes: write then read with a repeated
// start, a single write, and a single read
func (p *i2cProxy) Transfer(msgs ...i2c.Msg) error {
	switch {
	case len(msgs) == 2 && !msgs[0].IsRead() && msgs[1].IsRead():
		return p.writeRead(msgs[0], msgs[1])
	case len(msgs) == 1 && !msgs[0].IsRead():
		return p.write(msgs[0])
	case len(msgs) == 1 && msgs[0].IsRead():
		return p.read(msgs[0])
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedShape, msgs)
	}
}

func (p *i2cProxy) writeRead(w, r i2c.Msg) error {
	if len(w.Buf) > MaxXferSize || len(r.Buf) > MaxXferSize {
		return fmt.Errorf("%w: %v then %v", ErrUnsupportedShape, w, r)
	}

	var buf []byte
	cmd := CmdI2CRead
	if p.generic() {
		cmd = CmdGenericI2CRead
		buf = append([]byte{byte(len(r.Buf)), 0x01, w.Addr << 1}, w.Buf...)
	} else {
		buf = []byte{byte(len(r.Buf)), w.Addr << 1, 0x00, 0x00, 0x00}
		switch n := len(w.Buf); {
		case n > 2:
			buf = append(buf, w.Buf...)
		case n == 2:
			// short writes ride in the register address fields
			buf[2] = 2
			buf[3] = w.Buf[0]
			buf[4] = w.Buf[1]
		case n == 1:
			buf[2] = 1
			buf[4] = w.Buf[0]
		}
	}

	data, err := p.framer.Execute(cmd, mailbox(w.Addr), buf, len(r.Buf))
	if err != nil {
		return fmt.Errorf("i2c %v then %v: %w", w, r, err)
	}
	copy(r.Buf, data)
	return nil
}

func (p *i2cProxy) write(w i2c.Msg) error {
	if len(w.Buf) > MaxXferSize {
		return fmt.Errorf("%w: %v", ErrUnsupportedShape, w)
	}

	var buf []byte
	cmd := CmdI2CWrite
	if p.generic() {
		cmd = CmdGenericI2CWrite
		buf = append([]byte{byte(len(w.Buf)), 0x01, w.Addr << 1}, w.Buf...)
	} else {
		buf = append([]byte{byte(len(w.Buf)), w.Addr << 1, 0x00, 0x00, 0x00}, w.Buf...)
	}

	if _, err := p.framer.Execute(cmd, mailbox(w.Addr), buf, 0); err != nil {
		return fmt.Errorf("i2c %v: %w", w, err)
	}
	return nil
}

func (p *i2cProxy) read(r i2c.Msg) error {
	if len(r.Buf) > MaxXferSize {
		return fmt.Errorf("%w: %v", ErrUnsupportedShape, r)
	}

	var buf []byte
	cmd := CmdI2CRead
	if p.generic() {
		cmd = CmdGenericI2CRead
		buf = []byte{byte(len(r.Buf)), 0x01, r.Addr << 1}
	} else {
		buf = []byte{byte(len(r.Buf)), r.Addr << 1, 0x00, 0x00, 0x00}
	}

	data, err := p.framer.Execute(cmd, mailbox(r.Addr), buf, len(r.Buf))
	if err != nil {
		return fmt.Errorf("i2c %v: %w", r, err)
	}
	copy(r.Buf, data)
	return nil
}
