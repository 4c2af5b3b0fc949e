package avl6381

import (
	"fmt"

	"github.com/herlein/godtv/pkg/i2c"
)

// Width is a register width in bytes
type Width int

const (
	W8  Width = 1
	W16 Width = 2
	W32 Width = 4
)

// Regs is typed register access to the demodulator over I2C. Addresses are
// 24 bits and values travel big-endian.
type Regs struct {
	bus  i2c.Bus
	addr uint8
}

// NewRegs binds register access to the chip at addr on bus
func NewRegs(bus i2c.Bus, addr uint8) *Regs {
	return &Regs{bus: bus, addr: addr}
}

func addrBytes(reg uint32) []byte {
	return []byte{byte(reg >> 16), byte(reg >> 8), byte(reg)}
}

// Read reads a register of width w
func (r *Regs) Read(reg uint32, w Width) (uint32, error) {
	if err := i2c.Write(r.bus, r.addr, addrBytes(reg)); err != nil {
		return 0, fmt.Errorf("failed to address 0x%06X: %w", reg, err)
	}
	buf := make([]byte, w)
	if err := i2c.Read(r.bus, r.addr, buf); err != nil {
		return 0, fmt.Errorf("failed to read 0x%06X: %w", reg, err)
	}
	var v uint32
	for _, b := range buf {
		v = v<<8 | uint32(b)
	}
	return v, nil
}

// Write writes the low w bytes of v to a register
func (r *Regs) Write(reg uint32, v uint32, w Width) error {
	buf := addrBytes(reg)
	for i := int(w) - 1; i >= 0; i-- {
		buf = append(buf, byte(v>>(8*i)))
	}
	if err := i2c.Write(r.bus, r.addr, buf); err != nil {
		return fmt.Errorf("failed to write 0x%06X: %w", reg, err)
	}
	return nil
}

func (r *Regs) Read8(reg uint32) (uint8, error) {
	v, err := r.Read(reg, W8)
	return uint8(v), err
}

func (r *Regs) Read16(reg uint32) (uint16, error) {
	v, err := r.Read(reg, W16)
	return uint16(v), err
}

func (r *Regs) Read32(reg uint32) (uint32, error) {
	return r.Read(reg, W32)
}

func (r *Regs) Write8(reg uint32, v uint8) error {
	return r.Write(reg, uint32(v), W8)
}

func (r *Regs) Write16(reg uint32, v uint16) error {
	return r.Write(reg, uint32(v), W16)
}

func (r *Regs) Write32(reg uint32, v uint32) error {
	return r.Write(reg, v, W32)
}

// WriteBurst writes consecutive 32-bit words starting at reg, splitting the
// run into transfers that fit the chip's write buffer
func (r *Regs) WriteBurst(reg uint32, words []uint32) error {
	for len(words) > 0 {
		n := min(len(words), burstWords)
		buf := addrBytes(reg)
		for _, w := range words[:n] {
			buf = append(buf, byte(w>>24), byte(w>>16), byte(w>>8), byte(w))
		}
		if err := i2c.Write(r.bus, r.addr, buf); err != nil {
			return fmt.Errorf("failed to burst write 0x%06X: %w", reg, err)
		}
		words = words[n:]
		reg += uint32(n) * 4
	}
	return nil
}

// writeRaw sends a pre-addressed buffer
func (r *Regs) writeRaw(buf []byte) error {
	return i2c.Write(r.bus, r.addr, buf)
}
