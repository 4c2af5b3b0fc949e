package it930x

import "fmt"

const regProtocolID = 0x02

func regHeader(reg uint32, n int) []byte {
	return []byte{byte(n), regProtocolID, 0, 0, byte(reg >> 8), byte(reg)}
}

// ReadRegs reads n consecutive bridge registers starting at reg. The top byte
// of reg selects the mailbox.
func (b *Bridge) ReadRegs(reg uint32, n int) ([]byte, error) {
	if n > MaxXferSize {
		return nil, fmt.Errorf("%w: read %d bytes at 0x%06X", ErrBufferTooSmall, n, reg)
	}
	data, err := b.framer.Execute(CmdMemRead, byte(reg>>16), regHeader(reg, n), n)
	if err != nil {
		return nil, fmt.Errorf("failed to read 0x%06X: %w", reg, err)
	}
	return data, nil
}

// WriteRegs writes data to consecutive bridge registers starting at reg
func (b *Bridge) WriteRegs(reg uint32, data []byte) error {
	if 6+len(data) > MaxXferSize {
		return fmt.Errorf("%w: write %d bytes at 0x%06X", ErrBufferTooSmall, len(data), reg)
	}
	w := append(regHeader(reg, len(data)), data...)
	if _, err := b.framer.Execute(CmdMemWrite, byte(reg>>16), w, 0); err != nil {
		return fmt.Errorf("failed to write 0x%06X: %w", reg, err)
	}
	return nil
}

// ReadReg reads a single bridge register
func (b *Bridge) ReadReg(reg uint32) (byte, error) {
	data, err := b.ReadRegs(reg, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// WriteReg writes a single bridge register
func (b *Bridge) WriteReg(reg uint32, val byte) error {
	return b.WriteRegs(reg, []byte{val})
}

// WriteRegMask updates the bits of reg selected by mask. A full mask skips
// the read.
func (b *Bridge) WriteRegMask(reg uint32, val, mask byte) error {
	if mask != 0xFF {
		cur, err := b.ReadReg(reg)
		if err != nil {
			return err
		}
		val = (val & mask) | (cur &^ mask)
	}
	return b.WriteReg(reg, val)
}
