// Package i2c describes the multi-message I2C transaction interface that the
// bridge chip proxies to the demodulator and tuner.
package i2c

import "fmt"

// Message flags
const (
	// FlagRead marks a message as a read from the target
	FlagRead uint16 = 0x0001
)

// Msg is a single segment of an I2C transaction
type Msg struct {
	Addr  uint8
	Flags uint16
	Buf   []byte
}

// IsRead reports whether the message reads from the target
func (m Msg) IsRead() bool {
	return m.Flags&FlagRead != 0
}

func (m Msg) String() string {
	dir := "wr"
	if m.IsRead() {
		dir = "rd"
	}
	return fmt.Sprintf("%s@0x%02X[%d]", dir, m.Addr, len(m.Buf))
}

// Bus executes I2C transactions. A transaction of more than one message is
// issued with repeated starts between messages.
type Bus interface {
	Transfer(msgs ...Msg) error
}

// Write sends buf to addr as a single write message
func Write(bus Bus, addr uint8, buf []byte) error {
	return bus.Transfer(Msg{Addr: addr, Buf: buf})
}

// Read fills buf from addr with a single read message
func Read(bus Bus, addr uint8, buf []byte) error {
	return bus.Transfer(Msg{Addr: addr, Flags: FlagRead, Buf: buf})
}

// WriteRead sends w then reads into r using a repeated start
func WriteRead(bus Bus, addr uint8, w, r []byte) error {
	return bus.Transfer(
		Msg{Addr: addr, Buf: w},
		Msg{Addr: addr, Flags: FlagRead, Buf: r},
	)
}
