package it930x

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/herlein/godtv/pkg/i2c"
)

func TestI2CProxyFraming(t *testing.T) {
	tests := []struct {
		name     string
		chipType uint16
		msgs     []i2c.Msg
		cmd      Command
		mbox     byte
		payload  []byte
	}{
		{
			name:     "generic write",
			chipType: ChipTypeIT9303,
			msgs:     []i2c.Msg{{Addr: 0x14, Buf: []byte{0x00, 0x02, 0x04, 0xAA}}},
			cmd:      CmdGenericI2CWrite,
			payload:  []byte{4, 0x01, 0x28, 0x00, 0x02, 0x04, 0xAA},
		},
		{
			name:     "generic read",
			chipType: ChipTypeIT9303,
			msgs:     []i2c.Msg{{Addr: 0x14, Flags: i2c.FlagRead, Buf: make([]byte, 4)}},
			cmd:      CmdGenericI2CRead,
			payload:  []byte{4, 0x01, 0x28},
		},
		{
			name:     "generic write then read",
			chipType: ChipTypeIT9303,
			msgs: []i2c.Msg{
				{Addr: 0x60, Buf: []byte{0xFB, 0x18}},
				{Addr: 0x60, Flags: i2c.FlagRead, Buf: make([]byte, 1)},
			},
			cmd:     CmdGenericI2CRead,
			payload: []byte{1, 0x01, 0xC0, 0xFB, 0x18},
		},
		{
			name:     "legacy write keeps register fields clear",
			chipType: 0x9135,
			msgs:     []i2c.Msg{{Addr: 0x14, Buf: []byte{0x11}}},
			cmd:      CmdI2CWrite,
			payload:  []byte{1, 0x28, 0x00, 0x00, 0x00, 0x11},
		},
		{
			name:     "legacy read",
			chipType: 0x9135,
			msgs:     []i2c.Msg{{Addr: 0x14, Flags: i2c.FlagRead, Buf: make([]byte, 2)}},
			cmd:      CmdI2CRead,
			payload:  []byte{2, 0x28, 0x00, 0x00, 0x00},
		},
		{
			name:     "legacy write then read folds two byte register",
			chipType: 0x9135,
			msgs: []i2c.Msg{
				{Addr: 0x14, Buf: []byte{0x12, 0x34}},
				{Addr: 0x14, Flags: i2c.FlagRead, Buf: make([]byte, 2)},
			},
			cmd:     CmdI2CRead,
			payload: []byte{2, 0x28, 2, 0x12, 0x34},
		},
		{
			name:     "legacy write then read folds one byte register",
			chipType: 0x9135,
			msgs: []i2c.Msg{
				{Addr: 0x14, Buf: []byte{0x56}},
				{Addr: 0x14, Flags: i2c.FlagRead, Buf: make([]byte, 1)},
			},
			cmd:     CmdI2CRead,
			payload: []byte{1, 0x28, 1, 0x00, 0x56},
		},
		{
			name:     "legacy write then read appends long writes",
			chipType: 0x9135,
			msgs: []i2c.Msg{
				{Addr: 0x14, Buf: []byte{0x10, 0x80, 0x04}},
				{Addr: 0x14, Flags: i2c.FlagRead, Buf: make([]byte, 4)},
			},
			cmd:     CmdI2CRead,
			payload: []byte{4, 0x28, 0x00, 0x00, 0x00, 0x10, 0x80, 0x04},
		},
		{
			name:     "high address bit selects mailbox",
			chipType: ChipTypeIT9303,
			msgs:     []i2c.Msg{{Addr: 0x94, Buf: []byte{0x01}}},
			cmd:      CmdGenericI2CWrite,
			mbox:     0x10,
			payload:  []byte{1, 0x01, 0x28, 0x01},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			fake := newFakeBridge()
			bridge := NewBridge(fake)

			g.Expect(bridge.Bus(tt.chipType).Transfer(tt.msgs...)).To(Succeed())
			g.Expect(fake.requests).To(HaveLen(1))
			req := fake.requests[0]
			g.Expect(req.cmd).To(Equal(tt.cmd))
			g.Expect(req.mbox).To(Equal(tt.mbox))
			g.Expect(req.payload).To(Equal(tt.payload))
		})
	}
}

func TestI2CProxyReturnsReadData(t *testing.T) {
	g := NewWithT(t)
	fake := newFakeBridge()
	fake.i2cRead = func(req request, n int) []byte {
		return []byte{0x63, 0x81, 0x4E, 0x24}[:n]
	}
	bus := NewBridge(fake).Bus(ChipTypeIT9303)

	buf := make([]byte, 4)
	g.Expect(i2c.WriteRead(bus, 0x14, []byte{0x04, 0x00, 0x00}, buf)).To(Succeed())
	g.Expect(buf).To(Equal([]byte{0x63, 0x81, 0x4E, 0x24}))
}

func TestI2CProxyRejectsShapes(t *testing.T) {
	tests := []struct {
		name string
		msgs []i2c.Msg
	}{
		{name: "empty"},
		{
			name: "read then write",
			msgs: []i2c.Msg{
				{Addr: 0x14, Flags: i2c.FlagRead, Buf: make([]byte, 1)},
				{Addr: 0x14, Buf: []byte{1}},
			},
		},
		{
			name: "two writes",
			msgs: []i2c.Msg{
				{Addr: 0x14, Buf: []byte{1}},
				{Addr: 0x14, Buf: []byte{2}},
			},
		},
		{
			name: "three messages",
			msgs: []i2c.Msg{
				{Addr: 0x14, Buf: []byte{1}},
				{Addr: 0x14, Flags: i2c.FlagRead, Buf: make([]byte, 1)},
				{Addr: 0x14, Flags: i2c.FlagRead, Buf: make([]byte, 1)},
			},
		},
		{
			name: "oversize write",
			msgs: []i2c.Msg{{Addr: 0x14, Buf: make([]byte, MaxXferSize+1)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			fake := newFakeBridge()
			bus := NewBridge(fake).Bus(ChipTypeIT9303)

			g.Expect(bus.Transfer(tt.msgs...)).To(MatchError(ErrUnsupportedShape))
			g.Expect(fake.requests).To(BeEmpty())
		})
	}
}
