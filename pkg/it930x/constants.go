package it930x

import "time"

// USB Device Identifiers
const (
	VendorID  = 0x048D
	ProductID = 0x9306 // IT9303 bridge

	// ChipTypeIT9303 selects the generic I2C proxy commands
	ChipTypeIT9303 = 0x9306
)

// USB Endpoint Configuration
const (
	EPCtrlOutAddr = 0x02 // command endpoint (host to device)
	EPCtrlInAddr  = 0x81 // response endpoint (device to host)
	EPStreamAddr  = 0x84 // transport stream bulk endpoint

	StreamPacketSize = 188
	StreamFrameCount = 816
	StreamBufferSize = StreamFrameCount * StreamPacketSize
)

// Timeouts
const (
	USBTimeout = 2000 * time.Millisecond
)

// Framing limits
const (
	// BufLen is the size of the shared scratch buffer including headers
	BufLen = 255

	reqHeaderLen  = 4
	respHeaderLen = 3
	checksumLen   = 2

	// MaxWriteLen is the largest payload Execute accepts
	MaxWriteLen = BufLen - reqHeaderLen - checksumLen
	// MaxReadLen is the largest response payload Execute accepts
	MaxReadLen = BufLen - respHeaderLen - checksumLen

	// MaxXferSize bounds register and I2C proxy transfers
	MaxXferSize = 64
)

// Firmware
const (
	DefaultFirmwareName = "dvb-usb-it9303-01.fw"

	// DefaultChunkSize is the largest legacy chunk pushed per CmdFwDownload
	DefaultChunkSize = 58

	legacyHeaderLen = 7
)

// Command is a bridge transport opcode
type Command byte

// Bridge Commands
const (
	CmdMemRead         Command = 0x00
	CmdMemWrite        Command = 0x01
	CmdI2CRead         Command = 0x02
	CmdI2CWrite        Command = 0x03
	CmdIRGet           Command = 0x18
	CmdFwDownload      Command = 0x21
	CmdFwQueryInfo     Command = 0x22
	CmdFwBoot          Command = 0x23
	CmdFwDownloadBegin Command = 0x24
	CmdFwDownloadEnd   Command = 0x25
	CmdFwScatterWrite  Command = 0x29
	CmdGenericI2CRead  Command = 0x2A
	CmdGenericI2CWrite Command = 0x2B
)

var commandNames = map[Command]string{
	CmdMemRead:         "MEM_RD",
	CmdMemWrite:        "MEM_WR",
	CmdI2CRead:         "I2C_RD",
	CmdI2CWrite:        "I2C_WR",
	CmdIRGet:           "IR_GET",
	CmdFwDownload:      "FW_DL",
	CmdFwQueryInfo:     "FW_QUERYINFO",
	CmdFwBoot:          "FW_BOOT",
	CmdFwDownloadBegin: "FW_DL_BEGIN",
	CmdFwDownloadEnd:   "FW_DL_END",
	CmdFwScatterWrite:  "FW_SCATTER_WR",
	CmdGenericI2CRead:  "GENERIC_I2C_RD",
	CmdGenericI2CWrite: "GENERIC_I2C_WR",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// Bridge registers
const (
	RegChipVersion    = 0x1222 // 3 bytes: version, type lo, type hi
	RegPrechipVersion = 0x384F

	RegPowerCtl     = 0xDA05
	RegPowerCtl2    = 0xDA06
	RegResetPulse   = 0xDA1D
	RegStreamFrame  = 0xDD88 // 16-bit frame size in words, little endian
	RegStreamPacket = 0xDD0C
)

// GPIO pins, GPIO1 through GPIO16
type GPIO int

const (
	GPIO1 GPIO = iota
	GPIO2
	GPIO3
	GPIO4
	GPIO5
	GPIO6
	GPIO7
	GPIO8
	GPIO9
	GPIO10
	GPIO11
	GPIO12
	GPIO13
	GPIO14
	GPIO15
	GPIO16

	numGPIO
)

// GPIO register table
type gpioRegs struct {
	mode   uint32
	enable uint32
	in     uint32
	out    uint32
}

var gpioTable = [numGPIO]gpioRegs{
	{0xd8b0, 0xd8b1, 0xd8ae, 0xd8af},
	{0xd8b8, 0xd8b9, 0xd8b6, 0xd8b7},
	{0xd8b4, 0xd8b5, 0xd8b2, 0xd8b3},
	{0xd8c0, 0xd8c1, 0xd8be, 0xd8bf},
	{0xd8bc, 0xd8bd, 0xd8ba, 0xd8bb},
	{0xd8c8, 0xd8c9, 0xd8c6, 0xd8c7},
	{0xd8c4, 0xd8c5, 0xd8c2, 0xd8c3},
	{0xd8d0, 0xd8d1, 0xd8ce, 0xd8cf},
	{0xd8cc, 0xd8cd, 0xd8ca, 0xd8cb},
	{0xd8d8, 0xd8d9, 0xd8d6, 0xd8d7},
	{0xd8d4, 0xd8d5, 0xd8d2, 0xd8d3},
	{0xd8e0, 0xd8e1, 0xd8de, 0xd8df},
	{0xd8dc, 0xd8dd, 0xd8da, 0xd8db},
	{0xd8e4, 0xd8e5, 0xd8e2, 0xd8e3},
	{0xd8e8, 0xd8e9, 0xd8e6, 0xd8e7},
	{0xd8ec, 0xd8ed, 0xd8ea, 0xd8eb},
}

// GPIO mode values
const (
	GPIOModeIn  = 0
	GPIOModeOut = 1
)

// DeliverySystem selects the tuner RF input path
type DeliverySystem int

const (
	DeliveryDTMB DeliverySystem = iota
	DeliveryDVBT
	DeliveryDVBC
)

func (d DeliverySystem) String() string {
	switch d {
	case DeliveryDTMB:
		return "DTMB"
	case DeliveryDVBT:
		return "DVB-T"
	case DeliveryDVBC:
		return "DVB-C"
	default:
		return "UNKNOWN"
	}
}
