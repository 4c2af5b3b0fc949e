package avl6381

import (
	"fmt"
	"time"
)

// DefaultAddress is the demodulator's 7-bit I2C address behind the bridge
const DefaultAddress = 0x14

// Identity
const (
	FamilyID6381 = 0x63814E24

	RegFamilyID = 0x040000
	RegChipID   = 0x108004
)

// Transfer limits
const (
	maxWriteSize = 32
	// burstWords is the number of 32-bit words per WriteBurst transfer
	burstWords = (maxWriteSize - 3) / 4
	// patchBurst is the payload size of one micro-patch write
	patchBurst = 47
)

// Core control registers
const (
	RegMode         = 0x000200
	RegRxOpStatus   = 0x000204
	RegChipReady    = 0x0000A0
	RegCoreHold     = 0x110840
	RegSoftReset    = 0x110084
	RegCoreReset    = 0x38FFFC
	RegSymbolRate   = 0x000300
	RegMpegContMode = 0x00038B
	RegMpegOutput   = 0x108030
	RegAGCEnable    = 0x108034
	RegSNRTweak     = 0x0006F4

	// chipReadyMagic is reported in RegChipReady once the core booted
	chipReadyMagic = 0x5AA57FF7
)

// Tuner I2C repeater registers
const (
	RegRepeaterReset = 0x118000
	RegRepeaterCtl   = 0x118004
	RegRepeaterDiv   = 0x118018
	RegRepeaterGate  = 0x11801C

	gateOpen   = 0x07
	gateClosed = 0x06

	// gateRepeats is how many times the gate value is written
	gateRepeats = 5
)

// Error statistics registers
const (
	RegErrStatMode    = 0x149160
	RegErrStatTrigger = 0x149128
	RegErrStatCtl     = 0x14912C
	RegErrStatBits    = 0x149130
	RegErrStatHi      = 0x149134
	RegErrStatLo      = 0x149138
	RegErrStatSw      = 0x14913C
	RegPERCtl         = 0x149104
	RegPreBERErrors   = 0x149110
	RegPreBERBits     = 0x149114
)

// PLL registers
const (
	RegPLLClkRefR   = 0x1000C0
	RegPLLClkFeedR  = 0x1000C4
	RegPLLClkBwad   = 0x1000D4
	RegPLLClkDiv    = 0x1000C8
	RegPLLMpegRefR  = 0x100080
	RegPLLMpegFeedR = 0x100084
	RegPLLMpegBwad  = 0x100094
	RegPLLMpegDiv   = 0x100088
	RegPLLSdramDiv  = 0x10008C
	RegPLLAdcDiv    = 0x100090
	RegPLLReset     = 0x100000
	RegPLLFreq0     = 0x100018
	RegPLLFreq1     = 0x10001C
	RegPLLApply     = 0x100010
	RegPLLLatch     = 0x100008
)

// RxOp is a demodulator receiver operation request
type RxOp uint32

const (
	RxOpInit         RxOp = 1
	RxOpDTMBAutoLock RxOp = 2
	RxOpHalt         RxOp = 3
	RxOpSleep        RxOp = 6
	RxOpSDRAM        RxOp = 8
	RxOpDTMBADC      RxOp = 9
	RxOpSwitchMode   RxOp = 10
	RxOpDVBCAutoLock RxOp = 12
)

func (op RxOp) String() string {
	switch op {
	case RxOpInit:
		return "init"
	case RxOpDTMBAutoLock, RxOpDVBCAutoLock:
		return "autolock"
	case RxOpHalt:
		return "halt"
	case RxOpSleep:
		return "sleep"
	case RxOpSDRAM:
		return "sdram"
	case RxOpDTMBADC:
		return "adc"
	case RxOpSwitchMode:
		return "switch-mode"
	default:
		return fmt.Sprintf("op%d", uint32(op))
	}
}

// Poll budgets
const (
	rxOpAttempts      = 42
	rxOpInterval      = 10 * time.Millisecond
	chipReadyAttempts = 20
	pollInterval      = 20 * time.Millisecond
	runningAttempts   = 10
	runningInterval   = 10 * time.Millisecond

	switchIdleAttempts   = 22
	switchOpAttempts     = 202
	switchReadyAttempts  = 22
	switchSettleAttempts = 200
	sleepIdleAttempts    = 10
)

// DTMBSymbolRate is the fixed DTMB symbol rate in symbols per second
const DTMBSymbolRate = 7560000
