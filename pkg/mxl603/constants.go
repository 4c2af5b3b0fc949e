package mxl603

// DefaultAddress is the tuner's 7-bit I2C address
const DefaultAddress = 0x60

// Frequency limits in Hz
const (
	MinFrequency = 1000000
	MaxFrequency = 1200000000
	// FrequencyStep is the tuning resolution in Hz
	FrequencyStep = 25000
)

// Register map
const (
	regPageChange     = 0x00
	regXtalCapCtrl    = 0x01
	regXtalEnableDiv  = 0x02
	regXtalCaliSet    = 0x03
	regIFFreqSel      = 0x04
	regIFPathGain     = 0x05
	regIFFCWLow       = 0x06
	regIFFCWHigh      = 0x07
	regAGCConfig      = 0x08
	regAGCSetPoint    = 0x09
	regTunerEnable    = 0x0B
	regChanTuneBW     = 0x0D
	regChanTuneLow    = 0x0E
	regChanTuneHigh   = 0x0F
	regStartTune      = 0x12
	regMainRegAmp     = 0x14
	regChipID         = 0x18
	regChipVersion    = 0x1A
	regRFPinLow       = 0x1D
	regRFPinHigh      = 0x1E
	regRFRefStatus    = 0x2B
	regAGCLockStatus  = 0x2C
	regVCOBand        = 0x31
	regDigAnaIFCfg0   = 0x5A
	regDigAnaIFCfg1   = 0x5B
	regDigAnaIFPwr    = 0x5C
	regAGCFlip        = 0x5E
	regDFESeqCDC      = 0x5F
	regDFESeqTune     = 0x60
	regVCOSelect      = 0x7C
	regDigAnaLoopThru = 0x96
	regDFEAGC         = 0xB6
	regDFEDACIFGain   = 0xDC
	regDFECSFSSSel    = 0xEA
	regDFERefLUTByp   = 0xEA
	regDFERefSXIntMod = 0xEB
	regAICReset       = 0xFF

	// readPointer selects the register returned by the next read
	readPointer = 0xFB
)

// highIFKHz is the IF above which the high power IF path is used
const highIFKHz = 35250

// XtalFreq selects the crystal frequency
type XtalFreq uint8

const (
	Xtal16MHz XtalFreq = iota
	Xtal24MHz
)

func (x XtalFreq) String() string {
	switch x {
	case Xtal16MHz:
		return "16MHz"
	case Xtal24MHz:
		return "24MHz"
	default:
		return "invalid"
	}
}

// SignalMode is the tuner application mode
type SignalMode uint8

const (
	ModeDVBC SignalMode = iota
	ModeISDBTATSC
	ModeDVBTDTMB
	ModeJ83B
)

func (m SignalMode) String() string {
	switch m {
	case ModeDVBC:
		return "DVB-C"
	case ModeISDBTATSC:
		return "ISDB-T/ATSC"
	case ModeDVBTDTMB:
		return "DVB-T/DTMB"
	case ModeJ83B:
		return "J.83B"
	default:
		return "invalid"
	}
}

func (m SignalMode) cable() bool {
	return m == ModeDVBC || m == ModeJ83B
}

// Bandwidth is the channel filter setting written to the tuner
type Bandwidth uint8

const (
	CableBW6MHz Bandwidth = 0x00
	CableBW7MHz Bandwidth = 0x01
	CableBW8MHz Bandwidth = 0x02
	TerrBW6MHz  Bandwidth = 0x20
	TerrBW7MHz  Bandwidth = 0x21
	TerrBW8MHz  Bandwidth = 0x22
)

// IFFreq indexes the tuner's preset IF output table
type IFFreq uint8

const (
	IF3650kHz IFFreq = iota
	IF4000kHz
	IF4100kHz
	IF4150kHz
	IF4500kHz
	IF4570kHz
	IF5000kHz
	IF5380kHz
	IF6000kHz
	IF6280kHz
	IF7200kHz
	IF8250kHz
	IF35250kHz
	IF36000kHz
	IF36150kHz
	IF36650kHz
	IF44000kHz
)

// AGCType selects the gain control loop
type AGCType uint8

const (
	AGCSelf AGCType = iota
	AGCExternal
)

// PowerMode is a tuner power state
type PowerMode uint8

const (
	PowerSleep PowerMode = iota
	PowerActive
	PowerStandby
)
