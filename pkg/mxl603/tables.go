package mxl603

// regCtrl is a masked register update. A full mask writes data directly;
// a partial mask reads, merges and writes back.
type regCtrl struct {
	addr, mask, data byte
}

var overwriteDefaults = []regCtrl{
	{0x14, 0xFF, 0x13},
	{0x6D, 0xFF, 0x8A},
	{0x6D, 0xFF, 0x0A},
	{0xDF, 0xFF, 0x19},
	{0x45, 0xFF, 0x1B},
	{0xA9, 0xFF, 0x59},
	{0xAA, 0xFF, 0x6A},
	{0xBE, 0xFF, 0x4C},
	{0xCF, 0xFF, 0x25},
	{0xD0, 0xFF, 0x34},
	{0x77, 0xFF, 0xE7},
	{0x78, 0xFF, 0xE3},
	{0x6F, 0xFF, 0x51},
	{0x7B, 0xFF, 0x84},
	{0x7C, 0xFF, 0x9F},
	{0x56, 0xFF, 0x41},
	{0xCD, 0xFF, 0x64},
	{0xC3, 0xFF, 0x2C},
	{0x9D, 0xFF, 0x61},
	{0xF7, 0xFF, 0x52},
	{0x58, 0xFF, 0x81},
	{0x00, 0xFF, 0x01},
	{0x62, 0xFF, 0x02},
	{0x00, 0xFF, 0x00},
}

var isdbtAtscMode = []regCtrl{
	{0x0C, 0xFF, 0x00},
	{0x13, 0xFF, 0x04},
	{0x53, 0xFF, 0xFE},
	{0x57, 0xFF, 0x91},
	{0x62, 0xFF, 0xC2},
	{0x6E, 0xFF, 0x01},
	{0x6F, 0xFF, 0x51},
	{0x87, 0xFF, 0x77},
	{0x88, 0xFF, 0x55},
	{0x93, 0xFF, 0x22},
	{0x97, 0xFF, 0x02},
	{0xBA, 0xFF, 0x30},
	{0x98, 0xFF, 0xAF},
	{0x9B, 0xFF, 0x20},
	{0x9C, 0xFF, 0x1E},
	{0xA0, 0xFF, 0x18},
	{0xA5, 0xFF, 0x09},
	{0xC2, 0xFF, 0xA9},
	{0xC5, 0xFF, 0x7C},
	{0xCD, 0xFF, 0xEB},
	{0xCE, 0xFF, 0x7F},
	{0xD5, 0xFF, 0x03},
	{0xD9, 0xFF, 0x04},
}

var dvbcMode = []regCtrl{
	{0x0C, 0xFF, 0x00},
	{0x13, 0xFF, 0x04},
	{0x53, 0xFF, 0x7E},
	{0x57, 0xFF, 0x91},
	{0x5C, 0xFF, 0xB1},
	{0x62, 0xFF, 0xF2},
	{0x6E, 0xFF, 0x03},
	{0x6F, 0xFF, 0xD1},
	{0x87, 0xFF, 0x77},
	{0x88, 0xFF, 0x55},
	{0x93, 0xFF, 0x33},
	{0x97, 0xFF, 0x03},
	{0xBA, 0xFF, 0x40},
	{0x98, 0xFF, 0xAF},
	{0x9B, 0xFF, 0x20},
	{0x9C, 0xFF, 0x1E},
	{0xA0, 0xFF, 0x18},
	{0xA5, 0xFF, 0x09},
	{0xC2, 0xFF, 0xA9},
	{0xC5, 0xFF, 0x7C},
	{0xCD, 0xFF, 0x64},
	{0xCE, 0xFF, 0x7C},
	{0xD5, 0xFF, 0x05},
	{0xD9, 0xFF, 0x00},
	{0xEA, 0xFF, 0x00},
	{0xDC, 0xFF, 0x1C},
}

var dvbtMode = []regCtrl{
	{0x0C, 0xFF, 0x00},
	{0x13, 0xFF, 0x04},
	{0x53, 0xFF, 0xFE},
	{0x57, 0xFF, 0x91},
	{0x62, 0xFF, 0xC2},
	{0x6E, 0xFF, 0x01},
	{0x6F, 0xFF, 0x51},
	{0x87, 0xFF, 0x77},
	{0x88, 0xFF, 0x55},
	{0x93, 0xFF, 0x22},
	{0x97, 0xFF, 0x02},
	{0xBA, 0xFF, 0x30},
	{0x98, 0xFF, 0xAF},
	{0x9B, 0xFF, 0x20},
	{0x9C, 0xFF, 0x1E},
	{0xA0, 0xFF, 0x18},
	{0xA5, 0xFF, 0x09},
	{0xC2, 0xFF, 0xA9},
	{0xC5, 0xFF, 0x7C},
	{0xCD, 0xFF, 0x64},
	{0xCE, 0xFF, 0x7C},
	{0xD5, 0xFF, 0x03},
	{0xD9, 0xFF, 0x04},
}

// modeIF holds the IF path settings for an application mode. gains maps IF
// gain levels to DAC gain codes; a nil map leaves the DAC gain alone.
type modeIF struct {
	table     []regCtrl
	lowPower  [3]byte
	highPower [3]byte
	pwr       bool
	gains     map[uint8]byte
}

var modeIFs = map[SignalMode]modeIF{
	ModeDVBC: {
		table:     dvbcMode,
		lowPower:  [3]byte{0xFE, 0x10},
		highPower: [3]byte{0xD9, 0x16},
	},
	ModeJ83B: {
		table:     dvbcMode,
		lowPower:  [3]byte{0xFE, 0x10},
		highPower: [3]byte{0xD9, 0x16},
	},
	ModeISDBTATSC: {
		table:     isdbtAtscMode,
		lowPower:  [3]byte{0xF9, 0x18, 0xF1},
		highPower: [3]byte{0xD9, 0x16, 0xB1},
		pwr:       true,
		gains:     map[uint8]byte{0x09: 0x44, 0x08: 0x43, 0x07: 0x42, 0x06: 0x41, 0x05: 0x40},
	},
	ModeDVBTDTMB: {
		table:     dvbtMode,
		lowPower:  [3]byte{0xFE, 0x18, 0xF1},
		highPower: [3]byte{0xD9, 0x16, 0xB1},
		pwr:       true,
		gains:     map[uint8]byte{0x0B: 0x47, 0x09: 0x44, 0x08: 0x43, 0x07: 0x42, 0x06: 0x41, 0x05: 0x40},
	},
}
