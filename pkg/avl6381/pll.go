package avl6381

import "time"

// pllConfig is one 40-byte clock configuration row. Bytes 4-7 and 12-17
// are divider settings stored off by one; bytes 20-27 are two little-endian
// frequency words.
type pllConfig [40]byte

// pllTable holds the run-time clock rows indexed by reference clock and
// delivery profile
var pllTable = [...]pllConfig{
	{
		0x80, 0xC3, 0xC9, 0x01, 0x02, 0x32, 0x03, 0x05, 0x00, 0xA3,
		0xE1, 0x11, 0x01, 0x22, 0x03, 0x0C, 0x19, 0x20, 0x00, 0x00,
		0x6E, 0x00, 0x00, 0x00, 0x0F, 0x00, 0x00, 0x00, 0x80, 0xFE,
		0x21, 0x0A, 0x00, 0x1E, 0xDD, 0x04, 0x70, 0xBF, 0xCC, 0x03,
	},
	{
		0x80, 0xC3, 0xC9, 0x01, 0x02, 0x2C, 0x03, 0x06, 0x00, 0xEF,
		0x1C, 0x0D, 0x01, 0x22, 0x03, 0x0C, 0x19, 0x20, 0x00, 0x00,
		0x6E, 0x00, 0x00, 0x00, 0x0F, 0x00, 0x00, 0x00, 0x80, 0xFE,
		0x21, 0x0A, 0x00, 0x1E, 0xDD, 0x04, 0x70, 0xBF, 0xCC, 0x03,
	},
	{
		0x00, 0x24, 0xF4, 0x00, 0x01, 0x2A, 0x03, 0x05, 0x00, 0x90,
		0x05, 0x10, 0x01, 0x36, 0x03, 0x0A, 0x18, 0x1B, 0x01, 0x00,
		0x6E, 0x00, 0x00, 0x00, 0x0F, 0x00, 0x00, 0x00, 0x00, 0xB8,
		0x4C, 0x0A, 0x00, 0xA2, 0x4A, 0x04, 0x00, 0x90, 0xD0, 0x03,
	},
	{
		0x00, 0x24, 0xF4, 0x00, 0x01, 0x2A, 0x03, 0x06, 0x00, 0xF8,
		0x59, 0x0D, 0x01, 0x36, 0x03, 0x0A, 0x18, 0x1B, 0x01, 0x00,
		0x6E, 0x00, 0x00, 0x00, 0x0F, 0x00, 0x00, 0x00, 0x00, 0xB8,
		0x4C, 0x0A, 0x00, 0xA2, 0x4A, 0x04, 0x00, 0x90, 0xD0, 0x03,
	},
	{
		0x00, 0x36, 0x6E, 0x01, 0x02, 0x4B, 0x03, 0x06, 0x00, 0xA3,
		0xE1, 0x11, 0x01, 0x23, 0x03, 0x0A, 0x15, 0x1C, 0x00, 0x00,
		0x6E, 0x00, 0x00, 0x00, 0x0F, 0x00, 0x00, 0x00, 0x00, 0x7A,
		0x03, 0x0A, 0x00, 0xB4, 0xC4, 0x04, 0x00, 0x87, 0x93, 0x03,
	},
	{
		0x00, 0x36, 0x6E, 0x01, 0x01, 0x2A, 0x02, 0x09, 0x00, 0xF8,
		0x59, 0x0D, 0x01, 0x2A, 0x02, 0x0C, 0x19, 0x02, 0x00, 0x00,
		0x5F, 0x00, 0x00, 0x00, 0x0F, 0x00, 0x00, 0x00, 0x00, 0x7A,
		0x03, 0x0A, 0x00, 0xB4, 0xC4, 0x04, 0x00, 0x87, 0x93, 0x03,
	},
	{
		0xC0, 0xFC, 0x9B, 0x01, 0x03, 0x4A, 0x03, 0x05, 0x00, 0xF1,
		0xE0, 0x0F, 0x01, 0x20, 0x03, 0x0A, 0x18, 0x1B, 0x00, 0x00,
		0x6E, 0x00, 0x00, 0x00, 0x0F, 0x00, 0x00, 0x00, 0x00, 0xB8,
		0x4C, 0x0A, 0x00, 0xA2, 0x4A, 0x04, 0x00, 0x90, 0xD0, 0x03,
	},
	{
		0xC0, 0xFC, 0x9B, 0x01, 0x03, 0x4A, 0x03, 0x06, 0x80, 0x73,
		0x3B, 0x0D, 0x01, 0x20, 0x03, 0x0A, 0x18, 0x1B, 0x00, 0x00,
		0x6E, 0x00, 0x00, 0x00, 0x0F, 0x00, 0x00, 0x00, 0x00, 0xB8,
		0x4C, 0x0A, 0x00, 0xA2, 0x4A, 0x04, 0x00, 0x90, 0xD0, 0x03,
	},
}

// sleepPLLTable holds the reduced clock rows used while sleeping
var sleepPLLTable = [...]pllConfig{
	{
		0x80, 0xC3, 0xC9, 0x01, 0x02, 0x2C, 0x03, 0x0C, 0x80, 0x77,
		0x8E, 0x06, 0x01, 0x22, 0x03, 0x18, 0x20, 0x20, 0x00, 0x00,
		0x6E, 0x00, 0x00, 0x00, 0x0F, 0x00, 0x00, 0x00, 0x40, 0xFF,
		0x10, 0x05, 0x70, 0xBF, 0xCC, 0x03, 0x70, 0xBF, 0xCC, 0x03,
	},
	{
		0x00, 0x24, 0xF4, 0x00, 0x01, 0x2A, 0x03, 0x0C, 0x00, 0xFC,
		0xAC, 0x06, 0x01, 0x36, 0x03, 0x14, 0x1B, 0x1B, 0x00, 0x00,
		0x6E, 0x00, 0x00, 0x00, 0x0F, 0x00, 0x00, 0x00, 0x00, 0x5C,
		0x26, 0x05, 0x00, 0x90, 0xD0, 0x03, 0x00, 0x90, 0xD0, 0x03,
	},
	{
		0x00, 0x36, 0x6E, 0x01, 0x02, 0x37, 0x03, 0x0C, 0x80, 0x77,
		0x8E, 0x06, 0x01, 0x23, 0x03, 0x14, 0x1C, 0x1C, 0x00, 0x00,
		0x6E, 0x00, 0x00, 0x00, 0x0F, 0x00, 0x00, 0x00, 0x00, 0xBD,
		0x01, 0x05, 0x00, 0x87, 0x93, 0x03, 0x00, 0x87, 0x93, 0x03,
	},
	{
		0xC0, 0xFC, 0x9B, 0x01, 0x03, 0x4A, 0x03, 0x0C, 0xC0, 0xB9,
		0x9D, 0x06, 0x01, 0x20, 0x03, 0x14, 0x1B, 0x1B, 0x00, 0x00,
		0x6E, 0x00, 0x00, 0x00, 0x0F, 0x00, 0x00, 0x00, 0x00, 0x5C,
		0x26, 0x05, 0x00, 0x90, 0xD0, 0x03, 0x00, 0x90, 0xD0, 0x03,
	},
}

func (c pllConfig) word(i int) uint32 {
	return uint32(c[i]) | uint32(c[i+1])<<8 | uint32(c[i+2])<<16 | uint32(c[i+3])<<24
}

// pllSteps programs the clock generator from c
func pllSteps(c pllConfig) []step {
	return []step{
		write32("pll.clk-ref", RegPLLClkRefR, uint32(c[4])-1),
		write32("pll.clk-feedback", RegPLLClkFeedR, uint32(c[5])-1),
		write32("pll.clk-bandwidth", RegPLLClkBwad, uint32(c[6])),
		write32("pll.clk-divider", RegPLLClkDiv, uint32(c[7])-1),
		write32("pll.mpeg-ref", RegPLLMpegRefR, uint32(c[12])-1),
		write32("pll.mpeg-feedback", RegPLLMpegFeedR, uint32(c[13])-1),
		write32("pll.mpeg-bandwidth", RegPLLMpegBwad, uint32(c[14])),
		write32("pll.mpeg-divider", RegPLLMpegDiv, uint32(c[15])-1),
		write32("pll.sdram-divider", RegPLLSdramDiv, uint32(c[16])-1),
		write32("pll.adc-divider", RegPLLAdcDiv, uint32(c[17])-1),
		write32("pll.reset", RegPLLReset, 0),
		write32("pll.release", RegPLLReset, 1).then(5 * time.Millisecond),
		write32("pll.freq0", RegPLLFreq0, c.word(20)),
		write32("pll.freq1", RegPLLFreq1, c.word(24)),
		write32("pll.apply", RegPLLApply, 1),
		write32("pll.latch", RegPLLLatch, 1),
		write32("pll.unlatch", RegPLLLatch, 0),
	}
}
