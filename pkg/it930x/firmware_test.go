package it930x

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega"
)

// legacyRecord builds one legacy image record with a correct header checksum
func legacyRecord(core byte, addr uint16, data []byte) []byte {
	rec := LegacyRecord{Core: core, Addr: addr, Len: uint16(len(data))}
	sum := rec.HeaderChecksum()
	out := []byte{core, byte(addr >> 8), byte(addr), byte(len(data) >> 8), byte(len(data)), byte(sum >> 8), byte(sum)}
	return append(out, data...)
}

func fill(n int, v byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = v + byte(i)
	}
	return b
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		img      []byte
		expected FirmwareFormat
	}{
		{name: "legacy", img: []byte{0x01, 0x00}, expected: FormatLegacy},
		{name: "scatter", img: []byte{0x03, 0x00, 0x00}, expected: FormatScatter},
		{name: "zero byte", img: []byte{0x00}, expected: FormatScatter},
		{name: "two", img: []byte{0x02}, expected: FormatScatter},
		{name: "empty", img: nil, expected: FormatScatter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			g.Expect(DetectFormat(tt.img)).To(Equal(tt.expected))
		})
	}

	// every first byte maps to exactly one format
	g := NewWithT(t)
	legacy := 0
	for b := 0; b < 256; b++ {
		if DetectFormat([]byte{byte(b)}) == FormatLegacy {
			legacy++
		}
	}
	g.Expect(legacy).To(Equal(1))
}

func TestLoadLegacyTruncatedTail(t *testing.T) {
	g := NewWithT(t)

	var img []byte
	img = append(img, legacyRecord(1, 0x1000, fill(10, 0x10))...)
	img = append(img, legacyRecord(2, 0x2000, fill(100, 0x20))...)
	img = append(img, legacyRecord(1, 0x3000, fill(5, 0x30))...)
	truncated := legacyRecord(2, 0x4000, fill(40, 0x40))
	img = append(img, truncated[:20]...)

	fake := newFakeBridge()
	var progress []int
	v, err := LoadFirmware(NewFramer(fake), img, WithProgress(func(done, total int) {
		progress = append(progress, done)
	}))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(v.String()).To(Equal("1.4.0.0"))

	g.Expect(fake.count(CmdFwDownloadBegin)).To(Equal(3))
	g.Expect(fake.count(CmdFwDownloadEnd)).To(Equal(3))
	g.Expect(fake.count(CmdFwBoot)).To(Equal(1))
	g.Expect(progress).To(Equal([]int{17, 124, 136}))

	var pushed []byte
	for _, req := range fake.requests {
		if req.cmd == CmdFwDownload {
			g.Expect(len(req.payload)).To(BeNumerically("<=", DefaultChunkSize))
			pushed = append(pushed, req.payload...)
		}
	}
	g.Expect(pushed).To(Equal(img[:136]))

	// boot follows the last end
	last := fake.requests[len(fake.requests)-2]
	g.Expect(last.cmd).To(Equal(CmdFwBoot))
	g.Expect(fake.requests[len(fake.requests)-1].cmd).To(Equal(CmdFwQueryInfo))
}

func TestLoadLegacyStopsOnBadCore(t *testing.T) {
	g := NewWithT(t)

	img := legacyRecord(1, 0x1000, fill(8, 0))
	img = append(img, legacyRecord(3, 0x2000, fill(8, 0))...)

	fake := newFakeBridge()
	_, err := LoadFirmware(NewFramer(fake), img)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(fake.count(CmdFwDownloadBegin)).To(Equal(1))
}

func TestLoadLegacyChunking(t *testing.T) {
	tests := []struct {
		name   string
		total  int
		chunks int
	}{
		{name: "exactly one chunk", total: 47, chunks: 1},
		{name: "one byte over", total: 48, chunks: 2},
		{name: "exactly two chunks", total: 94, chunks: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			img := legacyRecord(1, 0x8000, fill(tt.total-legacyHeaderLen, 0x55))

			fake := newFakeBridge()
			_, err := LoadFirmware(NewFramer(fake), img, WithChunkSize(47))
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(fake.count(CmdFwDownload)).To(Equal(tt.chunks))
			for _, req := range fake.requests {
				if req.cmd == CmdFwDownload {
					g.Expect(len(req.payload)).To(BeNumerically("<=", 47))
				}
			}
		})
	}
}

func TestLoadScatter(t *testing.T) {
	g := NewWithT(t)

	img := []byte{0x03, 0x01, 0x00, 0x01, 0x80, 0x00, 0x04, 0xAA, 0xBB}
	img = append(img, 0x03, 0x00, 0x00, 0x02, 0x90, 0x00, 0x02, 0xCC)
	img = append(img, 0x03, 0x01, 0x00, 0x03, 0xA0, 0x00, 0x01)

	fake := newFakeBridge()
	_, err := LoadFirmware(NewFramer(fake), img)
	g.Expect(err).NotTo(HaveOccurred())

	var blocks [][]byte
	for _, req := range fake.requests {
		if req.cmd == CmdFwScatterWrite {
			blocks = append(blocks, req.payload)
		}
	}
	g.Expect(blocks).To(Equal([][]byte{img[0:9], img[9:17], img[17:]}))
	g.Expect(fake.count(CmdFwDownloadBegin)).To(BeZero())
	g.Expect(fake.count(CmdFwDownload)).To(BeZero())
}

func TestLoadScatterChecksAcknowledgement(t *testing.T) {
	g := NewWithT(t)
	img := []byte{0x03, 0x01, 0x00, 0x01, 0x80, 0x00, 0x04, 0xAA, 0xBB}

	fake := newFakeBridge()
	fake.status = 0x05
	_, err := LoadFirmware(NewFramer(fake), img)

	var se *StatusError
	g.Expect(errors.As(err, &se)).To(BeTrue())
	g.Expect(se.Cmd).To(Equal(CmdFwScatterWrite))
	g.Expect(fake.count(CmdFwScatterWrite)).To(Equal(1))
	g.Expect(fake.count(CmdFwBoot)).To(BeZero())
}

func TestLoadFirmwareDidNotRun(t *testing.T) {
	g := NewWithT(t)
	fake := newFakeBridge()
	fake.version = FirmwareVersion{}

	_, err := LoadFirmware(NewFramer(fake), legacyRecord(1, 0, fill(4, 0)))
	g.Expect(err).To(MatchError(ErrFirmwareStart))
}

func TestLegacyHeaderChecksum(t *testing.T) {
	g := NewWithT(t)
	rec := LegacyRecord{Core: 1, Addr: 0x1234, Len: 0x0056}
	// ~(0x01*256 + 0x12 + 0x34*256 + 0x00 + 0x56*256)
	g.Expect(rec.HeaderChecksum()).To(Equal(^uint16(0x0100 + 0x12 + 0x3400 + 0x5600)))
}
