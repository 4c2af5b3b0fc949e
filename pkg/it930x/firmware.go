package it930x

import (
	"encoding/binary"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/herlein/godtv/pkg/metrics"
)

// FirmwareFormat is the on-disk framing of a bridge firmware image
type FirmwareFormat int

const (
	FormatLegacy FirmwareFormat = iota
	FormatScatter
)

func (f FirmwareFormat) String() string {
	if f == FormatLegacy {
		return "legacy"
	}
	return "scatter"
}

// DetectFormat picks the framing variant from the first byte of img
func DetectFormat(img []byte) FirmwareFormat {
	if len(img) > 0 && img[0] == 0x01 {
		return FormatLegacy
	}
	return FormatScatter
}

// FirmwareVersion is the 4-byte version reported by running firmware
type FirmwareVersion [4]byte

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v[0], v[1], v[2], v[3])
}

// IsZero reports whether the firmware reported no version
func (v FirmwareVersion) IsZero() bool {
	return v == FirmwareVersion{}
}

// LegacyRecord is one header of a legacy image
type LegacyRecord struct {
	Core     byte
	Addr     uint16
	Len      uint16
	Checksum uint16
}

// HeaderChecksum computes the checksum the record header should carry
func (r LegacyRecord) HeaderChecksum() uint16 {
	h := []uint16{uint16(r.Core), uint16(r.Addr >> 8), uint16(r.Addr & 0xFF), uint16(r.Len >> 8), uint16(r.Len & 0xFF)}
	return ^(h[0]<<8 + h[1] + h[2]<<8 + h[3] + h[4]<<8)
}

func parseLegacyRecord(b []byte) LegacyRecord {
	return LegacyRecord{
		Core:     b[0],
		Addr:     binary.BigEndian.Uint16(b[1:3]),
		Len:      binary.BigEndian.Uint16(b[3:5]),
		Checksum: binary.BigEndian.Uint16(b[5:7]),
	}
}

// QueryFirmware asks the bridge for its running firmware version
func QueryFirmware(f *Framer) (FirmwareVersion, error) {
	var v FirmwareVersion
	data, err := f.Execute(CmdFwQueryInfo, 0, []byte{1}, len(v))
	if err != nil {
		return v, fmt.Errorf("failed to query firmware: %w", err)
	}
	copy(v[:], data)
	return v, nil
}

// LoadFirmware downloads img to the bridge, boots it and verifies it runs
func LoadFirmware(f *Framer, img []byte, opts ...Option) (FirmwareVersion, error) {
	o := applyOptions(opts)
	log := o.log.WithName("firmware")

	format := DetectFormat(img)
	log.Info("downloading firmware", "format", format.String(), "size", len(img))

	var err error
	if format == FormatLegacy {
		err = loadLegacy(f, img, o, log)
	} else {
		err = loadScatter(f, img, o, log)
	}
	if err != nil {
		return FirmwareVersion{}, err
	}

	if _, err := f.Execute(CmdFwBoot, 0, nil, 0); err != nil {
		return FirmwareVersion{}, fmt.Errorf("failed to boot firmware: %w", err)
	}

	v, err := QueryFirmware(f)
	if err != nil {
		return v, err
	}
	if v.IsZero() {
		return v, ErrFirmwareStart
	}

	log.Info("firmware running", "version", v.String())
	return v, nil
}

func loadLegacy(f *Framer, img []byte, o options, log logr.Logger) error {
	size := len(img)
	done := 0
	i := size
	for i > legacyHeaderLen {
		off := size - i
		rec := parseLegacyRecord(img[off:])
		log.V(1).Info("record", "core", rec.Core, "addr", fmt.Sprintf("0x%04X", rec.Addr), "len", rec.Len)

		if (rec.Core != 1 && rec.Core != 2) || int(rec.Len) > i-legacyHeaderLen {
			break
		}
		if sum := rec.HeaderChecksum(); sum != rec.Checksum {
			log.Info("record header checksum mismatch", "offset", off, "want", sum, "got", rec.Checksum)
		}

		if _, err := f.Execute(CmdFwDownloadBegin, 0, nil, 0); err != nil {
			return fmt.Errorf("failed to begin record at %d: %w", off, err)
		}

		total := legacyHeaderLen + int(rec.Len)
		if err := pushChunks(f, img[off:off+total], o.chunkSize); err != nil {
			return fmt.Errorf("failed to push record at %d: %w", off, err)
		}

		if _, err := f.Execute(CmdFwDownloadEnd, 0, nil, 0); err != nil {
			return fmt.Errorf("failed to end record at %d: %w", off, err)
		}

		i -= total
		done += total
		metrics.FirmwareBytesTotal.Add(float64(total))
		if o.progress != nil {
			o.progress(done, size)
		}
	}

	if i != 0 {
		log.Info("bad firmware, continuing", "unconsumed", i)
	}
	return nil
}

func pushChunks(f *Framer, data []byte, chunk int) error {
	for len(data) > 0 {
		n := min(len(data), chunk)
		if _, err := f.Execute(CmdFwDownload, 0, data[:n], 0); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func isScatterMarker(img []byte, i int) bool {
	return i+2 < len(img) &&
		img[i] == 0x03 &&
		(img[i+1] == 0x00 || img[i+1] == 0x01) &&
		img[i+2] == 0x00
}

func loadScatter(f *Framer, img []byte, o options, log logr.Logger) error {
	size := len(img)
	prev := 0
	for i := legacyHeaderLen; i <= size; i++ {
		if i != size && !isScatterMarker(img, i) {
			continue
		}
		if i == prev {
			continue
		}
		if _, err := f.Execute(CmdFwScatterWrite, 0, img[prev:i], 0); err != nil {
			return fmt.Errorf("failed to push scatter block at %d: %w", prev, err)
		}
		metrics.FirmwareBytesTotal.Add(float64(i - prev))
		log.V(1).Info("scatter block", "offset", prev, "len", i-prev)
		prev = i
		if o.progress != nil {
			o.progress(i, size)
		}
	}
	return nil
}
