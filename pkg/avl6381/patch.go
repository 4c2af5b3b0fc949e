package avl6381

import (
	"encoding/binary"
	"fmt"
)

// PatchRecord is one addressed payload of a micro-patch blob
type PatchRecord struct {
	Addr uint32
	Data []byte
}

// ParsePatch splits a micro-patch blob into records. The blob starts with a
// 4-byte header; each record is a big-endian payload length, one pad byte, a
// 24-bit big-endian load address and the payload. A zero length or the end
// of the blob terminates the walk.
func ParsePatch(blob []byte) ([]PatchRecord, error) {
	var recs []PatchRecord
	for i := 4; i+4 <= len(blob); {
		n := int(binary.BigEndian.Uint32(blob[i:]))
		if n == 0 {
			break
		}
		start := i + 5
		end := start + 3 + n
		if end > len(blob) {
			return recs, fmt.Errorf("%w: record at %d needs %d bytes, %d left", ErrPatchTruncated, i, end-i, len(blob)-i)
		}
		p := blob[start:end]
		recs = append(recs, PatchRecord{
			Addr: uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2]),
			Data: p[3:],
		})
		i += n + 8
	}
	return recs, nil
}

// Bursts splits a record into ≤47-byte addressed writes
func (p PatchRecord) Bursts() [][]byte {
	var out [][]byte
	addr := p.Addr
	for pos := 0; pos < len(p.Data); pos += patchBurst {
		n := min(len(p.Data)-pos, patchBurst)
		buf := append(addrBytes(addr), p.Data[pos:pos+n]...)
		out = append(out, buf)
		addr += patchBurst
	}
	return out
}

// postPatch arms the patched firmware
var postPatch = []step{
	write32("patch.vector0", 0x000228, 0x00280000),
	write32("patch.vector1", 0x00022C, 0x002D0008),
	write32("patch.vector2", 0x000230, 0x0028CB00),
	write32("patch.vector3", 0x000234, 0x002F2C08),
	write8("patch.enable0", 0x000225, 0x01),
	write8("patch.enable1", 0x000226, 0x01),
	write16("patch.remap0", 0x2D0000, 0x0001),
	write16("patch.remap1", 0x2D0002, 0x0000),
	write32("patch.clear-ready", RegChipReady, 0),
	write32("patch.release-core", RegCoreHold, 0),
}

// LoadPatch pushes every record of blob to the demodulator and then writes
// the post-patch block. Write failures accumulate.
func (d *Demod) LoadPatch(blob []byte) error {
	recs, err := ParsePatch(blob)
	if err != nil {
		return &StepError{Step: "patch.parse", Err: err}
	}

	var errs StepErrors
	for _, rec := range recs {
		for _, buf := range rec.Bursts() {
			if err := d.regs.writeRaw(buf); err != nil {
				errs = append(errs, &StepError{Step: fmt.Sprintf("patch.0x%06X", rec.Addr), Err: err})
				break
			}
		}
	}
	d.log.V(1).Info("micro-patch loaded", "records", len(recs))

	if err := d.run(postPatch); err != nil {
		errs = append(errs, asStepErrors("patch.post", err)...)
	}
	return errs.orNil()
}
