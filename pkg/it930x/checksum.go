package it930x

import "fmt"

// Checksum computes the bridge packet checksum over buf[1:n]. Odd offsets
// contribute the high byte and even offsets the low byte of each 16-bit word;
// the length byte at offset 0 is never summed.
func Checksum(buf []byte, n int) uint16 {
	var sum uint16
	for i := 1; i < n; i++ {
		if i&1 == 1 {
			sum += uint16(buf[i]) << 8
		} else {
			sum += uint16(buf[i])
		}
	}
	return ^sum
}

// ValidateResponse checks a complete response (header, payload, checksum) for
// cmd and returns the payload. The payload aliases resp.
func ValidateResponse(cmd Command, resp []byte) ([]byte, error) {
	n := len(resp)
	if n < respHeaderLen+checksumLen {
		return nil, fmt.Errorf("%w: short response (%d bytes)", ErrTransport, n)
	}

	want := Checksum(resp, n-checksumLen)
	got := uint16(resp[n-2])<<8 | uint16(resp[n-1])
	if want != got {
		return nil, &ChecksumError{Want: want, Got: got}
	}

	if status := resp[2]; status != 0 {
		if cmd == CmdIRGet || status == 1 {
			return nil, ErrNoData
		}
		return nil, &StatusError{Cmd: cmd, Status: status}
	}

	return resp[respHeaderLen : n-checksumLen], nil
}
