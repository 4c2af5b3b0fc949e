package it930x

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	"github.com/herlein/godtv/pkg/metrics"
)

// Exchanger is the blocking byte channel to the bridge. Exchange writes w and
// then reads exactly len(r) bytes into r; r may be empty.
type Exchanger interface {
	Exchange(w, r []byte) error
}

// Framer builds and validates checksummed bridge command packets. Only one
// transaction is ever in flight.
type Framer struct {
	ex  Exchanger
	log logr.Logger

	mu   sync.Mutex
	seq  uint8
	wbuf [BufLen]byte
	rbuf [BufLen]byte
}

// NewFramer creates a framer over ex
func NewFramer(ex Exchanger, opts ...Option) *Framer {
	o := applyOptions(opts)
	return &Framer{
		ex:  ex,
		log: o.log.WithName("framer"),
	}
}

// Seq returns the sequence number the next call will use
func (f *Framer) Seq() uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq
}

// Execute sends cmd with payload w to mailbox mbox and returns rlen response
// payload bytes. CmdFwDownload never reads a response.
func (f *Framer) Execute(cmd Command, mbox byte, w []byte, rlen int) ([]byte, error) {
	if len(w) > MaxWriteLen || rlen > MaxReadLen || rlen < 0 {
		return nil, fmt.Errorf("%w: %s write %d read %d", ErrBufferTooSmall, cmd, len(w), rlen)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	seq := f.seq
	f.seq++

	wlen := reqHeaderLen + len(w) + checksumLen
	req := f.wbuf[:wlen]
	req[0] = byte(wlen - 1)
	req[1] = mbox
	req[2] = byte(cmd)
	req[3] = seq
	copy(req[reqHeaderLen:], w)
	csum := Checksum(req, wlen-checksumLen)
	req[wlen-2] = byte(csum >> 8)
	req[wlen-1] = byte(csum)

	respLen := 0
	if cmd != CmdFwDownload {
		respLen = respHeaderLen + rlen + checksumLen
	}
	resp := f.rbuf[:respLen]

	f.log.V(2).Info("request", "cmd", cmd.String(), "mbox", mbox, "seq", seq, "wlen", len(w), "rlen", rlen)

	if err := f.ex.Exchange(req, resp); err != nil {
		metrics.BridgeTransactionsTotal.WithLabelValues(cmd.String(), "transport").Inc()
		return nil, fmt.Errorf("%w: %s seq %d: %w", ErrTransport, cmd, seq, err)
	}

	if cmd == CmdFwDownload {
		metrics.BridgeTransactionsTotal.WithLabelValues(cmd.String(), "ok").Inc()
		return nil, nil
	}

	payload, err := ValidateResponse(cmd, resp)
	if err != nil {
		switch {
		case errors.Is(err, ErrChecksum):
			metrics.BridgeChecksumErrorsTotal.Inc()
			metrics.BridgeTransactionsTotal.WithLabelValues(cmd.String(), "checksum").Inc()
			f.log.Error(err, "bad response", "cmd", cmd.String(), "seq", seq)
		case errors.Is(err, ErrNoData):
			metrics.BridgeTransactionsTotal.WithLabelValues(cmd.String(), "nodata").Inc()
		default:
			metrics.BridgeTransactionsTotal.WithLabelValues(cmd.String(), "status").Inc()
		}
		return nil, err
	}

	metrics.BridgeTransactionsTotal.WithLabelValues(cmd.String(), "ok").Inc()

	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}
