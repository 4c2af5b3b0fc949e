// Package serialbridge carries bridge command packets over a UART link, for
// bench setups where the bridge control channel is wired to a serial
// adapter instead of USB.
package serialbridge

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// ErrTimeout is returned when the response does not arrive in time
var ErrTimeout = errors.New("serial response timeout")

// Port is the byte stream to the bridge
type Port interface {
	io.ReadWriteCloser
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string `json:"device"`
	Baud   int    `json:"baud"`
	// ReadTimeout bounds a single read in milliseconds
	ReadTimeout int `json:"readTimeout"`
	// Timeout bounds a whole response in milliseconds
	Timeout int `json:"timeout"`
}

// DefaultConfig returns the bench adapter settings
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 50,
		Timeout:     2000,
	}
}

// Conn is an it930x.Exchanger over a serial port
type Conn struct {
	mu      sync.Mutex
	port    Port
	timeout time.Duration
	now     func() time.Time
}

// Open opens the serial device
func Open(cfg *Config) (*Conn, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	return New(port, time.Duration(cfg.Timeout)*time.Millisecond), nil
}

// New wraps an already open port
func New(port Port, timeout time.Duration) *Conn {
	return &Conn{port: port, timeout: timeout, now: time.Now}
}

// Exchange writes w and reads exactly len(r) bytes before the timeout
func (c *Conn) Exchange(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// drop stale bytes from an earlier timed out response
	if err := c.port.Flush(); err != nil {
		return fmt.Errorf("failed to flush port: %w", err)
	}
	n, err := c.port.Write(w)
	if err != nil {
		return fmt.Errorf("failed to write command: %w", err)
	}
	if n != len(w) {
		return fmt.Errorf("short write: wrote %d of %d bytes", n, len(w))
	}

	deadline := c.now().Add(c.timeout)
	got := 0
	for got < len(r) {
		if c.now().After(deadline) {
			return fmt.Errorf("%w: got %d of %d bytes", ErrTimeout, got, len(r))
		}
		n, err := c.port.Read(r[got:])
		got += n
		// a read timeout surfaces as EOF with no data
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read response: %w", err)
		}
	}
	return nil
}

// Close closes the port
func (c *Conn) Close() error {
	return c.port.Close()
}
