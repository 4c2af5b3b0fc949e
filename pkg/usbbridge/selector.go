package usbbridge

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"
)

// ErrNoDevice is returned when no stick matches a selector
var ErrNoDevice = errors.New("no IT930x device found")

// DeviceSelector specifies how to identify a stick
// Supported formats:
//   - ""           : Use first available device
//   - "serial"     : Match by serial number
//   - "bus:addr"   : Match by USB bus and address (e.g., "1:10")
//   - "#N"         : Use Nth device, 0-indexed (e.g., "#0", "#1")
type DeviceSelector string

// selector is a parsed DeviceSelector
type selector struct {
	index     int
	bus, addr int
	serial    string
	kind      selectorKind
}

type selectorKind int

const (
	selectFirst selectorKind = iota
	selectIndex
	selectBusAddr
	selectSerial
)

func (s DeviceSelector) parse() (selector, error) {
	sel := string(s)
	switch {
	case sel == "":
		return selector{kind: selectFirst}, nil
	case strings.HasPrefix(sel, "#"):
		index, err := strconv.Atoi(sel[1:])
		if err != nil || index < 0 {
			return selector{}, fmt.Errorf("invalid device index: %s", sel)
		}
		return selector{kind: selectIndex, index: index}, nil
	case strings.Contains(sel, ":"):
		parts := strings.SplitN(sel, ":", 2)
		bus, err := strconv.Atoi(parts[0])
		if err != nil {
			return selector{}, fmt.Errorf("invalid bus number: %s", parts[0])
		}
		addr, err := strconv.Atoi(parts[1])
		if err != nil {
			return selector{}, fmt.Errorf("invalid address number: %s", parts[1])
		}
		return selector{kind: selectBusAddr, bus: bus, addr: addr}, nil
	default:
		return selector{kind: selectSerial, serial: sel}, nil
	}
}

// pick returns the index of the device the selector names
func (s selector) pick(devices []*Device) (int, error) {
	if len(devices) == 0 {
		return -1, ErrNoDevice
	}
	switch s.kind {
	case selectFirst:
		return 0, nil
	case selectIndex:
		if s.index >= len(devices) {
			return -1, fmt.Errorf("device index %d out of range (found %d devices)", s.index, len(devices))
		}
		return s.index, nil
	case selectBusAddr:
		for i, d := range devices {
			if d.Bus == s.bus && d.Address == s.addr {
				return i, nil
			}
		}
		return -1, fmt.Errorf("%w at bus %d address %d", ErrNoDevice, s.bus, s.addr)
	}

	match := -1
	for i, d := range devices {
		if d.Serial != s.serial {
			continue
		}
		if match >= 0 {
			return -1, fmt.Errorf("multiple devices found with serial %s; use bus:addr format (e.g., 1:10) or index format (e.g., #0)", s.serial)
		}
		match = i
	}
	if match < 0 {
		return -1, fmt.Errorf("%w with serial %s", ErrNoDevice, s.serial)
	}
	return match, nil
}

// Match returns the index in devices of the stick the selector names
func (s DeviceSelector) Match(devices []*Device) (int, error) {
	sel, err := s.parse()
	if err != nil {
		return -1, err
	}
	return sel.pick(devices)
}

// SelectDevice opens the stick matching the selector and closes the rest
func SelectDevice(ctx *gousb.Context, sel DeviceSelector) (*Device, error) {
	s, err := sel.parse()
	if err != nil {
		return nil, err
	}
	devices, err := FindAllDevices(ctx)
	if err != nil {
		return nil, err
	}

	i, err := s.pick(devices)
	for j, d := range devices {
		if j != i {
			d.Close()
		}
	}
	if err != nil {
		return nil, err
	}
	return devices[i], nil
}

// DeviceFlagUsage returns usage string for the -d flag
func DeviceFlagUsage() string {
	return `Device selector. Formats:
    ""        - Use first available device
    "serial"  - Match by serial number
    "bus:addr"- Match by USB location (e.g., "1:10")
    "#N"      - Use Nth device, 0-indexed (e.g., "#0", "#1")`
}
