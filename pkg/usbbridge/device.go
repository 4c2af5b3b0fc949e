// Package usbbridge reaches IT930x sticks over USB with gousb and exposes
// their command endpoints as an it930x.Exchanger.
package usbbridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/herlein/godtv/pkg/it930x"
)

// Device is an opened IT930x stick
type Device struct {
	usbDevice    *gousb.Device
	usbConfig    *gousb.Config
	usbInterface *gousb.Interface
	epIn         *gousb.InEndpoint
	epOut        *gousb.OutEndpoint
	Serial       string
	Manufacturer string
	Product      string
	Bus          int
	Address      int
	FullSpeed    bool
	Timeout      time.Duration
	mu           sync.Mutex
}

// FindAllDevices opens every attached IT930x stick
func FindAllDevices(ctx *gousb.Context) ([]*Device, error) {
	devices := []*Device{}

	usbDevices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(it930x.VendorID) && desc.Product == gousb.ID(it930x.ProductID)
	})
	if err != nil && len(usbDevices) == 0 {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	for _, usbDev := range usbDevices {
		device, err := wrapDevice(usbDev)
		if err != nil {
			usbDev.Close()
			continue
		}
		devices = append(devices, device)
	}

	return devices, nil
}

func wrapDevice(usbDev *gousb.Device) (*Device, error) {
	manufacturer, _ := usbDev.Manufacturer()
	product, _ := usbDev.Product()
	serial, _ := usbDev.SerialNumber()

	usbDev.SetAutoDetach(true)

	config, err := usbDev.Config(1)
	if err != nil {
		return nil, fmt.Errorf("failed to get configuration: %w", err)
	}

	iface, err := config.Interface(0, 0)
	if err != nil {
		config.Close()
		return nil, fmt.Errorf("failed to claim interface: %w", err)
	}

	epIn, err := iface.InEndpoint(it930x.EPCtrlInAddr & 0x0F)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, fmt.Errorf("failed to get IN endpoint: %w", err)
	}

	epOut, err := iface.OutEndpoint(it930x.EPCtrlOutAddr)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, fmt.Errorf("failed to get OUT endpoint: %w", err)
	}

	desc := usbDev.Desc
	return &Device{
		usbDevice:    usbDev,
		usbConfig:    config,
		usbInterface: iface,
		epIn:         epIn,
		epOut:        epOut,
		Serial:       serial,
		Manufacturer: manufacturer,
		Product:      product,
		Bus:          desc.Bus,
		Address:      desc.Address,
		FullSpeed:    desc.Speed == gousb.SpeedFull || desc.Speed == gousb.SpeedLow,
		Timeout:      it930x.USBTimeout,
	}, nil
}

// Exchange writes w to the command endpoint and reads exactly len(r) bytes
// from the response endpoint
func (d *Device) Exchange(w, r []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
	defer cancel()

	n, err := d.epOut.WriteContext(ctx, w)
	if err != nil {
		return fmt.Errorf("failed to write command: %w", err)
	}
	if n != len(w) {
		return fmt.Errorf("short write: wrote %d of %d bytes", n, len(w))
	}
	if len(r) == 0 {
		return nil
	}

	n, err = d.epIn.ReadContext(ctx, r)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if n != len(r) {
		return fmt.Errorf("short read: got %d of %d bytes", n, len(r))
	}
	return nil
}

// Location returns the bus:addr selector for the device
func (d *Device) Location() string {
	return fmt.Sprintf("%d:%d", d.Bus, d.Address)
}

// Name is the serial when the stick reports one, otherwise its location
func (d *Device) Name() string {
	if d.Serial != "" {
		return d.Serial
	}
	return d.Location()
}

// Reset issues a USB port reset, recovering a stick whose command
// endpoint stopped answering. The device must be reopened afterwards.
func (d *Device) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.usbDevice.Reset()
}

// Close releases the interface and the device
func (d *Device) Close() error {
	if d.usbInterface != nil {
		d.usbInterface.Close()
	}
	if d.usbConfig != nil {
		d.usbConfig.Close()
	}
	if d.usbDevice != nil {
		return d.usbDevice.Close()
	}
	return nil
}

// String returns a human-readable description of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s %s (Serial: %s)", d.Manufacturer, d.Product, d.Serial)
}
