// Package cli holds the pieces shared by the dtv command line tools:
// logger setup, stick selection and frontend attach.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/google/gousb"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/herlein/godtv/pkg/config"
	"github.com/herlein/godtv/pkg/frontend"
	"github.com/herlein/godtv/pkg/it930x"
	"github.com/herlein/godtv/pkg/usbbridge"
)

// NewLogger builds a console logger on stderr. Verbose enables V(1).
func NewLogger(verbose bool) logr.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zapr.NewLogger(zap.New(core))
}

// Fatalf prints an error and exits with status 1
func Fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// Stick is a selected device with its bridge
type Stick struct {
	Device *usbbridge.Device
	Bridge *it930x.Bridge
}

// Close releases the USB device
func (s *Stick) Close() error {
	return s.Device.Close()
}

// Wrap builds the bridge for an opened device
func Wrap(dev *usbbridge.Device, log logr.Logger) *Stick {
	return &Stick{
		Device: dev,
		Bridge: it930x.NewBridge(dev, it930x.WithLogger(log.WithValues("serial", dev.Serial))),
	}
}

// OpenStick selects one stick by the -d selector
func OpenStick(ctx *gousb.Context, sel string, log logr.Logger) (*Stick, error) {
	dev, err := usbbridge.SelectDevice(ctx, usbbridge.DeviceSelector(sel))
	if err != nil {
		return nil, err
	}
	return Wrap(dev, log), nil
}

// LoadDeviceConfig reads path, or the per-serial default path when path is
// empty. A missing per-serial file yields the default configuration.
func LoadDeviceConfig(serial, path string) (*config.DeviceConfig, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	cfg, err := config.LoadFromFile(config.GetConfigPath(serial))
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(serial), nil
	}
	return cfg, err
}

// Attach brings up the frontend of a stick with cfg
func (s *Stick) Attach(cfg *config.DeviceConfig, log logr.Logger) (*frontend.Frontend, error) {
	fc, err := cfg.FrontendConfig()
	if err != nil {
		return nil, err
	}
	return frontend.Attach(s.Bridge, fc,
		frontend.WithName(s.Device.Name()),
		frontend.WithLogger(log.WithValues("serial", s.Device.Serial)),
	)
}
