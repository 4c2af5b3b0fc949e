// dtv-firmware loads the IT930x bridge firmware and prints the running version
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/gousb"

	"github.com/herlein/godtv/pkg/cli"
	"github.com/herlein/godtv/pkg/it930x"
	"github.com/herlein/godtv/pkg/usbbridge"
)

var (
	firmwarePath = flag.String("f", it930x.DefaultFirmwareName, "Firmware image")
	deviceSel    = flag.String("d", "", usbbridge.DeviceFlagUsage())
	force        = flag.Bool("force", false, "Download even if firmware is already running")
	reset        = flag.Bool("reset", false, "USB reset the stick instead of loading firmware")
	verbose      = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Load IT930x bridge firmware\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                          # Load default firmware if cold\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -f it9303.fw -d \"#1\" -force\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -reset                   # Recover a stuck stick\n", os.Args[0])
	}
	flag.Parse()

	if err := run(); err != nil {
		cli.Fatalf("%v", err)
	}
}

func run() error {
	log := cli.NewLogger(*verbose)

	ctx := gousb.NewContext()
	defer ctx.Close()

	stick, err := cli.OpenStick(ctx, *deviceSel, log)
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}
	defer stick.Close()

	fmt.Printf("Connected to: %s\n", stick.Device)

	if *reset {
		if err := stick.Device.Reset(); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
		fmt.Println("Reset OK")
		return nil
	}

	state, err := stick.Bridge.Identify()
	if err != nil {
		return err
	}
	fmt.Printf("Bridge:   type %04X version %02X (%s)\n", stick.Bridge.ChipType, stick.Bridge.ChipVersion, state)

	if state == it930x.StateWarm && !*force {
		fmt.Printf("Firmware: %s (already running)\n", stick.Bridge.Firmware)
		return nil
	}

	img, err := os.ReadFile(*firmwarePath)
	if err != nil {
		return fmt.Errorf("failed to read firmware: %w", err)
	}
	fmt.Printf("Loading %s (%d bytes, %s format)...\n", *firmwarePath, len(img), it930x.DetectFormat(img))

	start := time.Now()
	last := -1
	progress := func(done, total int) {
		if total == 0 {
			return
		}
		pct := done * 100 / total
		if pct/10 != last/10 {
			fmt.Printf("  %3d%%\n", pct)
			last = pct
		}
	}
	v, err := stick.Bridge.LoadFirmware(img, it930x.WithProgress(progress))
	if err != nil {
		return fmt.Errorf("firmware load failed: %w", err)
	}

	fmt.Printf("Firmware: %s (loaded in %v)\n", v, time.Since(start).Round(time.Millisecond))
	return nil
}
