// dtv-dump-config: Dump an IT930x stick's attach configuration to a file
//
// This tool connects to a stick, reads the bridge identity and firmware
// version, and saves them with the default tuner calibration to a YAML (or
// JSON, by extension) file. The file can be edited and later applied with
// dtv-load-config.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/gousb"

	"github.com/herlein/godtv/pkg/cli"
	"github.com/herlein/godtv/pkg/config"
	"github.com/herlein/godtv/pkg/usbbridge"
)

func main() {
	outputFile := flag.String("o", "", "Output file path (default: etc/dtv/<serial>.yaml)")
	deviceSel := flag.String("d", "", usbbridge.DeviceFlagUsage())
	verbose := flag.Bool("v", false, "Verbose output")
	jsonOutput := flag.Bool("json", false, "Output config to stdout as JSON instead of file")
	flag.Parse()

	log := cli.NewLogger(*verbose)

	context := gousb.NewContext()
	defer context.Close()

	stick, err := cli.OpenStick(context, *deviceSel, log)
	if err != nil {
		cli.Fatalf("%v", err)
	}
	defer stick.Close()

	if *verbose {
		fmt.Printf("Connected to: %s\n", stick.Device)
		fmt.Println("Reading bridge identity...")
	}

	dev := stick.Device
	configuration, err := config.DumpFromBridge(dev.Serial, dev.Manufacturer, dev.Product, stick.Bridge)
	if err != nil {
		cli.Fatalf("Failed to dump configuration: %v", err)
	}
	configuration.FullSpeed = dev.FullSpeed

	if *jsonOutput {
		data, err := json.MarshalIndent(configuration, "", "  ")
		if err != nil {
			cli.Fatalf("Failed to marshal configuration: %v", err)
		}
		fmt.Println(string(data))
		return
	}

	path := *outputFile
	if path == "" {
		path = config.GetConfigPath(dev.Name())
	}

	if err := config.SaveToFile(configuration, path); err != nil {
		cli.Fatalf("Failed to save configuration: %v", err)
	}

	fmt.Printf("Configuration saved to: %s\n", path)

	if *verbose {
		printConfigSummary(configuration)
	}
}

func printConfigSummary(cfg *config.DeviceConfig) {
	fmt.Println("\nConfiguration Summary:")
	fmt.Printf("  Bridge:       type %04X version %02X prechip %02X\n",
		cfg.Bridge.ChipType, cfg.Bridge.ChipVersion, cfg.Bridge.PrechipVersion)
	if cfg.Bridge.Firmware != "" {
		fmt.Printf("  Firmware:     %s\n", cfg.Bridge.Firmware)
	} else {
		fmt.Printf("  Firmware:     not loaded (%s)\n", cfg.FirmwarePath)
	}
	fmt.Printf("  System:       %s\n", cfg.DeliverySystem())
	fmt.Printf("  Demod addr:   0x%02X\n", cfg.DemodAddress)
	fmt.Printf("  Tuner addr:   0x%02X\n", cfg.TunerAddress)
	fmt.Printf("  Tuner xtal:   %v cap %d\n", cfg.Tuner.Xtal.Freq, cfg.Tuner.Xtal.Cap)
	fmt.Printf("  Tuner IF:     %v gain %d\n", cfg.Tuner.IFOut.Freq, cfg.Tuner.IFOut.Gain)
}
