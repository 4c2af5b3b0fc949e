// dtv-load-config: Attach an IT930x stick with a saved configuration
//
// This tool reads a configuration file written by dtv-dump-config, brings
// the stick up with it (firmware, demodulator, tuner calibration) and tunes
// the channel it names.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/gousb"

	"github.com/herlein/godtv/pkg/cli"
	"github.com/herlein/godtv/pkg/config"
	"github.com/herlein/godtv/pkg/usbbridge"
)

func main() {
	deviceSel := flag.String("d", "", usbbridge.DeviceFlagUsage()+"\n(default: the serial stored in the config)")
	verbose := flag.Bool("v", false, "Verbose output")
	verify := flag.Bool("verify", false, "Verify lock after tuning")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <config-file>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s etc/dtv/AF0102020700001.yaml\n", os.Args[0])
		os.Exit(1)
	}

	configPath := args[0]
	log := cli.NewLogger(*verbose)

	if *verbose {
		fmt.Printf("Loading configuration from: %s\n", configPath)
	}

	configuration, err := config.LoadFromFile(configPath)
	if err != nil {
		cli.Fatalf("Failed to load configuration: %v", err)
	}

	if *verbose {
		fmt.Printf("Configuration loaded:\n")
		fmt.Printf("  Original Serial:    %s\n", configuration.Serial)
		fmt.Printf("  Original Product:   %s %s\n", configuration.Manufacturer, configuration.Product)
		fmt.Printf("  Original Timestamp: %s\n", configuration.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Printf("  System:             %s\n", configuration.DeliverySystem())
		if configuration.Frequency != 0 {
			fmt.Printf("  Frequency:          %.3f MHz\n", float64(configuration.Frequency)/1e6)
		}
	}

	sel := *deviceSel
	if sel == "" {
		sel = configuration.Serial
	}

	context := gousb.NewContext()
	defer context.Close()

	stick, err := cli.OpenStick(context, sel, log)
	if err != nil {
		cli.Fatalf("%v", err)
	}
	defer stick.Close()

	if *verbose {
		fmt.Printf("\nConnected to: %s\n", stick.Device)
		fmt.Println("Attaching frontend...")
	}

	fe, err := stick.Attach(configuration, log)
	if err != nil {
		cli.Fatalf("Failed to apply configuration: %v", err)
	}

	fmt.Printf("Configuration applied successfully (firmware %s)\n", fe.Firmware())

	if configuration.Frequency == 0 {
		return
	}

	if err := fe.Tune(configuration.DeliverySystem(), configuration.Frequency, configuration.Bandwidth); err != nil {
		cli.Fatalf("Failed to tune: %v", err)
	}
	fmt.Printf("Tuned %s %.3f MHz\n", configuration.DeliverySystem(), float64(configuration.Frequency)/1e6)

	if *verify {
		if *verbose {
			fmt.Println("\nVerifying lock...")
		}
		st, err := fe.ReadStatus()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to read status: %v\n", err)
		} else if !st.Locked {
			cli.Fatalf("Verification failed: no lock (strength %d)", st.Strength)
		} else {
			fmt.Printf("Verification: OK (CNR %.1f dB)\n", st.CNRdB())
		}
	}
}
