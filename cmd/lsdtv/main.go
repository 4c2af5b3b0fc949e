// lsdtv: List all connected IT930x DTV sticks
//
// This tool enumerates all IT9303 based sticks connected to the system and
// displays their serial numbers and, with -v, the bridge identity and the
// running firmware version.
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
	verbose := flag.Bool("v", false, "Verbose output (show bridge identity and firmware)")
	flag.Parse()

	log := cli.NewLogger(false)

	context := gousb.NewContext()
	defer context.Close()

	devices, err := usbbridge.FindAllDevices(context)
	if err != nil {
		cli.Fatalf("Failed to enumerate devices: %v", err)
	}

	if len(devices) == 0 {
		fmt.Println("No IT930x devices found")
		os.Exit(0)
	}

	fmt.Printf("Found %d IT930x device(s):\n", len(devices))
	fmt.Println()

	for i, device := range devices {
		defer device.Close()

		if !*verbose {
			fmt.Printf("  #%d  %s  %s\n", i, device.Serial, device.Location())
			continue
		}

		fmt.Printf("Device #%d:\n", i)
		fmt.Printf("  Serial:       %s\n", device.Serial)
		fmt.Printf("  Bus:Address:  %s\n", device.Location())
		fmt.Printf("  Manufacturer: %s\n", device.Manufacturer)
		fmt.Printf("  Product:      %s\n", device.Product)
		fmt.Printf("  Link:         %s\n", speed(device.FullSpeed))

		stick := cli.Wrap(device, log)
		info, err := config.DumpFromBridge(device.Serial, device.Manufacturer, device.Product, stick.Bridge)
		if err != nil {
			fmt.Printf("  Bridge:       (error: %v)\n", err)
			fmt.Println()
			continue
		}
		fmt.Printf("  Bridge:       type %04X version %02X prechip %02X\n",
			info.Bridge.ChipType, info.Bridge.ChipVersion, info.Bridge.PrechipVersion)
		if info.Bridge.Firmware != "" {
			fmt.Printf("  Firmware:     %s\n", info.Bridge.Firmware)
		} else {
			fmt.Printf("  Firmware:     (not loaded)\n")
		}
		fmt.Println()
	}

	if !*verbose {
		fmt.Println()
		fmt.Println("Use -d flag with other tools to select device:")
		fmt.Println("  -d \"#0\"      Select by index")
		fmt.Println("  -d \"1:10\"    Select by bus:address")
		fmt.Println("  -d \"AF01\"    Select by serial (if unique)")
	}
}

func speed(full bool) string {
	if full {
		return "USB 1.1 full speed"
	}
	return "USB 2.0 high speed"
}
