// dtv-peek reads and writes raw registers of the bridge or, through the
// bridge's I2C proxy, of the demodulator
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/gousb"

	"github.com/herlein/godtv/pkg/avl6381"
	"github.com/herlein/godtv/pkg/cli"
	"github.com/herlein/godtv/pkg/it930x"
	"github.com/herlein/godtv/pkg/serialbridge"
	"github.com/herlein/godtv/pkg/usbbridge"
)

var (
	deviceSel = flag.String("d", "", usbbridge.DeviceFlagUsage())
	regFlag   = flag.String("r", "", "Register address (hex, e.g. 0x1222)")
	count     = flag.Int("n", 1, "Bridge: number of bytes to read")
	write     = flag.String("w", "", "Value(s) to write (hex, comma separated bytes for the bridge)")
	demod     = flag.Bool("demod", false, "Access the demodulator instead of the bridge")
	demodAddr = flag.Uint("addr", avl6381.DefaultAddress, "Demodulator I2C address")
	width     = flag.Int("width", 32, "Demodulator register width in bits (8, 16, 32)")
	serialDev = flag.String("serial", "", "Reach the bridge over a UART bench link instead of USB")
	baud      = flag.Int("baud", 115200, "Baud rate with -serial")
	verbose   = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] -r <reg>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Raw register access\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -r 0x1222 -n 3                 # Bridge chip version\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -r 0xd8b4 -w 0x01              # Write a bridge register\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -demod -r 0x040000            # Demodulator family id\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -serial /dev/ttyUSB0 -r 0x1222 -n 3\n", os.Args[0])
	}
	flag.Parse()

	if err := run(); err != nil {
		cli.Fatalf("%v", err)
	}
}

func run() error {
	if *regFlag == "" {
		flag.Usage()
		os.Exit(2)
	}
	reg, err := strconv.ParseUint(*regFlag, 0, 32)
	if err != nil {
		return fmt.Errorf("invalid register %q: %w", *regFlag, err)
	}

	log := cli.NewLogger(*verbose)

	var b *it930x.Bridge
	if *serialDev != "" {
		cfg := serialbridge.DefaultConfig(*serialDev)
		cfg.Baud = *baud
		conn, err := serialbridge.Open(cfg)
		if err != nil {
			return err
		}
		defer conn.Close()
		b = it930x.NewBridge(conn, it930x.WithLogger(log.WithValues("port", *serialDev)))
	} else {
		ctx := gousb.NewContext()
		defer ctx.Close()

		stick, err := cli.OpenStick(ctx, *deviceSel, log)
		if err != nil {
			return fmt.Errorf("failed to open device: %w", err)
		}
		defer stick.Close()
		b = stick.Bridge
	}

	if *demod {
		return peekDemod(b, uint32(reg))
	}
	return peekBridge(b, uint32(reg))
}

func peekBridge(b *it930x.Bridge, reg uint32) error {
	if *write != "" {
		data, err := parseBytes(*write)
		if err != nil {
			return err
		}
		if err := b.WriteRegs(reg, data); err != nil {
			return err
		}
		fmt.Printf("0x%04X <- % X\n", reg, data)
		return nil
	}

	data, err := b.ReadRegs(reg, *count)
	if err != nil {
		return err
	}
	fmt.Printf("0x%04X: % X\n", reg, data)
	return nil
}

func peekDemod(b *it930x.Bridge, reg uint32) error {
	var w avl6381.Width
	switch *width {
	case 8:
		w = avl6381.W8
	case 16:
		w = avl6381.W16
	case 32:
		w = avl6381.W32
	default:
		return fmt.Errorf("invalid width %d", *width)
	}

	// the proxy variant depends on the chip type read here
	if _, err := b.Identify(); err != nil {
		return err
	}
	regs := avl6381.NewRegs(b.I2C(), uint8(*demodAddr))

	if *write != "" {
		v, err := strconv.ParseUint(*write, 0, *width)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", *write, err)
		}
		if err := regs.Write(reg, uint32(v), w); err != nil {
			return err
		}
		fmt.Printf("0x%06X <- 0x%X\n", reg, v)
		return nil
	}

	v, err := regs.Read(reg, w)
	if err != nil {
		return err
	}
	fmt.Printf("0x%06X: 0x%0*X\n", reg, *width/4, v)
	return nil
}

func parseBytes(s string) ([]byte, error) {
	var out []byte
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 0, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid byte %q: %w", f, err)
		}
		out = append(out, byte(v))
	}
	return out, nil
}
