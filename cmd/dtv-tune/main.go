// dtv-tune attaches a stick, tunes one channel and prints the signal status
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gousb"

	"github.com/herlein/godtv/pkg/cli"
	"github.com/herlein/godtv/pkg/config"
	"github.com/herlein/godtv/pkg/frontend"
	"github.com/herlein/godtv/pkg/profiles"
	"github.com/herlein/godtv/pkg/usbbridge"
)

var (
	deviceSel  = flag.String("d", "", usbbridge.DeviceFlagUsage())
	configPath = flag.String("c", "", "Device config (default: etc/dtv/<serial>.yaml if present)")
	system     = flag.String("s", "", "Delivery system: dtmb, dvbt, dvbc (default from config)")
	freqMHz    = flag.Float64("f", 0, "Frequency in MHz")
	bwMHz      = flag.Float64("bw", 0, "Bandwidth in MHz (default from config)")
	planName   = flag.String("plan", "", "Channel plan for -ch (built-in name or JSON file)")
	channel    = flag.String("ch", "", "Channel name from -plan")
	watch      = flag.Duration("watch", 0, "Re-read status at this interval until interrupted")
	jsonOut    = flag.Bool("json", false, "Print status as JSON")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Tune an IT930x stick and report lock and signal quality\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -s dvbc -f 474                # Cable channel at 474 MHz\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -plan cn-dtmb -ch DS-21       # DTMB channel by name\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -f 538 -s dtmb -watch 1s      # Follow the signal\n", os.Args[0])
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

	cfg, err := cli.LoadDeviceConfig(stick.Device.Serial, *configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := target(cfg); err != nil {
		return err
	}
	if cfg.Frequency == 0 {
		return fmt.Errorf("no frequency: use -f, -ch or set frequency in the config")
	}

	fe, err := stick.Attach(cfg, log)
	if err != nil {
		return fmt.Errorf("attach failed: %w", err)
	}
	defer fe.Sleep()

	fmt.Printf("Connected to: %s (firmware %s)\n", stick.Device, fe.Firmware())
	fmt.Printf("Tuning %s %.3f MHz (%.0f MHz wide)...\n",
		cfg.DeliverySystem(), float64(cfg.Frequency)/1e6, float64(cfg.Bandwidth)/1e6)

	if err := fe.Tune(cfg.DeliverySystem(), cfg.Frequency, cfg.Bandwidth); err != nil {
		return err
	}

	if *watch <= 0 {
		return report(fe)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	ticker := time.NewTicker(*watch)
	defer ticker.Stop()
	for {
		if err := report(fe); err != nil {
			return err
		}
		select {
		case <-sigChan:
			fmt.Println("\nStopping...")
			return nil
		case <-ticker.C:
		}
	}
}

// target applies the command line channel selection on top of cfg
func target(cfg *config.DeviceConfig) error {
	if *system != "" {
		cfg.System = *system
	}
	if *bwMHz > 0 {
		cfg.Bandwidth = uint32(*bwMHz * 1e6)
	}

	if *channel != "" {
		if *planName == "" {
			return fmt.Errorf("-ch needs -plan")
		}
		plan, err := profiles.ByName(*planName)
		if err != nil {
			return err
		}
		ch, ok := plan.Channel(*channel)
		if !ok {
			return fmt.Errorf("plan %s has no channel %q", plan.Name, *channel)
		}
		if *system == "" {
			cfg.System = plan.System
		}
		cfg.Frequency = ch.FrequencyHz
		cfg.Bandwidth = ch.BandwidthHz
	}
	if *freqMHz > 0 {
		cfg.Frequency = uint32(*freqMHz*1e6 + 0.5)
	}
	return cfg.Validate()
}

func report(fe *frontend.Frontend) error {
	st, err := fe.ReadStatus()
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	if *jsonOut {
		data, err := json.Marshal(st)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	lock := "NO LOCK"
	if st.Locked {
		lock = "LOCKED"
	}
	ber := 0.0
	if st.PreBitCount > 0 {
		ber = float64(st.PreBitErrors) / float64(st.PreBitCount)
	}
	fmt.Printf("%s %-7s strength %6d  rx %6.2f dBm  CNR %5.1f dB  pre-BER %.2e\n",
		time.Now().Format("15:04:05"), lock, st.Strength, float64(st.RxPower)/100, st.CNRdB(), ber)
	return nil
}
