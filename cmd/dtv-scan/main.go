// dtv-scan sweeps a channel plan and reports the channels that lock
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/gousb"

	"github.com/herlein/godtv/pkg/cli"
	"github.com/herlein/godtv/pkg/profiles"
	"github.com/herlein/godtv/pkg/scanner"
	"github.com/herlein/godtv/pkg/usbbridge"
)

var (
	deviceSel  = flag.String("d", "", usbbridge.DeviceFlagUsage())
	devConfig  = flag.String("c", "", "Device config (default: etc/dtv/<serial>.yaml if present)")
	scanConfig = flag.String("config", "", "Scan config YAML (overrides -plan, -min-cnr, -interval)")
	planName   = flag.String("plan", "cn-dtmb", "Channel plan (built-in name or JSON file)")
	minCNR     = flag.Float64("min-cnr", scanner.DefaultMinCNR, "Minimum CNR in dB for a channel to count")
	continuous = flag.Bool("continuous", false, "Keep sweeping until interrupted")
	interval   = flag.Duration("interval", scanner.DefaultScanInterval, "Delay between sweeps with -continuous")
	duration   = flag.Duration("duration", 0, "Stop after this long (0 = indefinite)")
	format     = flag.String("format", scanner.FormatText, "Output format: text, csv, json")
	outFile    = flag.String("o", "", "Append results to this file instead of stdout")
	listPlans  = flag.Bool("list-plans", false, "List built-in channel plans")
	genPlans   = flag.String("gen-plans", "", "Write built-in plans as JSON into this directory")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "DTV channel scanner for IT930x sticks\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -plan cn-dtmb                   # One sweep of the DTMB raster\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -plan eu-cable -min-cnr 20      # Cable channels above 20 dB\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config scan.yaml -continuous   # Track channels over time\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -format csv -o scan.csv         # Log sweeps to CSV\n", os.Args[0])
	}
	flag.Parse()

	if err := run(); err != nil {
		cli.Fatalf("%v", err)
	}
}

func run() error {
	if *listPlans {
		for _, name := range profiles.Names() {
			p := profiles.Builtin()[name]
			fmt.Printf("  %-10s %-5s %3d channels  %s\n", p.Name, p.System, len(p.Channels), p.Description)
		}
		return nil
	}
	if *genPlans != "" {
		if err := profiles.GeneratePlans(*genPlans); err != nil {
			return err
		}
		fmt.Printf("Plans written to %s\n", *genPlans)
		return nil
	}

	log := cli.NewLogger(*verbose)

	cfg, outFormat, outPath, err := loadScanConfig(log)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if outPath != "" {
		f, err := os.OpenFile(outPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open output: %w", err)
		}
		defer f.Close()
		if info, err := f.Stat(); err == nil && info.Size() == 0 && outFormat == scanner.FormatCSV {
			if err := scanner.WriteCSVHeader(f); err != nil {
				return err
			}
		}
		out = f
	} else if outFormat == scanner.FormatCSV {
		if err := scanner.WriteCSVHeader(out); err != nil {
			return err
		}
	}

	usb := gousb.NewContext()
	defer usb.Close()

	stick, err := cli.OpenStick(usb, *deviceSel, log)
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}
	defer stick.Close()

	devCfg, err := cli.LoadDeviceConfig(stick.Device.Serial, *devConfig)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	fe, err := stick.Attach(devCfg, log)
	if err != nil {
		return fmt.Errorf("attach failed: %w", err)
	}
	defer fe.Sleep()

	fmt.Fprintf(os.Stderr, "Connected to: %s\n", stick.Device)
	fmt.Fprintf(os.Stderr, "Scanning plan %s (%s, %d channels)\n", cfg.Plan.Name, cfg.Plan.System, len(cfg.Plan.Channels))

	cfg.OnChannelDetected = func(info scanner.ChannelInfo) {
		fmt.Fprintf(os.Stderr, "SIGNAL: %s %.3f MHz CNR %.1f dB\n", info.Channel.Name, float64(info.Channel.FrequencyHz)/1e6, info.CNR)
	}
	cfg.OnChannelLost = func(info scanner.ChannelInfo) {
		fmt.Fprintf(os.Stderr, "LOST:   %s %.3f MHz (last seen %s)\n", info.Channel.Name, float64(info.Channel.FrequencyHz)/1e6, info.LastSeen.Format("15:04:05"))
	}
	s := scanner.New(fe, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	if !*continuous {
		result, err := s.ScanOnce(ctx)
		if err != nil {
			return err
		}
		if err := scanner.WriteResult(out, result, outFormat); err != nil {
			return err
		}
		summary(result)
		return nil
	}

	results := make(chan *scanner.ScanResult, 4)
	done := make(chan error, 1)
	go func() { done <- s.ScanContinuous(ctx, results) }()

	sweeps := 0
	for result := range results {
		sweeps++
		if err := scanner.WriteResult(out, result, outFormat); err != nil {
			return err
		}
		summary(result)
	}

	err = <-done
	fmt.Fprintf(os.Stderr, "\n--- Summary ---\n")
	fmt.Fprintf(os.Stderr, "Sweeps:   %d\n", sweeps)
	fmt.Fprintf(os.Stderr, "Channels: %d active\n", len(s.ActiveChannels()))
	for _, info := range s.ActiveChannels() {
		fmt.Fprintf(os.Stderr, "  %-8s %10.3f MHz  CNR %5.1f dB (max %.1f, seen %d times)\n",
			info.Channel.Name, float64(info.Channel.FrequencyHz)/1e6, info.CNR, info.MaxCNR, info.DetectionCount)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// loadScanConfig builds the runtime config from -config or the flags
func loadScanConfig(log logr.Logger) (*scanner.ScanConfig, string, string, error) {
	if *scanConfig != "" {
		cf, err := scanner.LoadConfigFile(*scanConfig)
		if err != nil {
			return nil, "", "", err
		}
		cfg, err := cf.ToScanConfig()
		if err != nil {
			return nil, "", "", err
		}
		cfg.Logger = log
		outFormat, outPath := *format, *outFile
		if cf.Output.LogChannels {
			if cf.Output.LogFormat != "" {
				outFormat = cf.Output.LogFormat
			}
			if cf.Output.LogPath != "" && outPath == "" {
				outPath = cf.Output.LogPath
			}
		}
		return cfg, outFormat, outPath, nil
	}

	plan, err := profiles.ByName(*planName)
	if err != nil {
		return nil, "", "", err
	}
	cfg := scanner.DefaultConfig(plan)
	cfg.MinCNR = *minCNR
	cfg.ScanInterval = *interval
	cfg.Logger = log
	if err := cfg.Validate(); err != nil {
		return nil, "", "", err
	}
	return cfg, *format, *outFile, nil
}

func summary(r *scanner.ScanResult) {
	found := r.Found()
	fmt.Fprintf(os.Stderr, "%s sweep: %d of %d channels found in %v\n",
		r.Timestamp.Format("15:04:05"), len(found), len(r.Channels), r.Duration.Round(time.Millisecond))
}
