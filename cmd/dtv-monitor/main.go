// dtv-monitor attaches every selected stick concurrently, holds each on its
// channel and exports the signal status as Prometheus metrics, as JSON on
// /status and, when configured, over MQTT
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/gousb"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/herlein/godtv/pkg/cli"
	"github.com/herlein/godtv/pkg/config"
	"github.com/herlein/godtv/pkg/frontend"
	"github.com/herlein/godtv/pkg/publish"
	"github.com/herlein/godtv/pkg/usbbridge"
)

var (
	configPath = flag.String("config", "", "Monitor config YAML")
	listen     = flag.String("listen", "", "HTTP listen address (overrides config)")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Monitor IT930x sticks and export their signal status\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEndpoints:\n")
		fmt.Fprintf(os.Stderr, "  /metrics   Prometheus metrics\n")
		fmt.Fprintf(os.Stderr, "  /status    latest status of every stick as JSON\n")
	}
	flag.Parse()

	if err := run(); err != nil {
		cli.Fatalf("%v", err)
	}
}

// target is one monitored stick
type target struct {
	stick   *cli.Stick
	entry   DeviceEntry
	cfg     *config.DeviceConfig
	channel string
	fe      *frontend.Frontend
}

// bringUp attaches the frontend and tunes the configured channel
func (t *target) bringUp(log logr.Logger) error {
	fe, err := t.stick.Attach(t.cfg, log)
	if err != nil {
		return fmt.Errorf("%s: attach failed: %w", t.stick.Device.Name(), err)
	}
	t.fe = fe
	if t.cfg.Frequency == 0 {
		return fmt.Errorf("%s: no frequency configured", t.stick.Device.Name())
	}
	if err := fe.Tune(t.cfg.DeliverySystem(), t.cfg.Frequency, t.cfg.Bandwidth); err != nil {
		return fmt.Errorf("%s: %w", t.stick.Device.Name(), err)
	}
	return nil
}

// board holds the latest snapshot per stick for /status
type board struct {
	mu    sync.RWMutex
	snaps map[string]publish.Snapshot
}

func (b *board) set(s publish.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snaps[s.Serial] = s
}

func (b *board) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	b.mu.RLock()
	list := make([]publish.Snapshot, 0, len(b.snaps))
	for _, s := range b.snaps {
		list = append(list, s)
	}
	b.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Serial < list[j].Serial })

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// monitor reads the status of t every interval until ctx ends. Read and
// publish failures are logged and retried on the next tick.
func (t *target) monitor(ctx context.Context, interval time.Duration, b *board, em *publish.Emitter, log logr.Logger) error {
	log = log.WithValues("serial", t.stick.Device.Name(), "session", t.fe.Session())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		st, err := t.fe.ReadStatus()
		if err != nil {
			log.Error(err, "status read failed")
		} else {
			snap := publish.Snapshot{
				Serial:    t.stick.Device.Name(),
				Session:   t.fe.Session(),
				Channel:   t.channel,
				Timestamp: time.Now(),
				Status:    st,
			}
			b.set(snap)
			log.V(1).Info("status", "locked", st.Locked, "strength", st.Strength, "cnr", st.CNRdB())
			if em != nil {
				if err := em.Publish(ctx, snap); err != nil {
					log.Error(err, "publish failed")
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// assign pairs the configured entries with attached sticks and closes the
// sticks nobody asked for
func assign(mcfg *MonitorConfig, devices []*usbbridge.Device, log logr.Logger) ([]*target, error) {
	used := make([]bool, len(devices))
	var targets []*target

	if len(mcfg.Devices) == 0 {
		for i, d := range devices {
			used[i] = true
			targets = append(targets, &target{stick: cli.Wrap(d, log)})
		}
	}
	for _, e := range mcfg.Devices {
		i, err := usbbridge.DeviceSelector(e.Device).Match(devices)
		if err == nil && used[i] {
			err = fmt.Errorf("device %s selected twice", devices[i].Name())
		}
		if err != nil {
			for j, d := range devices {
				if !used[j] {
					d.Close()
				}
			}
			closeAll(targets)
			return nil, fmt.Errorf("device %q: %w", e.Device, err)
		}
		used[i] = true
		targets = append(targets, &target{stick: cli.Wrap(devices[i], log), entry: e})
	}

	for i, d := range devices {
		if !used[i] {
			d.Close()
		}
	}

	for _, t := range targets {
		cfg, err := cli.LoadDeviceConfig(t.stick.Device.Serial, t.entry.Config)
		if err != nil {
			closeAll(targets)
			return nil, fmt.Errorf("%s: %w", t.stick.Device.Name(), err)
		}
		t.channel, err = t.entry.Apply(cfg)
		if err != nil {
			closeAll(targets)
			return nil, fmt.Errorf("%s: %w", t.stick.Device.Name(), err)
		}
		t.cfg = cfg
	}
	return targets, nil
}

func closeAll(targets []*target) {
	for _, t := range targets {
		t.stick.Close()
	}
}

func run() error {
	log := cli.NewLogger(*verbose)

	mcfg, err := loadMonitorConfig(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		mcfg.Listen = *listen
	}

	usb := gousb.NewContext()
	defer usb.Close()

	devices, err := usbbridge.FindAllDevices(usb)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return usbbridge.ErrNoDevice
	}

	targets, err := assign(mcfg, devices, log)
	if err != nil {
		return err
	}
	defer closeAll(targets)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var up errgroup.Group
	for _, t := range targets {
		t := t
		up.Go(func() error { return t.bringUp(log) })
	}
	err = up.Wait()
	for _, t := range targets {
		if t.fe != nil {
			defer t.fe.Sleep()
		}
	}
	if err != nil {
		return err
	}
	log.Info("sticks tuned", "count", len(targets))

	var em *publish.Emitter
	if mcfg.MQTT != nil {
		em = publish.NewEmitter(*mcfg.MQTT, publish.WithLogger(log))
		if err := em.Connect(ctx); err != nil {
			return err
		}
		defer em.Disconnect()
	}

	b := &board{snaps: map[string]publish.Snapshot{}}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/status", b)
	srv := &http.Server{Addr: mcfg.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("serving metrics", "listen", mcfg.Listen)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	for _, t := range targets {
		t := t
		g.Go(func() error { return t.monitor(gctx, mcfg.Interval, b, em, log) })
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Info("stopped")
		return nil
	}
	return err
}
