package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/herlein/godtv/pkg/config"
	"github.com/herlein/godtv/pkg/frontend"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMonitorConfig(t *testing.T) {
	g := NewWithT(t)

	cfg, err := loadMonitorConfig(writeFile(t, `
listen: ":9100"
interval: 30s
mqtt:
  qos: 1
devices:
  - device: AF0102020700001
    plan: cn-dtmb
    channel: DS-13
  - device: "1"
    system: dvbc
    frequency_hz: 346000000
`))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.Listen).To(Equal(":9100"))
	g.Expect(cfg.Interval).To(Equal(30 * time.Second))
	g.Expect(cfg.MQTT).NotTo(BeNil())
	g.Expect(cfg.MQTT.Broker).To(Equal("localhost:1883"))
	g.Expect(cfg.MQTT.Prefix).To(Equal("dtv"))
	g.Expect(cfg.MQTT.QoS).To(BeEquivalentTo(1))
	g.Expect(cfg.Devices).To(HaveLen(2))
	g.Expect(cfg.Devices[1].FrequencyHz).To(BeEquivalentTo(346000000))
}

func TestLoadMonitorConfigDefaults(t *testing.T) {
	g := NewWithT(t)

	cfg, err := loadMonitorConfig("")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.Listen).To(Equal(":9090"))
	g.Expect(cfg.Interval).To(Equal(10 * time.Second))
	g.Expect(cfg.MQTT).To(BeNil())
	g.Expect(cfg.Devices).To(BeEmpty())

	_, err = loadMonitorConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	g.Expect(err).To(HaveOccurred())
}

func TestMonitorConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"zero interval", "interval: 0s\n", "interval"},
		{"bad qos", "mqtt:\n  qos: 3\n", "qos"},
		{"empty selector", "devices:\n  - plan: cn-dtmb\n", "empty selector"},
		{"duplicate", "devices:\n  - device: \"1\"\n  - device: \"1\"\n", "twice"},
		{"channel without plan", "devices:\n  - device: \"1\"\n    channel: DS-13\n", "needs a plan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			_, err := loadMonitorConfig(writeFile(t, tt.body))
			g.Expect(err).To(MatchError(ContainSubstring(tt.wantErr)))
		})
	}
}

func TestDeviceEntryApply(t *testing.T) {
	g := NewWithT(t)

	cfg := config.Default("AF0102020700001")
	name, err := DeviceEntry{Device: "1", Plan: "cn-dtmb", Channel: "DS-13"}.Apply(cfg)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(name).To(Equal("DS-13"))
	g.Expect(cfg.System).To(Equal("dtmb"))
	g.Expect(cfg.Frequency).To(BeEquivalentTo(474000000))
	g.Expect(cfg.Bandwidth).To(BeEquivalentTo(8000000))

	// explicit fields win over the plan
	cfg = config.Default("AF0102020700001")
	name, err = DeviceEntry{Device: "1", Plan: "cn-dtmb", Channel: "DS-13", FrequencyHz: 482000000}.Apply(cfg)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(name).To(Equal("DS-13"))
	g.Expect(cfg.Frequency).To(BeEquivalentTo(482000000))

	cfg = config.Default("AF0102020700001")
	name, err = DeviceEntry{Device: "1", System: "dvbc", FrequencyHz: 346000000}.Apply(cfg)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(name).To(BeEmpty())
	g.Expect(cfg.DeliverySystem()).To(Equal(config.Default("").DeliverySystem()))
}

func TestDeviceEntryApplyErrors(t *testing.T) {
	tests := []struct {
		name  string
		entry DeviceEntry
		check func(g *WithT, err error)
	}{
		{
			name:  "unknown channel",
			entry: DeviceEntry{Device: "1", Plan: "cn-dtmb", Channel: "DS-99"},
			check: func(g *WithT, err error) { g.Expect(err).To(MatchError(ContainSubstring("no channel"))) },
		},
		{
			name:  "unknown plan",
			entry: DeviceEntry{Device: "1", Plan: "nowhere", Channel: "X"},
			check: func(g *WithT, err error) { g.Expect(err).To(HaveOccurred()) },
		},
		{
			name:  "out of range",
			entry: DeviceEntry{Device: "1", FrequencyHz: 900000000},
			check: func(g *WithT, err error) { g.Expect(err).To(MatchError(frontend.ErrFrequencyRange)) },
		},
		{
			name:  "bad system",
			entry: DeviceEntry{Device: "1", System: "atsc"},
			check: func(g *WithT, err error) { g.Expect(err).To(MatchError(frontend.ErrUnsupportedSystem)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			_, err := tt.entry.Apply(config.Default("AF0102020700001"))
			tt.check(g, err)
		})
	}
}
