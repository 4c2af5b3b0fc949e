package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/herlein/godtv/pkg/frontend"
	"github.com/herlein/godtv/pkg/it930x"
	"github.com/herlein/godtv/pkg/profiles"
)

// fakeTuner locks on the frequencies in cnr, reporting that CNR in dB
type fakeTuner struct {
	mu      sync.Mutex
	cnr     map[uint32]float64
	tuneErr map[uint32]error
	tuned   []uint32
	system  it930x.DeliverySystem
	freq    uint32
}

func (f *fakeTuner) Tune(system it930x.DeliverySystem, freq, bw uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tuned = append(f.tuned, freq)
	f.system, f.freq = system, freq
	return f.tuneErr[freq]
}

func (f *fakeTuner) ReadStatus() (frontend.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := frontend.Status{System: f.system.String(), Frequency: f.freq}
	if db, ok := f.cnr[f.freq]; ok {
		st.Locked = true
		st.CNR = int64(db * 1000)
		st.Strength = -40000
	}
	return st, nil
}

func testPlan() *profiles.Plan {
	return profiles.NewChinaDTMB().Between(474000000, 506000000)
}

func TestScanOnce(t *testing.T) {
	g := NewWithT(t)
	tuner := &fakeTuner{
		cnr:     map[uint32]float64{482000000: 25, 498000000: 4},
		tuneErr: map[uint32]error{490000000: errors.New("lock failed")},
	}
	cfg := DefaultConfig(testPlan())
	cfg.MinCNR = 10
	s := New(tuner, cfg)

	result, err := s.ScanOnce(context.Background())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(tuner.tuned).To(Equal([]uint32{474000000, 482000000, 490000000, 498000000, 506000000}))
	g.Expect(tuner.system).To(Equal(it930x.DeliveryDTMB))
	g.Expect(result.Channels).To(HaveLen(5))

	found := result.Found()
	g.Expect(found).To(HaveLen(1))
	g.Expect(found[0].Channel.Name).To(Equal("DS-14"))
	g.Expect(result.Channels[2].Err).To(Equal("lock failed"))
	g.Expect(result.Channels[3].Status.Locked).To(BeTrue())
	g.Expect(result.Channels[3].Found).To(BeFalse(), "below MinCNR")

	best, ok := result.Best()
	g.Expect(ok).To(BeTrue())
	g.Expect(best.Channel.FrequencyHz).To(Equal(uint32(482000000)))

	active := s.ActiveChannels()
	g.Expect(active).To(HaveLen(1))
	g.Expect(active[0].CNR).To(BeNumerically("~", 25, 0.001))

	s.ClearChannelHistory()
	g.Expect(s.ActiveChannels()).To(BeEmpty())
}

func TestScanOnceDwell(t *testing.T) {
	g := NewWithT(t)
	cfg := DefaultConfig(testPlan())
	cfg.DwellTime = 100 * time.Millisecond
	s := New(&fakeTuner{}, cfg).(*scanner)
	var slept []time.Duration
	s.sleep = func(d time.Duration) { slept = append(slept, d) }

	_, err := s.ScanOnce(context.Background())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(slept).To(HaveLen(5))
	g.Expect(slept[0]).To(Equal(100 * time.Millisecond))
}

func TestScanOnceCancelled(t *testing.T) {
	g := NewWithT(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tuner := &fakeTuner{}
	_, err := New(tuner, DefaultConfig(testPlan())).ScanOnce(ctx)
	g.Expect(err).To(MatchError(context.Canceled))
	g.Expect(tuner.tuned).To(BeEmpty())
}

func TestScanOnceInvalidConfig(t *testing.T) {
	g := NewWithT(t)
	_, err := New(&fakeTuner{}, DefaultConfig(&profiles.Plan{Name: "empty", System: "dvbc"})).ScanOnce(context.Background())
	g.Expect(err).To(MatchError(ErrNoChannels))
}

func TestLifecycle(t *testing.T) {
	g := NewWithT(t)
	s := New(&fakeTuner{}, DefaultConfig(testPlan()))
	g.Expect(s.IsRunning()).To(BeFalse())
	g.Expect(s.Stop()).To(MatchError(ErrScannerNotRunning))
	g.Expect(s.Start()).To(Succeed())
	g.Expect(s.Start()).To(MatchError(ErrScannerRunning))
	g.Expect(s.IsRunning()).To(BeTrue())
	g.Expect(s.Stop()).To(Succeed())
}

func TestSetConfig(t *testing.T) {
	g := NewWithT(t)
	s := New(&fakeTuner{}, DefaultConfig(testPlan()))

	bad := DefaultConfig(testPlan())
	bad.LostThreshold = bad.HoldMax
	g.Expect(s.SetConfig(bad)).To(MatchError(ErrInvalidTracking))

	good := DefaultConfig(profiles.NewEuropeCable())
	g.Expect(s.SetConfig(good)).To(Succeed())
	g.Expect(s.GetConfig()).To(BeIdenticalTo(good))
}

func TestScanContinuous(t *testing.T) {
	g := NewWithT(t)
	tuner := &fakeTuner{cnr: map[uint32]float64{474000000: 20}}
	cfg := DefaultConfig(testPlan())
	cfg.ScanInterval = time.Millisecond

	var mu sync.Mutex
	var detected []string
	cfg.OnChannelDetected = func(info ChannelInfo) {
		mu.Lock()
		defer mu.Unlock()
		detected = append(detected, info.Channel.Name)
	}
	s := New(tuner, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan *ScanResult, 10)
	done := make(chan error, 1)
	go func() { done <- s.ScanContinuous(ctx, results) }()

	var first *ScanResult
	g.Eventually(results).Should(Receive(&first))
	g.Expect(first.Found()).To(HaveLen(1))
	g.Eventually(s.IsRunning).Should(BeTrue())

	cancel()
	g.Eventually(done).Should(Receive(MatchError(context.Canceled)))
	g.Expect(s.IsRunning()).To(BeFalse())
	g.Eventually(results).Should(BeClosed())

	mu.Lock()
	defer mu.Unlock()
	g.Expect(detected).To(Equal([]string{"DS-13"}))
}

func TestScanContinuousStop(t *testing.T) {
	g := NewWithT(t)
	cfg := DefaultConfig(testPlan())
	cfg.ScanInterval = time.Hour
	s := New(&fakeTuner{}, cfg)

	results := make(chan *ScanResult, 1)
	done := make(chan error, 1)
	go func() { done <- s.ScanContinuous(context.Background(), results) }()

	g.Eventually(results).Should(Receive())
	g.Eventually(s.IsRunning).Should(BeTrue())
	g.Expect(s.Stop()).To(Succeed())
	g.Eventually(done).Should(Receive(BeNil()))
}

func TestNewFromConfigFile(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "scan.yaml")
	g.Expect(os.WriteFile(path, []byte(`
name: cable-low
version: "1.0"
channels:
  plan: eu-cable
  max_hz: 130000000
scan_parameters:
  min_cnr_db: 12
  scan_interval_ms: 5000
channel_tracking:
  hold_max: 5
  lost_threshold: 2
smoothing:
  enabled: false
`), 0644)).To(Succeed())

	s, err := NewFromConfigFile(&fakeTuner{}, path)
	g.Expect(err).NotTo(HaveOccurred())
	cfg := s.GetConfig()
	g.Expect(cfg.Plan.Channels).To(HaveLen(3))
	g.Expect(cfg.MinCNR).To(Equal(12.0))
	g.Expect(cfg.ScanInterval).To(Equal(5 * time.Second))
	g.Expect(cfg.HoldMax).To(Equal(5))
	g.Expect(cfg.LostThreshold).To(Equal(2))
	g.Expect(cfg.SmoothingEnabled).To(BeFalse())
}
