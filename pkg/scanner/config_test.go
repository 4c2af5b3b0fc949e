package scanner

import (
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/herlein/godtv/pkg/frontend"
	"github.com/herlein/godtv/pkg/profiles"
)

func TestScanConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ScanConfig)
		want   error
	}{
		{"defaults", func(*ScanConfig) {}, nil},
		{"no plan", func(c *ScanConfig) { c.Plan = nil }, ErrNoChannels},
		{"negative cnr", func(c *ScanConfig) { c.MinCNR = -1 }, ErrInvalidThreshold},
		{"dwell too long", func(c *ScanConfig) { c.DwellTime = 3 * time.Second }, ErrInvalidDwellTime},
		{"lost at hold", func(c *ScanConfig) { c.LostThreshold = c.HoldMax }, ErrInvalidTracking},
		{"zero hold", func(c *ScanConfig) { c.HoldMax = 0 }, ErrInvalidTracking},
		{"bad system", func(c *ScanConfig) { c.Plan.System = "atsc" }, frontend.ErrUnsupportedSystem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			c := DefaultConfig(profiles.NewChinaDTMB())
			tt.modify(c)
			if tt.want == nil {
				g.Expect(c.Validate()).To(Succeed())
				return
			}
			g.Expect(c.Validate()).To(MatchError(tt.want))
		})
	}
}

func TestConfigFileValidate(t *testing.T) {
	base := func() ConfigFile {
		return ConfigFile{Name: "t", Version: ConfigVersion, Channels: ChannelConfig{Plan: "cn-dtmb"}}
	}
	tests := []struct {
		name   string
		modify func(*ConfigFile)
		want   error
	}{
		{"version", func(c *ConfigFile) { c.Version = "2.0" }, ErrConfigVersion},
		{"no channels", func(c *ConfigFile) { c.Channels.Plan = "" }, ErrNoChannels},
		{"bands without system", func(c *ConfigFile) {
			c.Channels.Plan = ""
			c.Channels.Bands = []BandConfig{{Name: "b", StartHz: 474000000, EndHz: 490000000, StepHz: 8000000, Enabled: true}}
		}, frontend.ErrUnsupportedSystem},
		{"negative cnr", func(c *ConfigFile) { c.ScanParameters.MinCNRdB = -3 }, ErrInvalidThreshold},
		{"dwell", func(c *ConfigFile) { c.ScanParameters.DwellTimeMs = 5000 }, ErrInvalidDwellTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			c := base()
			g.Expect(c.Validate()).To(Succeed())
			tt.modify(&c)
			g.Expect(c.Validate()).To(MatchError(tt.want))
		})
	}
}

func TestBuildPlan(t *testing.T) {
	g := NewWithT(t)

	cf := ConfigFile{Name: "bands", Version: ConfigVersion, Channels: ChannelConfig{
		System: "dvbc",
		Bands: []BandConfig{
			{Name: "low", StartHz: 30000000, EndHz: 58000000, StepHz: 8000000, Enabled: true},
			{Name: "off", StartHz: 474000000, EndHz: 858000000, StepHz: 8000000},
			{Name: "uhf", StartHz: 474000000, EndHz: 490000000, StepHz: 8000000, BandwidthHz: profiles.BW6MHz, Enabled: true},
		},
	}}
	p, err := cf.BuildPlan()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(p.Channels).To(HaveLen(5), "30 MHz dropped as out of range")
	g.Expect(p.Channels[0].FrequencyHz).To(Equal(uint32(46000000)))
	g.Expect(p.Channels[2]).To(Equal(profiles.Channel{Name: "uhf-474000", FrequencyHz: 474000000, BandwidthHz: profiles.BW6MHz}))

	cf = ConfigFile{Name: "only", Version: ConfigVersion, Channels: ChannelConfig{Plan: "cn-dtmb", Only: []string{"DS-21", "DS-7"}}}
	p, err = cf.BuildPlan()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(p.Channels).To(HaveLen(2))
	g.Expect(p.Channels[0].Name).To(Equal("DS-21"))

	cf.Channels.Only = []string{"DS-99"}
	_, err = cf.BuildPlan()
	g.Expect(err).To(MatchError(ContainSubstring("no channel")))

	cf = ConfigFile{Name: "min", Version: ConfigVersion, Channels: ChannelConfig{Plan: "cn-dtmb", MinHz: 600000000}}
	p, err = cf.BuildPlan()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(p.Channels).To(HaveLen(32))
}

func TestSaveLoadConfigFile(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "scan.yaml")
	cf := &ConfigFile{
		Name:           "dtmb-uhf",
		Version:        ConfigVersion,
		Channels:       ChannelConfig{Plan: "cn-dtmb", MinHz: 474000000},
		ScanParameters: ScanParameters{MinCNRdB: 8, DwellTimeMs: 50},
		Smoothing:      Smoothing{Enabled: true, KSlow: 0.5},
	}
	g.Expect(SaveConfigFile(cf, path)).To(Succeed())

	loaded, err := LoadConfigFile(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(loaded.Channels).To(Equal(cf.Channels))
	g.Expect(loaded.ScanParameters).To(Equal(cf.ScanParameters))

	sc, err := loaded.ToScanConfig()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(sc.DwellTime).To(Equal(50 * time.Millisecond))
	g.Expect(sc.ScanInterval).To(Equal(DefaultScanInterval))
	g.Expect(sc.SmoothKSlow).To(Equal(0.5))
	g.Expect(sc.SmoothKFast).To(Equal(DefaultKFast))
	g.Expect(sc.Plan.Channels).To(HaveLen(44))
}
