package profiles

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/herlein/godtv/pkg/frontend"
	"github.com/herlein/godtv/pkg/it930x"
)

func TestBuiltinPlansValid(t *testing.T) {
	for name, p := range Builtin() {
		t.Run(name, func(t *testing.T) {
			g := NewWithT(t)
			g.Expect(p.Validate()).To(Succeed())
			g.Expect(p.Name).To(Equal(name))
		})
	}
}

func TestChannelLookup(t *testing.T) {
	tests := []struct {
		plan   *Plan
		name   string
		freq   uint32
		bw     uint32
		system it930x.DeliverySystem
	}{
		{NewChinaDTMB(), "DS-6", 171000000, BW8MHz, it930x.DeliveryDTMB},
		{NewChinaDTMB(), "DS-13", 474000000, BW8MHz, it930x.DeliveryDTMB},
		{NewChinaDTMB(), "DS-24", 562000000, BW8MHz, it930x.DeliveryDTMB},
		{NewChinaDTMB(), "DS-25", 610000000, BW8MHz, it930x.DeliveryDTMB},
		{NewChinaDTMB(), "DS-56", 858000000, BW8MHz, it930x.DeliveryDTMB},
		{NewEuropeDVBT(), "E5", 177500000, BW7MHz, it930x.DeliveryDVBT},
		{NewEuropeDVBT(), "E12", 226500000, BW7MHz, it930x.DeliveryDVBT},
		{NewEuropeDVBT(), "E69", 858000000, BW8MHz, it930x.DeliveryDVBT},
		{NewEuropeCable(), "C114", 114000000, BW8MHz, it930x.DeliveryDVBC},
		{NewEuropeCable(), "C858", 858000000, BW8MHz, it930x.DeliveryDVBC},
	}
	for _, tt := range tests {
		t.Run(tt.plan.Name+"/"+tt.name, func(t *testing.T) {
			g := NewWithT(t)
			c, ok := tt.plan.Channel(tt.name)
			g.Expect(ok).To(BeTrue())
			g.Expect(c.FrequencyHz).To(Equal(tt.freq))
			g.Expect(c.BandwidthHz).To(Equal(tt.bw))
			sys, err := tt.plan.DeliverySystem()
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(sys).To(Equal(tt.system))
		})
	}
}

func TestChannelCounts(t *testing.T) {
	g := NewWithT(t)
	g.Expect(NewChinaDTMB().Channels).To(HaveLen(7 + 12 + 32))
	g.Expect(NewEuropeDVBT().Channels).To(HaveLen(8 + 49))
	g.Expect(NewEuropeCable().Channels).To(HaveLen(94))
	_, ok := NewChinaDTMB().Channel("DS-57")
	g.Expect(ok).To(BeFalse())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
	}{
		{name: "bad system", plan: Plan{Name: "x", System: "atsc", Channels: []Channel{{Name: "a", FrequencyHz: 474000000}}}},
		{name: "empty", plan: Plan{Name: "x", System: "dvbc"}},
		{name: "out of range", plan: Plan{Name: "x", System: "dvbc", Channels: []Channel{{Name: "a", FrequencyHz: 900000000}}}},
		{name: "duplicate", plan: Plan{Name: "x", System: "dvbc", Channels: []Channel{
			{Name: "a", FrequencyHz: 474000000}, {Name: "a", FrequencyHz: 482000000},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			NewWithT(t).Expect(tt.plan.Validate()).NotTo(Succeed())
		})
	}

	p := Plan{Name: "x", System: "dvbc", Channels: []Channel{{Name: "a", FrequencyHz: 30000000}}}
	NewWithT(t).Expect(p.Validate()).To(MatchError(frontend.ErrFrequencyRange))
}

func TestBetween(t *testing.T) {
	g := NewWithT(t)
	p := NewChinaDTMB().Between(470000000, 570000000)
	g.Expect(p.Channels).To(HaveLen(12))
	g.Expect(p.Channels[0].Name).To(Equal("DS-13"))
	g.Expect(NewChinaDTMB().Channels).To(HaveLen(51), "plan left unchanged")
}

func TestByName(t *testing.T) {
	g := NewWithT(t)
	p, err := ByName("eu-dvbt")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(p.System).To(Equal("dvbt"))

	_, err = ByName("mars-dvbc")
	g.Expect(err).To(MatchError(ContainSubstring("unknown plan")))
}

func TestGenerateAndLoad(t *testing.T) {
	g := NewWithT(t)
	dir := filepath.Join(t.TempDir(), "plans")
	g.Expect(GeneratePlans(dir)).To(Succeed())

	entries, err := os.ReadDir(dir)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(entries).To(HaveLen(len(Builtin())))

	p, err := ByName(filepath.Join(dir, "cn-dtmb.json"))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(p.Channels).To(Equal(NewChinaDTMB().Channels))
}
