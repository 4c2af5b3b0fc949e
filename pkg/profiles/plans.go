package profiles

import (
	"fmt"
	"sort"
)

// NewChinaDTMB creates the GB20600 terrestrial plan: DS-6 to DS-12 in VHF
// band III and DS-13 to DS-56 in UHF, all 8 MHz wide
func NewChinaDTMB() *Plan {
	var ch []Channel
	ch = raster(ch, "DS-", 6, 171000000, 8000000, 7, BW8MHz)
	ch = raster(ch, "DS-", 13, 474000000, 8000000, 12, BW8MHz)
	ch = raster(ch, "DS-", 25, 610000000, 8000000, 32, BW8MHz)
	return &Plan{
		Name:        "cn-dtmb",
		Description: "China DTMB, DS-6 to DS-56",
		System:      "dtmb",
		Channels:    ch,
	}
}

// NewEuropeDVBT creates the European terrestrial plan: E5 to E12 at 7 MHz
// and E21 to E69 at 8 MHz
func NewEuropeDVBT() *Plan {
	var ch []Channel
	ch = raster(ch, "E", 5, 177500000, 7000000, 8, BW7MHz)
	ch = raster(ch, "E", 21, 474000000, 8000000, 49, BW8MHz)
	return &Plan{
		Name:        "eu-dvbt",
		Description: "Europe DVB-T, E5 to E12 and E21 to E69",
		System:      "dvbt",
		Channels:    ch,
	}
}

// NewCableRaster creates a DVB-C plan on a fixed 8 MHz raster from startHz
// up to and including stopHz. Channels are named by their centre in MHz.
func NewCableRaster(name string, startHz, stopHz uint32) *Plan {
	var ch []Channel
	for f := startHz; f <= stopHz; f += 8000000 {
		ch = append(ch, Channel{
			Name:        fmt.Sprintf("C%d", f/1000000),
			FrequencyHz: f,
			BandwidthHz: BW8MHz,
		})
	}
	return &Plan{
		Name:        name,
		Description: fmt.Sprintf("DVB-C 8 MHz raster %d-%d MHz", startHz/1000000, stopHz/1000000),
		System:      "dvbc",
		Channels:    ch,
	}
}

// NewEuropeCable creates the common European cable raster 114-858 MHz
func NewEuropeCable() *Plan {
	return NewCableRaster("eu-cable", 114000000, 858000000)
}

// NewChinaCable creates the Chinese cable raster 115-859 MHz clipped to the
// receivable range
func NewChinaCable() *Plan {
	return NewCableRaster("cn-cable", 115000000, 851000000)
}

// Builtin returns every built-in plan keyed by name
func Builtin() map[string]*Plan {
	plans := map[string]*Plan{}
	for _, p := range []*Plan{
		NewChinaDTMB(),
		NewEuropeDVBT(),
		NewEuropeCable(),
		NewChinaCable(),
	} {
		plans[p.Name] = p
	}
	return plans
}

// Names returns the built-in plan names in order
func Names() []string {
	var names []string
	for name := range Builtin() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName returns a built-in plan, or loads one from a file when name is a
// path ending in .json
func ByName(name string) (*Plan, error) {
	if p, ok := Builtin()[name]; ok {
		return p, nil
	}
	if len(name) > 5 && name[len(name)-5:] == ".json" {
		return LoadPlanFromFile(name)
	}
	return nil, fmt.Errorf("unknown plan %q (built-in: %v)", name, Names())
}

// GeneratePlans writes every built-in plan to basePath
func GeneratePlans(basePath string) error {
	if err := EnsureDir(basePath + "/dummy"); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	for _, name := range Names() {
		p := Builtin()[name]
		filename := fmt.Sprintf("%s/%s.json", basePath, p.Name)
		if err := p.SaveToFile(filename); err != nil {
			return fmt.Errorf("failed to save plan %s: %w", p.Name, err)
		}
	}

	return nil
}
