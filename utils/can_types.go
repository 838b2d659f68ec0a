package utils

import (
	"sort"

	"github.com/samber/lo"
)

// Frame directions as they appear in the CAN map, seen from the planner.
const (
	DirectionRX = "rx"
	DirectionTX = "tx"
)

type SignalDef struct {
	Name       string
	StartBit   int
	BitLength  int
	Signed     bool
	Factor     float64
	Offset     float64
	Min        float64
	Max        float64
	Default    float64
	Unit       string
	Comment    string
	Endianness string // only "little" supported
}

type FrameDef struct {
	ID        uint32
	Name      string
	DLC       int
	Direction string
	CycleMS   int
	Signals   []SignalDef
}

// Signal looks up a signal by name.
func (f *FrameDef) Signal(name string) (SignalDef, bool) {
	return lo.Find(f.Signals, func(s SignalDef) bool { return s.Name == name })
}

type CANMap struct {
	ByID   map[uint32]*FrameDef
	ByName map[string]*FrameDef
}

func (m *CANMap) FrameNames() []string {
	out := lo.Keys(m.ByName)
	sort.Strings(out)
	return out
}

// FramesByDirection returns the frames with the given direction ordered by ID.
func (m *CANMap) FramesByDirection(dir string) []*FrameDef {
	out := lo.Filter(lo.Values(m.ByID), func(f *FrameDef, _ int) bool { return f.Direction == dir })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
