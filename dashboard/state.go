package dashboard

import (
	"sort"
	"time"

	"github.com/alexandrut83/rigdash/rigcloud"
	"github.com/alexandrut83/rigdash/telemetry"
)

// RigEntry is the last telemetry received for one rig
type RigEntry = rigcloud.RigEntry

// ReservedKey is a store key that is never rendered as a rig
const ReservedKey = "rigs"

// Hideable metric columns. Column 0 is the rig name and always shown.
const (
	FirstColumn = 1
	LastColumn  = 15
)

// CommandModal is the free-text command dialog
type CommandModal struct {
	Open   bool
	Input  string
	Output string
}

// State is everything the console renders from. It is owned by the
// controller goroutine; everyone else works on clones.
type State struct {
	Rigs         map[string]RigEntry
	Selected     map[string]bool
	Popovers     map[string]bool
	Mode         Mode
	Hidden       map[int]bool
	LastUpdate   time.Time
	Resetting    bool
	ActionOutput string
	Command      CommandModal
}

// NewState returns an empty state in mode all
func NewState() *State {
	return &State{
		Rigs:     make(map[string]RigEntry),
		Selected: make(map[string]bool),
		Popovers: make(map[string]bool),
		Mode:     ModeAll,
		Hidden:   make(map[int]bool),
	}
}

// Clone copies the state. Rig snapshots are shared since they are
// replaced wholesale and never patched.
func (s *State) Clone() *State {
	c := *s
	c.Rigs = make(map[string]RigEntry, len(s.Rigs))
	for k, v := range s.Rigs {
		c.Rigs[k] = v
	}
	c.Selected = copySet(s.Selected)
	c.Popovers = copySet(s.Popovers)
	c.Hidden = make(map[int]bool, len(s.Hidden))
	for k, v := range s.Hidden {
		c.Hidden[k] = v
	}
	return &c
}

func copySet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		if v {
			out[k] = true
		}
	}
	return out
}

// RigNames returns the rig names in ascending order
func (s *State) RigNames() []string {
	names := make([]string, 0, len(s.Rigs))
	for name := range s.Rigs {
		if name == ReservedKey {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelectedNames returns the selected rig names in ascending order
func (s *State) SelectedNames() []string {
	names := make([]string, 0, len(s.Selected))
	for name, ok := range s.Selected {
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Select applies a click on a rig name. A plain click selects the rig
// alone, or deselects it when it was already selected. An additive click
// toggles the rig in or out of the current selection.
func (s *State) Select(name string, additive bool) {
	if _, ok := s.Rigs[name]; !ok || name == ReservedKey {
		return
	}
	if s.Selected[name] {
		delete(s.Selected, name)
		return
	}
	if !additive {
		s.Selected = make(map[string]bool)
	}
	s.Selected[name] = true
}

// Eligible returns the rigs that select-all would pick in the current mode
func (s *State) Eligible() []string {
	var out []string
	for _, name := range s.RigNames() {
		data := s.Rigs[name].Data
		switch s.Mode {
		case ModeCPU:
			if data.Service(telemetry.CPUService).State != telemetry.ServiceActive {
				continue
			}
		case ModeGPU:
			if data.Service(telemetry.GPUService).State != telemetry.ServiceActive {
				continue
			}
		}
		out = append(out, name)
	}
	return out
}

// ToggleSelectAll deselects every eligible rig when all of them are
// selected and selects them otherwise. Nothing changes when no rig is
// eligible.
func (s *State) ToggleSelectAll() {
	eligible := s.Eligible()
	if len(eligible) == 0 {
		return
	}

	all := true
	for _, name := range eligible {
		if !s.Selected[name] {
			all = false
			break
		}
	}
	for _, name := range eligible {
		if all {
			delete(s.Selected, name)
		} else {
			s.Selected[name] = true
		}
	}
}

// AllSelected reports whether every known rig is selected
func (s *State) AllSelected() bool {
	names := s.RigNames()
	if len(names) == 0 {
		return false
	}
	for _, name := range names {
		if !s.Selected[name] {
			return false
		}
	}
	return true
}

// TogglePopover opens or closes the detail panel of a rig
func (s *State) TogglePopover(id string) {
	if s.Popovers[id] {
		delete(s.Popovers, id)
		return
	}
	s.Popovers[id] = true
}

// ToggleColumn hides or shows a metric column. It returns false for an
// index outside the hideable range.
func (s *State) ToggleColumn(index int) bool {
	if index < FirstColumn || index > LastColumn {
		return false
	}
	if s.Hidden[index] {
		delete(s.Hidden, index)
	} else {
		s.Hidden[index] = true
	}
	return true
}

// ResetColumns shows every column again
func (s *State) ResetColumns() {
	s.Hidden = make(map[int]bool)
}

// HiddenColumns returns the hidden column indices in ascending order
func (s *State) HiddenColumns() []int {
	cols := make([]int, 0, len(s.Hidden))
	for i, hidden := range s.Hidden {
		if hidden {
			cols = append(cols, i)
		}
	}
	sort.Ints(cols)
	return cols
}
