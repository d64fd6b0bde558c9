package dashboard

import (
	"fmt"
	"time"

	"github.com/alexandrut83/rigdash/rigcloud"
)

// effect tells the controller what an applied event touched
type effect struct {
	store bool // rig store changed by a frame
	prefs bool // mode or column visibility changed
}

// Event is a state transition consumed by the controller
type Event interface {
	apply(s *State, now time.Time) effect
	fmt.Stringer
}

// StateReset replaces the whole rig store
type StateReset struct {
	Rigs map[string]RigEntry
}

func (e StateReset) apply(s *State, now time.Time) effect {
	s.Rigs = make(map[string]RigEntry, len(e.Rigs))
	for name, entry := range e.Rigs {
		s.Rigs[name] = entry
	}
	s.LastUpdate = now
	return effect{store: true}
}

func (e StateReset) String() string { return fmt.Sprintf("StateReset(%d rigs)", len(e.Rigs)) }

// RigUpserted creates or overwrites one rig
type RigUpserted struct {
	Rig   string
	Entry RigEntry
}

func (e RigUpserted) apply(s *State, now time.Time) effect {
	s.Rigs[e.Rig] = e.Entry
	s.LastUpdate = now
	return effect{store: true}
}

func (e RigUpserted) String() string { return "RigUpserted(" + e.Rig + ")" }

// StoreCleared empties the rig store after a hard reset
type StoreCleared struct{}

func (StoreCleared) apply(s *State, _ time.Time) effect {
	s.Rigs = make(map[string]RigEntry)
	return effect{}
}

func (StoreCleared) String() string { return "StoreCleared" }

// SelectionChanged is a click on a rig name
type SelectionChanged struct {
	Rig      string
	Additive bool
}

func (e SelectionChanged) apply(s *State, _ time.Time) effect {
	s.Select(e.Rig, e.Additive)
	return effect{}
}

func (e SelectionChanged) String() string { return "SelectionChanged(" + e.Rig + ")" }

// SelectAllToggled flips the selection of every eligible rig
type SelectAllToggled struct{}

func (SelectAllToggled) apply(s *State, _ time.Time) effect {
	s.ToggleSelectAll()
	return effect{}
}

func (SelectAllToggled) String() string { return "SelectAllToggled" }

// ModeChanged switches the action mode
type ModeChanged struct {
	Mode Mode
}

func (e ModeChanged) apply(s *State, _ time.Time) effect {
	if !e.Mode.Valid() {
		return effect{}
	}
	s.Mode = e.Mode
	s.ActionOutput = "Mode: " + e.Mode.Label()
	return effect{prefs: true}
}

func (e ModeChanged) String() string { return "ModeChanged(" + string(e.Mode) + ")" }

// PopoverToggled opens or closes a rig's detail panel
type PopoverToggled struct {
	ID string
}

func (e PopoverToggled) apply(s *State, _ time.Time) effect {
	s.TogglePopover(e.ID)
	return effect{}
}

func (e PopoverToggled) String() string { return "PopoverToggled(" + e.ID + ")" }

// ColumnToggled hides or shows one metric column
type ColumnToggled struct {
	Index int
}

func (e ColumnToggled) apply(s *State, _ time.Time) effect {
	return effect{prefs: s.ToggleColumn(e.Index)}
}

func (e ColumnToggled) String() string { return fmt.Sprintf("ColumnToggled(%d)", e.Index) }

// ColumnsReset shows every column
type ColumnsReset struct{}

func (ColumnsReset) apply(s *State, _ time.Time) effect {
	if len(s.Hidden) == 0 {
		return effect{}
	}
	s.ResetColumns()
	return effect{prefs: true}
}

func (ColumnsReset) String() string { return "ColumnsReset" }

// CommandResponded appends a rig's command output to the log
type CommandResponded struct {
	Response rigcloud.CommandResponse
}

func (e CommandResponded) apply(s *State, _ time.Time) effect {
	s.Command.Output += e.Response.Format()
	return effect{}
}

func (e CommandResponded) String() string { return "CommandResponded(" + e.Response.Rig + ")" }

// CommandModalChanged opens or closes the command dialog. Opening a closed
// dialog clears the output log; a non-nil Input replaces the input buffer.
type CommandModalChanged struct {
	Open        bool
	Input       *string
	ClearOutput bool
}

func (e CommandModalChanged) apply(s *State, _ time.Time) effect {
	if e.ClearOutput || (e.Open && !s.Command.Open) {
		s.Command.Output = ""
	}
	s.Command.Open = e.Open
	if e.Input != nil {
		s.Command.Input = *e.Input
	}
	return effect{}
}

func (e CommandModalChanged) String() string { return fmt.Sprintf("CommandModalChanged(open=%t)", e.Open) }

// ActionNoted replaces the action output line
type ActionNoted struct {
	Text string
}

func (e ActionNoted) apply(s *State, _ time.Time) effect {
	s.ActionOutput = e.Text
	return effect{}
}

func (e ActionNoted) String() string { return "ActionNoted" }

// ResetProgress marks a hard reset as running or finished
type ResetProgress struct {
	Active bool
}

func (e ResetProgress) apply(s *State, _ time.Time) effect {
	s.Resetting = e.Active
	return effect{}
}

func (e ResetProgress) String() string { return fmt.Sprintf("ResetProgress(%t)", e.Active) }
