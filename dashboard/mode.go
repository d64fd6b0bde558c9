package dashboard

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMode is returned for an action mode other than all, cpu or gpu
var ErrInvalidMode = errors.New("invalid action mode")

// Mode selects which miner services actions apply to
type Mode string

// Action modes
const (
	ModeAll Mode = "all"
	ModeCPU Mode = "cpu"
	ModeGPU Mode = "gpu"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAll, ModeCPU, ModeGPU:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	return m == ModeAll || m == ModeCPU || m == ModeGPU
}

// Kinds returns the service kinds the mode drives, in send order
func (m Mode) Kinds() []string {
	switch m {
	case ModeCPU:
		return []string{"cpu"}
	case ModeGPU:
		return []string{"gpu"}
	case ModeAll:
		return []string{"cpu", "gpu"}
	}
	return nil
}

// Label is the upper-case form shown in action labels
func (m Mode) Label() string {
	return strings.ToUpper(string(m))
}
