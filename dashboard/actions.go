package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Validation errors. Each is reported to the operator before any request
// is made.
var (
	ErrNoSelection  = errors.New("no rigs selected")
	ErrEmptyCommand = errors.New("empty command")
	ErrNotConfirmed = errors.New("action not confirmed")
)

// CommandSender delivers commands to the backend
type CommandSender interface {
	SendCommand(ctx context.Context, rigs []string, command string) error
	Reset(ctx context.Context) error
}

// Prompter asks the operator for confirmation and shows alerts
type Prompter interface {
	Confirm(message string) bool
	Alert(message string)
}

// Actions turns operator actions into controller events and backend
// commands
type Actions struct {
	ctrl   *Controller
	sender CommandSender
	logger *zap.Logger
}

// NewActions creates the action dispatcher
func NewActions(ctrl *Controller, sender CommandSender, logger *zap.Logger) *Actions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Actions{ctrl: ctrl, sender: sender, logger: logger}
}

// SetMode switches the action mode
func (a *Actions) SetMode(ctx context.Context, mode string) error {
	m, err := ParseMode(mode)
	if err != nil {
		return err
	}
	return a.ctrl.Dispatch(ctx, ModeChanged{Mode: m})
}

// Start starts the miners of the current mode on the selected rigs
func (a *Actions) Start(ctx context.Context, p Prompter) error {
	return a.service(ctx, p, "Start", "start")
}

// Stop stops the miners of the current mode on the selected rigs
func (a *Actions) Stop(ctx context.Context, p Prompter) error {
	return a.service(ctx, p, "Stop", "stop")
}

// Restart restarts the miners of the current mode on the selected rigs
func (a *Actions) Restart(ctx context.Context, p Prompter) error {
	return a.service(ctx, p, "Restart", "restart")
}

func (a *Actions) service(ctx context.Context, p Prompter, verb, op string) error {
	st := a.ctrl.State()
	label := fmt.Sprintf("%s %s miners", verb, st.Mode.Label())

	rigs := st.SelectedNames()
	if len(rigs) == 0 {
		p.Alert("No rigs selected")
		return ErrNoSelection
	}
	if !p.Confirm(confirmText(label, len(rigs))) {
		return ErrNotConfirmed
	}

	if err := a.ctrl.Dispatch(ctx, ActionNoted{Text: label + "…"}); err != nil {
		return err
	}
	var failed error
	for _, kind := range st.Mode.Kinds() {
		if err := a.post(ctx, rigs, kind+"."+op); err != nil && failed == nil {
			failed = err
		}
	}
	if failed != nil {
		p.Alert("Failed to send command")
	}
	return failed
}

func confirmText(label string, n int) string {
	plural := "s"
	if n == 1 {
		plural = ""
	}
	return fmt.Sprintf("%s on %d selected rig%s?", label, n, plural)
}

// Send sends a free-text command to the selected rigs
func (a *Actions) Send(ctx context.Context, p Prompter, command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		p.Alert("Command is empty")
		return ErrEmptyCommand
	}
	return a.send(ctx, p, a.ctrl.State().SelectedNames(), command)
}

// Reboot reboots the selected rigs
func (a *Actions) Reboot(ctx context.Context, p Prompter) error {
	if !p.Confirm("Reboot selected rigs?") {
		return ErrNotConfirmed
	}
	return a.send(ctx, p, a.ctrl.State().SelectedNames(), "reboot")
}

// SetMinerMode switches the selected rigs between CPU and GPU mining
func (a *Actions) SetMinerMode(ctx context.Context, p Prompter, mode string) error {
	m, err := ParseMode(mode)
	if err != nil || m == ModeAll {
		return fmt.Errorf("%w: miner mode must be cpu or gpu", ErrInvalidMode)
	}
	return a.send(ctx, p, a.ctrl.State().SelectedNames(), "mode.set "+m.Label())
}

func (a *Actions) send(ctx context.Context, p Prompter, rigs []string, command string) error {
	if len(rigs) == 0 {
		p.Alert("No rigs selected")
		return ErrNoSelection
	}
	if err := a.post(ctx, rigs, command); err != nil {
		p.Alert("Failed to send command")
		return err
	}
	return nil
}

// post sends one command and logs the outcome
func (a *Actions) post(ctx context.Context, rigs []string, command string) error {
	if err := a.sender.SendCommand(ctx, rigs, command); err != nil {
		a.logger.Error("Command send failed",
			zap.String("command", command),
			zap.Strings("rigs", rigs),
			zap.Error(err))
		return err
	}
	a.logger.Info("Command sent", zap.String("command", command), zap.Int("rigs", len(rigs)))
	return nil
}

// HardReset asks the backend to forget every rig and clears the local
// store. Rendering is suppressed until the reset finishes.
func (a *Actions) HardReset(ctx context.Context, p Prompter) (err error) {
	if err := a.ctrl.Dispatch(ctx, ResetProgress{Active: true}); err != nil {
		return err
	}
	defer func() {
		if derr := a.ctrl.Dispatch(context.WithoutCancel(ctx), ResetProgress{Active: false}); derr != nil && err == nil {
			err = derr
		}
	}()

	if !p.Confirm("Clear all known rigs and reload fresh data?") {
		return ErrNotConfirmed
	}
	if err := a.sender.Reset(ctx); err != nil {
		a.logger.Error("Hard reset failed", zap.Error(err))
		p.Alert("Hard reset failed")
		return err
	}
	a.logger.Info("Hard reset done")
	return a.ctrl.Dispatch(ctx, StoreCleared{})
}

// OpenCommand opens the command dialog
func (a *Actions) OpenCommand(ctx context.Context) error {
	return a.ctrl.Dispatch(ctx, CommandModalChanged{Open: true})
}

// CloseCommand closes the command dialog, keeping its buffers
func (a *Actions) CloseCommand(ctx context.Context) error {
	return a.ctrl.Dispatch(ctx, CommandModalChanged{Open: false})
}

// ClearCommand empties the input and output of the command dialog
func (a *Actions) ClearCommand(ctx context.Context) error {
	empty := ""
	open := a.ctrl.State().Command.Open
	return a.ctrl.Dispatch(ctx, CommandModalChanged{Open: open, Input: &empty, ClearOutput: true})
}
