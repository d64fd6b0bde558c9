package dashboard

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"github.com/alexandrut83/rigdash/rigcloud"
)

// Flightsheet editor errors
var (
	ErrEmptyFlightsheet = errors.New("flightsheet is empty")
	ErrNoFlightsheet    = errors.New("no flightsheet selected")
	ErrNoFlightsheetID  = errors.New("flightsheet name is required")
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nameStrip     = regexp.MustCompile(`[^a-z0-9-]`)
)

// FlightsheetStore is the backend flightsheet resource
type FlightsheetStore interface {
	ListFlightsheets(ctx context.Context) ([]rigcloud.Flightsheet, error)
	PutFlightsheet(ctx context.Context, id string, entries []rigcloud.FlightsheetEntry) error
	DeleteFlightsheet(ctx context.Context, id string) error
}

// EditorState is what the flightsheet dialog shows
type EditorState struct {
	Sheets   []rigcloud.Flightsheet
	Selected string
	Name     string
	Buffer   string
}

// Editor edits flightsheets and feeds them to the command dialog
type Editor struct {
	store  FlightsheetStore
	ctrl   *Controller
	logger *zap.Logger

	mu       sync.Mutex
	sheets   []rigcloud.Flightsheet
	selected string
	name     string
	buffer   string
}

// NewEditor creates an editor over store
func NewEditor(store FlightsheetStore, ctrl *Controller, logger *zap.Logger) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Editor{store: store, ctrl: ctrl, logger: logger}
}

// NormalizeName turns a free-form name into a flightsheet id: lower case,
// whitespace runs become a hyphen, anything outside [a-z0-9-] is dropped
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = whitespaceRun.ReplaceAllString(name, "-")
	return nameStrip.ReplaceAllString(name, "")
}

// State returns a copy of the editor state
func (e *Editor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EditorState{
		Sheets:   append([]rigcloud.Flightsheet(nil), e.sheets...),
		Selected: e.selected,
		Name:     e.name,
		Buffer:   e.buffer,
	}
}

// Load fetches the flightsheet list in natural name order
func (e *Editor) Load(ctx context.Context, p Prompter) error {
	sheets, err := e.store.ListFlightsheets(ctx)
	if err != nil {
		e.logger.Error("Failed to load flightsheets", zap.Error(err))
		p.Alert("Failed to load flightsheets")
		return err
	}
	sort.SliceStable(sheets, func(i, j int) bool {
		return natural.Less(sheets[i].ID, sheets[j].ID)
	})

	e.mu.Lock()
	e.sheets = sheets
	e.mu.Unlock()
	return nil
}

// Select puts a listed flightsheet into the form
func (e *Editor) Select(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, fs := range e.sheets {
		if fs.ID == id {
			e.selected = fs.ID
			e.name = fs.ID
			e.buffer = fs.Value
			return nil
		}
	}
	return fmt.Errorf("flightsheet %q not found", id)
}

// Clear empties the form and drops the selection
func (e *Editor) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected, e.name, e.buffer = "", "", ""
}

// New fills an empty buffer with the config template for the current mode.
// content is the buffer as the operator sees it.
func (e *Editor) New(p Prompter, content string) (string, error) {
	if strings.TrimSpace(content) != "" {
		p.Alert("Flightsheet is not empty")
		return content, errors.New("flightsheet is not empty")
	}

	var text string
	switch e.ctrl.State().Mode {
	case ModeAll:
		text = templateBlock("cpu") + "\n\n" + templateBlock("gpu")
	case ModeCPU:
		text = templateBlock("cpu")
	default:
		text = templateBlock("gpu")
	}

	e.mu.Lock()
	e.buffer = text
	e.mu.Unlock()
	return text, nil
}

func templateBlock(kind string) string {
	lines := []string{
		fmt.Sprintf("tee /home/user/rig-%s.conf > /dev/null <<'EOF'", kind),
		`TARGET_IMAGE 0 "ubuntu:24.04"`,
		`TARGET_NAME 0 ""`,
		`RESET_OC 0 "false"`,
		fmt.Sprintf(`SCREEN_NAME 0 "%s"`, kind),
		`CUSTOM_MINER 0 ""`,
		`MINER 0 ""`,
		`ALGO 0 ""`,
		`POOL 0 ""`,
		`WALLET 0 ""`,
		`PASS 0 "x"`,
		`ARGS 0 ""`,
		"EOF",
		"sudo systemctl restart docker_events_" + kind,
	}
	return strings.Join(lines, "\n")
}

// Save stores content under the normalized name. Empty content is
// rejected before any request.
func (e *Editor) Save(ctx context.Context, p Prompter, name, content string) error {
	id := NormalizeName(name)
	cmd := strings.TrimSpace(content)

	e.mu.Lock()
	e.name, e.buffer = name, content
	e.mu.Unlock()

	if cmd == "" {
		p.Alert("Cannot save empty flightsheet! Please enter a command in the flightsheet editor.")
		return ErrEmptyFlightsheet
	}
	if id == "" {
		p.Alert("Error saving flightsheet: Flightsheet name is required")
		return ErrNoFlightsheetID
	}

	entries := []rigcloud.FlightsheetEntry{{Key: rigcloud.RawCommandKey, GPU: 0, Value: cmd}}
	if err := e.store.PutFlightsheet(ctx, id, entries); err != nil {
		msg := "Failed to save flightsheet"
		var apiErr *rigcloud.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		}
		e.logger.Error("Failed to save flightsheet", zap.String("flightsheet", id), zap.Error(err))
		p.Alert("Error saving flightsheet: " + msg)
		return err
	}

	e.logger.Info("Saved flightsheet", zap.String("flightsheet", id))
	if err := e.Load(ctx, p); err != nil {
		return err
	}
	e.mu.Lock()
	e.selected, e.name, e.buffer = id, id, cmd
	e.mu.Unlock()

	p.Alert(fmt.Sprintf("Flightsheet %q saved successfully!", id))
	return nil
}

// Delete removes the selected flightsheet after confirmation
func (e *Editor) Delete(ctx context.Context, p Prompter) error {
	e.mu.Lock()
	id := e.selected
	e.mu.Unlock()

	if id == "" {
		p.Alert("No flightsheet selected")
		return ErrNoFlightsheet
	}
	if !p.Confirm(fmt.Sprintf("Delete flightsheet %q?", id)) {
		return ErrNotConfirmed
	}

	if err := e.store.DeleteFlightsheet(ctx, id); err != nil {
		e.logger.Error("Failed to delete flightsheet", zap.String("flightsheet", id), zap.Error(err))
		p.Alert("Failed to delete")
		return err
	}

	e.logger.Info("Deleted flightsheet", zap.String("flightsheet", id))
	if err := e.Load(ctx, p); err != nil {
		return err
	}
	p.Alert("Flightsheet deleted")
	e.Clear()
	return nil
}

// Apply copies content into the command input and opens the command
// dialog. The text is not interpreted.
func (e *Editor) Apply(ctx context.Context, p Prompter, content string) error {
	raw := strings.TrimSpace(content)
	if raw == "" {
		p.Alert("Flightsheet is empty")
		return ErrEmptyFlightsheet
	}

	e.mu.Lock()
	e.selected = ""
	e.mu.Unlock()

	return e.ctrl.Dispatch(ctx, CommandModalChanged{Open: true, Input: &raw})
}
