package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alexandrut83/rigdash/rigcloud"
	"github.com/alexandrut83/rigdash/telemetry"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func startController(t *testing.T, prefs PrefsStore, opts ...ControllerOption) *Controller {
	t.Helper()
	opts = append([]ControllerOption{WithClock(func() time.Time { return testNow })}, opts...)
	ctrl := NewController(prefs, nil, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ctrl.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ctrl
}

func dispatch(t *testing.T, ctrl *Controller, events ...Event) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, ctrl.Dispatch(context.Background(), ev))
	}
}

func snapshot(t *testing.T, raw string) telemetry.Snapshot {
	t.Helper()
	s, err := telemetry.DecodeSnapshot([]byte(raw))
	require.NoError(t, err)
	return s
}

func rigs(t *testing.T, raw map[string]string) map[string]RigEntry {
	t.Helper()
	out := make(map[string]RigEntry, len(raw))
	for name, data := range raw {
		out[name] = RigEntry{Timestamp: 1, Data: snapshot(t, data)}
	}
	return out
}

// fakePrompter answers every confirmation with answer and records prompts
type fakePrompter struct {
	answer   bool
	confirms []string
	alerts   []string
}

func (p *fakePrompter) Confirm(msg string) bool {
	p.confirms = append(p.confirms, msg)
	return p.answer
}

func (p *fakePrompter) Alert(msg string) {
	p.alerts = append(p.alerts, msg)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendCommand(ctx context.Context, rigs []string, command string) error {
	return m.Called(rigs, command).Error(0)
}

func (m *mockSender) Reset(ctx context.Context) error {
	return m.Called().Error(0)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListFlightsheets(ctx context.Context) ([]rigcloud.Flightsheet, error) {
	args := m.Called()
	sheets, _ := args.Get(0).([]rigcloud.Flightsheet)
	return sheets, args.Error(1)
}

func (m *mockStore) PutFlightsheet(ctx context.Context, id string, entries []rigcloud.FlightsheetEntry) error {
	return m.Called(id, entries).Error(0)
}

func (m *mockStore) DeleteFlightsheet(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *mockStore) FetchRigs(ctx context.Context) (map[string]RigEntry, error) {
	args := m.Called()
	r, _ := args.Get(0).(map[string]RigEntry)
	return r, args.Error(1)
}
