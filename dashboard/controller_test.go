package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexandrut83/rigdash/rigcloud"
)

func TestSnapshotReplacesWholeStore(t *testing.T) {
	ctrl := startController(t, nil)
	sink := NewFrameSink(ctrl, nil)
	ctx := context.Background()

	sink.HandleFrame(ctx, rigcloud.Frame{Kind: rigcloud.FrameSnapshot, Rigs: rigs(t, map[string]string{"old": `{}`, "keep": `{}`})})
	next := rigs(t, map[string]string{"keep": `{"cpu_temp": 41}`, "new": `{}`})
	sink.HandleFrame(ctx, rigcloud.Frame{Kind: rigcloud.FrameSnapshot, Rigs: next})

	assert.Equal(t, next, ctrl.State().Rigs)
	assert.Equal(t, testNow, ctrl.State().LastUpdate)
}

func TestDeltaTouchesOnlyItsRig(t *testing.T) {
	ctrl := startController(t, nil)
	sink := NewFrameSink(ctrl, nil)
	ctx := context.Background()

	before := rigs(t, map[string]string{"a": `{"cpu_temp": 40}`, "b": `{"cpu_temp": 50}`})
	sink.HandleFrame(ctx, rigcloud.Frame{Kind: rigcloud.FrameSnapshot, Rigs: before})

	entry := RigEntry{Timestamp: 9, Data: snapshot(t, `{"cpu_temp": 90}`)}
	sink.HandleFrame(ctx, rigcloud.Frame{Kind: rigcloud.FrameDelta, Rig: "b", Entry: entry})
	sink.HandleFrame(ctx, rigcloud.Frame{Kind: rigcloud.FrameLegacy, Rig: "c", Entry: entry})

	after := ctrl.State().Rigs
	assert.Equal(t, before["a"], after["a"])
	assert.Equal(t, entry, after["b"])
	assert.Equal(t, entry, after["c"])
	assert.Len(t, after, 3)
}

func TestCommandResponseDoesNotTouchStore(t *testing.T) {
	ctrl := startController(t, nil)
	sink := NewFrameSink(ctrl, nil)

	sink.HandleFrame(context.Background(), rigcloud.Frame{
		Kind:     rigcloud.FrameCommandResponse,
		Response: rigcloud.CommandResponse{Rig: "a", ReturnCode: 2, Stderr: "nope"},
	})

	st := ctrl.State()
	assert.Empty(t, st.Rigs)
	assert.True(t, st.LastUpdate.IsZero())
	assert.Equal(t, "\n[a] returncode=2\nnope\n", st.Command.Output)
}

func TestViewIsRenderedAfterEachEvent(t *testing.T) {
	ctrl := startController(t, nil)
	updates, cancel := ctrl.Subscribe()
	defer cancel()

	dispatch(t, ctrl, StateReset{Rigs: rigs(t, map[string]string{"r2": `{}`, "r1": `{}`})})
	<-updates

	v := ctrl.View()
	require.Len(t, v.Rows, 2)
	assert.Equal(t, "r1", v.Rows[0].Name)

	dispatch(t, ctrl, SelectionChanged{Rig: "r2"})
	assert.True(t, ctrl.View().Rows[1].Selected)
	assert.Equal(t, 1, ctrl.View().SelectedCount)
}

func TestRenderSuppressedWhileResetting(t *testing.T) {
	ctrl := startController(t, nil)

	dispatch(t, ctrl, StateReset{Rigs: rigs(t, map[string]string{"r1": `{}`})}, ResetProgress{Active: true})
	dispatch(t, ctrl, StoreCleared{})

	assert.Len(t, ctrl.View().Rows, 1, "last view stays while resetting")
	assert.True(t, ctrl.View().Resetting)
	assert.Empty(t, ctrl.State().Rigs)

	dispatch(t, ctrl, ResetProgress{Active: false})
	assert.Empty(t, ctrl.View().Rows)
}

func TestModeAndColumnsArePersisted(t *testing.T) {
	prefs := &MemoryPrefs{}
	ctrl := startController(t, prefs)

	dispatch(t, ctrl, ModeChanged{Mode: ModeGPU}, ColumnToggled{Index: 3}, ColumnToggled{Index: 99})

	saved, err := prefs.Load()
	require.NoError(t, err)
	assert.Equal(t, Prefs{Mode: ModeGPU, HiddenColumns: []int{3}}, saved)
	assert.Equal(t, "Mode: GPU", ctrl.State().ActionOutput)
	assert.True(t, ctrl.View().Header[3].Hidden)

	reloaded := startController(t, prefs)
	assert.Equal(t, ModeGPU, reloaded.State().Mode)
	assert.Equal(t, []int{3}, reloaded.State().HiddenColumns())
}

func TestStaleness(t *testing.T) {
	ctrl := startController(t, nil, WithStaleAfter(30*time.Second))

	assert.True(t, ctrl.Stale(testNow), "no frame yet")

	dispatch(t, ctrl, RigUpserted{Rig: "a", Entry: RigEntry{}})
	assert.False(t, ctrl.Stale(testNow.Add(29*time.Second)))
	assert.True(t, ctrl.Stale(testNow.Add(30*time.Second)))
}

func TestDispatchAfterStop(t *testing.T) {
	ctrl := NewController(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ctrl.Run(ctx), context.Canceled)

	err := ctrl.Dispatch(context.Background(), SelectAllToggled{})
	assert.True(t, errors.Is(err, ErrStopped))
}

func TestFallbackPollsOnlyWhenStale(t *testing.T) {
	ctrl := startController(t, nil)
	fetcher := &mockStore{}
	fetcher.On("FetchRigs").Return(rigs(t, map[string]string{"polled": `{}`}), nil).Once()

	fb := NewFallback(ctrl, fetcher, time.Second, nil)
	fb.now = func() time.Time { return testNow }

	polled, err := fb.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, polled)
	assert.Contains(t, ctrl.State().Rigs, "polled")

	polled, err = fb.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, polled, "fresh state is not refetched")
	fetcher.AssertExpectations(t)
}

func TestHistoryRecordsFleetSamples(t *testing.T) {
	h := NewHistory(2)
	ctrl := startController(t, nil, WithHistory(h))

	rig := `{"gpus": [{"power_watts": 100}], "miner_rigel": {"status": "ok", "algorithms": [{"algorithm": "kawpow", "hashrate_hs": 3000}]}}`
	dispatch(t, ctrl,
		StateReset{Rigs: rigs(t, map[string]string{"a": rig})},
		RigUpserted{Rig: "b", Entry: RigEntry{Data: snapshot(t, rig)}},
		SelectionChanged{Rig: "a"},
		RigUpserted{Rig: "c", Entry: RigEntry{Data: snapshot(t, rig)}},
	)

	samples := h.Samples()
	require.Len(t, samples, 2)
	assert.Equal(t, float64(9000), samples[1].Hashrate)
	assert.Equal(t, 3, samples[1].Rigs)

	w := h.Window(time.Minute, testNow)
	assert.Equal(t, 2, w.Samples)
	assert.Equal(t, float64(7500), w.AvgHashrate)
	assert.Equal(t, float64(250), w.AvgWatts)
	assert.Equal(t, 1, ctrl.Stats().Rigs, "stats bar follows the selection")
}
