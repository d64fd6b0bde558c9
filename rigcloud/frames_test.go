package rigcloud

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var receivedAt = time.Unix(1700000000, 0)

func TestDecodeCommandResponse(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"cmd_response": {"rig": "rig1", "returncode": 0, "stdout": "ok"}, "rigs": {}}`), receivedAt)
	require.NoError(t, err)
	require.Equal(t, FrameCommandResponse, f.Kind)
	assert.Equal(t, "\n[rig1] returncode=0\nok\n", f.Response.Format())

	f, err = DecodeFrame([]byte(`{"cmd_response": {"rig": "rig2", "returncode": 1, "stderr": "boom"}}`), receivedAt)
	require.NoError(t, err)
	assert.Equal(t, "\n[rig2] returncode=1\nboom\n", f.Response.Format())
}

func TestDecodeSnapshot(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"rigs": {"a": {"timestamp": 1, "data": {"cpu_temp": 50}}, "b": {"timestamp": 2, "data": {}}}}`), receivedAt)
	require.NoError(t, err)
	require.Equal(t, FrameSnapshot, f.Kind)
	require.Len(t, f.Rigs, 2)
	assert.Equal(t, float64(2), f.Rigs["b"].Timestamp)
	temp, ok := f.Rigs["a"].Data.CPUTemp()
	assert.True(t, ok)
	assert.Equal(t, float64(50), temp)
}

func TestDecodeDelta(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"rig": "x", "data": {"cpu_temp": 70}, "timestamp": 5}`), receivedAt)
	require.NoError(t, err)
	require.Equal(t, FrameDelta, f.Kind)
	assert.Equal(t, "x", f.Rig)
	assert.Equal(t, float64(5), f.Entry.Timestamp)

	f, err = DecodeFrame([]byte(`{"rig": "x", "data": {"cpu_temp": 70}}`), receivedAt)
	require.NoError(t, err)
	assert.Equal(t, float64(receivedAt.Unix()), f.Entry.Timestamp)
}

func TestDecodeLegacyPayload(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"payload": {"rig": "old", "cpu_usage": 12}}`), receivedAt)
	require.NoError(t, err)
	require.Equal(t, FrameLegacy, f.Kind)
	assert.Equal(t, "old", f.Rig)
	assert.Equal(t, "12", f.Entry.Data.CPUUsageText())
	assert.Equal(t, "old", f.Entry.Data["rig"])
	assert.Equal(t, float64(receivedAt.Unix()), f.Entry.Timestamp)
}

func TestDecodeUnknownAndMalformed(t *testing.T) {
	for _, raw := range []string{`{}`, `{"rig": "x"}`, `{"payload": {"cpu": 1}}`, `{"rigs": null, "data": {}}`} {
		f, err := DecodeFrame([]byte(raw), receivedAt)
		require.NoError(t, err, raw)
		assert.Equal(t, FrameUnknown, f.Kind, raw)
	}

	_, err := DecodeFrame([]byte(`not json`), receivedAt)
	assert.Error(t, err)

	_, err = DecodeFrame([]byte(`{"rigs": [1, 2]}`), receivedAt)
	assert.Error(t, err)
}
