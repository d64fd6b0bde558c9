package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRig = `{
	"cpu_temp": 71.6,
	"cpu_usage": 93.2,
	"load": {"1m": 7.5, "5m": 7.1, "15m": "6.9"},
	"memory": {"total_mb": 32768, "used_mb": 10240},
	"gpus": [
		{"name": "RTX 3080", "temp": 64, "util": 100, "power_watts": 221.37, "fan_percent": 82,
		 "sm_clock": 1710, "mem_clock": 9501, "vram_used": 4096, "vram_total": 10240, "driver_version": "550.54.14"},
		{"temp": 58, "power_watts": 180}
	],
	"cpu_service": {"state": "active", "uptime": 3600},
	"gpu_service": {"state": "failed"},
	"docker": [{"name": "xmrig", "image": "rig/xmrig:6.21", "state": "running", "uptime_seconds": 7260}],
	"miner_xmrig": {
		"status": "ok", "miner_version": "6.21.0", "uptime_s": 7200,
		"algorithms": [{"algorithm": "rx/0", "hashrate_hs": 15000, "accepted_shares": 120, "rejected_shares": 1,
		                "pool": "pool.example:3333", "cpu_threads": 16}]
	},
	"miner_srbminer": {
		"status": "ok", "miner_version": "2.5.1",
		"algorithms": [{"algorithm": "verushash", "hashrate_hs": 0, "cpu_hashrate_hs": 500, "gpu_hashrate_hs": 700,
		                "accepted_shares": 10, "rejected_shares": 0,
		                "thread_hashrates": {"t1": 250, "t0": 250}}]
	},
	"miner_rigel": {"status": "ok", "algorithms": []},
	"miner_bzminer": {"status": "error", "algorithms": [{"algorithm": "kheavyhash", "hashrate_hs": 1}]}
}`

func decodeSample(t *testing.T) Snapshot {
	t.Helper()
	s, err := DecodeSnapshot([]byte(sampleRig))
	require.NoError(t, err)
	return s
}

func TestSystemGetters(t *testing.T) {
	s := decodeSample(t)

	temp, ok := s.CPUTemp()
	assert.True(t, ok)
	assert.InDelta(t, 71.6, temp, 0.001)
	assert.Equal(t, "93", s.CPUUsageText())
	assert.Equal(t, "7.5", s.Load("1m"))
	assert.Equal(t, "6.9", s.Load("15m"))
	assert.Equal(t, "--", s.Load("30m"))
	assert.Equal(t, "10.0 / 32.0", s.Memory().Text)

	gpu := s.PrimaryGPU()
	assert.Equal(t, "RTX 3080", gpu.Name())
	assert.Equal(t, "221.4", gpu.PowerText())
	assert.Equal(t, "100", gpu.Util())
	assert.Equal(t, "4.0 / 10.0", gpu.VRAM().Text)
	assert.Equal(t, "1710", gpu.CoreClock())
	assert.InDelta(t, 401.37, s.TotalGPUPower(), 0.001)
	assert.Equal(t, "550.54.14", s.NvidiaDriverVersion())

	assert.True(t, s.Service(CPUService).Active)
	assert.Equal(t, "failed", s.Service(GPUService).State)
	assert.Equal(t, "unknown", s.Service("other_service").State)

	containers := s.Containers()
	require.Len(t, containers, 1)
	assert.Equal(t, "rig/xmrig:6.21", containers[0].Image())
	assert.Equal(t, float64(7260), containers[0].Uptime())
}

func TestGettersOnEmptySnapshot(t *testing.T) {
	var s Snapshot

	_, ok := s.CPUTemp()
	assert.False(t, ok)
	assert.Equal(t, "--", s.CPUUsageText())
	assert.Equal(t, emptyUsage, s.Memory())
	assert.Empty(t, s.GPUs())
	assert.Equal(t, "Unknown GPU", s.PrimaryGPU().Name())
	assert.Equal(t, "--", s.PrimaryGPU().PowerText())
	assert.Equal(t, "--", s.NvidiaDriverVersion())
	assert.Empty(t, s.ActiveMiners())
	assert.Zero(t, s.TotalHashrateAllMiners())
	assert.Equal(t, Styled{Value: "CPU", Class: "service-bad"}, s.CPUColumn())
}

func TestGettersToleratesMistypedFields(t *testing.T) {
	s, err := DecodeSnapshot([]byte(`{"cpu_temp": "hot", "gpus": {"0": 1}, "memory": "lots", "miner_xmrig": "ok"}`))
	require.NoError(t, err)

	_, ok := s.CPUTemp()
	assert.False(t, ok)
	assert.Empty(t, s.GPUs())
	assert.Equal(t, "--", s.Memory().Text)
	assert.Nil(t, s.Miner(MinerXMRig))
	assert.False(t, s.IsMinerActive(MinerXMRig))
}

func TestActiveMiners(t *testing.T) {
	s := decodeSample(t)

	active := s.ActiveMiners()
	require.Len(t, active, 2)
	assert.Equal(t, MinerXMRig, active[0].Key)
	assert.Equal(t, "SRBMiner", active[1].Name)
	assert.Empty(t, s.MinerAlgorithms(MinerBzMiner))
}

func TestTotalHashrateFallsBackToSplit(t *testing.T) {
	algo := Algorithm{"hashrate_hs": 0.0, "cpu_hashrate_hs": 500.0, "gpu_hashrate_hs": 700.0}
	assert.Equal(t, float64(1200), algo.TotalHashrate())

	algo = Algorithm{"hashrate_hs": 900.0, "cpu_hashrate_hs": 500.0}
	assert.Equal(t, float64(900), algo.TotalHashrate())

	assert.Zero(t, Algorithm{}.TotalHashrate())
}

func TestDerivedAggregates(t *testing.T) {
	s := decodeSample(t)

	assert.Equal(t, float64(16200), s.TotalHashrateAllMiners())

	byAlgo := s.HashrateByAlgorithm()
	require.Contains(t, byAlgo, "verushash")
	assert.Equal(t, float64(1200), byAlgo["verushash"].TotalHashrate)
	assert.Equal(t, []string{"CPU 500 H/s SRBMiner v2.5.1", "GPU 700 H/s SRBMiner v2.5.1"}, byAlgo["verushash"].Miners)
	require.Len(t, byAlgo["verushash"].Threads, 2)
	assert.Equal(t, "t0", byAlgo["verushash"].Threads[0].Thread)
	assert.Equal(t, []string{"15.00 kH/s XMRig v6.21.0"}, byAlgo["rx/0"].Miners)

	summary := s.MinerSummary()
	require.Len(t, summary, 2)
	assert.Equal(t, 16, summary[0].ThreadCount)
	assert.Equal(t, 2, summary[1].ThreadCount)

	stats, ok := s.ThreadStatistics()
	require.True(t, ok)
	assert.Equal(t, 3, stats.TotalThreads)
	assert.Equal(t, float64(250), stats.MinPerThread)
	assert.Equal(t, float64(15000), stats.MaxPerThread)
}

func TestShareTotals(t *testing.T) {
	s := decodeSample(t)

	assert.Equal(t, Shares{Accepted: 130, Rejected: 1}, s.CPUShares())
	assert.Equal(t, Shares{Accepted: 10, Rejected: 0}, s.GPUShares())

	cpu := s.CPUColumn()
	assert.Equal(t, "130/1", cpu.Value)
	assert.Equal(t, "shares-good", cpu.Class)
	assert.Equal(t, "shares-perfect", s.GPUColumn().Class)
}
