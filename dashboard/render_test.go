package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullRig = `{
	"cpu_temp": 78, "cpu_usage": 55.4,
	"load": {"1m": 2.5, "5m": 2, "15m": 1.5},
	"memory": {"total_mb": 16384, "used_mb": 4096},
	"gpus": [{"temp": 62, "util": 99, "power_watts": 150.4, "fan_percent": 45, "sm_clock": 1800, "mem_clock": 7000,
	          "vram_used": 2048, "vram_total": 8192, "driver_version": "535.104.05"}],
	"cpu_service": {"state": "active"},
	"gpu_service": {"state": "inactive"},
	"docker": [{"name": "rigel", "image": "rig/rigel:1.9", "uptime_seconds": 3700}],
	"miner_xmrig": {"status": "ok", "miner_version": "XMRig 6.21.1", "uptime_s": 600,
		"algorithms": [{"algorithm": "rx/0", "hashrate_hs": 12345, "accepted_shares": 50, "rejected_shares": 0, "cpu_threads": 12, "pool": "xmr.pool:443"}]},
	"miner_rigel": {"status": "ok", "miner_version": "1.9.2", "uptime_s": 7200,
		"algorithms": [{"algorithm": "kawpow", "hashrate_hs": 25000000, "pool_hashrate_hs": 24000000, "accepted_shares": 10, "rejected_shares": 1}]},
	"miner_bzminer": {"status": "ok", "miner_version": "v21.0.3", "total_devices": 2, "cuda_driver_version": "12.2.0",
		"algorithms": [{"algorithm": "kheavyhash", "hashrate_hs": 0}]},
	"miner_srbminer": {"status": "ok", "miner_version": "2.5.0",
		"algorithms": [{"algorithm": "verushash", "cpu_hashrate_hs": 800, "gpu_hashrate_hs": 0, "cpu_workers": 8}]}
}`

func renderedRig(t *testing.T) (View, Row) {
	t.Helper()
	s := NewState()
	s.Rigs = rigs(t, map[string]string{"rig 1": fullRig, "rig 0": `{}`})
	s.Popovers["rig_1"] = true
	s.Hidden[3] = true
	s.LastUpdate = testNow.Add(-3 * time.Second)

	v := Render(s, testNow)
	require.Len(t, v.Rows, 2)
	require.Equal(t, "rig 0", v.Rows[0].Name, "rows sort by name")
	require.Equal(t, "rig 1", v.Rows[1].Name)
	return v, v.Rows[1]
}

func TestRenderRowCells(t *testing.T) {
	v, row := renderedRig(t)

	assert.Equal(t, "rig_1", row.ID)
	assert.True(t, row.Open)
	require.Len(t, row.Cells, 15)
	require.Len(t, v.Header, 16)

	text := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		text[i] = c.Text
		assert.Equal(t, v.Header[i+1].Hidden, c.Hidden, "column %d", i+1)
	}
	assert.Equal(t, []string{
		"78", "55", "2.5 / 2 / 1.5", "4.0 / 16.0",
		"62", "99", "150.4", "45", "2.0 / 8.0", "1800", "7000",
		"50/0", "10/1", "1",
		"12.3 kH/s XMRig | 25.00 MH/s Rigel | SRBMiner CPU 800 H/s",
	}, text)

	assert.Equal(t, "status-hot", row.Cells[0].Class)
	assert.Equal(t, "status-warm", row.Cells[4].Class)
	assert.Equal(t, "shares-perfect", row.Cells[11].Class)
	assert.Equal(t, "shares-bad", row.Cells[12].Class)
	assert.Equal(t, "gpu shares (accepted/rejected)", row.Cells[12].Title)
	assert.True(t, row.Cells[2].Hidden)
	assert.Equal(t, "3 seconds ago", v.LastUpdate)
}

func TestRenderMinerBlocks(t *testing.T) {
	_, row := renderedRig(t)

	assert.Equal(t, "Miners - NVIDIA DRIVER 535.104.05", row.MinersHeader)
	require.Len(t, row.Miners, 3, "bzminer has no positive hashrate")

	xmrig := row.Miners[0]
	assert.Equal(t, "XMRig v6.21.1", xmrig.Title)
	assert.Equal(t, []Stat{
		{"ALGORITHM", "rx/0"},
		{"HASHRATE", "12.3 kH/s"},
		{"CPU THREADS", "12"},
		{"SHARES", "50/0"},
		{"UPTIME", "10m"},
		{"POOL", "xmr.pool:443"},
	}, xmrig.Stats)

	rigel := row.Miners[1]
	assert.Contains(t, rigel.Stats, Stat{"LOCAL HASHRATE", "25.00 MH/s"})
	assert.Contains(t, rigel.Stats, Stat{"POOL HASHRATE", "24.00 MH/s"})
	assert.Contains(t, rigel.Stats, Stat{"UPTIME", "2h 0m"})

	srb := row.Miners[2]
	assert.Equal(t, []Stat{
		{"ALGORITHM", "verushash"},
		{"CPU HASHRATE", "800 H/s"},
		{"TOTAL HASHRATE", "800 H/s"},
		{"CPU THREADS", "8 workers"},
		{"SHARES", "--"},
		{"UPTIME", "--"},
	}, srb.Stats)

	require.Len(t, row.Containers, 1)
	assert.Equal(t, ContainerView{Name: "rigel", Image: "rig/rigel:1.9", Uptime: "1h 1m"}, row.Containers[0])
}

func TestRenderBzMinerBlock(t *testing.T) {
	s := NewState()
	s.Rigs = rigs(t, map[string]string{"bz": `{"miner_bzminer": {"status": "ok", "total_devices": 2, "cuda_driver": "12.2.0",
		"algorithms": [{"algorithm": "kheavyhash", "hashrate_hs": 1500}]}}`})

	row := Render(s, testNow).Rows[0]
	assert.Equal(t, "Miners", row.MinersHeader)
	require.Len(t, row.Miners, 1)
	assert.Equal(t, "BzMiner Unknown", row.Miners[0].Title)
	assert.Contains(t, row.Miners[0].Stats, Stat{"DEVICES", "2"})
	assert.Contains(t, row.Miners[0].Stats, Stat{"CUDA", "CUDA 12.2"})
	assert.Equal(t, "1.50 kH/s BzMiner", row.Cells[14].Text)
}

func TestRenderEmptyRig(t *testing.T) {
	v, _ := renderedRig(t)
	row := v.Rows[0]

	assert.Equal(t, "rig_0", row.ID)
	assert.False(t, row.Open)
	assert.Empty(t, row.MinersHeader)
	assert.Empty(t, row.Miners)
	assert.Equal(t, "--", row.Cells[0].Text)
	assert.Equal(t, "-- / -- / --", row.Cells[2].Text)
	assert.Equal(t, "0", row.Cells[13].Text)
	assert.Equal(t, "", row.Cells[14].Text)
}

func TestStatsFollowSelection(t *testing.T) {
	s := NewState()
	s.Rigs = rigs(t, map[string]string{
		"a": `{"gpus": [{"power_watts": 1000.4}], "miner_rigel": {"status": "ok", "algorithms": [{"algorithm": "kawpow", "hashrate_hs": 2000}]}}`,
		"b": `{"gpus": [{"power_watts": 300}], "miner_xmrig": {"status": "ok", "algorithms": [{"algorithm": "rx/0", "hashrate_hs": 5000}]},
		       "miner_rigel": {"status": "ok", "algorithms": [{"algorithm": "kawpow", "hashrate_hs": 2000}]}}`,
	})

	v := Render(s, testNow)
	assert.Equal(t, "GPU W: 1,300", v.Watts)
	assert.Equal(t, "rx/0: 5.00 kH/s | kawpow: 4.00 kH/s", v.Hashrate)

	s.Selected["a"] = true
	v = Render(s, testNow)
	assert.Equal(t, "GPU W: 1,000", v.Watts)
	assert.Equal(t, "kawpow: 2.00 kH/s", v.Hashrate)

	s.Selected = map[string]bool{"gone": true}
	v = Render(s, testNow)
	assert.Equal(t, "GPU W: --", v.Watts)
	assert.Equal(t, "--", v.Hashrate)
}

func TestRenderIsDeterministic(t *testing.T) {
	s := NewState()
	s.Rigs = rigs(t, map[string]string{"x": fullRig, "y": fullRig})
	assert.Equal(t, Render(s, testNow), Render(s.Clone(), testNow))
}

func TestTemplatesRender(t *testing.T) {
	v, _ := renderedRig(t)
	v.Command = CommandModal{Open: true, Input: "echo <hi>", Output: "\n[rig] returncode=0\n"}

	var page strings.Builder
	require.NoError(t, RenderPage(&page, v))
	html := page.String()
	assert.Contains(t, html, `data-rig="rig 1"`)
	assert.Contains(t, html, `id="docker-rig_1"`)
	assert.Contains(t, html, "Miners - NVIDIA DRIVER 535.104.05")
	assert.Contains(t, html, "echo &lt;hi&gt;")
	assert.Contains(t, html, "column-hidden")
	assert.Contains(t, html, `addEventListener("keydown"`)
	assert.Contains(t, html, `post("select-all")`)

	frag, err := RigsHTML(v)
	require.NoError(t, err)
	assert.NotContains(t, frag, "<html")
	assert.Contains(t, frag, "12.3 kH/s XMRig")
}
