package dashboard

import (
	"strconv"
	"strings"
	"time"

	"github.com/alexandrut83/rigdash/telemetry"
)

// HeaderLabels are the column titles, index 0 being the rig name
var HeaderLabels = [LastColumn + 1]string{
	"Name", "CPU °C", "CPU %", "Load", "RAM GB",
	"GPU °C", "GPU %", "GPU W", "Fan %", "VRAM GB",
	"Core MHz", "Mem MHz", "CPU", "GPU", "Docker", "Miners",
}

// HeaderCell is one column title
type HeaderCell struct {
	Index  int
	Label  string
	Hidden bool
}

// Cell is one metric in a rig row
type Cell struct {
	Index  int
	Text   string
	Class  string
	Title  string
	Hidden bool
}

// Stat is a labelled value inside a miner block
type Stat struct {
	Label string
	Value string
}

// MinerBlock describes one algorithm run by one miner
type MinerBlock struct {
	Title string
	Stats []Stat
}

// ContainerView is one docker container in the detail panel
type ContainerView struct {
	Name   string
	Image  string
	Uptime string
}

// Row is one rendered rig
type Row struct {
	Name         string
	ID           string
	Selected     bool
	Open         bool
	Cells        []Cell
	Containers   []ContainerView
	MinersHeader string
	Miners       []MinerBlock
}

// View is everything the page shows, computed from State alone
type View struct {
	Header        []HeaderCell
	Rows          []Row
	Mode          Mode
	AllSelected   bool
	SelectedCount int
	Watts         string
	Hashrate      string
	ActionOutput  string
	Command       CommandModal
	LastUpdate    string
	Resetting     bool
}

// Render projects the state into a view. It has no side effects; the same
// state and clock always produce the same view.
func Render(s *State, now time.Time) View {
	v := View{
		Mode:          s.Mode,
		AllSelected:   s.AllSelected(),
		SelectedCount: len(s.SelectedNames()),
		ActionOutput:  s.ActionOutput,
		Command:       s.Command,
		LastUpdate:    telemetry.FormatSince(s.LastUpdate, now),
		Resetting:     s.Resetting,
	}

	for i, label := range HeaderLabels {
		v.Header = append(v.Header, HeaderCell{Index: i, Label: label, Hidden: s.Hidden[i]})
	}

	for _, name := range s.RigNames() {
		v.Rows = append(v.Rows, renderRow(s, name))
	}

	stats := Aggregate(s)
	v.Watts = stats.WattsText()
	v.Hashrate = stats.HashrateText()
	return v
}

func renderRow(s *State, name string) Row {
	d := s.Rigs[name].Data
	id := telemetry.SanitizeID(name)
	gpu := d.PrimaryGPU()

	cpuTemp, cpuOK := d.CPUTemp()
	gpuTemp, gpuOK := gpu.Temp()
	fan, fanOK := gpu.Fan()
	cpuTempCell := telemetry.FormatTemp(cpuTemp, cpuOK, "cpu")
	gpuTempCell := telemetry.FormatTemp(gpuTemp, gpuOK, "gpu")
	fanCell := telemetry.FormatFan(fan, fanOK)
	cpuCol := d.CPUColumn()
	gpuCol := d.GPUColumn()
	containers := d.Containers()

	cells := []Cell{
		{Text: cpuTempCell.Value, Class: cpuTempCell.Class},
		{Text: d.CPUUsageText()},
		{Text: d.Load("1m") + " / " + d.Load("5m") + " / " + d.Load("15m")},
		{Text: d.Memory().Text},
		{Text: gpuTempCell.Value, Class: gpuTempCell.Class},
		{Text: gpu.Util()},
		{Text: gpu.PowerText()},
		{Text: fanCell.Value, Class: fanCell.Class},
		{Text: gpu.VRAM().Text},
		{Text: gpu.CoreClock()},
		{Text: gpu.MemClock()},
		{Text: cpuCol.Value, Class: cpuCol.Class, Title: cpuCol.Title},
		{Text: gpuCol.Value, Class: gpuCol.Class, Title: gpuCol.Title},
		{Text: strconv.Itoa(len(containers))},
		{Text: rowSummary(d), Class: "metric-left"},
	}
	for i := range cells {
		cells[i].Index = i + 1
		cells[i].Hidden = s.Hidden[i+1]
	}

	row := Row{
		Name:     name,
		ID:       id,
		Selected: s.Selected[name],
		Open:     s.Popovers[id],
		Cells:    cells,
		Miners:   minerBlocks(d),
	}
	for _, c := range containers {
		row.Containers = append(row.Containers, ContainerView{
			Name:   c.Name(),
			Image:  c.Image(),
			Uptime: telemetry.FormatUptime(c.Uptime()),
		})
	}
	if len(row.Miners) > 0 {
		row.MinersHeader = "Miners"
		if drv := d.NvidiaDriverVersion(); drv != telemetry.Placeholder {
			row.MinersHeader = "Miners - NVIDIA DRIVER " + telemetry.FormatDriver(drv)
		}
	}
	return row
}

// rowSummary joins each active miner's rate into the collapsed row text
func rowSummary(d telemetry.Snapshot) string {
	var parts []string
	for _, am := range d.ActiveMiners() {
		for _, algo := range d.MinerAlgorithms(am.Key) {
			total := algo.TotalHashrate()
			if total <= 0 {
				continue
			}
			switch am.Key {
			case telemetry.MinerSRBMiner:
				var split []string
				if cpu := algo.CPUHashrate(); cpu > 0 {
					split = append(split, "CPU "+telemetry.FormatRate(cpu, ""))
				}
				if gpu := algo.GPUHashrate(); gpu > 0 {
					split = append(split, "GPU "+telemetry.FormatRate(gpu, ""))
				}
				if len(split) > 0 {
					parts = append(parts, am.Name+" "+strings.Join(split, " | "))
				}
			case telemetry.MinerXMRig:
				parts = append(parts, telemetry.FormatKiloRate(total)+" "+am.Name)
			default:
				parts = append(parts, telemetry.FormatRate(total, am.Name))
			}
		}
	}
	return strings.Join(parts, " | ")
}

func minerBlocks(d telemetry.Snapshot) []MinerBlock {
	var blocks []MinerBlock
	for _, am := range d.ActiveMiners() {
		for _, algo := range d.MinerAlgorithms(am.Key) {
			total := algo.TotalHashrate()
			if total <= 0 {
				continue
			}

			var stats []Stat
			add := func(label, value string) {
				stats = append(stats, Stat{Label: label, Value: value})
			}
			add("ALGORITHM", algo.Name())

			switch am.Key {
			case telemetry.MinerSRBMiner:
				if cpu := algo.CPUHashrate(); cpu > 0 {
					add("CPU HASHRATE", telemetry.FormatRate(cpu, ""))
				}
				if gpu := algo.GPUHashrate(); gpu > 0 {
					add("GPU HASHRATE", telemetry.FormatRate(gpu, ""))
				}
				add("TOTAL HASHRATE", telemetry.FormatRate(total, ""))
				if threads := algo.ThreadHashrates(); len(threads) > 0 {
					add("CPU THREADS", strconv.Itoa(len(threads))+" threads")
				} else if w := algo.CPUWorkers(); w != "" && w != "0" {
					add("CPU THREADS", w+" workers")
				}

			case telemetry.MinerRigel:
				add("LOCAL HASHRATE", telemetry.FormatRate(total, ""))
				if pool := algo.PoolHashrate(); pool > 0 {
					add("POOL HASHRATE", telemetry.FormatRate(pool, ""))
				}

			case telemetry.MinerBzMiner:
				add("HASHRATE", telemetry.FormatRate(total, ""))
				if n := am.Miner.TotalDevices(); n > 0 {
					add("DEVICES", strconv.Itoa(n))
				}
				if drv := am.Miner.CUDADriver(); drv != telemetry.Placeholder {
					add("CUDA", telemetry.FormatDriver(drv))
				}

			case telemetry.MinerXMRig:
				add("HASHRATE", telemetry.FormatKiloRate(total))
				if n := algo.CPUThreads(); n > 0 {
					add("CPU THREADS", strconv.Itoa(n))
				}

			default:
				add("HASHRATE", telemetry.FormatRate(total, ""))
			}

			add("SHARES", telemetry.FormatShares(algo.Accepted(), algo.Rejected()))
			add("UPTIME", telemetry.FormatUptime(am.Miner.Uptime()))
			if pool := algo.Pool(); pool != "" {
				add("POOL", pool)
			}

			blocks = append(blocks, MinerBlock{
				Title: am.Name + " " + telemetry.FormatVersion(am.Miner.Version()),
				Stats: stats,
			})
		}
	}
	return blocks
}
