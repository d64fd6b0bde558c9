package telemetry

import (
	"sort"
)

// Miner is the report of one mining program on a rig
type Miner map[string]interface{}

// Algorithm is one algorithm a miner is working on
type Algorithm map[string]interface{}

// ActiveMiner pairs a running miner with its key and display name
type ActiveMiner struct {
	Key   string
	Name  string
	Miner Miner
}

// AlgorithmRef is an algorithm annotated with the miner that reported it
type AlgorithmRef struct {
	Algorithm
	MinerKey     string
	MinerName    string
	MinerVersion string
	MinerUptime  float64
	CUDADriver   string
}

// AlgorithmTotals groups every miner working on one algorithm
type AlgorithmTotals struct {
	TotalHashrate float64
	Miners        []string
	Threads       []ThreadRate
}

// ThreadRate is the hashrate of one CPU or GPU worker thread
type ThreadRate struct {
	Algorithm string
	Miner     string
	Thread    string
	Type      string
	Hashrate  float64
	Formatted string
}

// ThreadStats summarises per-thread hashrates
type ThreadStats struct {
	TotalThreads  int
	TotalHashrate float64
	AvgPerThread  float64
	MinPerThread  float64
	MaxPerThread  float64
}

// MinerSummary is a flattened row per miner and algorithm
type MinerSummary struct {
	Miner       string
	Version     string
	Algorithm   string
	Hashrate    float64
	Pool        string
	Accepted    float64
	Rejected    float64
	Uptime      float64
	ThreadCount int
	CUDADriver  string
}

// Shares is an accepted/rejected share tally
type Shares struct {
	Accepted float64
	Rejected float64
}

// Ratio returns the fraction of rejected shares
func (s Shares) Ratio() float64 {
	total := s.Accepted + s.Rejected
	if total <= 0 {
		return 0
	}
	return s.Rejected / total
}

// String renders the tally as accepted/rejected
func (s Shares) String() string {
	return formatPlain(s.Accepted) + "/" + formatPlain(s.Rejected)
}

// Miner returns the report for a miner key, or nil when absent
func (s Snapshot) Miner(key string) Miner {
	m := asObject(s[key])
	if m == nil {
		return nil
	}
	return Miner(m)
}

// IsMinerActive reports whether a miner is healthy and hashing something
func (s Snapshot) IsMinerActive(key string) bool {
	m := s.Miner(key)
	return m != nil && m.Status() == StatusOK && len(m.Algorithms()) > 0
}

// ActiveMiners returns the active miners in display order
func (s Snapshot) ActiveMiners() []ActiveMiner {
	var active []ActiveMiner
	for _, key := range MinerKeys {
		if !s.IsMinerActive(key) {
			continue
		}
		active = append(active, ActiveMiner{
			Key:   key,
			Name:  MinerDisplayName(key),
			Miner: s.Miner(key),
		})
	}
	return active
}

// MinerAlgorithms returns the algorithms of a miner whose status is ok
func (s Snapshot) MinerAlgorithms(key string) []Algorithm {
	m := s.Miner(key)
	if m == nil || m.Status() != StatusOK {
		return nil
	}
	return m.Algorithms()
}

// AllAlgorithms flattens the algorithms of every active miner
func (s Snapshot) AllAlgorithms() []AlgorithmRef {
	var refs []AlgorithmRef
	for _, am := range s.ActiveMiners() {
		for _, algo := range am.Miner.Algorithms() {
			refs = append(refs, AlgorithmRef{
				Algorithm:    algo,
				MinerKey:     am.Key,
				MinerName:    am.Name,
				MinerVersion: am.Miner.Version(),
				MinerUptime:  am.Miner.Uptime(),
				CUDADriver:   am.Miner.CUDADriver(),
			})
		}
	}
	return refs
}

// TotalHashrateAllMiners sums the hashrate of every active algorithm
func (s Snapshot) TotalHashrateAllMiners() float64 {
	var total float64
	for _, ref := range s.AllAlgorithms() {
		total += ref.TotalHashrate()
	}
	return total
}

// HashrateByAlgorithm groups hashrate and miner descriptions per algorithm
func (s Snapshot) HashrateByAlgorithm() map[string]*AlgorithmTotals {
	totals := make(map[string]*AlgorithmTotals)
	for _, ref := range s.AllAlgorithms() {
		name := ref.Name()
		entry, ok := totals[name]
		if !ok {
			entry = &AlgorithmTotals{}
			totals[name] = entry
		}

		rate := ref.TotalHashrate()
		entry.TotalHashrate += rate
		version := ref.MinerVersion

		if ref.MinerKey == MinerSRBMiner {
			if cpu := ref.CPUHashrate(); cpu > 0 {
				entry.Miners = append(entry.Miners, "CPU "+FormatRate(cpu, "")+" "+ref.MinerName+" v"+version)
				entry.Threads = append(entry.Threads, ref.threadRates("CPU")...)
			}
			if gpu := ref.GPUHashrate(); gpu > 0 {
				entry.Miners = append(entry.Miners, "GPU "+FormatRate(gpu, "")+" "+ref.MinerName+" v"+version)
			}
			continue
		}

		entry.Miners = append(entry.Miners, FormatRate(rate, "")+" "+ref.MinerName+" v"+version)
		kind := "GPU"
		if ref.MinerKey == MinerXMRig {
			kind = "CPU"
		}
		entry.Threads = append(entry.Threads, ref.threadRates(kind)...)
	}
	return totals
}

// MinerSummary returns one row per active miner and algorithm
func (s Snapshot) MinerSummary() []MinerSummary {
	var rows []MinerSummary
	for _, am := range s.ActiveMiners() {
		for _, algo := range s.MinerAlgorithms(am.Key) {
			accepted := algo.Accepted()
			rejected := algo.Rejected()
			threads := algo.CPUThreads()
			if threads == 0 {
				threads = len(algo.ThreadHashrates())
			}
			rows = append(rows, MinerSummary{
				Miner:       am.Name,
				Version:     am.Miner.Version(),
				Algorithm:   algo.Name(),
				Hashrate:    algo.TotalHashrate(),
				Pool:        algo.Pool(),
				Accepted:    accepted.N,
				Rejected:    rejected.N,
				Uptime:      am.Miner.Uptime(),
				ThreadCount: threads,
				CUDADriver:  am.Miner.CUDADriver(),
			})
		}
	}
	return rows
}

// CPUThreadAnalysis lists per-thread hashrates, falling back to the thread
// count for miners that only report a total
func (s Snapshot) CPUThreadAnalysis() []ThreadRate {
	var analysis []ThreadRate
	for _, ref := range s.AllAlgorithms() {
		threads := ref.ThreadHashrates()
		if len(threads) > 0 {
			analysis = append(analysis, ref.threadRates("")...)
			continue
		}
		if n := ref.CPUThreads(); n > 0 {
			total := ref.TotalHashrate()
			analysis = append(analysis, ThreadRate{
				Algorithm: ref.Name(),
				Miner:     ref.MinerName,
				Thread:    formatPlain(float64(n)) + " threads",
				Hashrate:  total,
				Formatted: FormatRate(total, ""),
			})
		}
	}
	return analysis
}

// ThreadStatistics summarises CPUThreadAnalysis; ok is false without threads
func (s Snapshot) ThreadStatistics() (ThreadStats, bool) {
	threads := s.CPUThreadAnalysis()
	if len(threads) == 0 {
		return ThreadStats{}, false
	}

	stats := ThreadStats{
		TotalThreads: len(threads),
		MinPerThread: threads[0].Hashrate,
		MaxPerThread: threads[0].Hashrate,
	}
	for _, t := range threads {
		stats.TotalHashrate += t.Hashrate
		if t.Hashrate < stats.MinPerThread {
			stats.MinPerThread = t.Hashrate
		}
		if t.Hashrate > stats.MaxPerThread {
			stats.MaxPerThread = t.Hashrate
		}
	}
	stats.AvgPerThread = stats.TotalHashrate / float64(len(threads))
	return stats, true
}

// CPUShares tallies shares of CPU miners and the CPU side of SRBMiner
func (s Snapshot) CPUShares() Shares {
	var shares Shares
	for _, ref := range s.AllAlgorithms() {
		if ref.MinerKey != MinerXMRig && ref.MinerKey != MinerSRBMiner {
			continue
		}
		shares.Accepted += ref.Accepted().N
		shares.Rejected += ref.Rejected().N
	}
	return shares
}

// GPUShares tallies shares of every miner except XMRig and CPU-only SRBMiner
func (s Snapshot) GPUShares() Shares {
	var shares Shares
	for _, ref := range s.AllAlgorithms() {
		if ref.MinerKey == MinerXMRig {
			continue
		}
		if ref.MinerKey == MinerSRBMiner && ref.CPUHashrate() > 0 && ref.GPUHashrate() == 0 {
			continue
		}
		shares.Accepted += ref.Accepted().N
		shares.Rejected += ref.Rejected().N
	}
	return shares
}

// CPUColumn returns the CPU share cell, or the CPU service badge when no
// share has been counted
func (s Snapshot) CPUColumn() Styled {
	return s.serviceColumn(s.CPUShares(), CPUService, "cpu")
}

// GPUColumn returns the GPU share cell, or the GPU service badge
func (s Snapshot) GPUColumn() Styled {
	return s.serviceColumn(s.GPUShares(), GPUService, "gpu")
}

func (s Snapshot) serviceColumn(shares Shares, service, kind string) Styled {
	if shares.Accepted > 0 || shares.Rejected > 0 {
		cell := FormatSharesCell(shares)
		cell.Title = kind + " shares (accepted/rejected)"
		return cell
	}
	return FormatService(s.Service(service), kind)
}

// Status returns the miner status flag
func (m Miner) Status() string {
	return asString(m["status"])
}

// Version returns the miner program version
func (m Miner) Version() string {
	if v := asString(m["miner_version"]); v != "" {
		return v
	}
	return Placeholder
}

// CUDADriver returns the CUDA driver version the miner detected
func (m Miner) CUDADriver() string {
	if v := asString(m["cuda_driver_version"]); v != "" {
		return v
	}
	if v := asString(m["cuda_driver"]); v != "" {
		return v
	}
	return Placeholder
}

// Uptime returns seconds since the miner started
func (m Miner) Uptime() float64 {
	v, _ := asNumber(m["uptime_s"])
	return v
}

// RigName returns the worker name the miner reports (BzMiner)
func (m Miner) RigName() string {
	if v := asString(m["rig_name"]); v != "" {
		return v
	}
	return Placeholder
}

// TotalDevices returns the number of devices the miner drives (BzMiner)
func (m Miner) TotalDevices() int {
	v, _ := asNumber(m["total_devices"])
	return int(v)
}

// Algorithms returns the algorithm records of the miner
func (m Miner) Algorithms() []Algorithm {
	list := asList(m["algorithms"])
	algos := make([]Algorithm, 0, len(list))
	for _, item := range list {
		algos = append(algos, Algorithm(asObject(item)))
	}
	return algos
}

// Name returns the algorithm name
func (a Algorithm) Name() string {
	return display(a["algorithm"])
}

// Hashrate returns the combined hashrate in H/s
func (a Algorithm) Hashrate() float64 {
	return a.positive("hashrate_hs")
}

// CPUHashrate returns the CPU component of a split report
func (a Algorithm) CPUHashrate() float64 {
	return a.positive("cpu_hashrate_hs")
}

// GPUHashrate returns the GPU component of a split report
func (a Algorithm) GPUHashrate() float64 {
	return a.positive("gpu_hashrate_hs")
}

// PoolHashrate returns the hashrate as seen by the pool (Rigel)
func (a Algorithm) PoolHashrate() float64 {
	return a.positive("pool_hashrate_hs")
}

// TotalHashrate returns the combined hashrate, or the sum of the CPU and
// GPU components for miners that only report a split
func (a Algorithm) TotalHashrate() float64 {
	if hs := a.Hashrate(); hs > 0 {
		return hs
	}
	return a.CPUHashrate() + a.GPUHashrate()
}

// Accepted returns the accepted share counter
func (a Algorithm) Accepted() Count {
	return a.count("accepted_shares")
}

// Rejected returns the rejected share counter
func (a Algorithm) Rejected() Count {
	return a.count("rejected_shares")
}

// Pool returns the pool address
func (a Algorithm) Pool() string {
	return asString(a["pool"])
}

// Workers returns the worker count as reported
func (a Algorithm) Workers() string {
	return asString(a["workers"])
}

// CPUWorkers returns the CPU worker count (SRBMiner)
func (a Algorithm) CPUWorkers() string {
	return asString(a["cpu_workers"])
}

// GPUWorkers returns the GPU worker count (SRBMiner)
func (a Algorithm) GPUWorkers() string {
	return asString(a["gpu_workers"])
}

// CPUThreads returns the CPU thread count (XMRig)
func (a Algorithm) CPUThreads() int {
	v, _ := asNumber(a["cpu_threads"])
	return int(v)
}

// ThreadHashrates returns per-thread hashrates keyed by thread name
func (a Algorithm) ThreadHashrates() map[string]float64 {
	rates := make(map[string]float64)
	for name, v := range asObject(a["thread_hashrates"]) {
		if f, ok := asNumber(v); ok {
			rates[name] = f
		}
	}
	return rates
}

func (a Algorithm) positive(key string) float64 {
	v, ok := asNumber(a[key])
	if !ok || v < 0 {
		return 0
	}
	return v
}

func (a Algorithm) count(key string) Count {
	v, ok := asNumber(a[key])
	return Count{N: v, Valid: ok}
}

// threadRates lists per-thread rates sorted by thread name
func (r AlgorithmRef) threadRates(kind string) []ThreadRate {
	rates := r.ThreadHashrates()
	names := make([]string, 0, len(rates))
	for name := range rates {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ThreadRate, 0, len(names))
	for _, name := range names {
		out = append(out, ThreadRate{
			Algorithm: r.Name(),
			Miner:     r.MinerName,
			Thread:    name,
			Type:      kind,
			Hashrate:  rates[name],
			Formatted: FormatRate(rates[name], ""),
		})
	}
	return out
}
