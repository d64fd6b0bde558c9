package dashboard

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alexandrut83/rigdash/telemetry"
)

// AlgorithmTotal is the summed hashrate of one algorithm
type AlgorithmTotal struct {
	Algorithm string  `json:"algorithm"`
	Hashrate  float64 `json:"hashrate_hs"`
}

// Stats aggregates the rigs in scope: the selection, or every rig when
// nothing is selected
type Stats struct {
	Rigs       int              `json:"rigs"`
	Watts      float64          `json:"gpu_watts"`
	Algorithms []AlgorithmTotal `json:"algorithms"`
}

// Aggregate computes the stats bar for the current selection
func Aggregate(s *State) Stats {
	names := s.SelectedNames()
	if len(names) == 0 {
		names = s.RigNames()
	}
	return aggregateRigs(s, names)
}

// FleetStats aggregates every rig regardless of selection
func FleetStats(s *State) Stats {
	return aggregateRigs(s, s.RigNames())
}

func aggregateRigs(s *State, names []string) Stats {
	var st Stats
	totals := make(map[string]float64)
	for _, name := range names {
		entry, ok := s.Rigs[name]
		if !ok || entry.Data == nil {
			continue
		}
		st.Rigs++
		st.Watts += entry.Data.TotalGPUPower()

		for _, ref := range entry.Data.AllAlgorithms() {
			if rate := ref.TotalHashrate(); rate > 0 {
				totals[ref.Name()] += rate
			}
		}
	}

	for algo, rate := range totals {
		st.Algorithms = append(st.Algorithms, AlgorithmTotal{Algorithm: algo, Hashrate: rate})
	}
	sort.Slice(st.Algorithms, func(i, j int) bool {
		a, b := st.Algorithms[i], st.Algorithms[j]
		if a.Hashrate != b.Hashrate {
			return a.Hashrate > b.Hashrate
		}
		return a.Algorithm < b.Algorithm
	})
	return st
}

// Total returns the hashrate summed over every algorithm
func (st Stats) Total() float64 {
	var total float64
	for _, a := range st.Algorithms {
		total += a.Hashrate
	}
	return total
}

// WattsText renders the GPU power total
func (st Stats) WattsText() string {
	return telemetry.FormatWatts(st.Watts)
}

// HashrateText renders "algo: rate" pairs in descending order
func (st Stats) HashrateText() string {
	parts := make([]string, 0, len(st.Algorithms))
	for _, a := range st.Algorithms {
		parts = append(parts, a.Algorithm+": "+telemetry.FormatRate(a.Hashrate, ""))
	}
	if len(parts) == 0 {
		return telemetry.Placeholder
	}
	return strings.Join(parts, " | ")
}

// Sample is one fleet-wide measurement
type Sample struct {
	Time     time.Time `json:"time"`
	Hashrate float64   `json:"hashrate_hs"`
	Watts    float64   `json:"gpu_watts"`
	Rigs     int       `json:"rigs"`
}

// Window summarises the samples of a trailing period
type Window struct {
	Duration    time.Duration `json:"duration"`
	Samples     int           `json:"samples"`
	AvgHashrate float64       `json:"avg_hashrate_hs"`
	MaxHashrate float64       `json:"max_hashrate_hs"`
	AvgWatts    float64       `json:"avg_gpu_watts"`
}

// History keeps recent fleet-wide samples
type History struct {
	mu      sync.RWMutex
	limit   int
	samples []Sample
}

// NewHistory creates a history holding at most limit samples
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 1000
	}
	return &History{limit: limit, samples: make([]Sample, 0, limit)}
}

// Record appends a sample, dropping the oldest when full
func (h *History) Record(sample Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.samples = append(h.samples, sample)
	if len(h.samples) > h.limit {
		h.samples = h.samples[len(h.samples)-h.limit:]
	}
}

// Samples returns a copy of the recorded samples, oldest first
func (h *History) Samples() []Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Sample(nil), h.samples...)
}

// Window summarises the samples no older than d before now
func (h *History) Window(d time.Duration, now time.Time) Window {
	h.mu.RLock()
	defer h.mu.RUnlock()

	w := Window{Duration: d}
	cutoff := now.Add(-d)
	var hashSum, wattSum float64
	for _, s := range h.samples {
		if s.Time.Before(cutoff) {
			continue
		}
		w.Samples++
		hashSum += s.Hashrate
		wattSum += s.Watts
		if s.Hashrate > w.MaxHashrate {
			w.MaxHashrate = s.Hashrate
		}
	}
	if w.Samples > 0 {
		w.AvgHashrate = hashSum / float64(w.Samples)
		w.AvgWatts = wattSum / float64(w.Samples)
	}
	return w
}
