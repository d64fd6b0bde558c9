package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is the raw telemetry object a rig agent publishes. It is kept
// as decoded JSON so that fields added by newer agents survive a round trip;
// the getters below project it into typed values and never fail.
type Snapshot map[string]interface{}

// GPU is one entry of a snapshot's "gpus" list
type GPU map[string]interface{}

// Container is one entry of a snapshot's "docker" list
type Container map[string]interface{}

// Count is a share counter that may be missing from the report
type Count struct {
	N     float64
	Valid bool
}

// String renders the counter or the placeholder
func (c Count) String() string {
	if !c.Valid {
		return Placeholder
	}
	return formatPlain(c.N)
}

// Usage is a used/total pair converted from MB to GB
type Usage struct {
	UsedGB  string
	TotalGB string
	Text    string
}

// ServiceStatus describes one systemd service on the rig
type ServiceStatus struct {
	State  string
	Active bool
	Uptime float64
}

var emptyUsage = Usage{UsedGB: Placeholder, TotalGB: Placeholder, Text: Placeholder}

// DecodeSnapshot parses a raw JSON telemetry object
func DecodeSnapshot(raw []byte) (Snapshot, error) {
	var s Snapshot
	if err := codec.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

// CPUTemp returns the CPU package temperature
func (s Snapshot) CPUTemp() (float64, bool) {
	return asNumber(s["cpu_temp"])
}

// CPUUsage returns the CPU utilisation percentage
func (s Snapshot) CPUUsage() (float64, bool) {
	return asNumber(s["cpu_usage"])
}

// CPUUsageText returns the CPU utilisation rounded for display
func (s Snapshot) CPUUsageText() string {
	if v, ok := s.CPUUsage(); ok {
		return fmt.Sprintf("%.0f", v)
	}
	return Placeholder
}

// Load returns the load average for an interval such as "1m", "5m" or "15m"
func (s Snapshot) Load(interval string) string {
	return display(asObject(s["load"])[interval])
}

// Memory returns RAM usage in GB
func (s Snapshot) Memory() Usage {
	mem := asObject(s["memory"])
	total, ok := asNumber(mem["total_mb"])
	if !ok || total == 0 {
		return emptyUsage
	}
	used, ok := asNumber(mem["used_mb"])
	if !ok {
		return emptyUsage
	}
	return newUsage(used, total)
}

// GPUs returns every GPU the rig reported
func (s Snapshot) GPUs() []GPU {
	list := asList(s["gpus"])
	gpus := make([]GPU, 0, len(list))
	for _, item := range list {
		gpus = append(gpus, GPU(asObject(item)))
	}
	return gpus
}

// PrimaryGPU returns the first GPU, or an empty record
func (s Snapshot) PrimaryGPU() GPU {
	gpus := s.GPUs()
	if len(gpus) == 0 {
		return GPU{}
	}
	return gpus[0]
}

// TotalGPUPower sums the power draw of every GPU in watts
func (s Snapshot) TotalGPUPower() float64 {
	var total float64
	for _, gpu := range s.GPUs() {
		if w, ok := gpu.PowerWatts(); ok {
			total += w
		}
	}
	return total
}

// NvidiaDriverVersion returns the driver version of the first GPU
func (s Snapshot) NvidiaDriverVersion() string {
	gpus := s.GPUs()
	if len(gpus) == 0 {
		return Placeholder
	}
	if v := asString(gpus[0]["driver_version"]); v != "" {
		return v
	}
	return Placeholder
}

// Service returns the status of a named service such as CPUService
func (s Snapshot) Service(key string) ServiceStatus {
	svc := asObject(s[key])
	state := asString(svc["state"])
	if state == "" {
		state = "unknown"
	}
	uptime, _ := asNumber(svc["uptime"])
	return ServiceStatus{
		State:  state,
		Active: state == ServiceActive,
		Uptime: uptime,
	}
}

// Containers returns the docker containers running on the rig
func (s Snapshot) Containers() []Container {
	list := asList(s["docker"])
	containers := make([]Container, 0, len(list))
	for _, item := range list {
		containers = append(containers, Container(asObject(item)))
	}
	return containers
}

// Temp returns the GPU core temperature
func (g GPU) Temp() (float64, bool) {
	return asNumber(g["temp"])
}

// Util returns the GPU utilisation as reported
func (g GPU) Util() string {
	return display(g["util"])
}

// PowerWatts returns the GPU power draw
func (g GPU) PowerWatts() (float64, bool) {
	return asNumber(g["power_watts"])
}

// PowerText returns the GPU power draw with one decimal
func (g GPU) PowerText() string {
	if w, ok := g.PowerWatts(); ok {
		return fmt.Sprintf("%.1f", w)
	}
	return Placeholder
}

// Fan returns the fan speed percentage
func (g GPU) Fan() (float64, bool) {
	return asNumber(g["fan_percent"])
}

// CoreClock returns the SM clock in MHz
func (g GPU) CoreClock() string {
	return display(g["sm_clock"])
}

// MemClock returns the memory clock in MHz
func (g GPU) MemClock() string {
	return display(g["mem_clock"])
}

// VRAM returns video memory usage in GB
func (g GPU) VRAM() Usage {
	used, uok := asNumber(g["vram_used"])
	total, tok := asNumber(g["vram_total"])
	if !uok || !tok {
		return emptyUsage
	}
	return newUsage(used, total)
}

// DriverVersion returns the driver version reported for this GPU
func (g GPU) DriverVersion() string {
	if v := asString(g["driver_version"]); v != "" {
		return v
	}
	return Placeholder
}

// Name returns the GPU model
func (g GPU) Name() string {
	if v := asString(g["name"]); v != "" {
		return v
	}
	return "Unknown GPU"
}

// Name returns the container name
func (c Container) Name() string {
	return asString(c["name"])
}

// Image returns the container image reference
func (c Container) Image() string {
	return asString(c["image"])
}

// State returns the docker state of the container
func (c Container) State() string {
	return asString(c["state"])
}

// Uptime returns seconds since the container started
func (c Container) Uptime() float64 {
	v, _ := asNumber(c["uptime_seconds"])
	return v
}

func newUsage(usedMB, totalMB float64) Usage {
	used := fmt.Sprintf("%.1f", usedMB/1024)
	total := fmt.Sprintf("%.1f", totalMB/1024)
	return Usage{UsedGB: used, TotalGB: total, Text: used + " / " + total}
}

func asObject(v interface{}) map[string]interface{} {
	switch m := v.(type) {
	case map[string]interface{}:
		return m
	case Snapshot:
		return m
	case GPU:
		return m
	case Container:
		return m
	case Miner:
		return m
	case Algorithm:
		return m
	}
	return nil
}

func asList(v interface{}) []interface{} {
	if l, ok := v.([]interface{}); ok {
		return l
	}
	return nil
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(s)
	}
	if f, ok := asNumber(v); ok {
		return formatPlain(f)
	}
	return ""
}

// display renders a raw value the way it was reported, or the placeholder
func display(v interface{}) string {
	if s := asString(v); s != "" {
		return s
	}
	return Placeholder
}

func formatPlain(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
