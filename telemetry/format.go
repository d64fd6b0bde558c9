package telemetry

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Styled is a display string paired with its CSS class
type Styled struct {
	Value string
	Class string
	Title string
}

var (
	versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)*`)
	cudaPattern    = regexp.MustCompile(`^\d+\.\d+$`)
	unsafeIDChars  = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// FormatRate renders a hashrate in H/s, kH/s or MH/s. It returns an empty
// string for rates that are not positive.
func FormatRate(hs float64, label string) string {
	if hs <= 0 || math.IsNaN(hs) {
		return ""
	}

	var out string
	switch {
	case hs >= 1e6:
		out = fmt.Sprintf("%.2f MH/s", hs/1e6)
	case hs >= 1e3:
		out = fmt.Sprintf("%.2f kH/s", hs/1e3)
	default:
		out = fmt.Sprintf("%.0f H/s", hs)
	}
	if label != "" {
		out += " " + label
	}
	return out
}

// FormatKiloRate renders a CPU hashrate the way XMRig reports it
func FormatKiloRate(hs float64) string {
	if hs <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1f kH/s", hs/1e3)
}

// FormatUptime renders seconds as "2d 3h", "3h 12m" or "12m"
func FormatUptime(sec float64) string {
	if sec <= 0 {
		return Placeholder
	}
	s := int64(sec)
	d := s / 86400
	h := (s % 86400) / 3600
	m := (s % 3600) / 60

	switch {
	case d > 0:
		return fmt.Sprintf("%dd %dh", d, h)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatShares renders share counters as accepted/rejected
func FormatShares(accepted, rejected Count) string {
	switch {
	case accepted.Valid && rejected.Valid:
		return accepted.String() + "/" + rejected.String()
	case accepted.Valid:
		return accepted.String()
	}
	return Placeholder
}

// FormatTemp renders a CPU or GPU temperature with its status class
func FormatTemp(temp float64, ok bool, kind string) Styled {
	if !ok {
		return Styled{Value: Placeholder, Class: ClassGood}
	}

	class := ClassGood
	if kind == "cpu" || kind == "gpu" {
		switch {
		case temp >= TempHot:
			class = ClassHot
		case temp >= TempWarm:
			class = ClassWarm
		}
	}
	return Styled{Value: fmt.Sprintf("%.0f", temp), Class: class}
}

// FormatFan renders a fan speed with its status class
func FormatFan(fan float64, ok bool) Styled {
	if !ok {
		return Styled{Value: Placeholder, Class: ClassGood}
	}

	class := ClassGood
	switch {
	case fan >= FanHot:
		class = ClassHot
	case fan >= FanWarm:
		class = ClassWarm
	}
	return Styled{Value: formatPlain(fan), Class: class}
}

// FormatService renders a service badge labelled with kind
func FormatService(status ServiceStatus, kind string) Styled {
	class := ClassServiceBad
	if status.Active {
		class = ClassServiceOK
	}
	return Styled{Value: strings.ToUpper(kind), Class: class}
}

// FormatVersion extracts a dotted version number from a miner version string
func FormatVersion(version string) string {
	if version == "" || version == Placeholder {
		return "Unknown"
	}
	if m := versionPattern.FindString(version); m != "" {
		return "v" + m
	}
	return version
}

// FormatDriver cleans up a driver version, labelling x.y versions as CUDA
func FormatDriver(driver string) string {
	if driver == "" || driver == Placeholder {
		return "Unknown"
	}
	clean := strings.TrimSuffix(driver, ".0")
	if cudaPattern.MatchString(clean) {
		return "CUDA " + clean
	}
	return clean
}

// SharesClass classifies a share tally by its rejection ratio
func SharesClass(shares Shares) string {
	if shares.Accepted == 0 {
		return ClassUnknown
	}

	ratio := shares.Ratio()
	switch {
	case ratio == 0:
		return ClassSharesPerfect
	case ratio < RejectGood:
		return ClassSharesGood
	case ratio < RejectWarning:
		return ClassSharesWarning
	}
	return ClassSharesBad
}

// FormatSharesCell renders a share tally with its class
func FormatSharesCell(shares Shares) Styled {
	if shares.Accepted == 0 && shares.Rejected == 0 {
		return Styled{Value: "0/0", Class: ClassUnknown}
	}
	return Styled{Value: shares.String(), Class: SharesClass(shares)}
}

// FormatWatts renders the GPU power total for the stats bar
func FormatWatts(watts float64) string {
	if watts <= 0 {
		return "GPU W: " + Placeholder
	}
	return "GPU W: " + humanize.Comma(int64(math.Round(watts)))
}

// FormatSince renders how long ago t happened
func FormatSince(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// SanitizeID turns a rig name into a safe element id
func SanitizeID(name string) string {
	return unsafeIDChars.ReplaceAllString(name, "_")
}
