package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "", FormatRate(0, "x"))
	assert.Equal(t, "", FormatRate(-5, ""))
	assert.Equal(t, "850 H/s", FormatRate(850, ""))
	assert.Equal(t, "1.20 kH/s", FormatRate(1200, ""))
	assert.Equal(t, "2.50 MH/s Rigel", FormatRate(2.5e6, "Rigel"))
	assert.Equal(t, "12.3 kH/s", FormatKiloRate(12345))
	assert.Equal(t, "", FormatKiloRate(0))
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "--", FormatUptime(0))
	assert.Equal(t, "5m", FormatUptime(300))
	assert.Equal(t, "2h 3m", FormatUptime(2*3600+3*60+59))
	assert.Equal(t, "1d 4h", FormatUptime(86400+4*3600+10))
}

func TestFormatTemp(t *testing.T) {
	assert.Equal(t, Styled{Value: "80", Class: "status-hot"}, FormatTemp(80, true, "cpu"))
	assert.Equal(t, "status-warm", FormatTemp(65, true, "cpu").Class)
	assert.Equal(t, "status-good", FormatTemp(50, true, "cpu").Class)
	assert.Equal(t, "status-hot", FormatTemp(75, true, "gpu").Class)
	assert.Equal(t, "status-good", FormatTemp(90, true, "board").Class)
	assert.Equal(t, Styled{Value: "--", Class: "status-good"}, FormatTemp(0, false, "cpu"))
}

func TestFormatFan(t *testing.T) {
	assert.Equal(t, Styled{Value: "85", Class: "status-hot"}, FormatFan(85, true))
	assert.Equal(t, "status-warm", FormatFan(50, true).Class)
	assert.Equal(t, "status-good", FormatFan(49, true).Class)
	assert.Equal(t, "--", FormatFan(0, false).Value)
}

func TestSharesClass(t *testing.T) {
	assert.Equal(t, "shares-perfect", SharesClass(Shares{Accepted: 100, Rejected: 0}))
	assert.Equal(t, "shares-good", SharesClass(Shares{Accepted: 100, Rejected: 0.5}))
	assert.Equal(t, "shares-warning", SharesClass(Shares{Accepted: 100, Rejected: 2}))
	assert.Equal(t, "shares-bad", SharesClass(Shares{Accepted: 97, Rejected: 3}))
	assert.Equal(t, "status-unknown", SharesClass(Shares{Accepted: 0, Rejected: 4}))
	assert.Equal(t, "status-unknown", SharesClass(Shares{}))
}

func TestFormatSharesCell(t *testing.T) {
	assert.Equal(t, Styled{Value: "0/0", Class: "status-unknown"}, FormatSharesCell(Shares{}))
	assert.Equal(t, Styled{Value: "10/1", Class: "shares-bad"}, FormatSharesCell(Shares{Accepted: 10, Rejected: 1}))
}

func TestFormatShares(t *testing.T) {
	assert.Equal(t, "7/1", FormatShares(Count{N: 7, Valid: true}, Count{N: 1, Valid: true}))
	assert.Equal(t, "7", FormatShares(Count{N: 7, Valid: true}, Count{}))
	assert.Equal(t, "--", FormatShares(Count{}, Count{N: 1, Valid: true}))
}

func TestFormatVersionAndDriver(t *testing.T) {
	assert.Equal(t, "v6.21.0", FormatVersion("XMRig/6.21.0 (Linux)"))
	assert.Equal(t, "Unknown", FormatVersion("--"))
	assert.Equal(t, "beta", FormatVersion("beta"))

	assert.Equal(t, "CUDA 12.2", FormatDriver("12.2.0"))
	assert.Equal(t, "CUDA 12.4", FormatDriver("12.4"))
	assert.Equal(t, "550.54.14", FormatDriver("550.54.14"))
	assert.Equal(t, "Unknown", FormatDriver(""))
}

func TestFormatWattsAndSince(t *testing.T) {
	assert.Equal(t, "GPU W: --", FormatWatts(0))
	assert.Equal(t, "GPU W: 1,235", FormatWatts(1234.6))

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "never", FormatSince(time.Time{}, now))
	assert.Equal(t, "10 seconds ago", FormatSince(now.Add(-10*time.Second), now))
}

func TestSanitizeID(t *testing.T) {
	assert.Equal(t, "rig_01_a", SanitizeID("rig 01.a"))
	assert.Equal(t, "Rig-7_x", SanitizeID("Rig-7_x"))
}
