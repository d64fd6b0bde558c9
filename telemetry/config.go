package telemetry

const (
	// Placeholder is shown for any metric the rig did not report
	Placeholder = "--"

	// StatusOK is the miner status sentinel reported by the rig agent
	StatusOK = "ok"

	// ServiceActive is the systemd state of a running service
	ServiceActive = "active"

	// CPUService and GPUService are the snapshot keys of the two miner services
	CPUService = "cpu_service"
	GPUService = "gpu_service"

	// Temperature thresholds in °C
	TempHot  = 75
	TempWarm = 60

	// Fan speed thresholds in percent
	FanHot  = 80
	FanWarm = 50

	// Share rejection ratio thresholds
	RejectGood    = 0.01
	RejectWarning = 0.03
)

// Status classes used by the dashboard stylesheet
const (
	ClassGood          = "status-good"
	ClassWarm          = "status-warm"
	ClassHot           = "status-hot"
	ClassUnknown       = "status-unknown"
	ClassServiceOK     = "service-ok"
	ClassServiceBad    = "service-bad"
	ClassSharesPerfect = "shares-perfect"
	ClassSharesGood    = "shares-good"
	ClassSharesWarning = "shares-warning"
	ClassSharesBad     = "shares-bad"
)

// Miner keys as they appear in a rig snapshot
const (
	MinerBzMiner      = "miner_bzminer"
	MinerXMRig        = "miner_xmrig"
	MinerRigel        = "miner_rigel"
	MinerLolMiner     = "miner_lolminer"
	MinerSRBMiner     = "miner_srbminer"
	MinerWildRig      = "miner_wildrig"
	MinerOneZeroMiner = "miner_onezerominer"
	MinerGMiner       = "miner_gminer"
)

// MinerKeys lists every miner the dashboard knows about, in display order
var MinerKeys = []string{
	MinerBzMiner,
	MinerXMRig,
	MinerRigel,
	MinerLolMiner,
	MinerSRBMiner,
	MinerWildRig,
	MinerOneZeroMiner,
	MinerGMiner,
}

var minerNames = map[string]string{
	MinerBzMiner:      "BzMiner",
	MinerXMRig:        "XMRig",
	MinerRigel:        "Rigel",
	MinerLolMiner:     "lolMiner",
	MinerSRBMiner:     "SRBMiner",
	MinerWildRig:      "WildRig",
	MinerOneZeroMiner: "OneZeroMiner",
	MinerGMiner:       "GMiner",
}

// MinerDisplayName returns the human name of a miner key, or the key itself
func MinerDisplayName(key string) string {
	if name, ok := minerNames[key]; ok {
		return name
	}
	return key
}
