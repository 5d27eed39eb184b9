package config

// DefaultOptionsFileName is the option blob name inside ~/.wadbctl.
const DefaultOptionsFileName = "options.bin"

// DefaultPortProperty is the system property the daemon reads its TCP port from.
const DefaultPortProperty = "service.adb.tcp.port"

// DefaultDaemonName is the debug bridge daemon process name.
const DefaultDaemonName = "adbd"

// DefaultWifiInterface backs the "wifi" interface option.
const DefaultWifiInterface = "wlan0"

// DefaultConnectVerb prefixes connect strings.
const DefaultConnectVerb = "adb connect"

const (
	DefaultPollAttempts       = 15
	DefaultPollIntervalMs     = 200
	DefaultAmbientUpDelayMs   = 3000
	DefaultAmbientDownDelayMs = 0
	DefaultRefreshRatePerSec  = 2.0
)
