// pkg/shared/constants.go

package shared

const (
	HermesID = "hermes"

	HermesLogDir     = "/var/log/hermes/"
	HermesLogs       = HermesLogDir + "hermes.log"
	HermesLogsPWD    = "./hermes.log"
	HermesStateDir   = ".hermes"
	TelemetryMarker  = "telemetry_on"
	TelemetryLogName = "telemetry.jsonl"
)

// Version is overridden at build time with -ldflags.
var Version = "0.3.0-dev"

const (
	// Permission modes (in octal)
	DirPermStandard        = 0755
	FilePermStandard       = 0644
	FilePermOwnerReadWrite = 0600
	FilePermOwnerRWX       = 0700
)

// Environment variables read by hermes outside of viper.
const (
	EnvElevated    = "HERMES_ELEVATED"
	EnvSudoUser    = "SUDO_USER"
	EnvLogLevel    = "LOG_LEVEL"
	EnvPrefix      = "HERMES"
	ProjectEnvFile = ".hermes.env"
)

// Artifact names.
const (
	CertFileName           = "cert.pem"
	KeyFileName            = "key.pem"
	ComposeOverrideFile    = "docker-compose.override.yml"
	GatewayConfigExtension = ".conf"
	ManagedMarkerPrefix    = "# managed by hermes:"
)

const (
	LoopbackAddress = "127.0.0.1"
	LocalhostName   = "localhost"
	HostGateway     = "host-gateway"
)
