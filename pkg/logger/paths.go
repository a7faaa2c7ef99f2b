/* pkg/logger/paths.go */

package logger

import (
	"runtime"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/xdg"
)

// PlatformLogPaths returns log paths in order of priority for the platform.
func PlatformLogPaths() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			xdg.XDGStatePath(shared.HermesID, "hermes.log"),
			shared.HermesLogsPWD,
			"/tmp/hermes/hermes.log",
		}
	case "linux":
		return []string{
			shared.HermesLogs, // writable once elevated
			xdg.XDGStatePath(shared.HermesID, "hermes.log"),
			shared.HermesLogsPWD,
			"/tmp/hermes/hermes.log",
		}
	default:
		return []string{shared.HermesLogsPWD}
	}
}
