package platform

import (
	"bufio"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// OSReleasePath is where Linux distributions describe themselves.
const OSReleasePath = "/etc/os-release"

// GetOSPlatform returns "macos", "linux", "windows" or "unknown".
func GetOSPlatform() string {
	switch runtime.GOOS {
	case "darwin":
		return "macos"
	case "linux":
		return "linux"
	case "windows":
		return "windows"
	default:
		return "unknown"
	}
}

// DetectLinuxDistro returns "debian", "rhel" or "unknown" from an os-release file.
func DetectLinuxDistro(path string) string {
	file, err := os.Open(path)
	if err != nil {
		return "unknown"
	}
	defer file.Close()

	var ids []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok || (key != "ID" && key != "ID_LIKE") {
			continue
		}
		ids = append(ids, strings.Fields(strings.Trim(value, `"'`))...)
	}

	for _, id := range ids {
		switch id {
		case "debian", "ubuntu":
			return "debian"
		case "rhel", "centos", "fedora", "rocky", "almalinux":
			return "rhel"
		}
	}
	return "unknown"
}

// IsCommandAvailable reports whether name resolves on PATH.
func IsCommandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
