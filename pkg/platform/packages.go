package platform

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// HomebrewInstallURL is the official Homebrew installer.
const HomebrewInstallURL = "https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh"

// InstallTimeout bounds a single package installation.
const InstallTimeout = 15 * time.Minute

// PackageManager installs packages on one platform.
type PackageManager struct {
	Name string
	// Binary is looked up on PATH to decide whether the manager is present.
	Binary string
	// Prepare runs once before the first install (index refresh).
	Prepare []string
	Install []string
	// ForbidsRoot is set for managers that refuse to run as root (Homebrew).
	ForbidsRoot bool
	// BinDirs hold the tools the manager installs. sudo's secure_path may
	// leave them out.
	BinDirs []string
}

var (
	Homebrew = PackageManager{
		Name:        "homebrew",
		Binary:      "brew",
		Install:     []string{"install"},
		ForbidsRoot: true,
		BinDirs:     []string{"/opt/homebrew/bin", "/usr/local/bin"},
	}
	Apt = PackageManager{Name: "apt", Binary: "apt-get", Prepare: []string{"update"}, Install: []string{"install", "-y"}}
	Dnf = PackageManager{Name: "dnf", Binary: "dnf", Install: []string{"install", "-y"}}
)

// ManagerFor picks the package manager for a platform ("macos"/"linux") and
// distro ("debian"/"rhel").
func ManagerFor(osPlatform, distro string) (*PackageManager, error) {
	switch osPlatform {
	case "macos":
		return &Homebrew, nil
	case "linux":
		switch distro {
		case "debian":
			return &Apt, nil
		case "rhel":
			return &Dnf, nil
		}
		return nil, hermes_err.NewDependencyError("a supported package manager", "installing dependencies",
			cerr.Newf("unsupported linux distribution %q", distro),
			"Install nginx and mkcert manually, then rerun hermes")
	}
	return nil, hermes_err.NewDependencyError("a supported package manager", "installing dependencies",
		cerr.Newf("unsupported platform %q", osPlatform))
}

// DetectPackageManager picks the package manager for the running system.
func DetectPackageManager() (*PackageManager, error) {
	return ManagerFor(GetOSPlatform(), DetectLinuxDistro(OSReleasePath))
}

// bootstrapHomebrew downloads the Homebrew installer and runs it with the
// terminal attached, since it asks for confirmation and a password.
func bootstrapHomebrew(ctx context.Context, runner execute.Runner) error {
	logger := otelzap.Ctx(ctx)
	logger.Info("terminal prompt: Homebrew is not installed; running the Homebrew installer")

	dir, err := os.MkdirTemp("", "hermes-brew-")
	if err != nil {
		return cerr.Wrap(err, "create temp dir for Homebrew installer")
	}
	defer os.RemoveAll(dir)
	script := filepath.Join(dir, "install.sh")

	if _, err := runner.Run(ctx, execute.Options{
		Command: "curl",
		Args:    []string{"-fsSL", "-o", script, HomebrewInstallURL},
		Retries: 2,
		Delay:   2 * time.Second,
	}); err != nil {
		return cerr.Wrap(err, "download Homebrew installer")
	}

	if _, err := runner.Run(ctx, execute.Options{
		Command:     "/bin/bash",
		Args:        []string{script},
		Interactive: true,
		Timeout:     InstallTimeout,
	}); err != nil {
		return cerr.Wrap(err, "run Homebrew installer")
	}

	logger.Debug("Homebrew installer finished", zap.String("script", script))
	return nil
}

// ExtendPath prepends the manager's existing bin directories that PATH lacks,
// so tools it installed resolve under sudo and right after a bootstrap.
func ExtendPath(m *PackageManager) []string {
	if m == nil {
		return nil
	}
	current := filepath.SplitList(os.Getenv("PATH"))
	have := make(map[string]bool, len(current))
	for _, d := range current {
		have[d] = true
	}
	var added []string
	for _, d := range m.BinDirs {
		if have[d] {
			continue
		}
		if info, err := os.Stat(d); err == nil && info.IsDir() {
			added = append(added, d)
		}
	}
	if len(added) > 0 {
		_ = os.Setenv("PATH", strings.Join(append(added, current...), string(os.PathListSeparator)))
	}
	return added
}
