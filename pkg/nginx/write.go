package nginx

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/profile"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ConfigPath returns <config_dir>/<slug><extension>.
func ConfigPath(p *profile.Profile, slug string) string {
	return filepath.Join(p.Gateway.ConfigDir, slug+p.Gateway.Extension)
}

// Write replaces path with content. The file is written next to its target and
// renamed into place so nginx never sees a partial config.
func Write(ctx context.Context, path, content string, dryRun bool) error {
	logger := otelzap.Ctx(ctx)

	if dryRun {
		logger.Info("Dry run - gateway config not written", zap.String("path", path))
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, shared.DirPermStandard); err != nil {
		return hermes_err.NewPermissionError(dir, "create", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return hermes_err.NewPermissionError(dir, "write to", err,
			"Run hermes with sudo so it can write the gateway config")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return cerr.Wrapf(err, "write %s", tmp.Name())
	}
	if err := tmp.Chmod(shared.FilePermStandard); err != nil {
		tmp.Close()
		return cerr.Wrapf(err, "chmod %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return cerr.Wrapf(err, "close %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return cerr.Wrapf(err, "install %s", path)
	}

	logger.Info("Gateway config written", zap.String("path", path), zap.Int("bytes", len(content)))
	return nil
}

// IsManaged reports whether the file at path starts with the hermes marker.
func IsManaged(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return false, scanner.Err()
	}
	return strings.HasPrefix(scanner.Text(), shared.ManagedMarkerPrefix), nil
}

// ManagedFiles lists the files in dir carrying the hermes marker, sorted.
func ManagedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, cerr.Wrapf(err, "list %s", dir)
	}

	var managed []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		ok, err := IsManaged(path)
		if err != nil {
			return nil, cerr.Wrapf(err, "inspect %s", path)
		}
		if ok {
			managed = append(managed, path)
		}
	}
	sort.Strings(managed)
	return managed, nil
}
