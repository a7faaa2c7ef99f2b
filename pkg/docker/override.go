// Package docker writes the compose override that lets containers reach the
// host gateway under the development hostnames.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/profile"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var errNoGateway = cerr.New("network has no IPAM gateway")

// Override is the subset of the compose schema hermes writes.
type Override struct {
	Services map[string]OverrideService `yaml:"services"`
}

// OverrideService adds host aliases to one compose service.
type OverrideService struct {
	ExtraHosts []string `yaml:"extra_hosts"`
}

// BuildOverride maps every bridged service to "<label>.<domain>:<address>".
func BuildOverride(b profile.Bridge, domain, address string) Override {
	hosts := make([]string, 0, len(b.Labels))
	for _, label := range b.Labels {
		hosts = append(hosts, fmt.Sprintf("%s.%s:%s", label, domain, address))
	}

	o := Override{Services: make(map[string]OverrideService, len(b.Services))}
	for _, svc := range b.Services {
		o.Services[svc] = OverrideService{ExtraHosts: append([]string(nil), hosts...)}
	}
	return o
}

// Marshal renders the override. yaml.v3 sorts map keys, so output is stable.
func (o Override) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(o); err != nil {
		return nil, cerr.Wrap(err, "encode compose override")
	}
	if err := enc.Close(); err != nil {
		return nil, cerr.Wrap(err, "encode compose override")
	}
	return buf.Bytes(), nil
}

// ParseOverride reads an override back, failing on malformed YAML or a file
// without services.
func ParseOverride(data []byte) (Override, error) {
	var o Override
	if err := yaml.Unmarshal(data, &o); err != nil {
		return o, cerr.Wrap(err, "parse compose override")
	}
	if len(o.Services) == 0 {
		return o, cerr.New("compose override has no services")
	}
	return o, nil
}

// OverridePath is where the override lands inside the project.
func OverridePath(projectDir string, b profile.Bridge) string {
	name := b.File
	if name == "" {
		name = shared.ComposeOverrideFile
	}
	return filepath.Join(projectDir, name)
}

// WriteOverride writes the override into projectDir, replacing any earlier
// one, and returns its path.
func WriteOverride(ctx context.Context, projectDir string, b profile.Bridge, domain, address string, dryRun bool) (string, error) {
	logger := otelzap.Ctx(ctx)
	path := OverridePath(projectDir, b)

	// ASSESS
	data, err := BuildOverride(b, domain, address).Marshal()
	if err != nil {
		return "", hermes_err.NewInternalError("cannot render compose override", err)
	}
	logger.Info("Writing compose override",
		zap.String("path", path),
		zap.Strings("services", b.Services),
		zap.String("address", address))

	if dryRun {
		logger.Info("Dry run - compose override not written", zap.String("path", path))
		return path, nil
	}

	// INTERVENE
	if err := os.WriteFile(path, data, shared.FilePermStandard); err != nil {
		return "", hermes_err.NewFilesystemError("cannot write "+path, err,
			"Check that the project directory is writable")
	}

	// EVALUATE
	written, err := os.ReadFile(path)
	if err != nil {
		return "", hermes_err.NewFilesystemError("cannot read back "+path, err)
	}
	if _, err := ParseOverride(written); err != nil {
		return "", hermes_err.NewInternalError("compose override is not valid YAML", err)
	}
	logger.Info("Compose override written", zap.String("path", path))
	return path, nil
}
