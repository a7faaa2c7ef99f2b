package profile

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/xdg"
	cerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FileName is the profile looked up in the XDG config directory.
const FileName = "profile.yaml"

// DefaultPath returns $XDG_CONFIG_HOME/hermes/profile.yaml.
func DefaultPath() string {
	return xdg.XDGConfigPath(shared.HermesID, FileName)
}

// Locate returns the profile file to load: explicit when set, else the XDG
// profile when it exists, else "" for the built-in defaults.
func Locate(explicit string) (string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", cerr.Wrapf(err, "resolve profile path %s", explicit)
		}
		return abs, nil
	}
	if path := DefaultPath(); fileExists(path) {
		return path, nil
	}
	return "", nil
}

// Load builds the effective profile: built-in defaults, then the profile file
// at path (if any), then HERMES_<SECTION>_<KEY> environment overrides.
func Load(ctx context.Context, path string) (*Profile, error) {
	return LoadWith(ctx, path, Default())
}

// LoadWith is Load with explicit defaults.
func LoadWith(ctx context.Context, path string, defaults *Profile) (*Profile, error) {
	logger := otelzap.Ctx(ctx)

	base, err := yaml.Marshal(defaults)
	if err != nil {
		return nil, hermes_err.NewInternalError("encode default profile", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(shared.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadConfig(bytes.NewReader(base)); err != nil {
		return nil, hermes_err.NewInternalError("load default profile", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, hermes_err.NewValidationError(
				fmt.Sprintf("cannot read profile %s", path), err,
				"Check the --profile path or HERMES_PROFILE")
		}
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return nil, hermes_err.NewValidationError(
				fmt.Sprintf("profile %s is not valid YAML", path), err)
		}
		logger.Debug("Merged profile file", zap.String("path", path))
	}

	p := &Profile{}
	if err := v.Unmarshal(p); err != nil {
		return nil, hermes_err.NewValidationError("profile has wrong value types", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("Profile loaded",
		zap.String("source", sourceName(path)),
		zap.Int("routes", len(p.Routes)),
		zap.String("gateway_dir", p.Gateway.ConfigDir))
	return p, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and that every route names a known port.
func (p *Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return hermes_err.NewValidationError("invalid profile", err)
	}
	for _, r := range p.Routes {
		if _, ok := p.Ports[r.Role]; !ok {
			return hermes_err.NewValidationError(
				fmt.Sprintf("route %s%s uses role %q, which has no port", r.Subdomain, r.Location(), r.Role), nil,
				"Add the role under ports: in the profile")
		}
	}
	return nil
}

// Port returns the port for a backend role.
func (p *Profile) Port(role string) int {
	return p.Ports[role]
}

// YAML renders the profile in the same format Load reads.
func (p *Profile) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, cerr.Wrap(err, "encode profile")
	}
	if err := enc.Close(); err != nil {
		return nil, cerr.Wrap(err, "encode profile")
	}
	return buf.Bytes(), nil
}

// CertsRoot expands a leading ~ in Certs.Root against home.
func (p *Profile) CertsRoot(home string) string {
	return ExpandHome(p.Certs.Root, home)
}

// ExpandHome replaces a leading "~" or "~/" with home.
func ExpandHome(path, home string) string {
	switch {
	case path == "~":
		return home
	case strings.HasPrefix(path, "~/"):
		return filepath.Join(home, path[2:])
	}
	return path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func sourceName(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}
