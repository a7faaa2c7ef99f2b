package cli

import (
	"context"
	"os"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/profile"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// FlagProfile is the persistent flag naming the profile file.
const FlagProfile = "profile"

// LoadProfile loads the profile named by --profile / HERMES_PROFILE, falling
// back to the XDG profile and then the built-in defaults. The resolved path is
// exported as HERMES_PROFILE so an elevated re-run loads the same file.
func LoadProfile(ctx context.Context, v *viper.Viper) (*profile.Profile, string, error) {
	path, err := profile.Locate(v.GetString(FlagProfile))
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := os.Setenv(shared.EnvPrefix+"_PROFILE", path); err != nil {
			return nil, "", cerr.Wrap(err, "export profile path")
		}
	}
	p, err := profile.Load(ctx, path)
	if err != nil {
		return nil, path, err
	}
	return p, path, nil
}
