// pkg/cli/cli.go
//
// Flag helpers shared by hermes commands. Every flag is bound to viper so that
// HERMES_<FLAG> environment variables and profile values fill anything the
// operator did not pass on the command line.

package cli

import (
	"strings"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BindFlagsToViper binds all flags on a command to a Viper instance.
func BindFlagsToViper(cmd *cobra.Command, v *viper.Viper) error {
	var result error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil {
			result = multierror.Append(result, err)
		}
	})
	return result
}

// SetViperEnvPrefix lets viper read env with prefix, mapping --project-dir to
// PREFIX_PROJECT_DIR.
func SetViperEnvPrefix(v *viper.Viper, prefix string) {
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// NewViper returns a viper instance bound to the command flags and HERMES_ env.
func NewViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	SetViperEnvPrefix(v, shared.EnvPrefix)
	if err := BindFlagsToViper(cmd, v); err != nil {
		return nil, cerr.Wrap(err, "bind flags")
	}
	return v, nil
}

// GetRequiredString returns a non-empty string value or an error naming the flag.
func GetRequiredString(v *viper.Viper, name string) (string, error) {
	val := strings.TrimSpace(v.GetString(name))
	if val == "" {
		return "", hermes_err.WrapValidationError(cerr.Newf("required flag --%s is empty", name))
	}
	return val, nil
}
