// cmd/read/profile.go

package read

import (
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_cli"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_io"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ProfileCmd prints the effective profile as YAML.
var ProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Print the effective profile (defaults, profile file and HERMES_ overrides)",
	Args:  cobra.NoArgs,
	RunE: hermes_cli.Wrap(func(rc *hermes_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		v, err := cli.NewViper(cmd)
		if err != nil {
			return err
		}
		prof, path, err := cli.LoadProfile(rc.Ctx, v)
		if err != nil {
			return err
		}
		otelzap.Ctx(rc.Ctx).Debug("Printing profile", zap.String("source", path))

		out, err := prof.YAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}),
}
