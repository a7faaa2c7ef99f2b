// cmd/read/config.go

package read

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/certs"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/devenv"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/docker"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_cli"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_io"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/nginx"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/profile"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/templates"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/user"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ConfigCmd renders the gateway vhost and compose override to stdout.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the gateway config, hosts line and compose override for a client",
	Long: `Render what 'hermes create env' would write for a client without touching
the system: the nginx virtual hosts, the hosts-file line and the
docker-compose override.

Example:
  hermes read config --client acme --domain acme.dev.local`,
	Args: cobra.NoArgs,
	RunE: hermes_cli.Wrap(runReadConfig),
}

func init() {
	ConfigCmd.Flags().String(devenv.FlagClient, "", "Client slug")
	ConfigCmd.Flags().String(devenv.FlagDomain, "", "Development domain")
}

func runReadConfig(rc *hermes_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	v, err := cli.NewViper(cmd)
	if err != nil {
		return err
	}
	client, err := cli.GetRequiredString(v, devenv.FlagClient)
	if err != nil {
		return err
	}
	domain, err := cli.GetRequiredString(v, devenv.FlagDomain)
	if err != nil {
		return err
	}
	domain = devenv.NormalizeDomain(domain)
	if err := devenv.ValidateClient(client); err != nil {
		return err
	}
	if err := devenv.ValidateDomain(domain); err != nil {
		return err
	}

	prof, _, err := cli.LoadProfile(rc.Ctx, v)
	if err != nil {
		return err
	}
	return RenderAll(rc.Ctx, cmd.OutOrStdout(), prof, client, domain, homeDir(rc.Ctx))
}

// RenderAll writes every generated artifact for client to out, each under a
// comment naming its destination.
func RenderAll(ctx context.Context, out io.Writer, prof *profile.Profile, client, domain, home string) error {
	domain = devenv.NormalizeDomain(domain)
	layout := certs.Layout(prof.CertsRoot(home), client, domain)
	vhost, err := nginx.Render(ctx, templates.NewRenderer(), nginx.Build(prof, client, domain, layout.Dir))
	if err != nil {
		return err
	}
	override, err := docker.BuildOverride(prof.Bridge, domain, prof.Bridge.HostGateway).Marshal()
	if err != nil {
		return err
	}
	entry := devenv.HostsEntry(prof, domain)

	_, err = fmt.Fprintf(out, "# %s\n%s\n# %s\n%s\n\n# <project>/%s\n%s",
		nginx.ConfigPath(prof, client), vhost,
		prof.Hosts.File, entry.Line(),
		prof.Bridge.File, override)
	return err
}

func homeDir(ctx context.Context) string {
	if id, err := user.ResolveInvokingUser(ctx, ""); err == nil {
		return id.HomeDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		otelzap.Ctx(ctx).Debug("No home directory, leaving ~ unexpanded", zap.Error(err))
		return "~"
	}
	return home
}
