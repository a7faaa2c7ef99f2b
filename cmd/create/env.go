// cmd/create/env.go

package create

import (
	"context"
	"os"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/devenv"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_cli"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_io"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/interaction"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/platform"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/privilege_check"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/user"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const (
	flagPurgeStale = "purge-stale"
	flagOwner      = "owner"
	flagSkipReload = "skip-reload"
	flagDryRun     = "dry-run"
)

// EnvCmd provisions a client's local HTTPS development gateway.
var EnvCmd = &cobra.Command{
	Use:   "env",
	Short: "Provision a local HTTPS development gateway for a client",
	Long: `Provision everything a client project needs to be served over HTTPS on this
machine: a locally trusted certificate, host aliases, an nginx virtual host per
subdomain and a docker-compose override so containers reach the same names.

Missing values are prompted for. Every flag can also be set through a HERMES_
environment variable (HERMES_CLIENT, HERMES_DOMAIN, ...) or a .hermes.env file.
hermes re-runs itself with sudo when it needs root.

Examples:
  # Interactive
  hermes create env

  # Scripted, from the project root
  hermes create env --client acme --domain acme.dev.local --yes

  # Show what would change
  hermes create env --client acme --domain acme.dev.local --yes --dry-run`,
	Args: cobra.NoArgs,
	RunE: hermes_cli.Wrap(runCreateEnv),
}

func init() {
	EnvCmd.Flags().String(devenv.FlagClient, "", "Client slug, used for the certificate directory and gateway config name")
	EnvCmd.Flags().String(devenv.FlagDomain, "", "Development domain, e.g. acme.dev.local")
	EnvCmd.Flags().String(devenv.FlagProjectDir, "", "Project root that receives docker-compose.override.yml")
	EnvCmd.Flags().BoolP(devenv.FlagYes, "y", false, "Use the current directory as the project root without asking")
	EnvCmd.Flags().Bool(flagPurgeStale, false, "Remove earlier hermes gateway configs when they break validation")
	EnvCmd.Flags().String(flagOwner, "", "User that owns the generated files when running as root without sudo")
	EnvCmd.Flags().Bool(flagSkipReload, false, "Write everything but do not restart the gateway")
	EnvCmd.Flags().Bool(flagDryRun, false, "Log what would change without touching the system")
}

func runCreateEnv(rc *hermes_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	logger := otelzap.Ctx(rc.Ctx)

	v, err := cli.NewViper(cmd)
	if err != nil {
		return err
	}
	dryRun := v.GetBool(flagDryRun)

	// ASSESS
	prof, profilePath, err := cli.LoadProfile(rc.Ctx, v)
	if err != nil {
		return err
	}
	rc.Attributes["profile"] = profilePath

	runner := execute.System{}
	manager, err := platform.DetectPackageManager()
	if err != nil {
		logger.Debug("No package manager for this platform", zap.Error(err))
	}
	if added := platform.ExtendPath(manager); len(added) > 0 {
		logger.Debug("Extended PATH", zap.Strings("dirs", added))
	}

	resolver := platform.NewResolver(runner, manager, os.Geteuid)
	resolver.DryRun = dryRun
	handedOff, err := prepare(rc.Ctx, resolver, privilege_check.NewElevator(runner), prepareOptions{
		Dependencies:  prof.Dependencies,
		Args:          os.Args[1:],
		ElevatedChild: os.Getenv(shared.EnvElevated) == "1",
		DryRun:        dryRun,
	})
	if handedOff || err != nil {
		return err
	}

	id, err := user.ResolveInvokingUser(rc.Ctx, v.GetString(flagOwner))
	if err != nil {
		return err
	}

	prompter := interaction.NewTerminal()
	session, err := devenv.CollectSession(rc.Ctx, v, prompter)
	if err != nil {
		return err
	}
	rc.Attributes["client"] = session.Client

	// INTERVENE
	prov := devenv.NewProvisioner(prof, id, runner, prompter, devenv.Options{
		DryRun:     dryRun,
		PurgeStale: v.GetBool(flagPurgeStale),
		SkipReload: v.GetBool(flagSkipReload),
	})
	res, err := prov.Provision(rc.Ctx, session)
	if err != nil {
		return err
	}

	// EVALUATE
	logger.Info("terminal prompt: Development gateway ready",
		zap.String("url", "https://api."+session.Domain),
		zap.String("certificate", res.CertFile),
		zap.String("gateway_config", res.GatewayConfig),
		zap.String("compose_override", res.Override),
		zap.Bool("reloaded", res.Reloaded))
	return nil
}

type dependencyResolver interface {
	BeforeElevation() bool
	Ensure(ctx context.Context, deps []platform.Dependency) ([]platform.Status, error)
}

type elevator interface {
	Elevate(ctx context.Context, args []string) (handedOff bool, err error)
}

type prepareOptions struct {
	Dependencies []platform.Dependency
	Args         []string
	// ElevatedChild is set in the process sudo started on behalf of a parent.
	ElevatedChild bool
	DryRun        bool
}

// prepare installs dependencies and gains root in the order the package
// manager needs. Homebrew refuses root, so its tools are resolved by the
// unprivileged parent and the elevated child skips that step; apt-get and dnf
// need root and run once elevated. A dry run never elevates. handedOff is true
// when a sudo child already did the rest of the work.
func prepare(ctx context.Context, r dependencyResolver, e elevator, opts prepareOptions) (handedOff bool, err error) {
	before := r.BeforeElevation()

	if before && !opts.ElevatedChild {
		if _, err := r.Ensure(ctx, opts.Dependencies); err != nil {
			return false, err
		}
	}

	if !opts.DryRun {
		handedOff, err := e.Elevate(ctx, opts.Args)
		if handedOff || err != nil {
			return handedOff, err
		}
	}

	if !before {
		if _, err := r.Ensure(ctx, opts.Dependencies); err != nil {
			return false, err
		}
	}
	return false, nil
}
