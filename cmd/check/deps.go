// cmd/check/deps.go

package check

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_cli"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_io"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/platform"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const flagInstall = "install"

// DepsCmd reports, and optionally installs, the external tools hermes runs.
var DepsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Check that nginx and mkcert are installed",
	Long: `Look up every dependency listed in the profile and print a status table.
With --install, missing tools are installed through the platform package
manager (Homebrew on macOS, apt-get or dnf on Linux). Homebrew refuses to run
as root, so on macOS run this without sudo.`,
	Args: cobra.NoArgs,
	RunE: hermes_cli.Wrap(runCheckDeps),
}

func init() {
	DepsCmd.Flags().Bool(flagInstall, false, "Install missing dependencies")
}

func runCheckDeps(rc *hermes_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	logger := otelzap.Ctx(rc.Ctx)

	v, err := cli.NewViper(cmd)
	if err != nil {
		return err
	}
	prof, _, err := cli.LoadProfile(rc.Ctx, v)
	if err != nil {
		return err
	}

	manager, err := platform.DetectPackageManager()
	if err != nil {
		logger.Debug("No package manager for this platform", zap.Error(err))
	}
	platform.ExtendPath(manager)

	resolver := platform.NewResolver(execute.System{}, manager, os.Geteuid)
	resolver.DryRun = !v.GetBool(flagInstall)

	rows, err := CheckAll(rc.Ctx, resolver, prof.Dependencies)
	PrintStatus(cmd.OutOrStdout(), rows)
	return err
}

// Row is one line of the status table.
type Row struct {
	Status platform.Status
	Err    error
}

// CheckAll resolves each dependency on its own so one missing tool does not
// hide the state of the others.
func CheckAll(ctx context.Context, r *platform.Resolver, deps []platform.Dependency) ([]Row, error) {
	var result *multierror.Error
	rows := make([]Row, 0, len(deps))
	for _, dep := range deps {
		statuses, err := r.Ensure(ctx, []platform.Dependency{dep})
		row := Row{Status: platform.Status{Dependency: dep}, Err: err}
		if len(statuses) == 1 {
			row.Status = statuses[0]
		}
		if err != nil {
			result = multierror.Append(result, err)
		}
		rows = append(rows, row)
	}
	return rows, result.ErrorOrNil()
}

// PrintStatus writes the table.
func PrintStatus(out io.Writer, rows []Row) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COMMAND\tPACKAGE\tSTATUS\tVERSION\tPATH")
	for _, row := range rows {
		status := "ok"
		switch {
		case row.Err != nil && row.Status.Path != "":
			status = "unusable"
		case row.Err != nil:
			status = "missing"
		case row.Status.Installed:
			status = "installed"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			row.Status.Dependency.Command,
			row.Status.Dependency.Package,
			status,
			dash(row.Status.Version),
			dash(row.Status.Path))
	}
	_ = w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
