// pkg/hermes_cli/wrap.go

package hermes_cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RunFunc is the body of a hermes command.
type RunFunc func(rc *hermes_io.RuntimeContext, cmd *cobra.Command, args []string) error

// Wrap ensures panic recovery, telemetry, logging and interrupt handling for a command.
// An interrupt cancels rc.Ctx, which terminates any external command still running.
func Wrap(fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		parent, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rc := hermes_io.NewContext(parent, cmd.Name())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		hermes_io.LogRuntimeExecutionContext(rc)

		err = fn(rc, cmd, args)
		if err == nil {
			return nil
		}
		if cerr.Is(parent.Err(), context.Canceled) && !hermes_err.IsExpectedUserError(err) {
			rc.Log.Warn("Interrupted", zap.Error(err))
			return hermes_err.NewUserCancelledError("interrupted")
		}
		if !hermes_err.IsExpectedUserError(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}
