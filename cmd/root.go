/* cmd/root.go */

package cmd

import (
	"fmt"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_cli"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_io"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	// Subcommands
	"github.com/CodeMonkeyCybersecurity/hermes/cmd/check"
	"github.com/CodeMonkeyCybersecurity/hermes/cmd/create"
	"github.com/CodeMonkeyCybersecurity/hermes/cmd/read"
)

// RootCmd is the base command for hermes.
var RootCmd = &cobra.Command{
	Use:   "hermes",
	Short: "Local HTTPS development gateways for client projects",
	Long: `hermes provisions a trusted local certificate, host aliases, an nginx
gateway and a docker-compose override so a client project can be developed
against https://api.<domain> on this machine.`,
	Version:      shared.Version,
	SilenceUsage: true,
	RunE: hermes_cli.Wrap(func(rc *hermes_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}),
}

// HelpCmd wraps help so that it can be invoked like a normal command.
var HelpCmd = &cobra.Command{
	Use:   "help [command]",
	Short: "Help about any command",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return RootCmd.Help()
		}
		c, _, err := RootCmd.Find(args)
		if err != nil || c == nil {
			return hermes_err.WrapValidationError(fmt.Errorf("command not found: %s", strings.Join(args, " ")))
		}
		return c.Help()
	},
}

// RegisterCommands adds all subcommands to the root command.
func RegisterCommands() {
	RootCmd.SetHelpCommand(HelpCmd)
	RootCmd.PersistentFlags().String(cli.FlagProfile, "",
		"Profile file (default $XDG_CONFIG_HOME/hermes/profile.yaml, else built-in)")

	for _, subCmd := range []*cobra.Command{
		create.CreateCmd,
		check.CheckCmd,
		read.ReadCmd,
	} {
		RootCmd.AddCommand(subCmd)
	}
}

// Execute runs the root command and returns its error for main to map onto
// an exit code.
func Execute() error {
	logger.L().Debug("hermes starting", zap.String("version", shared.Version))

	RegisterCommands()

	err := RootCmd.Execute()
	if err == nil {
		return nil
	}
	if hermes_err.IsExpectedUserError(err) {
		logger.L().Warn("hermes completed with user error", zap.Error(err))
	} else {
		logger.L().Debug("hermes execution error", zap.Int("exit_code", hermes_err.GetExitCode(err)), zap.Error(err))
	}
	return err
}
