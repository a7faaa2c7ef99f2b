// cmd/check/check.go
package check

import (
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_cli"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_io"
	"github.com/spf13/cobra"
)

// CheckCmd represents the 'hermes check' command
var CheckCmd = &cobra.Command{
	Use:   "check [command]",
	Short: "Check the tools hermes depends on",
	RunE: hermes_cli.Wrap(func(rc *hermes_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}),
}

func init() {
	CheckCmd.AddCommand(DepsCmd)
}
