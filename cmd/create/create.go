// cmd/create/create.go
package create

import (
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_cli"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_io"
	"github.com/spf13/cobra"
)

// CreateCmd is the root command for create operations
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create development resources",
	Long:  `Create provisions local development resources such as a client's HTTPS gateway.`,
	RunE: hermes_cli.Wrap(func(rc *hermes_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}),
}

func init() {
	CreateCmd.AddCommand(EnvCmd)
}
