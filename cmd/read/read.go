// cmd/read/read.go

package read

import (
	"github.com/spf13/cobra"
)

// ReadCmd represents the base read command
var ReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Show the effective profile or the config hermes would generate",
}

func init() {
	ReadCmd.AddCommand(ProfileCmd)
	ReadCmd.AddCommand(ConfigCmd)
}
