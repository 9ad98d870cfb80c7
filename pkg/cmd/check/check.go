package check

import (
	"github.com/spf13/cobra"
)

func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "commands to check stored session data",
	}

	cmd.AddCommand(NewCheckConsistencyCmd())
	cmd.AddCommand(NewDisplayLapsCmd())

	return cmd
}

var driverArg string
