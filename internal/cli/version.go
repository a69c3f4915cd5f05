package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

const modulePath = "github.com/mesh-intelligence/taskboard"

// Version is the release version, set at build time with
// -ldflags "-X github.com/mesh-intelligence/taskboard/internal/cli.Version=...".
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the taskboard version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "taskboard %s\nmodule: %s\ngo: %s\n", Version, modulePath, runtime.Version())
			return nil
		},
	}
}
