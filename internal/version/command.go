package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand registers a `version` subcommand on the root
// command that prints the full build description.
func AttachCobraVersionCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Long:  "Print detailed version information including the commit hash and build timestamp stamped into the binary at build time.",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), Full())
		},
	})
}
