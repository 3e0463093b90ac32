package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time with
// -ldflags "-X main.version=1.2.3".
var version = "0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the scout version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "scout %s\n", version)
		},
	}
}
