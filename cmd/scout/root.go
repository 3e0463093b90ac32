package main

import (
	"github.com/spf13/cobra"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "scout",
		Short: "Scout is a browser agent that researches products for you.",
		Long: `Scout drives a browser toward a research goal. It reads pages, follows
links, records findings and proposes products for you to accept or decline.
You can pause it, resume it or steer it with guidance while it works.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (YAML)")

	cmd.AddCommand(newBrowseCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}
