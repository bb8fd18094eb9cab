package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luma/lodestone/cmd/gen"
)

var RootCmd = &cobra.Command{
	Use:   "lodestone",
	Short: "A Minecraft 1.8 server",
	Long: `lodestone speaks the Minecraft 1.8 (protocol 47) network protocol and
runs a small lobby players can join and chat in.`,
	SilenceUsage: true,
}

func init() {
	RootCmd.AddCommand(StartCmd)
	RootCmd.AddCommand(PingCmd)
	RootCmd.AddCommand(VersionCmd)
	RootCmd.AddCommand(gen.RootCmd)
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
