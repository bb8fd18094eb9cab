package gen

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate man pages and configuration files",
	Long: `Generate files derived from the lodestone binary itself:
man pages for every command and a sample .env.local.`,
}

func init() {
	RootCmd.AddCommand(ManPagesCmd)
	RootCmd.AddCommand(EnvCmd)
}
