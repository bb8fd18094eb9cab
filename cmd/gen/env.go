package gen

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luma/lodestone/internal/env"
)

var envOut string

var EnvCmd = &cobra.Command{
	Use:   "env",
	Short: "Write a sample .env.local with every setting at its default",
	Long: `Write a sample .env.local listing every LODESTONE_ variable the start
	command reads, set to its default. Prints to stdout unless --out is given.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		sample, err := env.Sample()
		if err != nil {
			return err
		}

		if envOut == "" {
			fmt.Fprintln(cmd.OutOrStdout(), sample)
			return nil
		}

		if _, err := os.Stat(envOut); err == nil {
			return fmt.Errorf("%s already exists", envOut)
		}

		return os.WriteFile(envOut, []byte(sample+"\n"), 0600)
	},
}

func init() {
	EnvCmd.Flags().StringVarP(&envOut, "out", "o", "", "the file to write, refuses to overwrite")
}
