package cmd

import (
	"fmt"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"

	"github.com/luma/lodestone/internal/meta"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, figure.NewFigure("lodestone", "small", true).String())

		info := meta.GetInfo()
		fmt.Fprintf(out, "Version:    %s\n", info.Version)
		fmt.Fprintf(out, "Build:      %s\n", info.Build)
		fmt.Fprintf(out, "Branch:     %s\n", info.Branch)
		fmt.Fprintf(out, "Build time: %s\n", info.BuildTime)
		fmt.Fprintf(out, "Platform:   %s\n", info.Platform)
		fmt.Fprintf(out, "Go:         %s %s\n", info.GoVersion, info.GoTag)
	},
}
