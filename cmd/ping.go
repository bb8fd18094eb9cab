package cmd

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/lodestone/client"
)

var pingTimeout time.Duration

func init() {
	PingCmd.Flags().DurationVar(&pingTimeout, "timeout", 5*time.Second, "How long to wait for the server")
}

var PingCmd = &cobra.Command{
	Use:   "ping <host[:port]>",
	Short: "Read a server's list entry and measure its latency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := args[0]
		if _, _, err := net.SplitHostPort(addr); err != nil {
			addr = net.JoinHostPort(addr, "25565")
		}

		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()

		status, rtt, err := client.Ping(ctx, addr, zap.NewNop())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", status.Description)
		fmt.Fprintf(out, "version: %s (protocol %d)\n", status.Version, status.Protocol)
		fmt.Fprintf(out, "players: %d/%d\n", status.Online, status.Max)
		fmt.Fprintf(out, "latency: %s\n", rtt.Round(time.Microsecond))

		return nil
	},
}
