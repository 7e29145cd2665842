package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hearth-chat/hearth/internal/gateway"
	"github.com/spf13/cobra"
)

var pingTimeout time.Duration

var pingCmd = &cobra.Command{
	Use:   "ping [homeserver]",
	Short: "Check that a homeserver is reachable",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		result, err := gateway.Ping(context.Background(), cfg.Homeserver, pingTimeout)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s in %s\n",
			cfg.Homeserver, result.ServerName, result.Status, result.Latency.Round(time.Millisecond))
		return nil
	},
}

func init() {
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 5*time.Second, "Give up after this long")
	rootCmd.AddCommand(pingCmd)
}
