package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.shareclip.dev/shareclip/internal/discovery"
	"go.shareclip.dev/shareclip/internal/transfer"
)

func newPingCmd() *cobra.Command {
	var v *viper.Viper

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Handshake with the partner and report round-trip health",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return loadConfig(cmd, &v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runPing(v) },
	}

	addPartnerFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runPing(v *viper.Viper) error {
	partner := v.GetString("partner")
	if partner == "" {
		return fmt.Errorf("no partner configured (use --partner)")
	}

	c := transfer.NewClient(transfer.ClientConfig{
		Partner:   partner,
		Discovery: &discovery.Zeroconf{},
	})
	defer c.Stop()

	start := time.Now()
	if err := c.Ping(); err != nil {
		return fmt.Errorf("ping %s: %w", partner, err)
	}
	fmt.Printf("%s: ok (%s)\n", partner, time.Since(start).Round(time.Millisecond))
	return nil
}
