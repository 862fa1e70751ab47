package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.shareclip.dev/shareclip/internal/discovery"
)

func newStatusCmd() *cobra.Command {
	var v *viper.Viper

	cmd := &cobra.Command{
		Use:   "status",
		Short: "List shareclip instances visible on the local network",
		Long: `Browses mDNS for serving shareclip instances and prints them. Any listed
instance can be used as "--partner @<instance>".`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return loadConfig(cmd, &v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runStatus(v) },
	}

	cmd.Flags().Duration("timeout", 3*time.Second, "how long to browse")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runStatus(v *viper.Viper) error {
	entries, err := discovery.Browse(context.Background(), v.GetDuration("timeout"))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no shareclip instances found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INSTANCE\tHOST\tADDRESS\tPORT")
	for _, e := range entries {
		var addrs []string
		for _, ip := range e.AddrIPv4 {
			addrs = append(addrs, ip.String())
		}
		if len(addrs) == 0 {
			for _, ip := range e.AddrIPv6 {
				addrs = append(addrs, ip.String())
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			e.Instance,
			strings.TrimSuffix(e.HostName, "."),
			strings.Join(addrs, ","),
			e.Port,
		)
	}
	return w.Flush()
}
