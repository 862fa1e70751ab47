// shareclip: peer-to-peer clipboard and file transfer over TCP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "shareclip",
		Short: "Peer-to-peer clipboard and file transfer over TCP",
		Long: `shareclip moves the clipboard (text in several encodings, rich text,
HTML, bitmaps, and dropped files) between two hosts over a direct TCP
connection. No relay, no cloud.

Run "shareclip serve" on the receiving host. On the sending host, point
--partner at it ("host:port", or "@name" to find it via mDNS) and use
"shareclip send".

Config file search order (first found wins):
  /etc/shareclip/shareclip.toml
  $HOME/.config/shareclip/shareclip.toml
A path supplied via --config replaces the search and must exist.

All flags can be set via SHARECLIP_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newSendCmd(),
		newPingCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("shareclip %s\n", Version)
		},
	}
}
