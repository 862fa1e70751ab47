package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.shareclip.dev/shareclip/internal/clip"
	"go.shareclip.dev/shareclip/internal/clipdata"
	"go.shareclip.dev/shareclip/internal/discovery"
	"go.shareclip.dev/shareclip/internal/progress"
	"go.shareclip.dev/shareclip/internal/transfer"
)

func newSendCmd() *cobra.Command {
	var v *viper.Viper

	cmd := &cobra.Command{
		Use:   "send [file|dir ...]",
		Short: "Send the clipboard, or the named files, to the partner",
		Long: `With no arguments, reads the host clipboard and pushes its contents to the
partner. With file or directory arguments, streams them as a file drop; the
partner materializes the tree in its spool directory.

--partner accepts "host:port", or "@name" to resolve a serving host via mDNS.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return loadConfig(cmd, &v) },
		RunE:    func(_ *cobra.Command, args []string) error { return runSend(v, args) },
	}

	cmd.Flags().String("text", "", "send this text instead of the clipboard contents")
	addPartnerFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runSend(v *viper.Viper, args []string) error {
	partner := v.GetString("partner")
	if partner == "" {
		return fmt.Errorf("no partner configured (use --partner)")
	}

	c := transfer.NewClient(transfer.ClientConfig{
		Partner:   partner,
		Discovery: &discovery.Zeroconf{},
		Progress:  progress.Log{},
	})
	defer c.Stop()

	if len(args) > 0 {
		return c.SendFileDropList(args)
	}

	text := v.GetString("text")
	if text == "" {
		backend := clip.New()
		text = string(backend.ReadText())
	}
	if text == "" {
		return fmt.Errorf("clipboard is empty and no --text given")
	}

	data := &clipdata.Data{}
	if err := data.AddText(clipdata.FormatText, text); err != nil {
		return err
	}
	if err := data.AddText(clipdata.FormatUnicodeText, text); err != nil {
		return err
	}
	return c.SendData(data)
}
