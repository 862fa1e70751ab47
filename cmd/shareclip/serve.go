package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.shareclip.dev/shareclip/internal/clip"
	"go.shareclip.dev/shareclip/internal/clipdata"
	"go.shareclip.dev/shareclip/internal/discovery"
	"go.shareclip.dev/shareclip/internal/filedrop"
	"go.shareclip.dev/shareclip/internal/progress"
	"go.shareclip.dev/shareclip/internal/transfer"
)

func newServeCmd() *cobra.Command {
	var v *viper.Viper

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the data server and publish received payloads to this host",
		Long: `Starts the shareclip data server. Received clipboard payloads are written
to the system clipboard; received file drops are materialized in the spool
directory and their paths logged. The server announces itself via mDNS so
partners can address it as "@<instance>".

Config file search order (first found wins):
  /etc/shareclip/shareclip.toml
  $HOME/.config/shareclip/shareclip.toml
A path supplied via --config replaces the search and must exist.

Precedence (lowest → highest): defaults → config file → SHARECLIP_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return loadConfig(cmd, &v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runServe(v) },
	}

	f := cmd.Flags()
	f.String("addr", "0.0.0.0:8736", "TCP listen address")
	f.String("instance", defaultInstance(), "mDNS instance name partners use to find this host")
	f.Bool("no-announce", false, "disable the mDNS announcement")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runServe(v *viper.Viper) error {
	addr := v.GetString("addr")
	instance := v.GetString("instance")
	announce := !v.GetBool("no-announce")

	slog.Info("shareclip server starting",
		"version", Version,
		"addr", addr,
		"instance", instance,
		"spool", filedrop.SpoolDir(),
	)

	backend := clip.New()
	slog.Info("clipboard backend", "name", backend.Name())

	if announce {
		port, err := listenPort(addr)
		if err != nil {
			return err
		}
		stop, err := discovery.Announce(instance, port)
		if err != nil {
			slog.Warn("mdns announcement unavailable", "err", err)
		} else {
			defer stop()
		}
	}

	srv := transfer.NewServer(transfer.ServerConfig{
		Addr:     addr,
		Dispatch: &hostDispatch{backend: backend},
		Progress: progress.Log{},
		Status:   logStatus{},
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return srv.Run(ctx)
}

// listenPort extracts the numeric port from a listen address.
func listenPort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("listen address %q: %w", addr, err)
	}
	return port, nil
}

// logStatus surfaces connection state transitions through slog.
type logStatus struct{}

func (logStatus) SetStatus(s transfer.Status) {
	slog.Info("status", "state", s.String())
}

// hostDispatch publishes received payloads to the host: text formats go to
// the system clipboard, images and file drops land in the spool.
type hostDispatch struct {
	backend clip.Backend
}

// textPreference orders the text-carrying formats by fidelity; the first
// present wins.
var textPreference = []string{
	clipdata.FormatUnicodeText,
	clipdata.FormatText,
	clipdata.FormatString,
	clipdata.FormatOEMText,
}

func (d *hostDispatch) Data(_ context.Context, data *clipdata.Data) error {
	for _, it := range data.Items {
		switch it.Format {
		case clipdata.FormatWaveAudio, clipdata.FormatBitmap:
			// Recognized but not wired to the host; kept so peers that
			// advertise them still complete the transfer.
			slog.Debug("ignoring clipboard item", "format", it.Format, "size", len(it.Data))
		}
	}

	for _, format := range textPreference {
		it := data.First(format)
		if it == nil {
			continue
		}
		text, err := clipdata.Decode(format, it.Data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", format, err)
		}
		if err := d.backend.WriteText([]byte(text)); err != nil {
			slog.Warn("clipboard write failed", "err", err)
		}
		return nil
	}
	return nil
}

func (d *hostDispatch) Files(_ context.Context, paths []string) error {
	for _, p := range paths {
		slog.Info("received file", "path", p)
	}
	return nil
}

func (d *hostDispatch) Image(_ context.Context, bmp []byte) error {
	path := filepath.Join(filedrop.SpoolDir(), "clipboard.bmp")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(path, bmp, 0o600); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	slog.Info("received image", "path", path, "size", len(bmp))
	return nil
}
