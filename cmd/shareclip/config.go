package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.shareclip.dev/shareclip/internal/logging"
)

// configDirs returns the directories probed for shareclip.toml, in order.
func configDirs() []string {
	dirs := []string{"/etc/shareclip"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "shareclip"))
	}
	return dirs
}

// newViper builds the settings view for one command invocation.
//
// Precedence (lowest → highest): defaults → config file → SHARECLIP_* env
// vars → flags. An explicit --config path must exist; the standard search
// order tolerates an absent file.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("SHARECLIP")
	v.AutomaticEnv()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("shareclip")
		v.SetConfigType("toml")
		for _, dir := range configDirs() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	return v, nil
}

// loadConfig is the shared PreRunE: it resolves settings and configures the
// global logger before the command body runs.
func loadConfig(cmd *cobra.Command, v **viper.Viper) error {
	resolved, err := newViper(cmd)
	if err != nil {
		return err
	}
	*v = resolved
	logging.Init(logging.Options{
		Format: resolved.GetString("log-format"),
		Level:  resolved.GetString("log-level"),
	})
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addPartnerFlags adds the flags shared by the client-side commands.
// compression-level is accepted for config compatibility but reserved: the
// wire carries payloads uncompressed.
func addPartnerFlags(cmd *cobra.Command) {
	cmd.Flags().String("partner", "", `partner endpoint: "host:port", or "@name" resolved via mDNS`)
	cmd.Flags().Int("compression-level", 0, "reserved; not applied to the wire")
}

func defaultInstance() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "shareclip"
}
