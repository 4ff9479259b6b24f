package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/bryanchriswhite/SnapshotFilter/internal/config"
	"github.com/bryanchriswhite/SnapshotFilter/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	prettyLogs bool
	rootCmd    = &cobra.Command{
		Use:   "snapshotfilter",
		Short: "SnapshotFilter - frame-triggered snapshots of a live video stream",
		Long: `SnapshotFilter passes a raw video stream through unchanged and, when
triggered, writes one frame (a configurable number of frames later) to disk
as a BMP, PNG or JPEG image.

Features:
  • Test pattern, GStreamer and X11 screen sources
  • Trigger over HTTP, from the web UI or with 'snapshotfilter trigger'
  • Frame delay, file type and output location adjustable at runtime
  • Capture events over websocket
  • MJPEG preview of the passthrough stream
  • Persistent YAML configuration`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if viper.IsSet("log_level") {
				logger.Init(viper.GetString("log_level"), prettyLogs)
			} else if prettyLogs {
				logger.Init("info", true)
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/snapshotfilter/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&prettyLogs, "pretty", false, "human-readable console logs")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// SNAPSHOTFILTER_SNAPSHOT_FRAME_DELAY=3 overrides snapshot.frame_delay
	viper.SetEnvPrefix("snapshotfilter")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range config.Keys() {
		viper.BindEnv(key)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig reads the config file and layers flag and environment
// overrides on top. Overrides are not written back to the file.
func loadConfig() (*config.Manager, *config.Config, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize config manager: %w", err)
	}

	cfg := configMgr.Get()
	for _, key := range config.Keys() {
		if !viper.IsSet(key) {
			continue
		}
		value := viper.GetString(key)
		if value == "" || (key == "server_port" && value == "0") {
			continue
		}
		if err := cfg.Apply(key, value); err != nil {
			return nil, nil, fmt.Errorf("invalid override: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return configMgr, cfg, nil
}

// serverURL picks the --server flag or the configured local port
func serverURL(flag string) string {
	if flag != "" {
		return strings.TrimRight(flag, "/")
	}
	port := 8080
	if _, cfg, err := loadConfig(); err == nil {
		port = cfg.ServerPort
	}
	return fmt.Sprintf("http://localhost:%d", port)
}
