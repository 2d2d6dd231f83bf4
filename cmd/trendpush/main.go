package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"trendpush/internal/config"
)

var version = "dev"

var (
	configPath string
	logLevel   string
	cfgm       *config.Manager
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "trendpush",
	Short:        "Push trend reports to chat, push and mail channels",
	Long:         "trendpush packs a trending-topics report into per-channel batches and delivers it to every configured channel and account.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		m, err := loadConfig(configPath, logLevel)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfgm = m
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (JSON or YAML; default $TRENDPUSH_CONFIG or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(channelsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("trendpush", version)
	},
}

// loadConfig resolves the config path and loads it. Without any file the
// config is built from defaults and the environment alone.
func loadConfig(path, level string) (*config.Manager, error) {
	lookup := func(key string) (string, bool) {
		if key == "LOG_LEVEL" && level != "" {
			return level, true
		}
		return os.LookupEnv(key)
	}

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = strings.TrimSpace(os.Getenv("TRENDPUSH_CONFIG"))
		explicit = path != ""
	}
	if path == "" {
		path = "./config.yaml"
	}

	if _, err := os.Stat(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg, err := config.Default(lookup)
		if err != nil {
			return nil, err
		}
		m := config.NewManager("")
		m.Commit(cfg)
		return m, nil
	}

	m := config.NewManager(path)
	m.SetLookup(lookup)
	if _, err := m.Load(); err != nil {
		return nil, err
	}
	return m, nil
}
