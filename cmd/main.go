package main

import (
	"fmt"
	"os"

	"github.com/glefebvre/iptvcore/internal/config"
	"github.com/glefebvre/iptvcore/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "v0.1.0"

var rootCmd = &cobra.Command{
	Use:   "iptvcore",
	Short: "iptvcore stores and serves IPTV M3U playlists",
	Long: `iptvcore parses M3U playlists, keeps them in a durable SQL store with a
small key/value fallback tier, and splits large playlists into per-group
records so single groups can be browsed without loading the whole list.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of iptvcore",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("iptvcore %s\n", version)
	},
}

var configFile string

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yml)")
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	// Skip config loading for version command
	if len(os.Args) > 1 && os.Args[1] == "version" {
		return
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	}
	if err := config.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()
	logger.InitializeLoggersWithFormat(cfg.GetAppLogLevel(), cfg.GetDatabaseLogLevel(), cfg.Logging.Format)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
