package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mhan/momo/pkg/config"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "momo",
	Short: "momo - S&P momentum screener",
	Long: `momo Unified CLI

Weekly momentum screen over the megacap, S&P 500 and S&P 400 cohorts:
membership sync, daily bar collection, trailing-return ranking, HTML
reports, scheduler and a read-only API.

Usage:
  momo [command]

Examples:
  momo initdb
  momo pipeline --date 2025-08-22
  momo scheduler start
  momo api`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the env file behind --config, if any, before the
// process environment is read. Values already set in the environment
// win over the file.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", configFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}
