// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the canvas-mirror CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the canvas-mirror CLI.
var rootCmd = &cobra.Command{
	Use:   "canvas-mirror",
	Short: "Mirror Canvas LMS courses to local Markdown",
	Long: `canvas-mirror walks the courses visible to a Canvas API token and writes
each one as a local directory tree: one directory per module with a README.md
aggregating its items, embedded files downloaded alongside, and links rewritten
to point at the local copies.

Credentials come from flags, a config file, or the CANVAS_API_URL and
CANVAS_API_KEY environment variables.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Root().PersistentFlags().GetString("log-level")
		level, err := logrus.ParseLevel(raw)
		if err != nil {
			return fmt.Errorf("invalid log level %q", raw)
		}
		logrus.SetLevel(level)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./canvas-mirror.yaml or ~/.config/canvas-mirror/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("canvas-mirror")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "canvas-mirror"))
		}
	}

	viper.SetEnvPrefix("CANVAS_MIRROR")
	viper.AutomaticEnv()

	// The conventional Canvas credential variables, kept for compatibility
	// with existing setups.
	viper.BindEnv("api_url", "CANVAS_MIRROR_API_URL", "CANVAS_API_URL")
	viper.BindEnv("api_key", "CANVAS_MIRROR_API_KEY", "CANVAS_API_KEY")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
