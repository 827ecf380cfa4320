// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/config"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "qrmenu-admin",
	Short: "QRMenu-Admin is the access control service of the QR menu platform",
	Long: `QRMenu-Admin resolves roles and permissions of platform principals,
decides which pages they may navigate to and keeps every restaurant
inside its own menus, tables and orders.`,
	Args:          cobra.OnlyValidArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/",
		"Directory holding main.toml")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the configuration and initializes the logger with it.
func loadConfig() error {
	if cfg, err = config.ReadConfig(configPath); err != nil {
		return err
	}

	if devMode {
		cfg.DevMode = true
	}

	return logger.Init(cfg.Log)
}
