// Command rewardsctl runs operator tasks against the rewards database.
package main

import (
	"fmt" // Error output
	"os"  // Exit codes

	"rewards_system/internal/app"    // Service wiring
	"rewards_system/internal/config" // Custom package for configuration
	"rewards_system/internal/logger" // Logger setup

	"github.com/spf13/cobra" // CLI commands
)

// application is connected by the root command before any subcommand runs
var application *app.App

var rootCmd = &cobra.Command{
	Use:           "rewardsctl",
	Short:         "Operator tools for the rewards backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		logger.Setup(cfg)
		application, err = app.New(cfg)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if application == nil {
			return nil
		}
		return application.Close()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
