/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/dwgkit/pkg/config"
	"github.com/ssargent/dwgkit/pkg/di"
	"github.com/ssargent/dwgkit/pkg/dwg"
	"github.com/ssargent/dwgkit/pkg/notify"
)

var container *di.Container

// annotationConfig set to "skip" keeps a command from loading the config file.
const annotationConfig = "config"

// SetContainer sets the dependency container used by every command
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dwgkit",
	Short: "dwgkit - DWG container toolkit",
	Long: `dwgkit reads, checks, converts and serves drawings stored in the
binary DWG container format, from R13 (AC1012) to R2018 (AC1032).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if container == nil {
			return fmt.Errorf("dependency container not initialized")
		}
		if cmd.Annotations[annotationConfig] != "skip" {
			path, _ := cmd.Flags().GetString("config")
			explicit := cmd.Flags().Changed("config")
			if path == "" {
				path = config.GetDefaultConfigPath()
			}
			if err := container.LoadConfig(path, explicit); err != nil {
				return err
			}
		}

		logging := container.GetConfig().Logging
		if cmd.Flags().Changed("log-level") {
			logging.Level, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("log-format") {
			logging.Format, _ = cmd.Flags().GetString("log-format")
		}
		return container.ConfigureLogging(logging.Level, logging.Format)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// readerConfig returns the configured reader settings with command line
// overrides applied. Notifications are logged and, if c is non-nil, collected.
func readerConfig(cmd *cobra.Command, c *notify.Collector) dwg.ReaderConfig {
	rc := container.ReaderConfig()
	if v, _ := cmd.Flags().GetBool("lenient"); v {
		rc.VerifyChecksums = false
	}
	if v, _ := cmd.Flags().GetBool("stop-at-first-error"); v {
		rc.StopAtFirstError = true
	}
	if v, _ := cmd.Flags().GetBool("ignore-unsupported"); v {
		rc.IgnoreUnsupportedTypes = true
	}
	if c != nil {
		rc.Notify = notify.Multi(rc.Notify, c.Handler())
	}
	return rc
}

func outputFormat(cmd *cobra.Command) string {
	f, _ := cmd.Flags().GetString("output")
	return f
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/dwgkit/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().StringP("output", "o", "text", "Output format (text, json)")
	rootCmd.PersistentFlags().Bool("lenient", false, "Report checksum mismatches instead of failing")
	rootCmd.PersistentFlags().Bool("stop-at-first-error", false, "Fail on the first malformed object record")
	rootCmd.PersistentFlags().Bool("ignore-unsupported", false, "Skip records of unknown type instead of failing")
}
