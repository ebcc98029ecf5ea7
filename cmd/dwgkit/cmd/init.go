/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ssargent/dwgkit/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:         "init",
	Annotations: map[string]string{annotationConfig: "skip"},
	Short:       "Write a configuration file with a generated API key",
	Long: `Create the dwgkit configuration file with default reader and writer
settings and a freshly generated API key for the server.

Examples:
  dwgkit init
  dwgkit init --archive-dir=/var/lib/dwgkit --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		archiveDir, _ := cmd.Flags().GetString("archive-dir")
		force, _ := cmd.Flags().GetBool("force")

		if config.ConfigExists(path) && !force {
			cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", path)
			return nil
		}

		cfg, err := config.BootstrapConfig(path, archiveDir)
		if err != nil {
			return err
		}
		cmd.Printf("Wrote %s\n", path)
		cmd.Printf("Archive directory: %s\n", cfg.Server.ArchiveDir)
		cmd.Printf("API key: %s...\n", cfg.Server.APIKey[:8])
		return nil
	},
}

func init() {
	initCmd.Flags().String("archive-dir", "", "Directory of the drawing archive")
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	rootCmd.AddCommand(initCmd)
}
