/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ssargent/dwgkit/pkg/api"
	"github.com/ssargent/dwgkit/pkg/config"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the dwgkit REST API server. Uploaded drawings are decoded, kept in
a pebble archive and can be inspected, queried, exported and converted.

Routes under /api/v1 require the X-API-Key header. With the key set to
"auto" a key is generated for the session and logged once.

Examples:
  dwgkit serve --port=8080 --archive-dir=./data
  dwgkit serve --api-key=mysecretkey`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := container.GetConfig().Server
		if cmd.Flags().Changed("port") {
			server.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			server.Bind, _ = cmd.Flags().GetString("bind")
		}
		if cmd.Flags().Changed("archive-dir") {
			server.ArchiveDir, _ = cmd.Flags().GetString("archive-dir")
		}
		if cmd.Flags().Changed("api-key") {
			server.APIKey, _ = cmd.Flags().GetString("api-key")
		}

		logger := container.GetLogger()
		if server.APIKey == "auto" {
			key, err := config.GenerateSecureKey(32)
			if err != nil {
				return err
			}
			server.APIKey = key
			logger.WithField("api_key", key).Warn("generated a session API key; run 'dwgkit init' to persist one")
		}

		if err := os.MkdirAll(server.ArchiveDir, 0750); err != nil {
			return fmt.Errorf("failed to create archive dir: %w", err)
		}
		archive, err := container.GetArchiveFactory().OpenArchive(server.ArchiveDir)
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer archive.Close()

		wc, err := container.WriterConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		starter := container.GetServerFactory().CreateServerStarter()
		return starter.StartServer(ctx, archive, api.ServerConfig{
			Port:           server.Port,
			Bind:           server.Bind,
			APIKey:         server.APIKey,
			MaxUploadBytes: server.MaxUploadBytes,
			Reader:         readerConfig(cmd, nil),
			Writer:         wc,
		})
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind")
	serveCmd.Flags().String("archive-dir", "./data", "Directory of the drawing archive")
	serveCmd.Flags().String("api-key", "", "API key required by /api/v1 routes")
	rootCmd.AddCommand(serveCmd)
}
