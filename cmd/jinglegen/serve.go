package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/jinglegen/jinglegen/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP analysis service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		app := fx.New(server.Module(cfg))
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", ":5000", "listen address")
	serveCmd.Flags().String("upload-dir", "uploads", "directory for spooled uploads")
	serveCmd.Flags().String("raw-agent", "curl", "User-Agent substring that receives only the bid request")
}
