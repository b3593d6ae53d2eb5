package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"maintenance_audit/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API HTTP, vigilancia del libro y avisos por GroupMe",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New(cfg)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()
		return application.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
