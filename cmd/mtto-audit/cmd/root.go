package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"maintenance_audit/config"
)

var (
	configPath string
	verbose    bool
	jsonOut    bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mtto-audit",
	Short: "Auditoría de mantenimiento preventivo",
	Long: `mtto-audit - auditoría de mantenimiento preventivo

Lee el libro de órdenes de mantenimiento, cuenta especialidades por sitio y mes,
calcula el cambio mes a mes y levanta alarmas cuando un sitio de la prioridad
configurada pierde especialidades.

Comandos:
  - run:     audita un archivo y escribe el reporte xlsx
  - serve:   API HTTP, vigilancia del archivo y avisos por GroupMe
  - view:    visor interactivo de alarmas en la terminal
  - history: corridas archivadas`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { _ = zap.L().Sync() },
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: $CONFIG_PATH or config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "JSON output")
	rootCmd.SilenceErrors = true
}

func setup(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	if configPath != "" {
		if err := os.Setenv("CONFIG_PATH", configPath); err != nil {
			return err
		}
	}
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zc.Build()
}
