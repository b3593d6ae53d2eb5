package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"maintenance_audit/internal/jobs"
	"maintenance_audit/internal/pipeline"
	"maintenance_audit/internal/tui"
)

var (
	viewInput string
	viewSheet string
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Visor interactivo de alarmas",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New("view needs an interactive terminal; use `run` instead")
		}
		// No report path and no store: the viewer writes nothing.
		viewCfg := cfg
		viewCfg.ReportPath = ""
		runner := jobs.NewRunner(viewCfg, nil, pipeline.Stages(viewCfg, nil), nil, nil, nil)
		res, err := runner.Run(cmd.Context(), jobs.Trigger{Source: jobs.TriggerCLI, InputPath: viewInput, SheetName: viewSheet})
		if err != nil {
			return err
		}
		return tui.Run(res.Report)
	},
}

func init() {
	viewCmd.Flags().StringVarP(&viewInput, "input", "i", "", "input workbook or csv (default: INPUT_PATH)")
	viewCmd.Flags().StringVar(&viewSheet, "sheet", "", "sheet name (default: INPUT_SHEET)")
	rootCmd.AddCommand(viewCmd)
}
