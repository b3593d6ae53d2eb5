package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"maintenance_audit/internal/export"
	"maintenance_audit/internal/jobs"
	"maintenance_audit/internal/pipeline"
	"maintenance_audit/internal/store"
	"maintenance_audit/internal/tui"
)

var (
	runInput   string
	runSheet   string
	runOut     string
	runNoStore bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Audita el libro y escribe el reporte",
	RunE: func(cmd *cobra.Command, args []string) error {
		var st *store.Store
		if !runNoStore {
			var err error
			if st, err = store.Open(cfg.DBPath); err != nil {
				return fmt.Errorf("open run store: %w", err)
			}
			defer st.Close()
		}
		runner := jobs.NewRunner(cfg, st, pipeline.Stages(cfg, st), nil, nil, nil)
		res, err := runner.Run(cmd.Context(), jobs.Trigger{Source: jobs.TriggerCLI, InputPath: runInput, SheetName: runSheet, ReportPath: runOut})
		if err != nil {
			return err
		}
		for _, c := range res.Report.PriorityConflicts {
			zap.L().Warn("site with more than one priority", zap.String("site", c.SiteID), zap.String("kept", c.Kept), zap.String("ignored", c.Ignored))
		}
		for _, r := range res.Rejected {
			zap.L().Warn("row rejected", zap.Int("row", r.Row), zap.String("reason", r.Reason))
		}
		if jsonOut {
			return export.WriteJSON(os.Stdout, res.Report)
		}
		fmt.Print(tui.RenderSummary(res.Report))
		fmt.Printf("\nReporte: %s\nCorrida: %s\n", res.ReportPath, res.RunID)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "input workbook or csv (default: INPUT_PATH)")
	runCmd.Flags().StringVar(&runSheet, "sheet", "", "sheet name (default: INPUT_SHEET)")
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "report workbook path (default: REPORT_PATH)")
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "do not archive the run")
	rootCmd.AddCommand(runCmd)
}
