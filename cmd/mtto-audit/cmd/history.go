package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"maintenance_audit/internal/store"
	"maintenance_audit/internal/tui"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Corridas archivadas",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		defer st.Close()
		ctx := cmd.Context()

		if len(args) == 1 {
			run, err := st.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			alarms, err := st.RunAlarms(ctx, run.ID)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(map[string]any{"run": run, "alarms": alarms})
			}
			fmt.Print(tui.RenderRun(run, alarms))
			return nil
		}

		runs, err := st.ListRuns(ctx, historyLimit)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(runs)
		}
		fmt.Print(tui.RenderRuns(runs))
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list")
	rootCmd.AddCommand(historyCmd)
}
