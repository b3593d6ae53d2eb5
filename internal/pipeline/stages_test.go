package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"maintenance_audit/config"
	"maintenance_audit/internal/store"
)

const sampleCSV = `Site Id Name,SUB_ESPECIALIDAD,Site Priority,Contratista Sitio,SUP_FLM_2,ESTADO,2_MES_PROGRA
B,AA,P_1,ACME,NORTE,Ejecutado,jul-25
B,AA,P_1,ACME,NORTE,Ejecutado,jul-25
B,IE,P_1,ACME,NORTE,Ejecutado,jul-25
B,AA,P_1,ACME,NORTE,Cancelado,ago-25
,AA,P_1,ACME,NORTE,Ejecutado,ago-25
`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(input, []byte(sampleCSV), 0o644))
	return config.Config{
		InputPath: input,
		WorkDir:   dir,
		DBPath:    filepath.Join(dir, "runs.db"),
		Audit:     config.DefaultAuditConfig(),
	}
}

func TestStagesProduceReportAndArchive(t *testing.T) {
	cfg := testConfig(t)
	st, err := store.Open(cfg.DBPath)
	require.NoError(t, err)
	defer st.Close()

	state := &State{RunID: "run-1", Trigger: "test", ReportPath: filepath.Join(cfg.WorkDir, "out", "report.xlsx"), StartedAt: time.Now()}
	require.NoError(t, Execute(context.Background(), Stages(cfg, st), state))

	require.Len(t, state.Batch.Records, 4)
	require.Len(t, state.Batch.Rejected, 1)
	require.Equal(t, 1, state.Report.RaisedCount())
	_, err = os.Stat(state.ReportPath)
	require.NoError(t, err)

	run, err := st.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, store.StatusSucceeded, run.Status)
	require.Equal(t, 1, run.AlarmsRaised)
	require.Equal(t, 1, run.Rejected)
}

func TestExecuteStopsAtFirstFailure(t *testing.T) {
	var ran []string
	stages := []Stage{
		{Name: "a", Fn: func(context.Context, *State) error { ran = append(ran, "a"); return errors.New("bad") }},
		{Name: "b", Fn: func(context.Context, *State) error { ran = append(ran, "b"); return nil }},
	}
	err := Execute(context.Background(), stages, &State{})
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "stage a:"))
	require.Equal(t, []string{"a"}, ran)
}

func TestExecuteHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Execute(ctx, Stages(testConfig(t), nil), &State{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunRecordMarksFailure(t *testing.T) {
	run := RunRecord(&State{RunID: "r"}, errors.New("sheet missing"))
	require.Equal(t, store.StatusFailed, run.Status)
	require.NotNil(t, run.Error)
	require.Equal(t, "sheet missing", *run.Error)
}
