package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"maintenance_audit/audit"
)

// Sheet names of the exported workbook.
const (
	SheetCoverage    = "Conteo"
	SheetStatus      = "Estados"
	SheetContractors = "Contratistas"
	SheetOffices     = "Oficinas"
	SheetAlarms      = "Alarmas"
)

// Table is one sheet of the report, header first.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Tables lays out every report table in workbook order. Tier alarm series
// get one extra sheet each.
func Tables(rep audit.Report) []Table {
	tables := []Table{
		coverageTable(rep),
		statusTable(rep.Status),
		rosterTable(SheetContractors, "CONTRATISTA", rep.Contractors),
		rosterTable(SheetOffices, "OFICINA", rep.Offices),
		alarmTable(SheetAlarms, audit.SeriesLabel(""), rep.Alarms),
	}
	used := make(map[string]bool, len(tables)+len(rep.TierAlarms))
	for _, t := range tables {
		used[strings.ToLower(t.Name)] = true
	}
	for _, series := range rep.TierAlarms {
		name := uniqueSheetName(tierSheetName(series.Tier), used)
		tables = append(tables, alarmTable(name, series.Label, series.Alarms))
	}
	return tables
}

func coverageTable(rep audit.Report) Table {
	header := []string{"SITE", "MES"}
	header = append(header, rep.Vocabulary...)
	header = append(header, "TOTAL", "CAMBIO_MES_A_MES", "FUERA_DE_LISTA")
	t := Table{Name: SheetCoverage, Header: header}
	for _, row := range rep.Coverage {
		line := []any{row.SiteID, string(row.Month)}
		for _, c := range row.Counts {
			line = append(line, c)
		}
		line = append(line, row.Total, row.Delta, row.Unlisted)
		t.Rows = append(t.Rows, line)
	}
	return t
}

func statusTable(st audit.StatusTable) Table {
	header := []string{"SITE", "MES", "SUB_ESPECIALIDAD"}
	header = append(header, st.Statuses...)
	header = append(header, "Total", "% "+st.CancelStatus)
	t := Table{Name: SheetStatus, Header: header}
	for _, row := range st.Rows {
		line := []any{row.SiteID, string(row.Month), row.Specialty}
		for _, c := range row.Counts {
			line = append(line, c)
		}
		line = append(line, row.Total, row.CancelRatio)
		t.Rows = append(t.Rows, line)
	}
	return t
}

func rosterTable(name, entity string, rows []audit.RosterRow) Table {
	t := Table{Name: name, Header: []string{entity, "SITE", "MES", "Cantidad"}}
	for _, row := range rows {
		t.Rows = append(t.Rows, []any{row.Entity, row.SiteID, string(row.Month), row.Count})
	}
	return t
}

func alarmTable(name, label string, alarms []audit.Alarm) Table {
	t := Table{Name: name, Header: []string{"SITE", "PRIORIDAD", "MES", "TOTAL", "CAMBIO_MES_A_MES", label}}
	for _, a := range alarms {
		t.Rows = append(t.Rows, []any{a.SiteID, a.Priority, string(a.Month), a.Total, a.Delta, a.Message})
	}
	return t
}

var sheetNameCleaner = strings.NewReplacer("[", "", "]", "", ":", "", "*", "", "?", "", "/", "-", "\\", "-")

func tierSheetName(tier string) string {
	return truncateSheetName(SheetAlarms+" "+sheetNameCleaner.Replace(tier), 31)
}

func truncateSheetName(name string, max int) string {
	if r := []rune(name); len(r) > max {
		return string(r[:max])
	}
	return name
}

// uniqueSheetName appends a numeric suffix until name is free. Sheet names
// compare case-insensitively.
func uniqueSheetName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := " (" + strconv.Itoa(n) + ")"
		candidate = truncateSheetName(name, 31-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

// WriteWorkbook writes the report as a multi-sheet xlsx workbook.
func WriteWorkbook(w io.Writer, rep audit.Report) error {
	f, err := build(rep)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// SaveWorkbook writes the workbook to path, creating parent directories.
func SaveWorkbook(path string, rep audit.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := build(rep)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, rep audit.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func build(rep audit.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	for i, t := range Tables(rep) {
		if i == 0 {
			err = f.SetSheetName(f.GetSheetName(0), t.Name)
		} else {
			_, err = f.NewSheet(t.Name)
		}
		if err == nil {
			err = writeSheet(f, t, bold)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %s: %w", t.Name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, t Table, headerStyle int) error {
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(t.Name, 1, 1, headerStyle); err != nil {
		return err
	}
	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Name, cell, &row); err != nil {
			return err
		}
	}
	return f.SetPanes(t.Name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}
