package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"maintenance_audit/audit"
	"maintenance_audit/config"
	"maintenance_audit/formatting"
)

var (
	// ErrMissingColumn is returned when a mapped header is absent from the sheet.
	ErrMissingColumn = errors.New("missing column")
	// ErrUnsupportedFormat is returned for files that are neither xlsx nor csv.
	ErrUnsupportedFormat = errors.New("unsupported input format")
)

// Rejected is a source row quarantined before it reaches the audit pipeline.
type Rejected struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Batch is the validated record set read from one input file.
type Batch struct {
	Source   string         `json:"source"`
	Records  []audit.Record `json:"-"`
	Rejected []Rejected     `json:"rejected"`
	Skipped  int            `json:"skipped"`
}

// ReadFile loads records from an .xlsx workbook (sheet) or a .csv file.
func ReadFile(path, sheet string, cols config.ColumnMap) (Batch, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readWorkbook(path, sheet)
	case ".csv":
		rows, err = readCSVFile(path)
	default:
		return Batch{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return Batch{}, err
	}
	batch, err := FromRows(rows, cols)
	if err != nil {
		return Batch{}, fmt.Errorf("%s: %w", path, err)
	}
	batch.Source = path
	zap.L().Info("input loaded",
		zap.String("path", path),
		zap.Int("records", len(batch.Records)),
		zap.Int("rejected", len(batch.Rejected)),
		zap.Int("skipped", batch.Skipped))
	return batch, nil
}

// ReadCSV loads records from CSV data.
func ReadCSV(r io.Reader, cols config.ColumnMap) (Batch, error) {
	rows, err := parseCSV(r)
	if err != nil {
		return Batch{}, err
	}
	return FromRows(rows, cols)
}

func readWorkbook(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found in %s (have %v)", sheet, path, f.GetSheetList())
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseCSV(f)
}

func parseCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// FromRows maps a header row plus data rows onto records. Row numbers in
// Rejected are 1-based sheet rows, the header being row 1.
func FromRows(rows [][]string, cols config.ColumnMap) (Batch, error) {
	var batch Batch
	if len(rows) == 0 {
		return batch, nil
	}
	idx, err := headerIndex(rows[0], cols)
	if err != nil {
		return batch, err
	}
	for i, row := range rows[1:] {
		if blank(row) {
			batch.Skipped++
			continue
		}
		rec := audit.Record{
			SiteID:     cell(row, idx.site),
			Specialty:  cell(row, idx.specialty),
			Priority:   cell(row, idx.priority),
			Contractor: cell(row, idx.contractor),
			OfficeUnit: cell(row, idx.office),
			Status:     cell(row, idx.status),
			MonthToken: cell(row, idx.month),
		}
		if rec.SiteID == "" {
			batch.Rejected = append(batch.Rejected, Rejected{Row: i + 2, Reason: "missing site id"})
			continue
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch, nil
}

type columnIndex struct {
	site, specialty, priority, contractor, office, status, month int
}

func headerIndex(header []string, cols config.ColumnMap) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = formatting.NormalizeHeader(h)
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	var missing []string
	find := func(name string) int {
		i, ok := pos[strings.TrimSpace(name)]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}
	idx := columnIndex{
		site:       find(cols.Site),
		specialty:  find(cols.Specialty),
		priority:   find(cols.Priority),
		contractor: find(cols.Contractor),
		office:     find(cols.OfficeUnit),
		status:     find(cols.Status),
		month:      find(cols.Month),
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return formatting.NormalizeLabel(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
