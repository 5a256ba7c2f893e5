package samples

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rctstats/domain/core"
	"rctstats/domain/stats"
	"rctstats/internal"
	"rctstats/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Reader loads numeric samples from CSV or Excel files
type Reader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewReader creates a reader for path; the format follows the file extension
func NewReader(filePath string, logger *internal.Logger) *Reader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Reader{filePath: filePath, fileType: fileType, logger: logger}
}

// ReadColumns reads the wide format: every header names a sample and the
// cells below it are its observations. Blank cells are skipped.
func ReadColumns(path string) (*ColumnSet, error) {
	return NewReader(path, nil).ReadColumns()
}

// ReadObservations reads the long format: one observation per row with the
// group label, metric name and value in the named columns. An empty metricCol
// reads a single metric named after valueCol.
func ReadObservations(path, groupCol, metricCol, valueCol string) (*Observations, error) {
	return NewReader(path, nil).ReadObservations(groupCol, metricCol, valueCol)
}

// ReadColumns reads the file in wide format
func (r *Reader) ReadColumns() (*ColumnSet, error) {
	tbl, err := r.readTable()
	if err != nil {
		return nil, err
	}

	set := &ColumnSet{
		Names:   tbl.Headers,
		Samples: make(map[string]stats.Sample, len(tbl.Headers)),
	}
	for col, name := range tbl.Headers {
		if name == "" {
			return nil, core.NewInvalidInputError(fmt.Sprintf("column %d", col+1), "header is blank")
		}
		if _, dup := set.Samples[name]; dup {
			return nil, core.NewInvalidInputError(name, "duplicate column header")
		}
		sample := stats.Sample{}
		for i, row := range tbl.Rows {
			if col >= len(row) || row[col] == "" {
				continue
			}
			value, err := parseValue(row[col], name, i+2)
			if err != nil {
				return nil, err
			}
			sample = append(sample, value)
		}
		set.Samples[name] = sample
	}

	r.logger.Debug("[samples] %s read in wide format (%d columns, %d rows)", r.filePath, len(set.Names), len(tbl.Rows))
	return set, nil
}

// ReadObservations reads the file in long format
func (r *Reader) ReadObservations(groupCol, metricCol, valueCol string) (*Observations, error) {
	tbl, err := r.readTable()
	if err != nil {
		return nil, err
	}

	groupIdx, err := tbl.column(groupCol)
	if err != nil {
		return nil, err
	}
	valueIdx, err := tbl.column(valueCol)
	if err != nil {
		return nil, err
	}
	metricIdx := -1
	if metricCol != "" {
		if metricIdx, err = tbl.column(metricCol); err != nil {
			return nil, err
		}
	}

	obs := &Observations{Samples: make(map[string]map[string]stats.Sample)}
	seenGroups := make(map[string]bool)
	for i, row := range tbl.Rows {
		line := i + 2
		group := cell(row, groupIdx)
		if group == "" {
			return nil, core.NewInvalidInputError(fmt.Sprintf("%s (row %d)", groupCol, line), "group label is blank")
		}
		metric := valueCol
		if metricIdx >= 0 {
			if metric = cell(row, metricIdx); metric == "" {
				return nil, core.NewInvalidInputError(fmt.Sprintf("%s (row %d)", metricCol, line), "metric name is blank")
			}
		}

		if !seenGroups[group] {
			seenGroups[group] = true
			obs.Groups = append(obs.Groups, group)
		}
		byGroup, ok := obs.Samples[metric]
		if !ok {
			byGroup = make(map[string]stats.Sample)
			obs.Samples[metric] = byGroup
			obs.Metrics = append(obs.Metrics, metric)
		}

		raw := cell(row, valueIdx)
		if raw == "" {
			continue
		}
		value, err := parseValue(raw, valueCol, line)
		if err != nil {
			return nil, err
		}
		byGroup[group] = append(byGroup[group], value)
	}

	r.logger.Debug("[samples] %s read in long format (%d groups, %d metrics, %d rows)",
		r.filePath, len(obs.Groups), len(obs.Metrics), len(tbl.Rows))
	return obs, nil
}

func (r *Reader) readTable() (*rawTable, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.NotFound(fmt.Sprintf("%s file %s", strings.ToUpper(r.fileType), r.filePath))
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("%s file must have a header row", strings.ToUpper(r.fileType))
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}
	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		trimmed := make([]string, len(row))
		for j, c := range row {
			trimmed[j] = strings.TrimSpace(c)
		}
		data = append(data, trimmed)
	}
	return &rawTable{Headers: headers, Rows: data}, nil
}

// readExcelRows reads every row of the workbook's first sheet
func (r *Reader) readExcelRows() ([][]string, error) {
	start := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file has no sheets: %s", r.filePath)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	r.logger.Trace("[samples] sheet %s read in %.2fms (%d rows)", sheets[0], float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

func (r *Reader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	start := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	r.logger.Trace("[samples] CSV file read in %.2fms (%d rows)", float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

func (t *rawTable) column(name string) (int, error) {
	for i, header := range t.Headers {
		if strings.EqualFold(header, name) {
			return i, nil
		}
	}
	return -1, core.NewInvalidInputError(name, "column not found")
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func parseValue(raw, column string, line int) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, core.NewInvalidInputError(fmt.Sprintf("%s (row %d)", column, line), fmt.Sprintf("%q is not numeric", raw))
	}
	return value, nil
}
