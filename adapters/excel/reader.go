package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"scifig/domain/analysis"
	"scifig/internal/errors"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Format of an input table
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatFromName picks the format from a file name; anything that is not
// .csv is read as a workbook
func FormatFromName(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return FormatCSV
	}
	return FormatXLSX
}

// Table is a parsed input table
type Table struct {
	Headers []string
	Rows    []analysis.Row
}

// DataReader reads Excel and CSV files into engine rows
type DataReader struct {
	// Sheet selects the worksheet; empty means the first sheet
	Sheet  string
	logger zerolog.Logger
}

// NewDataReader creates a new data reader
func NewDataReader(logger zerolog.Logger) *DataReader {
	return &DataReader{logger: logger.With().Str("component", "data_reader").Logger()}
}

// ReadFile reads a table from disk
func (r *DataReader) ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("file %s", path))
		}
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	return r.Read(f, FormatFromName(path))
}

// Read parses a table from any reader
func (r *DataReader) Read(src io.Reader, format Format) (*Table, error) {
	start := time.Now()

	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = readCSV(src)
	case FormatXLSX:
		records, err = r.readWorkbook(src)
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported file type: %s", format))
	}
	if err != nil {
		return nil, err
	}

	table, err := processRecords(records)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("format", string(format)).
		Int("columns", len(table.Headers)).
		Int("rows", len(table.Rows)).
		Dur("elapsed", time.Since(start)).
		Msg("table read")
	return table, nil
}

func readCSV(src io.Reader) ([][]string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "failed to read CSV file"))
	}
	return records, nil
}

func (r *DataReader) readWorkbook(src io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "failed to open Excel file"))
	}
	defer f.Close()

	sheet := r.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.InvalidInput("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, errors.Wrapf(err, "failed to read sheet %q", sheet))
	}
	return rows, nil
}

// processRecords turns header + data records into rows. Empty cells become
// missing values, numeric text becomes float64 and everything else stays a
// trimmed string.
func processRecords(records [][]string) (*Table, error) {
	if len(records) < 2 {
		return nil, errors.DataError("file must have at least a header row and one data row")
	}

	headers := make([]string, len(records[0]))
	seen := make(map[string]bool, len(headers))
	for i, h := range records[0] {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		headers[i] = uniqueHeader(name, seen)
	}

	rows := make([]analysis.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		if blank(record) {
			continue
		}
		row := make(analysis.Row, len(headers))
		for j, h := range headers {
			var cell string
			if j < len(record) {
				cell = record[j]
			}
			row[h] = parseCell(cell)
		}
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: rows}, nil
}

// uniqueHeader suffixes a repeated header with _2, _3, ... so no column
// overwrites an earlier one
func uniqueHeader(name string, seen map[string]bool) string {
	unique := name
	for n := 2; seen[unique]; n++ {
		unique = fmt.Sprintf("%s_%d", name, n)
	}
	seen[unique] = true
	return unique
}

func parseCell(cell string) interface{} {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return cell
}

func blank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
