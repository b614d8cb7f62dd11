package excel

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scifig/internal/errors"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFormatFromName(t *testing.T) {
	assert.Equal(t, FormatCSV, FormatFromName("data.CSV"))
	assert.Equal(t, FormatXLSX, FormatFromName("data.xlsx"))
	assert.Equal(t, FormatXLSX, FormatFromName("data"))
}

func TestRead_CSV(t *testing.T) {
	src := "\ufeffgroup, score ,status\nA,1.5,dead\nB,,alive\n,,\nC,2e1\n"
	table, err := NewDataReader(zerolog.Nop()).Read(strings.NewReader(src), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, []string{"group", "score", "status"}, table.Headers)
	require.Len(t, table.Rows, 3, "blank record is skipped")
	assert.Equal(t, 1.5, table.Rows[0]["score"])
	assert.Equal(t, "dead", table.Rows[0]["status"])
	assert.Nil(t, table.Rows[1]["score"])
	assert.Equal(t, 20.0, table.Rows[2]["score"])
	assert.Nil(t, table.Rows[2]["status"], "short record is padded with missing")
}

func TestRead_HeaderOnlyIsDataError(t *testing.T) {
	_, err := NewDataReader(zerolog.Nop()).Read(strings.NewReader("a,b\n"), FormatCSV)
	assert.Equal(t, errors.CodeDataError, errors.GetCode(err))
}

func TestRead_InfinityStaysText(t *testing.T) {
	table, err := NewDataReader(zerolog.Nop()).Read(strings.NewReader("x\nInf\n"), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "Inf", table.Rows[0]["x"])
}

func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		require.NoError(t, f.SetSheetName("Sheet1", sheet))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestRead_Workbook(t *testing.T) {
	data := writeWorkbook(t, "Trial", [][]interface{}{
		{"arm", "months", "event"},
		{"drug", 12, 1},
		{"placebo", 7.5, 0},
	})

	table, err := NewDataReader(zerolog.Nop()).Read(bytes.NewReader(data), FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, []string{"arm", "months", "event"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "drug", table.Rows[0]["arm"])
	assert.Equal(t, 12.0, table.Rows[0]["months"])
	assert.Equal(t, 7.5, table.Rows[1]["months"])
}

func TestRead_NamedSheet(t *testing.T) {
	data := writeWorkbook(t, "Trial", [][]interface{}{{"a"}, {1}})

	reader := NewDataReader(zerolog.Nop())
	reader.Sheet = "Missing"
	_, err := reader.Read(bytes.NewReader(data), FormatXLSX)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	reader.Sheet = "Trial"
	table, err := reader.Read(bytes.NewReader(data), FormatXLSX)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "study.csv")
	require.NoError(t, os.WriteFile(path, []byte("g,y\nA,1\nB,2\n"), 0o644))

	reader := NewDataReader(zerolog.Nop())
	table, err := reader.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)

	_, err = reader.ReadFile(filepath.Join(dir, "absent.csv"))
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestRead_DuplicateHeadersAreSuffixed(t *testing.T) {
	src := "score,arm,score,,score,column_4\n1,A,2,x,3,y\n"
	table, err := NewDataReader(zerolog.Nop()).Read(strings.NewReader(src), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, []string{"score", "arm", "score_2", "column_4", "score_3", "column_4_2"}, table.Headers)
	require.Len(t, table.Rows, 1)
	row := table.Rows[0]
	assert.Len(t, row, 6)
	assert.Equal(t, 1.0, row["score"])
	assert.Equal(t, 2.0, row["score_2"])
	assert.Equal(t, 3.0, row["score_3"])
	assert.Equal(t, "x", row["column_4"])
	assert.Equal(t, "y", row["column_4_2"])
}
