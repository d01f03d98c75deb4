// Package tabular reads uploaded listing tables into raw string rows.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"carprice/models"
)

var (
	// ErrEmptyTable is returned for input without a header or without data rows.
	ErrEmptyTable = errors.New("tabular: no header or data rows")
	// ErrMalformedTable is returned for input that cannot be decoded as a table at all.
	ErrMalformedTable = errors.New("tabular: malformed table")
)

// missingMarker is how gota renders a cell it parsed as missing.
const missingMarker = "NaN"

// missingValues are the spellings of an absent cell in uploaded files.
var missingValues = []string{"", "NA", "N/A", "NaN", "nan", "null"}

// Read dispatches on the file extension: .xlsx goes to ReadXLSX, anything
// else is read as CSV.
func Read(filename string, r io.Reader) (*models.RawTable, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return ReadXLSX(r)
	}
	return ReadCSV(r)
}

// ReadCSV loads a comma-separated table with a header row. Every column is
// kept as text; missing cells come back as empty strings. Short rows are
// padded. A row with more non-blank fields than the header is kept as a blank
// placeholder and listed in RawTable.Rejected, so it cannot fail the file.
func ReadCSV(r io.Reader) (*models.RawTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("%w: %w", ErrMalformedTable, err)
		}
		return nil, fmt.Errorf("tabular: read csv: %w", err)
	}
	if len(records) < 2 {
		return nil, ErrEmptyTable
	}

	header := trimAll(records[0])
	aligned := make([][]string, 0, len(records))
	aligned = append(aligned, header)
	rejected := make(map[int]string)
	for i, rec := range records[1:] {
		row := make([]string, len(header))
		if len(rec) > len(header) && !isBlank(rec[len(header):]) {
			rejected[i] = fmt.Sprintf("%d fields, header has %d", len(rec), len(header))
		} else {
			copy(row, rec)
		}
		aligned = append(aligned, row)
	}

	df := dataframe.LoadRecords(aligned,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(missingValues),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedTable, df.Err)
	}

	frame := df.Records()
	table := &models.RawTable{Header: frame[0], Rows: make([][]string, 0, len(frame)-1)}
	for _, rec := range frame[1:] {
		row := make([]string, len(rec))
		for i, v := range rec {
			if v != missingMarker {
				row[i] = v
			}
		}
		table.Rows = append(table.Rows, row)
	}
	if len(rejected) > 0 {
		table.Rejected = rejected
	}
	return table, nil
}

// ReadXLSX loads the first sheet of a workbook. The first row is the header;
// short rows are padded with empty cells.
func ReadXLSX(r io.Reader) (*models.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %w", ErrMalformedTable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyTable
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("tabular: read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyTable
	}

	header := trimAll(rows[0])
	table := &models.RawTable{Header: header, Rows: make([][]string, 0, len(rows)-1)}
	for _, rec := range rows[1:] {
		if isBlank(rec) {
			continue
		}
		row := make([]string, len(header))
		for i := 0; i < len(header) && i < len(rec); i++ {
			if !isMissing(rec[i]) {
				row[i] = rec[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	if len(table.Rows) == 0 {
		return nil, ErrEmptyTable
	}
	return table, nil
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func isMissing(v string) bool {
	v = strings.TrimSpace(v)
	for _, m := range missingValues {
		if v == m {
			return true
		}
	}
	return false
}
