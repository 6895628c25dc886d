package entry

import (
	"errors"
	"fmt"
	"strings"
)

// Column headers of a codebook sheet.
const (
	ColumnCode       = "PMI Code"
	ColumnParentCode = "Parent code"
	ColumnType       = "Type"
	ColumnTopic      = "Topic"
	ColumnDisplay    = "Display"
	ColumnSystem     = "PMI System"
)

// RequiredColumns must be present in every codebook sheet header.
var RequiredColumns = []string{ColumnCode, ColumnParentCode}

// ErrMissingColumn is returned when a sheet header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Row is one raw codebook row with untrimmed field values.
type Row struct {
	Code       string
	ParentCode string
	Type       string
	Topic      string
	Display    string
	System     string

	Sheet string
	Line  int
}

// CheckHeader verifies that header carries every required column.
func CheckHeader(sheet string, header []string) error {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[strings.TrimSpace(h)] = true
	}
	for _, col := range RequiredColumns {
		if !seen[col] {
			return fmt.Errorf("sheet %q: %w %q", sheet, ErrMissingColumn, col)
		}
	}
	return nil
}

// RowFromRecord maps a record keyed by column header into a Row.
// Unknown columns are ignored; absent optional columns stay empty.
func RowFromRecord(sheet string, line int, record map[string]string) Row {
	return Row{
		Code:       record[ColumnCode],
		ParentCode: record[ColumnParentCode],
		Type:       record[ColumnType],
		Topic:      record[ColumnTopic],
		Display:    record[ColumnDisplay],
		System:     record[ColumnSystem],
		Sheet:      sheet,
		Line:       line,
	}
}

// String renders the row for diagnostics.
func (r Row) String() string {
	return fmt.Sprintf("{sheet: %q, line: %d, %s: %q, %s: %q, %s: %q, %s: %q, %s: %q}",
		r.Sheet, r.Line,
		ColumnCode, r.Code,
		ColumnParentCode, r.ParentCode,
		ColumnType, r.Type,
		ColumnTopic, r.Topic,
		ColumnDisplay, r.Display)
}
