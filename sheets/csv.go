package sheets

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofhir/codebook"
	"github.com/gofhir/codebook/pkg/entry"
)

// Version sheet columns.
const (
	ColumnVersion     = "Current Codebook Version"
	ColumnVersionDate = "Date of Version Update"
)

const byteOrderMark = "\ufeff"

// ParseRows reads a codebook sheet. The first record is the header; data
// lines are numbered from 2 as in the spreadsheet.
func ParseRows(name string, r io.Reader) ([]entry.Row, error) {
	header, records, err := readAll(r)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", name, err)
	}
	if header == nil {
		return nil, fmt.Errorf("sheet %q: %w %q", name, entry.ErrMissingColumn, entry.ColumnCode)
	}
	if err := entry.CheckHeader(name, header); err != nil {
		return nil, err
	}

	rows := make([]entry.Row, 0, len(records))
	for i, rec := range records {
		rows = append(rows, entry.RowFromRecord(name, i+2, keyed(header, rec)))
	}
	return rows, nil
}

// ParseVersion reads the first data line of the version sheet.
func ParseVersion(name string, r io.Reader) (codebook.Version, error) {
	header, records, err := readAll(r)
	if err != nil {
		return codebook.Version{}, fmt.Errorf("version sheet %q: %w", name, err)
	}
	if len(records) == 0 {
		return codebook.Version{}, fmt.Errorf("%w: sheet %q has no rows", codebook.ErrMissingVersion, name)
	}

	rec := keyed(header, records[0])
	v := codebook.Version{
		Current: strings.TrimSpace(rec[ColumnVersion]),
		Date:    strings.TrimSpace(rec[ColumnVersionDate]),
		Source:  name,
	}
	if err := v.Validate(); err != nil {
		return codebook.Version{}, err
	}
	return v, nil
}

func readAll(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, nil, fmt.Errorf("line %d: %w", perr.Line, perr.Err)
		}
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	header := records[0]
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, byteOrderMark))
	}
	return header, records[1:], nil
}

func keyed(header, rec []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(rec) {
			m[h] = rec[i]
		}
	}
	return m
}
