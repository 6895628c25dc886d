package sheets

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofhir/codebook"
	"github.com/gofhir/codebook/pkg/entry"
)

// Dir reads stored sheets from a directory.
type Dir string

// Path returns the file path of the sheet name.
func (d Dir) Path(name string) string {
	return filepath.Join(string(d), name+Extension)
}

// Rows parses the sheet name.
func (d Dir) Rows(name string) ([]entry.Row, error) {
	f, err := os.Open(d.Path(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet %s: %w", name, err)
	}
	defer f.Close()
	return ParseRows(name, f)
}

// Version parses the version sheet name.
func (d Dir) Version(name string) (codebook.Version, error) {
	f, err := os.Open(d.Path(name))
	if err != nil {
		return codebook.Version{}, fmt.Errorf("failed to open version sheet %s: %w", name, err)
	}
	defer f.Close()
	return ParseVersion(name, f)
}

// Input reads the named sheets, in order, and the version sheet.
func (d Dir) Input(versionSheet string, names ...string) (codebook.Input, error) {
	version, err := d.Version(versionSheet)
	if err != nil {
		return codebook.Input{}, err
	}

	var rows []entry.Row
	for _, name := range names {
		r, err := d.Rows(name)
		if err != nil {
			return codebook.Input{}, err
		}
		rows = append(rows, r...)
	}
	return codebook.Input{Rows: rows, Version: version}, nil
}
