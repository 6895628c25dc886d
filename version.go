package codebook

import (
	"errors"
	"fmt"
)

// ErrMissingVersion is returned when the version source yields no version.
var ErrMissingVersion = errors.New("missing codebook version")

// Version identifies a codebook release.
type Version struct {
	// Current is the codebook version string.
	Current string
	// Date is the date of the version update.
	Date string
	// Source names where the version was read from.
	Source string
}

// Validate reports a missing version string.
func (v Version) Validate() error {
	if v.Current == "" {
		src := v.Source
		if src == "" {
			src = "version"
		}
		return fmt.Errorf("%w: no current version in %q", ErrMissingVersion, src)
	}
	return nil
}

// String returns the version string.
func (v Version) String() string {
	return v.Current
}
