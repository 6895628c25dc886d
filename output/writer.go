// Package output writes compiled codebook documents to disk.
//
// Layout under the output directory:
//
//	CodeSystem/<id>.json         CodeSystem
//	CodeSystem/<id>.issues.json  issue report
//	CodeSystem/<id>.bundle.json  Bundle of the CodeSystem and every ValueSet
//	version                      codebook version
package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/gofhir/codebook/pkg/document"
	"github.com/gofhir/codebook/pkg/logger"
)

const (
	CodeSystemDir = "CodeSystem"
	VersionFile   = "version"
)

// Writer writes the artifacts of one run.
type Writer struct {
	dir string
	id  string
	log zerolog.Logger
}

// NewWriter creates a Writer for dir. id names the document files.
func NewWriter(dir, id string, log ...zerolog.Logger) *Writer {
	w := &Writer{dir: dir, id: id, log: logger.Default()}
	if len(log) > 0 {
		w.log = log[0]
	}
	return w
}

// Paths returns the files written by Write, in write order.
func (w *Writer) Paths() []string {
	base := filepath.Join(w.dir, CodeSystemDir, w.id)
	return []string{
		base + ".json",
		base + ".issues.json",
		base + ".bundle.json",
		filepath.Join(w.dir, VersionFile),
	}
}

// Write encodes artifacts and writes every file. Nothing is written unless
// encoding succeeds. All files are first staged under temporary names next
// to their targets; they are renamed into place only once every file is
// staged and every target is known to be replaceable. Staged files are
// removed on failure.
func (w *Writer) Write(artifacts *document.Artifacts, version string) error {
	enc, err := artifacts.Encode()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(w.dir, CodeSystemDir), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := w.Paths()
	contents := [][]byte{enc.CodeSystem, enc.Issues, enc.Bundle, []byte(version + "\n")}

	staged := make([]string, 0, len(paths))
	defer func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()
	for i, path := range paths {
		if err := checkTarget(path); err != nil {
			return err
		}
		tmp, err := stageFile(path, contents[i])
		if err != nil {
			return err
		}
		staged = append(staged, tmp)
	}

	for i, path := range paths {
		if err := os.Rename(staged[i], path); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		w.log.Debug().Str("path", path).Int("bytes", len(contents[i])).Msg("wrote file")
	}
	staged = nil
	return nil
}

// checkTarget fails when path exists and cannot be replaced by a file.
func checkTarget(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("failed to write %s: is a directory", path)
	}
	return nil
}

// stageFile writes data to a temporary file next to path and returns its name.
func stageFile(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Chmod(0o644)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return tmp.Name(), nil
}
