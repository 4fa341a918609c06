// Package export writes a test fire record to disk.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ubseds/firestand/pkg/types"
)

// File names written into the destination directory.
const (
	PressureFile       = "pressure_transducer.csv"
	RawLoadFile        = "raw_load_cell.csv"
	CalibratedLoadFile = "calibrated_load_cell.csv"
	MetadataFile       = "metadata.json"
)

// ExportError is returned for any filesystem failure during export.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// DestinationName joins the operator supplied tokens with underscores.
// Empty tokens are skipped and path separators are replaced.
func DestinationName(tokens ...string) (string, error) {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		t = strings.ReplaceAll(t, string(filepath.Separator), "-")
		t = strings.ReplaceAll(t, " ", "-")
		parts = append(parts, t)
	}
	if len(parts) == 0 {
		return "", pkgerrors.New("destination name needs at least one non-empty token")
	}
	name := strings.Join(parts, "_")
	if name == "." || name == ".." {
		return "", pkgerrors.Errorf("invalid destination name %q", name)
	}
	return name, nil
}

// Export writes rec into root/<tokens joined by "_">, creating the directory
// if needed, and returns that directory.
func Export(rec *types.TestFireRecord, root string, tokens ...string) (string, error) {
	if rec == nil {
		return "", pkgerrors.New("no record to export")
	}
	name, err := DestinationName(tokens...)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &ExportError{Path: dir, Err: err}
	}

	series := []struct {
		file   string
		values []float64
	}{
		{PressureFile, rec.Pressure},
		{RawLoadFile, rec.RawLoad},
		{CalibratedLoadFile, rec.CalibratedLoad},
	}
	for _, s := range series {
		if err := writeColumn(filepath.Join(dir, s.file), s.values); err != nil {
			return "", err
		}
	}

	if err := writeMetadata(filepath.Join(dir, MetadataFile), rec); err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"dir":     dir,
		"record":  rec.ID.String(),
		"samples": rec.Len(),
	}).Info("test fire record exported")
	return dir, nil
}

func writeColumn(path string, values []float64) (err error) {
	fp, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &ExportError{Path: path, Err: err}
	}
	defer func() {
		if cerr := fp.Close(); cerr != nil && err == nil {
			err = &ExportError{Path: path, Err: cerr}
		}
	}()

	w := csv.NewWriter(fp)
	row := make([]string, 1)
	for _, v := range values {
		row[0] = strconv.FormatFloat(v, 'e', 18, 64)
		if err := w.Write(row); err != nil {
			return &ExportError{Path: path, Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	return nil
}

func writeMetadata(path string, rec *types.TestFireRecord) (err error) {
	fp, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &ExportError{Path: path, Err: err}
	}
	defer func() {
		if cerr := fp.Close(); cerr != nil && err == nil {
			err = &ExportError{Path: path, Err: cerr}
		}
	}()

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec.Summary()); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	return nil
}
