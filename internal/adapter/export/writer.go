package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
)

// Output file names.
const (
	CSVFile  = "derived.csv"
	XLSXFile = "emissions.xlsx"
)

// Writer saves derived.csv and emissions.xlsx into a directory.
type Writer struct {
	dir    string
	gc     domain.GasConstants
	logger *slog.Logger
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string, gc domain.GasConstants, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, gc: gc, logger: logger}
}

// Load implements pipeline.Loader. The CSV is written even for an empty
// dataset so downstream checks see the header.
func (w *Writer) Load(ctx context.Context, ds domain.Dataset) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	csvPath := filepath.Join(w.dir, CSVFile)
	if err := writeFile(csvPath, func(f *os.File) error { return WriteCSV(f, ds.Records) }); err != nil {
		return err
	}
	w.logger.Info("csv written", "path", csvPath, "records", len(ds.Records))

	if err := ctx.Err(); err != nil {
		return err
	}

	xlsxPath := filepath.Join(w.dir, XLSXFile)
	if err := writeFile(xlsxPath, func(f *os.File) error { return WriteXLSX(f, ds, w.gc) }); err != nil {
		return err
	}
	w.logger.Info("workbook written", "path", xlsxPath)
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
