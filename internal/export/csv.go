package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"texture-extractor/internal/models"
)

// WriteCSV writes the dataset with a leading unnamed row-index column.
// NaN values are written as empty fields.
func WriteCSV(w io.Writer, dataset *models.Dataset) error {
	cw := csv.NewWriter(w)

	header := append([]string{""}, dataset.Columns()...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	record := make([]string, len(header))
	for i, row := range dataset.Rows {
		record = record[:0]
		record = append(record, strconv.Itoa(i))
		for _, v := range row.Ordered() {
			record = append(record, formatFloat(v))
		}
		record = append(record, row.ImageName, strconv.Itoa(int(row.Class)))

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes to a temporary file next to path and renames it into place.
func SaveCSV(path string, dataset *models.Dataset) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".texture-*.csv")
	if err != nil {
		return fmt.Errorf("creating temporary output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, dataset); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("setting output permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temporary output: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("moving output into place: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
