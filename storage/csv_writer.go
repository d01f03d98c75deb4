package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"carprice/models"
)

// CSVWriter writes predicted tables as CSV.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	closer io.Closer
	writer *csv.Writer
}

var _ TableWriter = (*CSVWriter)(nil)

// NewCSVWriter creates (or truncates) the CSV file at the given path.
// Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}
	return &CSVWriter{closer: f, writer: csv.NewWriter(f)}, nil
}

// NewCSVStreamWriter writes to w, e.g. an HTTP response. Close does not
// close w.
func NewCSVStreamWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{writer: csv.NewWriter(w)}
}

// WriteTable writes the header and every predicted row.
func (c *CSVWriter) WriteTable(t *models.PredictedTable) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Write(t.Header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, row := range t.Rows {
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	if c.closer == nil {
		return c.writer.Error()
	}
	return c.closer.Close()
}
