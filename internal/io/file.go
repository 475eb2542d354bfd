package io

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/unicorns/internal/errors"
	"github.com/paveg/unicorns/internal/table"
)

// Format names a file serialisation.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
	FormatJSONL   Format = "jsonl"
)

// FormatFromPath derives the format from a file extension. Unknown
// extensions read as CSV.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		return FormatParquet
	case ".json":
		return FormatJSON
	case ".jsonl", ".ndjson":
		return FormatJSONL
	default:
		return FormatCSV
	}
}

// LoadFile is the TableLoader: it reads the CSV or Parquet file at path
// into a Table. Any failure to open or parse the source is a load error.
func LoadFile(ctx context.Context, path string, opts CSVOptions, mem memory.Allocator) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewLoadError("Load", err)
	}
	defer f.Close()

	var reader DataReader
	switch FormatFromPath(path) {
	case FormatParquet:
		reader = NewParquetReader(f, DefaultParquetOptions(), mem)
	case FormatJSON, FormatJSONL:
		return nil, errors.NewLoadError("Load", fmt.Errorf("%s: JSON input is not supported", path))
	default:
		reader = NewCSVReader(f, opts, mem)
	}
	return reader.Read(ctx)
}

// WriteFile writes tbl to path in the given format, creating parent
// directories as needed. An empty format is derived from the extension.
func WriteFile(ctx context.Context, path string, tbl *table.Table, format Format) error {
	if format == "" {
		format = FormatFromPath(path)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	var writer DataWriter
	switch format {
	case FormatParquet:
		writer = NewParquetWriter(f, DefaultParquetOptions())
	case FormatJSON:
		writer = NewJSONWriter(f, JSONArray)
	case FormatJSONL:
		writer = NewJSONWriter(f, JSONLines)
	case FormatCSV:
		writer = NewCSVWriter(f, DefaultCSVOptions())
	default:
		_ = f.Close()
		return fmt.Errorf("unknown output format %q", format)
	}

	if err := writer.Write(ctx, tbl); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
