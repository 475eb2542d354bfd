package io

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/paveg/unicorns/internal/errors"
	"github.com/paveg/unicorns/internal/series"
	"github.com/paveg/unicorns/internal/table"
)

// Read reads Parquet data and returns a Table.
func (r *ParquetReader) Read(ctx context.Context) (*table.Table, error) {
	// Read all data into memory for Parquet reading
	data, err := io.ReadAll(r.reader)
	if err != nil {
		return nil, errors.NewLoadError("Load", fmt.Errorf("reading data: %w", err))
	}
	readerAt := bytes.NewReader(data)

	pqReader, err := file.NewParquetReader(readerAt)
	if err != nil {
		return nil, errors.NewLoadError("Load", fmt.Errorf("creating parquet file reader: %w", err))
	}
	defer pqReader.Close()

	readProps := pqarrow.ArrowReadProperties{BatchSize: int64(r.options.BatchSize)}
	arrowReader, err := pqarrow.NewFileReader(pqReader, readProps, r.mem)
	if err != nil {
		return nil, errors.NewLoadError("Load", fmt.Errorf("creating arrow file reader: %w", err))
	}

	arrowTable, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, errors.NewLoadError("Load", fmt.Errorf("reading table: %w", err))
	}
	defer arrowTable.Release()

	return r.arrowTableToTable(arrowTable)
}

// arrowTableToTable converts an Arrow table to a Table.
func (r *ParquetReader) arrowTableToTable(arrowTable arrow.Table) (*table.Table, error) {
	schema := arrowTable.Schema()
	seriesList := make([]table.ISeries, 0, arrowTable.NumCols())

	for i := 0; i < int(arrowTable.NumCols()); i++ {
		field := schema.Field(i)
		chunks := arrowTable.Column(i).Data().Chunks()

		var arr arrow.Array
		var err error
		if len(chunks) == 0 {
			arr = array.MakeArrayOfNull(r.mem, field.Type, 0)
		} else {
			arr, err = array.Concatenate(chunks, r.mem)
			if err != nil {
				return nil, errors.NewLoadError("Load", fmt.Errorf("concatenating column %s: %w", field.Name, err))
			}
		}

		s := r.convertArray(field.Name, arr)
		arr.Release()
		seriesList = append(seriesList, s)
	}

	return table.New(seriesList...), nil
}

// convertArray maps any Arrow array onto the four column types a Table holds.
// Narrow numeric types are widened; anything else is rendered as text.
func (r *ParquetReader) convertArray(name string, arr arrow.Array) table.ISeries {
	valid := make([]bool, arr.Len())
	for i := range valid {
		valid[i] = arr.IsValid(i)
	}

	switch typedArr := arr.(type) {
	case *array.String, *array.Int64, *array.Float64, *array.Boolean:
		typedArr.Retain()
		return table.Wrap(name, typedArr)
	case *array.Int32:
		values := make([]int64, arr.Len())
		for i := range values {
			values[i] = int64(typedArr.Value(i))
		}
		return series.NewNullable(name, values, valid, r.mem)
	case *array.Float32:
		values := make([]float64, arr.Len())
		for i := range values {
			values[i] = float64(typedArr.Value(i))
		}
		return series.NewNullable(name, values, valid, r.mem)
	default:
		values := make([]string, arr.Len())
		for i := range values {
			if valid[i] {
				values[i] = arr.ValueStr(i)
			}
		}
		return series.NewNullable(name, values, valid, r.mem)
	}
}

// Write writes the Table to Parquet format.
func (w *ParquetWriter) Write(ctx context.Context, tbl *table.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	arrowTable := w.tableToArrowTable(tbl)
	defer arrowTable.Release()

	var compression compress.Compression
	switch w.options.Compression {
	case "snappy":
		compression = compress.Codecs.Snappy
	case "gzip":
		compression = compress.Codecs.Gzip
	case "lz4":
		compression = compress.Codecs.Lz4Raw
	case "zstd":
		compression = compress.Codecs.Zstd
	case "uncompressed":
		compression = compress.Codecs.Uncompressed
	default:
		compression = compress.Codecs.Snappy
	}

	batchSize := w.options.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compression),
		parquet.WithBatchSize(int64(batchSize)),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(memory.NewGoAllocator()))

	writer, err := pqarrow.NewFileWriter(arrowTable.Schema(), w.writer, props, arrowProps)
	if err != nil {
		return fmt.Errorf("creating file writer: %w", err)
	}

	chunkSize := int64(tbl.Len())
	if chunkSize == 0 {
		chunkSize = 1
	}
	if err := writer.WriteTable(arrowTable, chunkSize); err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing table: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}
	return nil
}

// tableToArrowTable converts a Table to an Arrow table sharing its arrays.
func (w *ParquetWriter) tableToArrowTable(tbl *table.Table) arrow.Table {
	fields := make([]arrow.Field, 0, tbl.Width())
	columns := make([]arrow.Column, 0, tbl.Width())

	for _, name := range tbl.Columns() {
		col, _ := tbl.Column(name)
		arr := col.Array()

		field := arrow.Field{Name: name, Type: arr.DataType(), Nullable: true}
		fields = append(fields, field)

		chunked := arrow.NewChunked(arr.DataType(), []arrow.Array{arr})
		arr.Release()
		column := arrow.NewColumn(field, chunked)
		chunked.Release()
		columns = append(columns, *column)
	}

	schema := arrow.NewSchema(fields, nil)
	return array.NewTable(schema, columns, int64(tbl.Len()))
}
