package io_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/unicorns/internal/errors"
	"github.com/paveg/unicorns/internal/io"
	"github.com/paveg/unicorns/internal/series"
	"github.com/paveg/unicorns/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFromPath(t *testing.T) {
	tests := map[string]io.Format{
		"unicorns.csv":      io.FormatCSV,
		"unicorns.CSV":      io.FormatCSV,
		"out/clean.parquet": io.FormatParquet,
		"top.json":          io.FormatJSON,
		"top.jsonl":         io.FormatJSONL,
		"no-extension":      io.FormatCSV,
	}
	for path, want := range tests {
		assert.Equal(t, want, io.FormatFromPath(path), path)
	}
}

func TestLoadFile(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewGoAllocator()
	dir := t.TempDir()

	t.Run("missing file is a load error", func(t *testing.T) {
		_, err := io.LoadFile(ctx, filepath.Join(dir, "absent.csv"), io.DefaultCSVOptions(), mem)
		assert.ErrorIs(t, err, errors.ErrLoad)
	})

	t.Run("csv", func(t *testing.T) {
		path := filepath.Join(dir, "unicorns.csv")
		require.NoError(t, os.WriteFile(path, []byte("Company,City\nStripe,San Francisco\n"), 0o600))

		tbl, err := io.LoadFile(ctx, path, io.DefaultCSVOptions(), mem)
		require.NoError(t, err)
		defer tbl.Release()
		assert.Equal(t, 1, tbl.Len())
	})

	t.Run("parquet written by WriteFile", func(t *testing.T) {
		src := table.New(
			series.New("Company", []string{"Stripe", "Klarna"}, mem),
			series.New("Valuation", []float64{95, 45.6}, mem),
		)
		defer src.Release()

		path := filepath.Join(dir, "nested", "clean.parquet")
		require.NoError(t, io.WriteFile(ctx, path, src, ""))

		tbl, err := io.LoadFile(ctx, path, io.DefaultCSVOptions(), mem)
		require.NoError(t, err)
		defer tbl.Release()
		assert.True(t, src.Equal(tbl))
	})

	t.Run("json input is rejected", func(t *testing.T) {
		path := filepath.Join(dir, "rows.json")
		require.NoError(t, os.WriteFile(path, []byte("[]"), 0o600))

		_, err := io.LoadFile(ctx, path, io.DefaultCSVOptions(), mem)
		assert.ErrorIs(t, err, errors.ErrLoad)
	})
}

func TestWriteFileUnknownFormat(t *testing.T) {
	tbl := table.New()
	err := io.WriteFile(context.Background(), filepath.Join(t.TempDir(), "x.out"), tbl, io.Format("xml"))
	assert.Error(t, err)
}
