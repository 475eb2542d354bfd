package io_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/unicorns/internal/io"
	"github.com/paveg/unicorns/internal/series"
	"github.com/paveg/unicorns/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetRoundTrip(t *testing.T) {
	mem := memory.NewGoAllocator()
	ctx := context.Background()

	tbl := table.New(
		series.New("Company", []string{"Bytedance", "SpaceX", "Stripe"}, mem),
		series.NewNullable("City", []string{"Beijing", "", "San Francisco"}, []bool{true, false, true}, mem),
		series.NewNullable("Valuation", []float64{180, 0, 95}, []bool{true, false, true}, mem),
		series.New("Rank", []int64{1, 2, 3}, mem),
		series.New("Active", []bool{true, false, true}, mem),
	)
	defer tbl.Release()

	for _, compression := range []string{"snappy", "gzip", "zstd", "uncompressed"} {
		t.Run(compression, func(t *testing.T) {
			options := io.DefaultParquetOptions()
			options.Compression = compression

			var buf bytes.Buffer
			require.NoError(t, io.NewParquetWriter(&buf, options).Write(ctx, tbl))
			assert.Positive(t, buf.Len())

			back, err := io.NewParquetReader(bytes.NewReader(buf.Bytes()), options, mem).Read(ctx)
			require.NoError(t, err)
			defer back.Release()

			assert.True(t, tbl.Equal(back), "expected %s, got %s", tbl, back)
		})
	}
}

func TestParquetEmptyTable(t *testing.T) {
	mem := memory.NewGoAllocator()
	ctx := context.Background()

	tbl := table.New(series.New("Company", []string{}, mem))
	defer tbl.Release()

	var buf bytes.Buffer
	require.NoError(t, io.NewParquetWriter(&buf, io.DefaultParquetOptions()).Write(ctx, tbl))

	back, err := io.NewParquetReader(bytes.NewReader(buf.Bytes()), io.DefaultParquetOptions(), mem).Read(ctx)
	require.NoError(t, err)
	defer back.Release()

	assert.Equal(t, 0, back.Len())
	assert.Equal(t, []string{"Company"}, back.Columns())
}

func TestParquetReaderRejectsGarbage(t *testing.T) {
	_, err := io.NewParquetReader(bytes.NewReader([]byte("not parquet")), io.DefaultParquetOptions(), nil).
		Read(context.Background())
	require.Error(t, err)
}
