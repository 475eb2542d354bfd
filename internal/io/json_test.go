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

func TestJSONWriter(t *testing.T) {
	mem := memory.NewGoAllocator()
	ctx := context.Background()

	tbl := table.New(
		series.New("Company", []string{"Stripe", "Klarna"}, mem),
		series.NewNullable("Valuation", []float64{95, 0}, []bool{true, false}, mem),
		series.New("Rank", []int64{4, 9}, mem),
	)
	defer tbl.Release()

	t.Run("array", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, io.NewJSONWriter(&buf, io.JSONArray).Write(ctx, tbl))
		assert.JSONEq(t, `[
			{"Company":"Stripe","Valuation":95,"Rank":4},
			{"Company":"Klarna","Valuation":null,"Rank":9}
		]`, buf.String())
	})

	t.Run("lines keep column order", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, io.NewJSONWriter(&buf, io.JSONLines).Write(ctx, tbl))
		assert.Equal(t,
			"{\"Company\":\"Stripe\",\"Valuation\":95,\"Rank\":4}\n"+
				"{\"Company\":\"Klarna\",\"Valuation\":null,\"Rank\":9}\n",
			buf.String())
	})

	t.Run("empty table", func(t *testing.T) {
		empty := tbl.Head(0)
		defer empty.Release()

		var buf bytes.Buffer
		require.NoError(t, io.NewJSONWriter(&buf, io.JSONArray).Write(ctx, empty))
		assert.Equal(t, "[]\n", buf.String())
	})
}
