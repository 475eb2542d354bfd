package io

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/paveg/unicorns/internal/table"
)

// Write writes the Table as JSON records keyed by column name.
func (w *JSONWriter) Write(ctx context.Context, tbl *table.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	buf := bufio.NewWriter(w.writer)
	columns := tbl.Columns()

	if w.format == JSONArray {
		if _, err := buf.WriteString("["); err != nil {
			return err
		}
	}

	for i := 0; i < tbl.Len(); i++ {
		if i > 0 && w.format == JSONArray {
			if _, err := buf.WriteString(","); err != nil {
				return err
			}
		}
		line, err := marshalRow(tbl, columns, i)
		if err != nil {
			return fmt.Errorf("encoding row %d: %w", i, err)
		}
		if _, err := buf.Write(line); err != nil {
			return err
		}
		if w.format == JSONLines {
			if err := buf.WriteByte('\n'); err != nil {
				return err
			}
		}
	}

	if w.format == JSONArray {
		if _, err := buf.WriteString("]\n"); err != nil {
			return err
		}
	}
	return buf.Flush()
}

// marshalRow encodes row i as an object whose keys follow column order.
func marshalRow(tbl *table.Table, columns []string, i int) ([]byte, error) {
	out := []byte{'{'}
	for j, name := range columns {
		if j > 0 {
			out = append(out, ',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		out = append(out, key...)
		out = append(out, ':')

		col, _ := tbl.Column(name)
		value, err := json.Marshal(table.Cell(col, i))
		if err != nil {
			return nil, err
		}
		out = append(out, value...)
	}
	return append(out, '}'), nil
}
