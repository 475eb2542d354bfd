package io

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/paveg/unicorns/internal/errors"
	"github.com/paveg/unicorns/internal/series"
	"github.com/paveg/unicorns/internal/table"
)

const (
	// Boolean string constants
	trueStr  = "true"
	falseStr = "false"

	typeBool   = "bool"
	typeInt    = "int"
	typeFloat  = "float"
	typeString = "string"

	bom = "\ufeff"
)

// Read reads CSV data and returns a Table
func (r *CSVReader) Read(ctx context.Context) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewLoadError("Load", err)
	}

	csvReader := csv.NewReader(r.reader)
	csvReader.Comma = r.options.Delimiter
	csvReader.Comment = r.options.Comment
	csvReader.TrimLeadingSpace = r.options.SkipInitialSpace

	// Ragged rows and bad quoting surface here.
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, errors.NewLoadError("Load", fmt.Errorf("reading CSV: %w", err))
	}

	if len(records) == 0 {
		return table.New(), nil
	}

	var headers []string
	var dataRows [][]string

	if r.options.Header {
		headers = uniqueHeaders(records[0])
		dataRows = records[1:]
	} else {
		numCols := len(records[0])
		headers = make([]string, numCols)
		for i := 0; i < numCols; i++ {
			headers[i] = fmt.Sprintf("column_%d", i)
		}
		dataRows = records
	}

	// Transpose data to work with columns
	numCols := len(headers)
	columns := make([][]string, numCols)
	for i := 0; i < numCols; i++ {
		columns[i] = make([]string, len(dataRows))
		for j, row := range dataRows {
			columns[i][j] = row[i]
		}
	}

	seriesList := make([]table.ISeries, 0, numCols)
	for i, header := range headers {
		seriesList = append(seriesList, r.createSeriesFromStrings(header, columns[i]))
	}

	return table.New(seriesList...), nil
}

// uniqueHeaders trims header names and suffixes repeats with ".1", ".2", ...
func uniqueHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, bom))
		name := h
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		used[name] = true
		headers[i] = name
	}
	return headers
}

// isNull reports whether a raw cell is one of the configured missing markers
func (r *CSVReader) isNull(value string) bool {
	for _, marker := range r.options.NullValues {
		if value == marker {
			return true
		}
	}
	return false
}

// createSeriesFromStrings creates a series from string data, inferring the appropriate type
func (r *CSVReader) createSeriesFromStrings(name string, data []string) table.ISeries {
	valid := make([]bool, len(data))
	for i, value := range data {
		valid[i] = !r.isNull(value)
	}

	inferredType := typeString
	if r.options.InferTypes {
		inferredType = inferDataType(data, valid)
	}

	switch inferredType {
	case typeBool:
		boolData := make([]bool, len(data))
		for i, value := range data {
			boolData[i] = valid[i] && strings.EqualFold(value, trueStr)
		}
		return series.NewNullable(name, boolData, valid, r.mem)
	case typeInt:
		intData := make([]int64, len(data))
		for i, value := range data {
			if valid[i] {
				intData[i], _ = strconv.ParseInt(value, 10, 64)
			}
		}
		return series.NewNullable(name, intData, valid, r.mem)
	case typeFloat:
		floatData := make([]float64, len(data))
		for i, value := range data {
			if valid[i] {
				floatData[i], _ = strconv.ParseFloat(value, 64)
			}
		}
		return series.NewNullable(name, floatData, valid, r.mem)
	default:
		stringData := make([]string, len(data))
		for i, value := range data {
			if valid[i] {
				stringData[i] = value
			}
		}
		return series.NewNullable(name, stringData, valid, r.mem)
	}
}

// inferDataType determines the most appropriate data type for the present values
func inferDataType(data []string, valid []bool) string {
	canBeInt := true
	canBeFloat := true
	canBeBool := true
	hasValue := false

	for i, value := range data {
		if !valid[i] {
			continue
		}
		hasValue = true

		if canBeBool {
			lower := strings.ToLower(value)
			if lower != trueStr && lower != falseStr {
				canBeBool = false
			}
		}

		if canBeInt {
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				canBeInt = false
			}
		}

		if canBeFloat {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				canBeFloat = false
			}
		}

		if !canBeBool && !canBeInt && !canBeFloat {
			break
		}
	}

	switch {
	case !hasValue:
		return typeString
	case canBeBool:
		return typeBool
	case canBeInt:
		return typeInt
	case canBeFloat:
		return typeFloat
	default:
		return typeString
	}
}

// Write writes the Table to CSV format; missing cells are written as empty fields
func (w *CSVWriter) Write(ctx context.Context, tbl *table.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	csvWriter := csv.NewWriter(w.writer)
	csvWriter.Comma = w.options.Delimiter

	if w.options.Header {
		if err := csvWriter.Write(tbl.Columns()); err != nil {
			return fmt.Errorf("writing headers: %w", err)
		}
	}

	for i := 0; i < tbl.Len(); i++ {
		if err := csvWriter.Write(tbl.Record(i)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}
	return nil
}
