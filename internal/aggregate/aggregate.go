// Package aggregate implements the ranking, grouping and frequency views
// computed over a cleaned unicorn table.
package aggregate

import (
	"sort"

	"github.com/paveg/unicorns/internal/coerce"
	"github.com/paveg/unicorns/internal/table"
	"github.com/paveg/unicorns/internal/validation"
)

// IndustryCount is the number of rows of one industry.
type IndustryCount struct {
	Industry string `json:"industry"`
	Count    int    `json:"count"`
}

// TopN returns the first n rows ordered by valuation, highest first unless
// ascending is set. The sort is stable, so ties keep source order, and rows
// without a usable valuation come last in either direction. n = 0 yields an
// empty table with the same columns; n beyond the row count yields all rows.
func TopN(tbl *table.Table, n int, ascending bool) (*table.Table, error) {
	const op = "TopN"

	if err := validation.ValidateNonNegative(op, "n", n); err != nil {
		return nil, err
	}
	values, valid, err := coerce.Numeric(tbl, op, validation.ColumnValuation)
	if err != nil {
		return nil, err
	}

	indices := make([]int, tbl.Len())
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		ia, ib := indices[a], indices[b]
		if valid[ia] != valid[ib] {
			return valid[ia]
		}
		if !valid[ia] {
			return false
		}
		if ascending {
			return values[ia] < values[ib]
		}
		return values[ia] > values[ib]
	})

	if n > len(indices) {
		n = len(indices)
	}
	return tbl.Take(indices[:n]), nil
}

// TopPerCountry returns, for every country, the row holding that country's
// maximum valuation. Rows missing a country or a valuation are ignored; ties
// go to the first occurrence. Countries appear in first-seen order.
func TopPerCountry(tbl *table.Table) (*table.Table, error) {
	const op = "TopPerCountry"

	countries, countryValid, err := tbl.Strings(op, validation.ColumnCountry)
	if err != nil {
		return nil, err
	}
	values, valid, err := coerce.Numeric(tbl, op, validation.ColumnValuation)
	if err != nil {
		return nil, err
	}

	best := make(map[string]int)
	var order []string
	for i := range countries {
		if !countryValid[i] || !valid[i] {
			continue
		}
		current, seen := best[countries[i]]
		if !seen {
			order = append(order, countries[i])
			best[countries[i]] = i
			continue
		}
		if values[i] > values[current] {
			best[countries[i]] = i
		}
	}

	indices := make([]int, len(order))
	for i, country := range order {
		indices[i] = best[country]
	}
	return tbl.Take(indices), nil
}

// IndustryFrequency counts rows per non-missing industry, most frequent
// first; ties keep first-seen order.
func IndustryFrequency(tbl *table.Table) ([]IndustryCount, error) {
	industries, valid, err := tbl.Strings("IndustryFrequency", validation.ColumnIndustry)
	if err != nil {
		return nil, err
	}

	position := make(map[string]int)
	counts := make([]IndustryCount, 0)
	for i, industry := range industries {
		if !valid[i] {
			continue
		}
		p, seen := position[industry]
		if !seen {
			p = len(counts)
			position[industry] = p
			counts = append(counts, IndustryCount{Industry: industry})
		}
		counts[p].Count++
	}

	sort.SliceStable(counts, func(a, b int) bool { return counts[a].Count > counts[b].Count })
	return counts, nil
}

// MostFrequentIndustry returns the head of IndustryFrequency. ok is false
// when no row has an industry.
func MostFrequentIndustry(tbl *table.Table) (top IndustryCount, ok bool, err error) {
	counts, err := IndustryFrequency(tbl)
	if err != nil || len(counts) == 0 {
		return IndustryCount{}, false, err
	}
	return counts[0], true, nil
}
