// Package trend implements the TrendBuilder: the per-year, per-industry
// summary of a cleaned unicorn table.
package trend

import (
	"io"
	"log/slog"
	"sort"

	"golang.org/x/exp/constraints"

	"github.com/paveg/unicorns/internal/coerce"
	"github.com/paveg/unicorns/internal/monitoring"
	"github.com/paveg/unicorns/internal/table"
	"github.com/paveg/unicorns/internal/validation"
)

const op = "AnnualIndustryTrend"

// Reasons a row is left out of the trend.
const (
	DropDate      = "date_joined"
	DropValuation = "valuation"
	DropIndustry  = "industry"
)

// Row summarises one (year, industry) group.
type Row struct {
	Year              int     `json:"year"`
	Industry          string  `json:"industry"`
	MeanValuation     float64 `json:"mean_valuation"`
	SampleCount       int     `json:"sample_count"`
	DistinctCompanies int     `json:"distinct_company_count"`
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger dropped-row counts are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithCollector sets the diagnostics collector.
func WithCollector(collector *monitoring.Collector) Option {
	return func(b *Builder) {
		b.collector = collector
	}
}

// Builder computes annual industry trends.
type Builder struct {
	logger    *slog.Logger
	collector *monitoring.Collector
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type groupKey struct {
	year     int
	industry string
}

type group struct {
	valuations []float64
	companies  map[string]struct{}
}

// missingCompany is the identity of every row with a missing company.
const missingCompany = "\x00"

// AnnualIndustryTrend groups rows by the year they joined and their
// industry. Rows with an unparseable date_joined, an unusable valuation or
// a missing industry are dropped and counted. The result is sorted by year,
// then industry. An empty table gives an empty slice.
func (b *Builder) AnnualIndustryTrend(tbl *table.Table) ([]Row, error) {
	if tbl.Len() == 0 {
		return []Row{}, nil
	}
	if err := validation.ValidateColumns(tbl, op,
		validation.ColumnDateJoined,
		validation.ColumnValuation,
		validation.ColumnIndustry,
		validation.ColumnCompany,
	); err != nil {
		return nil, err
	}

	dates, dateValid, _ := tbl.Strings(op, validation.ColumnDateJoined)
	industries, industryValid, _ := tbl.Strings(op, validation.ColumnIndustry)
	companies, companyValid, _ := tbl.Strings(op, validation.ColumnCompany)
	values, valueValid, err := coerce.Numeric(tbl, op, validation.ColumnValuation)
	if err != nil {
		return nil, err
	}

	dropped := map[string]int{}
	groups := make(map[groupKey]*group)
	for i := 0; i < tbl.Len(); i++ {
		if !dateValid[i] {
			dropped[DropDate]++
			continue
		}
		joined, ok := coerce.Date(dates[i])
		if !ok {
			dropped[DropDate]++
			continue
		}
		if !valueValid[i] {
			dropped[DropValuation]++
			continue
		}
		if !industryValid[i] {
			dropped[DropIndustry]++
			continue
		}

		key := groupKey{year: joined.Year(), industry: industries[i]}
		g, exists := groups[key]
		if !exists {
			g = &group{companies: make(map[string]struct{})}
			groups[key] = g
		}
		g.valuations = append(g.valuations, values[i])
		company := missingCompany
		if companyValid[i] {
			company = companies[i]
		}
		g.companies[company] = struct{}{}
	}

	for _, reason := range []string{DropDate, DropValuation, DropIndustry} {
		b.collector.RecordDropped(op, reason, dropped[reason])
	}
	b.logger.Info("annual industry trend",
		"rows", tbl.Len(),
		"groups", len(groups),
		"dropped_date", dropped[DropDate],
		"dropped_valuation", dropped[DropValuation],
		"dropped_industry", dropped[DropIndustry],
	)

	rows := make([]Row, 0, len(groups))
	for key, g := range groups {
		rows = append(rows, Row{
			Year:              key.year,
			Industry:          key.industry,
			MeanValuation:     Mean(g.valuations),
			SampleCount:       len(g.valuations),
			DistinctCompanies: len(g.companies),
		})
	}
	sort.Slice(rows, func(a, b int) bool {
		if rows[a].Year != rows[b].Year {
			return rows[a].Year < rows[b].Year
		}
		return rows[a].Industry < rows[b].Industry
	})
	return rows, nil
}

// AnnualIndustryTrend runs a default Builder over tbl.
func AnnualIndustryTrend(tbl *table.Table) ([]Row, error) {
	return NewBuilder().AnnualIndustryTrend(tbl)
}

// Mean returns the arithmetic mean of values, 0 for an empty slice.
func Mean[T constraints.Integer | constraints.Float](values []T) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	return sum / float64(len(values))
}
