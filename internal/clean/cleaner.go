package clean

import (
	"io"
	"log/slog"

	"github.com/paveg/unicorns/internal/monitoring"
	"github.com/paveg/unicorns/internal/table"
	"github.com/paveg/unicorns/internal/validation"
)

// Step names as reported to the diagnostics collector.
const (
	StepBackfillCity         = "BackfillCity"
	StepDropMissingInvestors = "DropMissingInvestors"
	StepDeduplicate          = "Deduplicate"
	StepNormalizeValuation   = "NormalizeValuation"
	StepFinalDeduplicate     = "FinalDeduplicate"
)

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithLogger sets the logger the Cleaner reports each step to.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cleaner) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCollector sets the diagnostics collector.
func WithCollector(collector *monitoring.Collector) Option {
	return func(c *Cleaner) {
		c.collector = collector
	}
}

// Cleaner runs the cleaning steps in their fixed order.
type Cleaner struct {
	logger    *slog.Logger
	collector *monitoring.Collector
	report    MissingReport
}

// New creates a Cleaner. Without options it logs nowhere and collects nothing.
func New(opts ...Option) *Cleaner {
	c := &Cleaner{
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean applies, in order: the missing-value report, city backfill, the
// investor filter, deduplication and valuation normalisation, followed by a
// second deduplication because normalised valuations can make rows equal.
//
// A missing city, country, select_investors or valuation column fails with
// a schema error before any step runs.
func (c *Cleaner) Clean(tbl *table.Table) (*table.Table, error) {
	if err := validation.ValidateColumns(tbl, "Clean",
		validation.ColumnCity,
		validation.ColumnCountry,
		validation.ColumnSelectInvestors,
		validation.ColumnValuation,
	); err != nil {
		return nil, err
	}

	c.report = MissingValues(tbl)
	for _, m := range c.report.Columns {
		c.collector.RecordMissing(m.Column, m.Count)
	}
	c.logger.Info("missing values", "rows", c.report.Rows, "total", c.report.Total(), "columns", c.report.Columns)

	steps := []struct {
		name string
		fn   func(*table.Table) (*table.Table, error)
	}{
		{StepBackfillCity, BackfillCity},
		{StepDropMissingInvestors, DropMissingInvestors},
		{StepDeduplicate, dedup},
		{StepNormalizeValuation, NormalizeValuation},
		{StepFinalDeduplicate, dedup},
	}

	current := tbl.Clone()
	for _, step := range steps {
		var next *table.Table
		metrics, err := c.collector.RecordStep(step.name, current.Len(), func() (int, error) {
			var err error
			next, err = step.fn(current)
			if err != nil {
				return 0, err
			}
			return next.Len(), nil
		})
		current.Release()
		if err != nil {
			c.logger.Error("clean step failed", "step", step.name, "error", err)
			return nil, err
		}
		c.logger.Info("clean step",
			"step", step.name,
			"rows_in", metrics.RowsIn,
			"rows_out", metrics.RowsOut,
			"dropped", metrics.Dropped,
			"duration", metrics.Duration,
		)
		current = next
	}

	return current, nil
}

// Report returns the missing-value report of the last cleaned input.
func (c *Cleaner) Report() MissingReport {
	return c.report
}

// Clean runs a default Cleaner over tbl.
func Clean(tbl *table.Table) (*table.Table, error) {
	return New().Clean(tbl)
}

func dedup(tbl *table.Table) (*table.Table, error) {
	return Deduplicate(tbl), nil
}
