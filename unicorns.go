// Package unicorns cleans, aggregates and projects a dataset of unicorn
// companies. This package is the public entry point: a Pipeline loads the
// raw table, cleans it, writes the cleaned copy and computes every view.
package unicorns

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/unicorns/internal/aggregate"
	"github.com/paveg/unicorns/internal/chart"
	"github.com/paveg/unicorns/internal/clean"
	"github.com/paveg/unicorns/internal/config"
	uio "github.com/paveg/unicorns/internal/io"
	"github.com/paveg/unicorns/internal/logging"
	"github.com/paveg/unicorns/internal/monitoring"
	"github.com/paveg/unicorns/internal/projection"
	"github.com/paveg/unicorns/internal/report"
	"github.com/paveg/unicorns/internal/table"
	"github.com/paveg/unicorns/internal/trend"
	"github.com/paveg/unicorns/internal/validation"
)

// Table is the immutable Arrow-backed table passed between stages.
type Table = table.Table

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger shared by every stage.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithCollector sets the diagnostics collector shared by every stage.
func WithCollector(collector *monitoring.Collector) Option {
	return func(p *Pipeline) {
		p.collector = collector
	}
}

// WithAllocator sets the Arrow allocator used to load the input.
func WithAllocator(mem memory.Allocator) Option {
	return func(p *Pipeline) {
		if mem != nil {
			p.mem = mem
		}
	}
}

// Pipeline runs TableLoader, Cleaner, Aggregator, TrendBuilder and Projector
// over the input named by its configuration.
type Pipeline struct {
	cfg       config.Config
	logger    *slog.Logger
	collector *monitoring.Collector
	mem       memory.Allocator
	runID     string
}

// New creates a Pipeline. Every log record carries the run identifier.
func New(cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		logger: logging.Discard(),
		mem:    memory.NewGoAllocator(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger, p.runID = logging.WithRunID(p.logger)
	return p
}

// RunID identifies this pipeline in logs and reports.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Config returns the configuration of the pipeline.
func (p *Pipeline) Config() config.Config {
	return p.cfg
}

// Logger returns the run-scoped logger.
func (p *Pipeline) Logger() *slog.Logger {
	return p.logger
}

// Collector returns the diagnostics collector, nil when diagnostics are off.
func (p *Pipeline) Collector() *monitoring.Collector {
	return p.collector
}

// Load reads the configured input file and fails with a schema error when
// a column the pipeline needs is absent.
func (p *Pipeline) Load(ctx context.Context) (*Table, error) {
	opts := uio.DefaultCSVOptions()
	opts.Delimiter = p.cfg.Input.DelimiterRune()
	if len(p.cfg.Input.NullValues) > 0 {
		opts.NullValues = p.cfg.Input.NullValues
	}

	tbl, err := uio.LoadFile(ctx, p.cfg.Input.Path, opts, p.mem)
	if err != nil {
		p.logger.Error("load failed", "path", p.cfg.Input.Path, "error", err)
		return nil, err
	}
	if err := validation.ValidateColumns(tbl, "Load", validation.RequiredColumns...); err != nil {
		tbl.Release()
		p.logger.Error("load failed", "path", p.cfg.Input.Path, "error", err)
		return nil, err
	}
	p.logger.Info("loaded", "path", p.cfg.Input.Path, "rows", tbl.Len(), "columns", tbl.Width())
	return tbl, nil
}

// Clean runs the cleaning steps over raw and returns the cleaned table and
// the missing-value report of raw.
func (p *Pipeline) Clean(raw *Table) (*Table, clean.MissingReport, error) {
	cleaner := clean.New(clean.WithLogger(p.logger), clean.WithCollector(p.collector))
	cleaned, err := cleaner.Clean(raw)
	if err != nil {
		return nil, clean.MissingReport{}, err
	}
	return cleaned, cleaner.Report(), nil
}

// Result holds every view computed from the cleaned table. Release frees
// the tables it owns.
type Result struct {
	RunID   string
	RawRows int
	Missing clean.MissingReport

	Cleaned    *Table
	TopHighest *Table
	TopLowest  *Table
	PerCountry *Table

	Industries      []aggregate.IndustryCount
	MostFrequent    aggregate.IndustryCount
	HasMostFrequent bool

	Trend      []trend.Row
	Projection projection.Result

	Charts   []string
	Workbook string
}

// Release frees the tables held by r.
func (r *Result) Release() {
	for _, tbl := range []*Table{r.Cleaned, r.TopHighest, r.TopLowest, r.PerCountry} {
		if tbl != nil {
			tbl.Release()
		}
	}
}

// TopIndustries returns the names of the n most frequent industries.
func (r *Result) TopIndustries(n int) []string {
	names := make([]string, 0, n)
	for _, c := range r.Industries {
		if len(names) == n {
			break
		}
		names = append(names, c.Industry)
	}
	return names
}

// Analyze computes every view of cleaned. The result takes a reference to
// cleaned; the caller keeps its own.
func (p *Pipeline) Analyze(cleaned *Table) (*Result, error) {
	a := p.cfg.Analysis
	r := &Result{RunID: p.runID, Cleaned: cleaned.Clone()}

	var err error
	if r.TopHighest, err = aggregate.TopN(cleaned, a.TopN, false); err != nil {
		r.Release()
		return nil, err
	}
	if r.TopLowest, err = aggregate.TopN(cleaned, a.TopN, true); err != nil {
		r.Release()
		return nil, err
	}
	if r.PerCountry, err = aggregate.TopPerCountry(cleaned); err != nil {
		r.Release()
		return nil, err
	}
	if r.Industries, err = aggregate.IndustryFrequency(cleaned); err != nil {
		r.Release()
		return nil, err
	}
	if len(r.Industries) > 0 {
		r.MostFrequent, r.HasMostFrequent = r.Industries[0], true
	}

	builder := trend.NewBuilder(trend.WithLogger(p.logger), trend.WithCollector(p.collector))
	if r.Trend, err = builder.AnnualIndustryTrend(cleaned); err != nil {
		r.Release()
		return nil, err
	}

	projector := projection.NewProjector(projection.WithLogger(p.logger), projection.WithCollector(p.collector))
	r.Projection, err = projector.Project(r.Trend, projection.Options{
		IndustriesLimit: a.IndustriesLimit,
		HorizonYears:    a.HorizonYears,
	})
	if err != nil {
		r.Release()
		return nil, err
	}
	return r, nil
}

// Run loads and cleans the input, writes the cleaned table to the output
// path, computes every view and writes the charts, workbook and metrics
// file that are configured.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	raw, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	defer raw.Release()

	cleaned, missing, err := p.Clean(raw)
	if err != nil {
		return nil, err
	}
	defer cleaned.Release()

	if err := uio.WriteFile(ctx, p.cfg.Output.Path, cleaned, uio.Format(p.cfg.Output.Format)); err != nil {
		return nil, fmt.Errorf("writing cleaned table: %w", err)
	}
	p.logger.Info("wrote cleaned table", "path", p.cfg.Output.Path, "rows", cleaned.Len())

	r, err := p.Analyze(cleaned)
	if err != nil {
		return nil, err
	}
	r.RawRows = raw.Len()
	r.Missing = missing

	if err := p.Export(r); err != nil {
		r.Release()
		return nil, err
	}
	return r, nil
}

// Export writes the charts, workbook and metrics file of r according to the
// output configuration. Unset destinations are skipped.
func (p *Pipeline) Export(r *Result) error {
	out := p.cfg.Output
	if out.ChartsDir != "" {
		charts, err := chart.RenderAll(out.ChartsDir, chart.Set{
			TopCompanies: r.TopHighest,
			Frequency:    r.Industries,
			Trend:        r.Trend,
			Industries:   r.TopIndustries(p.cfg.Analysis.IndustriesLimit),
			Projection:   r.Projection,
		})
		if err != nil {
			return fmt.Errorf("rendering charts: %w", err)
		}
		r.Charts = charts
		p.logger.Info("wrote charts", "dir", out.ChartsDir, "count", len(charts))
	}

	if out.Workbook != "" {
		err := report.WriteWorkbook(out.Workbook, report.Views{
			TopHighest: r.TopHighest,
			TopLowest:  r.TopLowest,
			PerCountry: r.PerCountry,
			Industries: r.Industries,
			Trend:      r.Trend,
			Projection: r.Projection,
		}, p.collector)
		if err != nil {
			return err
		}
		r.Workbook = out.Workbook
		p.logger.Info("wrote workbook", "path", out.Workbook)
	}

	if out.MetricsFile != "" && p.collector.IsEnabled() {
		if err := p.collector.WriteTextfile(out.MetricsFile); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
		p.logger.Info("wrote metrics", "path", out.MetricsFile)
	}
	return nil
}
