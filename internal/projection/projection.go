// Package projection implements the Projector: a degree-2 least-squares
// fit of mean valuation over year for the highest-valued industries,
// extrapolated over a shared window of future years.
package projection

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/paveg/unicorns/internal/errors"
	"github.com/paveg/unicorns/internal/monitoring"
	"github.com/paveg/unicorns/internal/trend"
	"github.com/paveg/unicorns/internal/validation"
)

const (
	op = "Project"

	// Degree of the fitted polynomial.
	Degree = 2
	// MinPoints is the number of historical points a fit needs.
	MinPoints = Degree + 1
)

// Options contains the projection parameters.
type Options struct {
	// IndustriesLimit is the number of top industries projected
	IndustriesLimit int `json:"industries_limit" yaml:"industries_limit"`
	// HorizonYears is the number of future years evaluated
	HorizonYears int `json:"horizon_years" yaml:"horizon_years"`
}

// DefaultOptions returns the default projection options.
func DefaultOptions() Options {
	return Options{IndustriesLimit: 5, HorizonYears: 5}
}

// Point is one (year, value) pair of a projection series. Historical points
// carry the observed mean in Value; projected points carry the prediction.
type Point struct {
	Year      int     `json:"year"`
	Value     float64 `json:"value"`
	Fitted    float64 `json:"fitted"`
	Projected bool    `json:"projected"`
}

// Series is the fitted projection of one industry.
type Series struct {
	Industry string `json:"industry"`
	// Coefficients of c0 + c1*x + c2*x^2 where x = year - Center.
	Coefficients [MinPoints]float64 `json:"coefficients"`
	Center       float64            `json:"center"`
	Points       []Point            `json:"points"`
}

// Predict evaluates the fitted polynomial at year.
func (s Series) Predict(year int) float64 {
	x := float64(year) - s.Center
	return s.Coefficients[0] + x*(s.Coefficients[1]+x*s.Coefficients[2])
}

// Historical returns the points used for the fit.
func (s Series) Historical() []Point {
	for i, p := range s.Points {
		if p.Projected {
			return s.Points[:i]
		}
	}
	return s.Points
}

// Skipped is a selected industry without enough points to fit.
type Skipped struct {
	Industry string `json:"industry"`
	Points   int    `json:"points"`
}

// Result holds the projections in selection order.
type Result struct {
	Order   []string          `json:"order"`
	Series  map[string]Series `json:"series"`
	Skipped []Skipped         `json:"skipped"`
	Notices []string          `json:"notices"`
	// Years is the shared future window.
	Years []int `json:"years"`
}

// Option configures a Projector.
type Option func(*Projector)

// WithLogger sets the logger notices are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Projector) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithCollector sets the diagnostics collector.
func WithCollector(collector *monitoring.Collector) Option {
	return func(p *Projector) {
		p.collector = collector
	}
}

// Projector fits and extrapolates industry trends.
type Projector struct {
	logger    *slog.Logger
	collector *monitoring.Collector
}

// NewProjector creates a Projector.
func NewProjector(opts ...Option) *Projector {
	p := &Projector{logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type industryHistory struct {
	industry string
	years    []int
	means    []float64
}

// Project selects the IndustriesLimit industries with the highest average
// of their yearly mean valuations (ties in first-seen order), fits each one
// with at least MinPoints points and evaluates the fit at the HorizonYears
// years following the last year of the whole trend. Industries with fewer
// points are skipped with a notice. An empty trend gives an empty result
// and a notice, never an error.
func (p *Projector) Project(rows []trend.Row, opts Options) (Result, error) {
	if err := validation.NewCompoundValidator(
		validation.NewNonNegativeValidator(op, "industries limit", opts.IndustriesLimit),
		validation.NewNonNegativeValidator(op, "horizon years", opts.HorizonYears),
	).Validate(); err != nil {
		return Result{}, err
	}

	result := Result{Series: make(map[string]Series), Order: []string{}, Years: []int{}}
	if len(rows) == 0 {
		p.notice(&result, errors.NewInsufficientDataError(op, "trend input is empty").Error())
		return result, nil
	}

	histories, maxYear := collect(rows)
	for year := maxYear + 1; year <= maxYear+opts.HorizonYears; year++ {
		result.Years = append(result.Years, year)
	}

	sort.SliceStable(histories, func(a, b int) bool {
		return trend.Mean(histories[a].means) > trend.Mean(histories[b].means)
	})
	if len(histories) > opts.IndustriesLimit {
		histories = histories[:opts.IndustriesLimit]
	}

	for _, h := range histories {
		if len(h.years) < MinPoints {
			result.Skipped = append(result.Skipped, Skipped{Industry: h.industry, Points: len(h.years)})
			p.notice(&result, fmt.Sprintf("skipped %s: %d point(s), need at least %d", h.industry, len(h.years), MinPoints))
			continue
		}

		s, err := fit(h)
		if err != nil {
			result.Skipped = append(result.Skipped, Skipped{Industry: h.industry, Points: len(h.years)})
			p.notice(&result, fmt.Sprintf("skipped %s: %v", h.industry, err))
			continue
		}
		for _, year := range result.Years {
			v := s.Predict(year)
			s.Points = append(s.Points, Point{Year: year, Value: v, Fitted: v, Projected: true})
		}

		result.Order = append(result.Order, h.industry)
		result.Series[h.industry] = s
	}

	p.logger.Info("projection",
		"industries", len(result.Order),
		"skipped", len(result.Skipped),
		"horizon", opts.HorizonYears,
	)
	return result, nil
}

// Project runs a default Projector.
func Project(rows []trend.Row, opts Options) (Result, error) {
	return NewProjector().Project(rows, opts)
}

func (p *Projector) notice(result *Result, message string) {
	result.Notices = append(result.Notices, message)
	p.collector.Notice(op, "%s", message)
	p.logger.Warn("projection notice", "message", message)
}

// collect groups the trend by industry in first-seen order, each history
// sorted by year, and returns the last year of the whole trend.
func collect(rows []trend.Row) ([]industryHistory, int) {
	index := make(map[string]int)
	var histories []industryHistory
	maxYear := rows[0].Year
	for _, r := range rows {
		if r.Year > maxYear {
			maxYear = r.Year
		}
		i, seen := index[r.Industry]
		if !seen {
			i = len(histories)
			index[r.Industry] = i
			histories = append(histories, industryHistory{industry: r.Industry})
		}
		histories[i].years = append(histories[i].years, r.Year)
		histories[i].means = append(histories[i].means, r.MeanValuation)
	}
	for i := range histories {
		sort.Sort(byYear(histories[i]))
	}
	return histories, maxYear
}

type byYear industryHistory

func (h byYear) Len() int           { return len(h.years) }
func (h byYear) Less(a, b int) bool { return h.years[a] < h.years[b] }
func (h byYear) Swap(a, b int) {
	h.years[a], h.years[b] = h.years[b], h.years[a]
	h.means[a], h.means[b] = h.means[b], h.means[a]
}

// fit solves the least-squares problem for c0 + c1*x + c2*x^2 with years
// centred on their mean.
func fit(h industryHistory) (Series, error) {
	n := len(h.years)
	center := trend.Mean(h.years)

	design := mat.NewDense(n, MinPoints, nil)
	for i, year := range h.years {
		x := float64(year) - center
		design.Set(i, 0, 1)
		design.Set(i, 1, x)
		design.Set(i, 2, x*x)
	}
	target := mat.NewVecDense(n, append([]float64(nil), h.means...))

	var qr mat.QR
	qr.Factorize(design)
	var coef mat.VecDense
	if err := qr.SolveVecTo(&coef, false, target); err != nil {
		return Series{}, fmt.Errorf("least squares: %w", err)
	}

	s := Series{Industry: h.industry, Center: center}
	for i := range s.Coefficients {
		s.Coefficients[i] = coef.AtVec(i)
	}
	s.Points = make([]Point, 0, n)
	for i, year := range h.years {
		s.Points = append(s.Points, Point{Year: year, Value: h.means[i], Fitted: s.Predict(year)})
	}
	return s, nil
}
