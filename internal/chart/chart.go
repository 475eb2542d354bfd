// Package chart renders the exploratory PNG charts of a pipeline run:
// the valuation ranking, the industry frequency, the annual trend of the
// top industries and their projection.
package chart

import (
	stderrors "errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/paveg/unicorns/internal/aggregate"
	"github.com/paveg/unicorns/internal/coerce"
	"github.com/paveg/unicorns/internal/projection"
	"github.com/paveg/unicorns/internal/table"
	"github.com/paveg/unicorns/internal/trend"
	"github.com/paveg/unicorns/internal/validation"
)

// ErrNoData is returned for a chart with nothing to draw.
var ErrNoData = stderrors.New("chart: no data")

const (
	width  = 12 * vg.Inch
	height = 7 * vg.Inch
)

var barColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

func rotateXLabels(p *plot.Plot) {
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Tick.Label.XAlign = draw.XRight
}

// TopCompanies draws a bar per row of tbl: company against valuation.
func TopCompanies(tbl *table.Table, title string) (*plot.Plot, error) {
	companies, _, err := tbl.Strings("TopCompanies", validation.ColumnCompany)
	if err != nil {
		return nil, err
	}
	values, valid, err := coerce.Numeric(tbl, "TopCompanies", validation.ColumnValuation)
	if err != nil {
		return nil, err
	}

	bars := plotter.Values{}
	labels := []string{}
	for i := range companies {
		if valid[i] {
			bars = append(bars, values[i])
			labels = append(labels, companies[i])
		}
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	p := newPlot(title, "Company", "Valuation ($B)")
	chart, err := plotter.NewBarChart(bars, vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("building bar chart: %w", err)
	}
	chart.Color = barColor
	chart.LineStyle.Width = vg.Length(0)
	p.Add(chart)
	p.NominalX(labels...)
	rotateXLabels(p)
	return p, nil
}

// IndustryFrequency draws the limit most frequent industries.
func IndustryFrequency(counts []aggregate.IndustryCount, limit int) (*plot.Plot, error) {
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	if len(counts) == 0 {
		return nil, ErrNoData
	}

	bars := make(plotter.Values, len(counts))
	labels := make([]string, len(counts))
	for i, c := range counts {
		bars[i] = float64(c.Count)
		labels[i] = c.Industry
	}

	p := newPlot("Companies per industry", "Industry", "Companies")
	chart, err := plotter.NewBarChart(bars, vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("building bar chart: %w", err)
	}
	chart.Color = barColor
	chart.LineStyle.Width = vg.Length(0)
	p.Add(chart)
	p.NominalX(labels...)
	rotateXLabels(p)
	return p, nil
}

// Trend draws one line of mean valuation per year for each of industries.
func Trend(rows []trend.Row, industries []string) (*plot.Plot, error) {
	series := make(map[string]plotter.XYs, len(industries))
	for _, r := range rows {
		if _, wanted := indexOf(industries, r.Industry); wanted {
			series[r.Industry] = append(series[r.Industry], plotter.XY{X: float64(r.Year), Y: r.MeanValuation})
		}
	}
	if len(series) == 0 {
		return nil, ErrNoData
	}

	p := newPlot("Mean valuation per year", "Year joined", "Mean valuation ($B)")
	for i, industry := range industries {
		points, ok := series[industry]
		if !ok {
			continue
		}
		line, dots, err := plotter.NewLinePoints(points)
		if err != nil {
			return nil, fmt.Errorf("building line for %s: %w", industry, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(2)
		dots.Color = plotutil.Color(i)
		p.Add(line, dots)
		p.Legend.Add(industry, line)
	}
	p.X.Tick.Marker = yearTicks{}
	return p, nil
}

// Projection draws each projected industry: the fitted history as a solid
// line with the observed means as dots, and the extrapolation dashed.
func Projection(result projection.Result) (*plot.Plot, error) {
	if len(result.Order) == 0 {
		return nil, ErrNoData
	}

	p := newPlot("Projected mean valuation", "Year", "Mean valuation ($B)")
	for i, industry := range result.Order {
		s := result.Series[industry]
		history := s.Historical()

		observed := make(plotter.XYs, len(history))
		fitted := make(plotter.XYs, len(history))
		for j, pt := range history {
			observed[j] = plotter.XY{X: float64(pt.Year), Y: pt.Value}
			fitted[j] = plotter.XY{X: float64(pt.Year), Y: pt.Fitted}
		}

		line, err := plotter.NewLine(fitted)
		if err != nil {
			return nil, fmt.Errorf("building history for %s: %w", industry, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(2)

		dots, err := plotter.NewScatter(observed)
		if err != nil {
			return nil, fmt.Errorf("building points for %s: %w", industry, err)
		}
		dots.GlyphStyle.Color = plotutil.Color(i)
		dots.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(line, dots)
		p.Legend.Add(industry, line)

		future := s.Points[len(history):]
		if len(future) == 0 {
			continue
		}
		// Start the dashed segment at the last fitted point so the lines join.
		projected := plotter.XYs{fitted[len(fitted)-1]}
		for _, pt := range future {
			projected = append(projected, plotter.XY{X: float64(pt.Year), Y: pt.Value})
		}
		dashed, err := plotter.NewLine(projected)
		if err != nil {
			return nil, fmt.Errorf("building projection for %s: %w", industry, err)
		}
		dashed.Color = plotutil.Color(i)
		dashed.Width = vg.Points(2)
		dashed.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(dashed)
	}
	p.X.Tick.Marker = yearTicks{}
	return p, nil
}

// Save writes p as an image whose format follows the extension of path.
func Save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating chart directory: %w", err)
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("saving chart %s: %w", path, err)
	}
	return nil
}

// yearTicks labels whole years only.
type yearTicks struct{}

func (yearTicks) Ticks(minValue, maxValue float64) []plot.Tick {
	var ticks []plot.Tick
	for y := math.Ceil(minValue); y <= maxValue; y++ {
		ticks = append(ticks, plot.Tick{Value: y, Label: strconv.Itoa(int(y))})
	}
	return ticks
}

func indexOf(values []string, v string) (int, bool) {
	for i, s := range values {
		if s == v {
			return i, true
		}
	}
	return -1, false
}

// File names written by RenderAll.
const (
	FileTopCompanies = "top_companies.png"
	FileIndustries   = "industry_frequency.png"
	FileTrend        = "industry_trend.png"
	FileProjection   = "projection.png"
)

// Set is the input of RenderAll. Industries selects the lines of the
// trend chart and the bars of the frequency chart.
type Set struct {
	TopCompanies *table.Table
	Frequency    []aggregate.IndustryCount
	Trend        []trend.Row
	Industries   []string
	Projection   projection.Result
}

// RenderAll writes every chart of set with something to draw into dir and
// returns the written paths.
func RenderAll(dir string, set Set) ([]string, error) {
	type job struct {
		file string
		draw func() (*plot.Plot, error)
	}
	jobs := []job{
		{FileTopCompanies, func() (*plot.Plot, error) {
			if set.TopCompanies == nil {
				return nil, ErrNoData
			}
			return TopCompanies(set.TopCompanies, "Most valuable companies")
		}},
		{FileIndustries, func() (*plot.Plot, error) { return IndustryFrequency(set.Frequency, len(set.Industries)) }},
		{FileTrend, func() (*plot.Plot, error) { return Trend(set.Trend, set.Industries) }},
		{FileProjection, func() (*plot.Plot, error) { return Projection(set.Projection) }},
	}

	var written []string
	for _, j := range jobs {
		p, err := j.draw()
		if stderrors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return written, fmt.Errorf("drawing %s: %w", j.file, err)
		}
		path := filepath.Join(dir, j.file)
		if err := Save(p, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
