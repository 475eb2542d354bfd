// Package view renders pipeline results as styled terminal text.
package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/paveg/unicorns/internal/aggregate"
	"github.com/paveg/unicorns/internal/clean"
	"github.com/paveg/unicorns/internal/monitoring"
	"github.com/paveg/unicorns/internal/projection"
	"github.com/paveg/unicorns/internal/table"
	"github.com/paveg/unicorns/internal/trend"
)

// Theme holds the styles used by every renderer.
type Theme struct {
	Title  lipgloss.Style
	Muted  lipgloss.Style
	Prompt lipgloss.Style
	Notice lipgloss.Style
	Error  lipgloss.Style
	Header lipgloss.Style
	Cell   lipgloss.Style
	Border lipgloss.Style
}

// DefaultTheme returns the theme of the command line.
func DefaultTheme() Theme {
	return Theme{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		Muted:  lipgloss.NewStyle().Faint(true),
		Prompt: lipgloss.NewStyle().Bold(true),
		Notice: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Error:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Header: lipgloss.NewStyle().Bold(true).Padding(0, 1),
		Cell:   lipgloss.NewStyle().Padding(0, 1),
		Border: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

func (th Theme) grid(headers []string, rows [][]string) string {
	return ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(th.Border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return th.Header
			}
			return th.Cell
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

// Section renders a titled block.
func (th Theme) Section(title, body string) string {
	return th.Title.Render(title) + "\n" + body + "\n"
}

// Table renders every row of tbl with its columns in order.
func (th Theme) Table(tbl *table.Table) string {
	if tbl == nil || tbl.Len() == 0 {
		return th.Muted.Render("(no rows)")
	}
	rows := make([][]string, tbl.Len())
	for i := range rows {
		rows[i] = tbl.Record(i)
	}
	return th.grid(tbl.Columns(), rows)
}

// Industries renders the first limit industry counts; limit <= 0 renders all.
func (th Theme) Industries(counts []aggregate.IndustryCount, limit int) string {
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	if len(counts) == 0 {
		return th.Muted.Render("(no industries)")
	}
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.Industry, strconv.Itoa(c.Count)}
	}
	return th.grid([]string{"industry", "count"}, rows)
}

// Trend renders the first limit trend rows; limit <= 0 renders all.
func (th Theme) Trend(rows []trend.Row, limit int) string {
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	if len(rows) == 0 {
		return th.Muted.Render("(no trend rows)")
	}
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{
			strconv.Itoa(r.Year),
			r.Industry,
			formatFloat(r.MeanValuation),
			strconv.Itoa(r.SampleCount),
			strconv.Itoa(r.DistinctCompanies),
		}
	}
	return th.grid([]string{"year", "industry", "mean_valuation", "sample_count", "distinct_company_count"}, cells)
}

// Projection renders one row per projected industry with a column per
// future year, followed by the notices of the run.
func (th Theme) Projection(result projection.Result) string {
	var sb strings.Builder
	if len(result.Order) == 0 {
		sb.WriteString(th.Muted.Render("(no projected industries)"))
	} else {
		headers := []string{"industry"}
		for _, y := range result.Years {
			headers = append(headers, strconv.Itoa(y))
		}
		rows := make([][]string, 0, len(result.Order))
		for _, industry := range result.Order {
			row := []string{industry}
			for _, y := range result.Years {
				row = append(row, formatFloat(result.Series[industry].Predict(y)))
			}
			rows = append(rows, row)
		}
		sb.WriteString(th.grid(headers, rows))
	}
	for _, n := range result.Notices {
		sb.WriteString("\n" + th.Notice.Render("notice: "+n))
	}
	return sb.String()
}

// Missing renders the missing-value report.
func (th Theme) Missing(report clean.MissingReport) string {
	rows := make([][]string, len(report.Columns))
	for i, m := range report.Columns {
		rows[i] = []string{m.Column, strconv.Itoa(m.Count)}
	}
	return th.Muted.Render(fmt.Sprintf("%d rows", report.Rows)) + "\n" + th.grid([]string{"column", "missing"}, rows)
}

// Steps renders the row counts of the recorded cleaning steps.
func (th Theme) Steps(steps []monitoring.StepMetrics) string {
	rows := make([][]string, len(steps))
	for i, s := range steps {
		rows[i] = []string{s.Step, strconv.Itoa(s.RowsIn), strconv.Itoa(s.RowsOut), strconv.Itoa(s.Dropped)}
	}
	return th.grid([]string{"step", "rows_in", "rows_out", "dropped"}, rows)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
