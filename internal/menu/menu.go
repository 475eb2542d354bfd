// Package menu implements the interactive session over a cleaned table.
package menu

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/paveg/unicorns/internal/aggregate"
	"github.com/paveg/unicorns/internal/chart"
	"github.com/paveg/unicorns/internal/config"
	"github.com/paveg/unicorns/internal/errors"
	"github.com/paveg/unicorns/internal/logging"
	"github.com/paveg/unicorns/internal/monitoring"
	"github.com/paveg/unicorns/internal/projection"
	"github.com/paveg/unicorns/internal/table"
	"github.com/paveg/unicorns/internal/trend"
	"github.com/paveg/unicorns/internal/view"
)

// Command is a menu entry.
type Command int

// Menu entries in display order.
const (
	TopHighest Command = iota + 1
	TopLowest
	PerCountry
	Industries
	Trend
	Projection
	Charts
	Exit
)

var commandNames = map[Command]string{
	TopHighest: "Top valued companies",
	TopLowest:  "Lowest valued companies",
	PerCountry: "Most valuable company per country",
	Industries: "Industry frequency",
	Trend:      "Annual trend by industry",
	Projection: "Projected valuations",
	Charts:     "Save charts",
	Exit:       "Exit",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "Command(" + strconv.Itoa(int(c)) + ")"
}

// ParseCommand maps a menu choice, its number or "q", to a Command.
func ParseCommand(input string) (Command, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "q" || input == "quit" || input == "exit" {
		return Exit, nil
	}
	n, err := strconv.Atoi(input)
	if err != nil || n < int(TopHighest) || n > int(Exit) {
		return 0, errors.NewInvalidInputError("ParseCommand", fmt.Sprintf("unknown choice %q", input))
	}
	return Command(n), nil
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger of the driver.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithCollector shares a diagnostics collector with the analysis stages.
func WithCollector(collector *monitoring.Collector) Option {
	return func(d *Driver) {
		d.collector = collector
	}
}

// WithTheme sets the styles of the rendered output.
func WithTheme(theme view.Theme) Option {
	return func(d *Driver) {
		d.theme = theme
	}
}

// WithChartsDir sets where the charts command writes.
func WithChartsDir(dir string) Option {
	return func(d *Driver) {
		d.chartsDir = dir
	}
}

// Driver owns a cleaned table and answers menu commands over it.
type Driver struct {
	tbl       *table.Table
	analysis  config.AnalysisConfig
	logger    *slog.Logger
	collector *monitoring.Collector
	theme     view.Theme
	chartsDir string

	// trend is computed on first use.
	trend []trend.Row
}

// NewDriver creates a Driver over cleaned. The driver keeps its own
// reference; call Release when done.
func NewDriver(cleaned *table.Table, analysis config.AnalysisConfig, opts ...Option) *Driver {
	d := &Driver{
		tbl:       cleaned.Clone(),
		analysis:  analysis,
		logger:    logging.Discard(),
		theme:     view.DefaultTheme(),
		chartsDir: "charts",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Release frees the table held by the driver.
func (d *Driver) Release() {
	d.tbl.Release()
}

// Run prompts on out and reads choices from in until Exit, end of input or
// cancellation of ctx. Invalid choices and failing commands are reported
// and the loop continues.
func (d *Driver) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(out, d.prompt())
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		cmd, err := ParseCommand(scanner.Text())
		if err != nil {
			fmt.Fprintln(out, d.theme.Error.Render(err.Error()))
			continue
		}
		if cmd == Exit {
			return nil
		}

		text, err := d.Execute(cmd)
		if err != nil {
			d.logger.Error("menu command failed", "command", cmd.String(), "error", err)
			fmt.Fprintln(out, d.theme.Error.Render(fmt.Sprintf("%s failed: %v", cmd, err)))
			continue
		}
		fmt.Fprintln(out, d.theme.Section(cmd.String(), text))
	}
}

func (d *Driver) prompt() string {
	var sb strings.Builder
	sb.WriteString(d.theme.Title.Render("Unicorn companies") + "\n")
	for c := TopHighest; c <= Exit; c++ {
		fmt.Fprintf(&sb, "  %d. %s\n", c, c)
	}
	sb.WriteString(d.theme.Prompt.Render("Choose an option: "))
	return sb.String()
}

// Execute runs one command and returns its rendered output. A panic inside
// the command is returned as an internal error.
func (d *Driver) Execute(cmd Command) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewInternalError(cmd.String(), fmt.Errorf("panic: %v", r))
		}
	}()
	d.logger.Debug("menu command", "command", cmd.String())

	switch cmd {
	case TopHighest, TopLowest:
		top, err := aggregate.TopN(d.tbl, d.analysis.TopN, cmd == TopLowest)
		if err != nil {
			return "", err
		}
		defer top.Release()
		return d.theme.Table(top), nil
	case PerCountry:
		leaders, err := aggregate.TopPerCountry(d.tbl)
		if err != nil {
			return "", err
		}
		defer leaders.Release()
		return d.theme.Table(leaders), nil
	case Industries:
		counts, err := aggregate.IndustryFrequency(d.tbl)
		if err != nil {
			return "", err
		}
		return d.theme.Industries(counts, 0), nil
	case Trend:
		rows, err := d.annualTrend()
		if err != nil {
			return "", err
		}
		return d.theme.Trend(rows, d.analysis.TrendRows), nil
	case Projection:
		result, err := d.project()
		if err != nil {
			return "", err
		}
		return d.theme.Projection(result), nil
	case Charts:
		return d.charts()
	default:
		return "", errors.NewInvalidInputError("Execute", fmt.Sprintf("unsupported command %s", cmd))
	}
}

func (d *Driver) annualTrend() ([]trend.Row, error) {
	if d.trend != nil {
		return d.trend, nil
	}
	rows, err := trend.NewBuilder(trend.WithLogger(d.logger), trend.WithCollector(d.collector)).AnnualIndustryTrend(d.tbl)
	if err != nil {
		return nil, err
	}
	d.trend = rows
	return rows, nil
}

func (d *Driver) project() (projection.Result, error) {
	rows, err := d.annualTrend()
	if err != nil {
		return projection.Result{}, err
	}
	return projection.NewProjector(projection.WithLogger(d.logger), projection.WithCollector(d.collector)).
		Project(rows, projection.Options{
			IndustriesLimit: d.analysis.IndustriesLimit,
			HorizonYears:    d.analysis.HorizonYears,
		})
}

func (d *Driver) charts() (string, error) {
	top, err := aggregate.TopN(d.tbl, d.analysis.TopN, false)
	if err != nil {
		return "", err
	}
	defer top.Release()

	counts, err := aggregate.IndustryFrequency(d.tbl)
	if err != nil {
		return "", err
	}
	rows, err := d.annualTrend()
	if err != nil {
		return "", err
	}
	result, err := d.project()
	if err != nil {
		return "", err
	}

	industries := make([]string, 0, d.analysis.IndustriesLimit)
	for _, c := range counts {
		if len(industries) == d.analysis.IndustriesLimit {
			break
		}
		industries = append(industries, c.Industry)
	}

	written, err := chart.RenderAll(d.chartsDir, chart.Set{
		TopCompanies: top,
		Frequency:    counts,
		Trend:        rows,
		Industries:   industries,
		Projection:   result,
	})
	if err != nil {
		return "", err
	}
	if len(written) == 0 {
		return d.theme.Muted.Render("nothing to draw"), nil
	}
	return strings.Join(written, "\n"), nil
}
