package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/paveg/unicorns/internal/aggregate"
	uio "github.com/paveg/unicorns/internal/io"
	"github.com/paveg/unicorns/internal/menu"
	"github.com/paveg/unicorns/internal/projection"
	"github.com/paveg/unicorns/internal/trend"
	"github.com/paveg/unicorns/internal/version"
)

func cleanCmd(a *app) *cobra.Command {
	var output, format string

	c := &cobra.Command{
		Use:   "clean INPUT",
		Short: "Clean the dataset and write the cleaned copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = a.cfg.Output.Path
			}
			if format == "" {
				format = a.cfg.Output.Format
			}

			p := a.pipeline(args[0])
			raw, err := p.Load(cmd.Context())
			if err != nil {
				return err
			}
			defer raw.Release()

			cleaned, missing, err := p.Clean(raw)
			if err != nil {
				return err
			}
			defer cleaned.Release()

			if err := uio.WriteFile(cmd.Context(), output, cleaned, uio.Format(format)); err != nil {
				return err
			}

			a.print(cmd, "Missing values", a.theme.Missing(missing))
			if a.collector.IsEnabled() {
				a.print(cmd, "Cleaning steps", a.theme.Steps(a.collector.Steps()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", cleaned.Len(), output)
			return nil
		},
	}

	c.Flags().StringVarP(&output, "output", "o", "", "cleaned output path (default from config)")
	c.Flags().StringVar(&format, "format", "", "output format: csv|parquet|json|jsonl (default from extension)")
	return c
}

func topCmd(a *app) *cobra.Command {
	var n int
	var ascending bool

	c := &cobra.Command{
		Use:   "top INPUT",
		Short: "Show the companies with the highest (or lowest) valuation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("number") {
				n = a.cfg.Analysis.TopN
			}
			cleaned, _, err := a.loadClean(cmd, args[0])
			if err != nil {
				return err
			}
			defer cleaned.Release()

			top, err := aggregate.TopN(cleaned, n, ascending)
			if err != nil {
				return err
			}
			defer top.Release()

			title := "Top valued companies"
			if ascending {
				title = "Lowest valued companies"
			}
			a.print(cmd, title, a.theme.Table(top))
			return nil
		},
	}

	c.Flags().IntVarP(&n, "number", "n", 0, "number of companies (default from config)")
	c.Flags().BoolVar(&ascending, "ascending", false, "lowest valuations first")
	return c
}

func countriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "countries INPUT",
		Short: "Show the most valuable company of every country",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cleaned, _, err := a.loadClean(cmd, args[0])
			if err != nil {
				return err
			}
			defer cleaned.Release()

			leaders, err := aggregate.TopPerCountry(cleaned)
			if err != nil {
				return err
			}
			defer leaders.Release()

			a.print(cmd, "Most valuable company per country", a.theme.Table(leaders))
			return nil
		},
	}
}

func industriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "industries INPUT",
		Short: "Count companies per industry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cleaned, _, err := a.loadClean(cmd, args[0])
			if err != nil {
				return err
			}
			defer cleaned.Release()

			counts, err := aggregate.IndustryFrequency(cleaned)
			if err != nil {
				return err
			}
			a.print(cmd, "Industry frequency", a.theme.Industries(counts, 0))
			if len(counts) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Most frequent industry: %s (%d companies)\n", counts[0].Industry, counts[0].Count)
			}
			return nil
		},
	}
}

func trendCmd(a *app) *cobra.Command {
	var limit int

	c := &cobra.Command{
		Use:   "trend INPUT",
		Short: "Show the mean valuation per year and industry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("limit") {
				limit = a.cfg.Analysis.TrendRows
			}
			cleaned, _, err := a.loadClean(cmd, args[0])
			if err != nil {
				return err
			}
			defer cleaned.Release()

			rows, err := trend.NewBuilder(trend.WithLogger(a.logger), trend.WithCollector(a.collector)).AnnualIndustryTrend(cleaned)
			if err != nil {
				return err
			}
			a.print(cmd, "Annual trend by industry", a.theme.Trend(rows, limit))
			return nil
		},
	}

	c.Flags().IntVar(&limit, "limit", 0, "rows to show, 0 for all (default from config)")
	return c
}

func projectCmd(a *app) *cobra.Command {
	var industries, horizon int

	c := &cobra.Command{
		Use:   "project INPUT",
		Short: "Project the mean valuation of the leading industries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("industries") {
				industries = a.cfg.Analysis.IndustriesLimit
			}
			if !cmd.Flags().Changed("horizon") {
				horizon = a.cfg.Analysis.HorizonYears
			}
			cleaned, _, err := a.loadClean(cmd, args[0])
			if err != nil {
				return err
			}
			defer cleaned.Release()

			rows, err := trend.NewBuilder(trend.WithLogger(a.logger), trend.WithCollector(a.collector)).AnnualIndustryTrend(cleaned)
			if err != nil {
				return err
			}
			result, err := projection.NewProjector(projection.WithLogger(a.logger), projection.WithCollector(a.collector)).
				Project(rows, projection.Options{IndustriesLimit: industries, HorizonYears: horizon})
			if err != nil {
				return err
			}
			a.print(cmd, "Projected valuations", a.theme.Projection(result))
			return nil
		},
	}

	c.Flags().IntVar(&industries, "industries", 0, "industries to project (default from config)")
	c.Flags().IntVar(&horizon, "horizon", 0, "years to project (default from config)")
	return c
}

func reportCmd(a *app) *cobra.Command {
	var output, workbook, charts, metricsFile string

	c := &cobra.Command{
		Use:   "report INPUT",
		Short: "Run the whole pipeline and write every configured output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &a.cfg.Output
			if output != "" {
				out.Path = output
			}
			if workbook != "" {
				out.Workbook = workbook
			}
			if charts != "" {
				out.ChartsDir = charts
			}
			if metricsFile != "" {
				out.MetricsFile = metricsFile
			}

			p := a.pipeline(args[0])
			r, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			defer r.Release()

			a.print(cmd, "Missing values", a.theme.Missing(r.Missing))
			a.print(cmd, "Top valued companies", a.theme.Table(r.TopHighest))
			a.print(cmd, "Lowest valued companies", a.theme.Table(r.TopLowest))
			a.print(cmd, "Most valuable company per country", a.theme.Table(r.PerCountry))
			if r.HasMostFrequent {
				fmt.Fprintf(cmd.OutOrStdout(), "Most frequent industry: %s (%d companies)\n\n", r.MostFrequent.Industry, r.MostFrequent.Count)
			}
			a.print(cmd, "Annual trend by industry", a.theme.Trend(r.Trend, a.cfg.Analysis.TrendRows))
			a.print(cmd, "Projected valuations", a.theme.Projection(r.Projection))

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "run %s: %d raw rows, %d cleaned rows written to %s\n", r.RunID, r.RawRows, r.Cleaned.Len(), out.Path)
			for _, path := range r.Charts {
				fmt.Fprintf(w, "chart: %s\n", path)
			}
			if r.Workbook != "" {
				fmt.Fprintf(w, "workbook: %s\n", r.Workbook)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&output, "output", "o", "", "cleaned output path (default from config)")
	c.Flags().StringVar(&workbook, "xlsx", "", "write a workbook with every view")
	c.Flags().StringVar(&charts, "charts", "", "write PNG charts into this directory")
	c.Flags().StringVar(&metricsFile, "metrics-file", "", "write the run diagnostics as a Prometheus text file")
	return c
}

func menuCmd(a *app) *cobra.Command {
	var charts string

	c := &cobra.Command{
		Use:   "menu INPUT",
		Short: "Explore the cleaned dataset interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if charts == "" {
				charts = a.cfg.Output.ChartsDir
			}
			if charts == "" {
				charts = filepath.Join(".", "charts")
			}
			cleaned, _, err := a.loadClean(cmd, args[0])
			if err != nil {
				return err
			}
			d := menu.NewDriver(cleaned, a.cfg.Analysis,
				menu.WithLogger(a.logger),
				menu.WithCollector(a.collector),
				menu.WithTheme(a.theme),
				menu.WithChartsDir(charts),
			)
			cleaned.Release()
			defer d.Release()

			return d.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	c.Flags().StringVar(&charts, "charts", "", "directory for the charts command (default from config, else ./charts)")
	return c
}

func versionCmd() *cobra.Command {
	var asJSON bool

	c := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Info()
			if !asJSON {
				fmt.Fprint(cmd.OutOrStdout(), info.String())
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}

	c.Flags().BoolVar(&asJSON, "json", false, "print as JSON, including linked modules")
	return c
}
