package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/unicorns/internal/chart"
	"github.com/paveg/unicorns/internal/testutil"
)

const unicornsCSV = `company,valuation,date_joined,country,city,industry,select_investors
Bytedance,$180,2017-04-07,China,Beijing,Artificial intelligence,Sequoia Capital China
SpaceX,$100.3,2012-12-01,United States,Hawthorne,Other,Founders Fund
Stripe,$95,2014-01-23,United States,San Francisco,Fintech,Khosla Ventures
Klarna,$45.6,2011-12-12,Sweden,,Fintech,Institutional Venture Partners
Checkout.com,$40,2019-05-02,United Kingdom,London,Fintech,
Revolut,$33,2018-04-26,United Kingdom,London,Fintech,index Ventures
Chime,$25,2019-03-05,United States,San Francisco,Fintech,Forerunner Ventures
Stripe,$95,2014-01-23,United States,San Francisco,Fintech,Khosla Ventures
`

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeInput(t *testing.T) string {
	t.Helper()
	return testutil.WriteFile(t, "unicorns.csv", unicornsCSV)
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "unicorns ")

	out, _, err = run(t, "", "version", "--json")
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "go_version")
}

func TestClean(t *testing.T) {
	input := writeInput(t)
	output := filepath.Join(t.TempDir(), "cleaned.csv")

	out, _, err := run(t, "", "clean", input, "-o", output)
	require.NoError(t, err)
	assert.Contains(t, out, "Missing values")
	assert.Contains(t, out, "DropMissingInvestors")
	assert.Contains(t, out, "wrote 6 rows to "+output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 7)
	assert.NotContains(t, string(data), "Checkout.com")
}

func TestCleanParquet(t *testing.T) {
	input := writeInput(t)
	output := filepath.Join(t.TempDir(), "cleaned.parquet")

	_, _, err := run(t, "", "clean", input, "-o", output)
	require.NoError(t, err)

	info, err := os.Stat(output)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestTop(t *testing.T) {
	input := writeInput(t)

	out, _, err := run(t, "", "top", input, "-n", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Top valued companies")
	assert.Contains(t, out, "Bytedance")
	assert.Contains(t, out, "SpaceX")
	assert.NotContains(t, out, "Stripe")

	out, _, err = run(t, "", "top", input, "-n", "1", "--ascending")
	require.NoError(t, err)
	assert.Contains(t, out, "Lowest valued companies")
	assert.Contains(t, out, "Chime")
}

func TestCountriesAndIndustries(t *testing.T) {
	input := writeInput(t)

	out, _, err := run(t, "", "countries", input)
	require.NoError(t, err)
	assert.Contains(t, out, "Revolut")
	assert.Contains(t, out, "Klarna")

	out, _, err = run(t, "", "industries", input)
	require.NoError(t, err)
	assert.Contains(t, out, "Most frequent industry: Fintech (4 companies)")
}

func TestTrendAndProject(t *testing.T) {
	input := writeInput(t)

	out, _, err := run(t, "", "trend", input, "--limit", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "2011")

	out, _, err = run(t, "", "project", input, "--industries", "3", "--horizon", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Projected valuations")
	assert.Contains(t, out, "Fintech")

	_, _, err = run(t, "", "project", input, "--horizon", "-1")
	assert.ErrorContains(t, err, "invalid input")
}

func TestReport(t *testing.T) {
	input := writeInput(t)
	dir := t.TempDir()
	output := filepath.Join(dir, "cleaned.csv")
	workbook := filepath.Join(dir, "report.xlsx")
	charts := filepath.Join(dir, "charts")
	metrics := filepath.Join(dir, "unicorns.prom")

	out, _, err := run(t, "", "report", input,
		"-o", output, "--xlsx", workbook, "--charts", charts, "--metrics-file", metrics)
	require.NoError(t, err)
	assert.Contains(t, out, "8 raw rows, 6 cleaned rows")
	assert.Contains(t, out, "workbook: "+workbook)
	assert.Contains(t, out, "chart: "+filepath.Join(charts, chart.FileTopCompanies))

	for _, path := range []string{output, workbook, metrics, filepath.Join(charts, chart.FileTrend)} {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "unicorns_step_rows")
}

func TestMenu(t *testing.T) {
	input := writeInput(t)

	out, _, err := run(t, "x\n1\n8\n", "menu", input)
	require.NoError(t, err)
	assert.Contains(t, out, `unknown choice "x"`)
	assert.Contains(t, out, "Bytedance")
}

func TestGlobalFlags(t *testing.T) {
	input := writeInput(t)

	_, stderr, err := run(t, "", "--log-format", "json", "--log-level", "debug", "industries", input)
	require.NoError(t, err)
	assert.Contains(t, stderr, `"run_id"`)
	assert.Contains(t, stderr, `"msg":"clean step"`)

	_, _, err = run(t, "", "--log-level", "loud", "industries", input)
	assert.ErrorContains(t, err, "Config.Logging.Level")
}

func TestConfigFile(t *testing.T) {
	input := writeInput(t)
	cfg := testutil.WriteFile(t, "unicorns.yaml", "analysis:\n  top_n: 1\n")

	out, _, err := run(t, "", "--config", cfg, "top", input)
	require.NoError(t, err)
	assert.Contains(t, out, "Bytedance")
	assert.NotContains(t, out, "SpaceX")
}

func TestErrors(t *testing.T) {
	_, _, err := run(t, "", "top", filepath.Join(t.TempDir(), "absent.csv"))
	assert.ErrorContains(t, err, "load error")

	noValuation := testutil.WriteFile(t, "broken.csv", "company,city,country,select_investors\nA,B,C,D\n")
	_, _, err = run(t, "", "top", noValuation)
	assert.ErrorContains(t, err, "schema error")

	_, _, err = run(t, "", "top")
	assert.Error(t, err)
}
