package menu

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/unicorns/internal/chart"
	"github.com/paveg/unicorns/internal/clean"
	"github.com/paveg/unicorns/internal/config"
	"github.com/paveg/unicorns/internal/errors"
	"github.com/paveg/unicorns/internal/testutil"
)

func newTestDriver(t *testing.T, opts ...Option) *Driver {
	t.Helper()
	mem := testutil.SetupMemoryTest(t)
	raw := testutil.CreateTestTable(mem.Allocator)
	cleaned, err := clean.Clean(raw)
	require.NoError(t, err)

	d := NewDriver(cleaned, config.NewConfig().Analysis, opts...)
	cleaned.Release()
	t.Cleanup(func() {
		d.Release()
		raw.Release()
		mem.Release()
	})
	return d
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input   string
		want    Command
		wantErr bool
	}{
		{"1", TopHighest, false},
		{" 2 ", TopLowest, false},
		{"7", Charts, false},
		{"8", Exit, false},
		{"q", Exit, false},
		{"EXIT", Exit, false},
		{"0", 0, true},
		{"9", 0, true},
		{"top", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCommand(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "Top valued companies", TopHighest.String())
	assert.Equal(t, "Command(42)", Command(42).String())
}

func TestRun(t *testing.T) {
	d := newTestDriver(t)

	var out bytes.Buffer
	err := d.Run(context.Background(), strings.NewReader("9\n1\n4\n5\n6\n8\n1\n"), &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, `unknown choice "9"`)
	assert.Contains(t, text, "Bytedance")
	assert.Contains(t, text, "Fintech")
	assert.Contains(t, text, "Annual trend by industry")
	assert.Contains(t, text, "Projected valuations")
	assert.Equal(t, 6, strings.Count(text, "Choose an option:"), "exit stops the loop")
}

func TestRunEndOfInput(t *testing.T) {
	d := newTestDriver(t)

	var out bytes.Buffer
	require.NoError(t, d.Run(context.Background(), strings.NewReader("3\n"), &out))
	assert.Contains(t, out.String(), "Most valuable company per country")
}

func TestRunCancelled(t *testing.T) {
	d := newTestDriver(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.Run(ctx, strings.NewReader("1\n"), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunContinuesAfterFailure(t *testing.T) {
	d := newTestDriver(t)
	broken := d.tbl.Select("company")
	d.tbl.Release()
	d.tbl = broken
	d.trend = nil

	var out bytes.Buffer
	require.NoError(t, d.Run(context.Background(), strings.NewReader("1\n5\n8\n"), &out))

	text := out.String()
	assert.Contains(t, text, "Top valued companies failed")
	assert.Contains(t, text, "Annual trend by industry failed")
	assert.Equal(t, 3, strings.Count(text, "Choose an option:"))
}

func TestExecuteRecoversPanic(t *testing.T) {
	d := &Driver{}
	_, err := d.Execute(TopHighest)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInternal))
}

func TestExecuteUnsupported(t *testing.T) {
	d := newTestDriver(t)
	_, err := d.Execute(Exit)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestExecuteCharts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	d := newTestDriver(t, WithChartsDir(dir))

	text, err := d.Execute(Charts)
	require.NoError(t, err)
	assert.Contains(t, text, filepath.Join(dir, chart.FileTopCompanies))

	_, err = os.Stat(filepath.Join(dir, chart.FileIndustries))
	assert.NoError(t, err)
}

func TestNewDriverKeepsOwnReference(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	raw := testutil.CreateTestTable(mem.Allocator)
	defer raw.Release()
	cleaned, err := clean.Clean(raw)
	require.NoError(t, err)

	d := NewDriver(cleaned, config.NewConfig().Analysis)
	cleaned.Release()
	defer d.Release()

	text, err := d.Execute(TopLowest)
	require.NoError(t, err)
	assert.Contains(t, text, "company")
}
