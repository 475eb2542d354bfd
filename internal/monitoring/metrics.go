// Package monitoring collects the pipeline diagnostics: row counts per
// filtering step, missing-value counts, dropped rows per reason and the
// notices raised by the trend and projection stages.
package monitoring

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StepMetrics represents the row-count delta of a single pipeline step.
type StepMetrics struct {
	Step     string        `json:"step"`
	RowsIn   int           `json:"rows_in"`
	RowsOut  int           `json:"rows_out"`
	Dropped  int           `json:"dropped"`
	Duration time.Duration `json:"duration"`
}

// MissingCount is the number of missing cells in one column.
type MissingCount struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
}

// DroppedCount is the number of rows an operation dropped for one reason.
type DroppedCount struct {
	Op     string `json:"op"`
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// Notice is a non-fatal condition reported by a stage.
type Notice struct {
	Op      string `json:"op"`
	Message string `json:"message"`
}

// Collector collects and stores diagnostics for a pipeline run.
type Collector struct {
	mu      sync.RWMutex
	enabled bool
	steps   []StepMetrics
	missing []MissingCount
	dropped []DroppedCount
	notices []Notice

	stepRows      *prometheus.Desc
	stepDuration  *prometheus.Desc
	missingValues *prometheus.Desc
	droppedRows   *prometheus.Desc
	noticeCount   *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a new diagnostics collector.
func NewCollector(enabled bool) *Collector {
	return &Collector{
		enabled: enabled,
		stepRows: prometheus.NewDesc("unicorns_step_rows",
			"Rows entering, leaving and dropped by a pipeline step.", []string{"step", "stage"}, nil),
		stepDuration: prometheus.NewDesc("unicorns_step_duration_seconds",
			"Wall time spent in a pipeline step.", []string{"step"}, nil),
		missingValues: prometheus.NewDesc("unicorns_missing_values",
			"Missing cells per column in the raw input.", []string{"column"}, nil),
		droppedRows: prometheus.NewDesc("unicorns_dropped_rows",
			"Rows dropped by an operation, per reason.", []string{"op", "reason"}, nil),
		noticeCount: prometheus.NewDesc("unicorns_notices",
			"Non-fatal notices raised during the run.", []string{"op"}, nil),
	}
}

// IsEnabled returns whether collection is enabled.
func (c *Collector) IsEnabled() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled enables or disables collection.
func (c *Collector) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// RecordStep executes fn, which returns the number of rows it kept, and
// records the step's row delta and duration.
func (c *Collector) RecordStep(step string, rowsIn int, fn func() (int, error)) (StepMetrics, error) {
	start := time.Now()
	rowsOut, err := fn()
	metrics := StepMetrics{
		Step:     step,
		RowsIn:   rowsIn,
		RowsOut:  rowsOut,
		Dropped:  rowsIn - rowsOut,
		Duration: time.Since(start),
	}
	if err != nil {
		return metrics, err
	}

	if c.IsEnabled() {
		c.mu.Lock()
		c.steps = append(c.steps, metrics)
		c.mu.Unlock()
	}
	return metrics, nil
}

// RecordMissing stores the missing-value count of a column, replacing an
// earlier count for the same column.
func (c *Collector) RecordMissing(column string, count int) {
	if !c.IsEnabled() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.missing {
		if c.missing[i].Column == column {
			c.missing[i].Count = count
			return
		}
	}
	c.missing = append(c.missing, MissingCount{Column: column, Count: count})
}

// RecordDropped adds n rows dropped by op for reason.
func (c *Collector) RecordDropped(op, reason string, n int) {
	if !c.IsEnabled() || n == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.dropped {
		if c.dropped[i].Op == op && c.dropped[i].Reason == reason {
			c.dropped[i].Count += n
			return
		}
	}
	c.dropped = append(c.dropped, DroppedCount{Op: op, Reason: reason, Count: n})
}

// Notice records a non-fatal condition.
func (c *Collector) Notice(op, format string, args ...interface{}) {
	if !c.IsEnabled() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, Notice{Op: op, Message: fmt.Sprintf(format, args...)})
}

// Steps returns a copy of the recorded steps in execution order.
func (c *Collector) Steps() []StepMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]StepMetrics(nil), c.steps...)
}

// Missing returns a copy of the missing-value counts in column order.
func (c *Collector) Missing() []MissingCount {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]MissingCount(nil), c.missing...)
}

// Dropped returns a copy of the dropped-row counts.
func (c *Collector) Dropped() []DroppedCount {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]DroppedCount(nil), c.dropped...)
}

// Notices returns a copy of the recorded notices.
func (c *Collector) Notices() []Notice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Notice(nil), c.notices...)
}

// Clear removes all collected diagnostics.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = c.steps[:0]
	c.missing = c.missing[:0]
	c.dropped = c.dropped[:0]
	c.notices = c.notices[:0]
}

// Summary returns aggregate statistics for the collected diagnostics.
func (c *Collector) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summary := Summary{
		TotalSteps:   len(c.steps),
		TotalNotices: len(c.notices),
		StepCounts:   make(map[string]int),
	}
	for _, s := range c.steps {
		summary.TotalDuration += s.Duration
		summary.TotalDropped += s.Dropped
		summary.StepCounts[s.Step]++
	}
	for _, m := range c.missing {
		summary.TotalMissing += m.Count
	}
	if len(c.steps) > 0 {
		summary.RowsIn = c.steps[0].RowsIn
		summary.RowsOut = c.steps[len(c.steps)-1].RowsOut
	}
	return summary
}

// Summary provides aggregate statistics for a run.
type Summary struct {
	TotalSteps    int            `json:"total_steps"`
	TotalDuration time.Duration  `json:"total_duration"`
	TotalDropped  int            `json:"total_dropped"`
	TotalMissing  int            `json:"total_missing"`
	TotalNotices  int            `json:"total_notices"`
	RowsIn        int            `json:"rows_in"`
	RowsOut       int            `json:"rows_out"`
	StepCounts    map[string]int `json:"step_counts"`
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.stepRows
	ch <- c.stepDuration
	ch <- c.missingValues
	ch <- c.droppedRows
	ch <- c.noticeCount
}

// Collect implements prometheus.Collector. Repeated steps are summed.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	type stepTotal struct {
		in, out, dropped int
		duration         time.Duration
	}
	totals := make(map[string]*stepTotal)
	var order []string
	for _, s := range c.steps {
		t, ok := totals[s.Step]
		if !ok {
			t = &stepTotal{}
			totals[s.Step] = t
			order = append(order, s.Step)
		}
		t.in += s.RowsIn
		t.out += s.RowsOut
		t.dropped += s.Dropped
		t.duration += s.Duration
	}
	for _, step := range order {
		t := totals[step]
		ch <- prometheus.MustNewConstMetric(c.stepRows, prometheus.GaugeValue, float64(t.in), step, "in")
		ch <- prometheus.MustNewConstMetric(c.stepRows, prometheus.GaugeValue, float64(t.out), step, "out")
		ch <- prometheus.MustNewConstMetric(c.stepRows, prometheus.GaugeValue, float64(t.dropped), step, "dropped")
		ch <- prometheus.MustNewConstMetric(c.stepDuration, prometheus.GaugeValue, t.duration.Seconds(), step)
	}

	for _, m := range c.missing {
		ch <- prometheus.MustNewConstMetric(c.missingValues, prometheus.GaugeValue, float64(m.Count), m.Column)
	}
	for _, d := range c.dropped {
		ch <- prometheus.MustNewConstMetric(c.droppedRows, prometheus.GaugeValue, float64(d.Count), d.Op, d.Reason)
	}

	perOp := make(map[string]int)
	for _, n := range c.notices {
		perOp[n.Op]++
	}
	ops := make([]string, 0, len(perOp))
	for op := range perOp {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		ch <- prometheus.MustNewConstMetric(c.noticeCount, prometheus.CounterValue, float64(perOp[op]), op)
	}
}

// WriteTextfile writes the collected diagnostics to path in the Prometheus
// text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	registry := prometheus.NewRegistry()
	if err := registry.Register(c); err != nil {
		return fmt.Errorf("registering collector: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
