// Package report persists protocol results as CSV files with stable column
// names and renders human-readable summary tables. Plotting and comparison
// tooling consumes the CSV files, locating the most recent one per
// (backend, test-type) pair.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/storebench/storebench/bench"
)

// Test type names used in result filenames.
const (
	TestScalability = "scalability"
	TestLoadDetail  = "load_test_detailed"
	TestLoadSummary = "load_test_summary"
	TestSubstring   = "substring_search"
)

// Writer emits result files for one backend into one directory. RunID, when
// set, is shortened into the filename so same-second runs don't collide.
type Writer struct {
	Dir     string
	Backend string
	RunID   string
}

// WriteScalability writes one row per ScalabilityPoint and returns the file
// path.
func (w *Writer) WriteScalability(points []bench.ScalabilityPoint) (string, error) {
	header := []string{
		"batch_number", "records_in_db", "insert_time",
		"query_mean_latency", "query_median_latency",
		"query_p95_latency", "query_p99_latency", "timestamp",
	}

	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{
			strconv.Itoa(p.BatchNumber),
			strconv.Itoa(p.RecordsInDB),
			seconds(p.InsertTime),
			seconds(p.Query.Mean),
			seconds(p.Query.Median),
			seconds(p.Query.P95),
			seconds(p.Query.P99),
			p.Timestamp.Format(time.RFC3339),
		})
	}

	return w.write(TestScalability, header, rows)
}

// WriteLoadDetail writes one row per load iteration.
func (w *Writer) WriteLoadDetail(iterations []bench.LoadIteration) (string, error) {
	header := []string{
		"iteration", "mean_latency", "median_latency",
		"p95_latency", "p99_latency", "min_latency", "max_latency",
		"queries_count",
	}

	rows := make([][]string, 0, len(iterations))
	for _, it := range iterations {
		rows = append(rows, []string{
			strconv.Itoa(it.Iteration),
			seconds(it.Stats.Mean),
			seconds(it.Stats.Median),
			seconds(it.Stats.P95),
			seconds(it.Stats.P99),
			seconds(it.Stats.Min),
			seconds(it.Stats.Max),
			strconv.Itoa(it.Stats.Count),
		})
	}

	return w.write(TestLoadDetail, header, rows)
}

// WriteLoadSummary writes the single load summary row.
func (w *Writer) WriteLoadSummary(s bench.LoadSummary) (string, error) {
	header := []string{
		"database", "test_type", "total_iterations", "queries_per_iteration",
		"batch_size_min", "batch_size_max",
		"overall_mean", "overall_median", "overall_p95", "overall_p99",
		"timestamp",
	}

	row := []string{
		s.Database,
		"load_test",
		strconv.Itoa(s.TotalIterations),
		strconv.Itoa(s.QueriesPerIteration),
		strconv.Itoa(s.BatchSizeMin),
		strconv.Itoa(s.BatchSizeMax),
		seconds(s.OverallMean),
		seconds(s.OverallMedian),
		seconds(s.OverallP95),
		seconds(s.OverallP99),
		s.Timestamp.Format(time.RFC3339),
	}

	return w.write(TestLoadSummary, header, [][]string{row})
}

// WriteSubstring writes one row per pattern that produced statistics.
func (w *Writer) WriteSubstring(results []bench.SubstringResult) (string, error) {
	header := []string{
		"substring", "mean_latency", "median_latency",
		"p95_latency", "p99_latency", "iterations",
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Substring,
			seconds(r.Stats.Mean),
			seconds(r.Stats.Median),
			seconds(r.Stats.P95),
			seconds(r.Stats.P99),
			strconv.Itoa(r.Stats.Count),
		})
	}

	return w.write(TestSubstring, header, rows)
}

func (w *Writer) write(testType string, header []string, rows [][]string) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir %s: %w", w.Dir, err)
	}

	name := fmt.Sprintf("%s_%s_%s", w.Backend, testType,
		time.Now().Format("20060102_150405"))

	if w.RunID != "" {
		id := w.RunID
		if len(id) > 8 {
			id = id[:8]
		}
		name += "_" + id
	}

	path := filepath.Join(w.Dir, name+".csv")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create result file %s: %w", path, err)
	}

	cw := csv.NewWriter(f)

	if err := cw.Write(header); err != nil {
		f.Close()

		return "", fmt.Errorf("write header: %w", err)
	}

	if err := cw.WriteAll(rows); err != nil {
		f.Close()

		return "", fmt.Errorf("write rows: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()

		return "", fmt.Errorf("flush %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	return path, nil
}

// Latest returns the most recent result file for the given backend and test
// type, or an error when none exists.
func Latest(dir, backendName, testType string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read results dir %s: %w", dir, err)
	}

	prefix := backendName + "_" + testType + "_"

	var (
		newest     string
		newestTime time.Time
	)

	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) ||
			!strings.HasSuffix(e.Name(), ".csv") {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		if newest == "" || info.ModTime().After(newestTime) {
			newest = e.Name()
			newestTime = info.ModTime()
		}
	}

	if newest == "" {
		return "", fmt.Errorf("no %s results for backend %s in %s",
			testType, backendName, dir)
	}

	return filepath.Join(dir, newest), nil
}

// SummarizeScalability writes a markdown table of the scalability points.
func SummarizeScalability(w io.Writer, points []bench.ScalabilityPoint) {
	fmt.Fprintln(w, "## Scalability Results")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Batch | Records | Insert | Query Mean | Query P95 | Query P99 |")
	fmt.Fprintln(w, "|-------|---------|--------|------------|-----------|-----------|")

	for _, p := range points {
		fmt.Fprintf(w, "| %d | %d | %s | %s | %s | %s |\n",
			p.BatchNumber,
			p.RecordsInDB,
			formatDuration(p.InsertTime),
			formatDuration(p.Query.Mean),
			formatDuration(p.Query.P95),
			formatDuration(p.Query.P99),
		)
	}

	fmt.Fprintln(w)
}

// SummarizeLoad writes a markdown summary of the load test.
func SummarizeLoad(w io.Writer, s bench.LoadSummary) {
	fmt.Fprintln(w, "## Load Test Results")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Backend **%s**: %d iterations x %d queries, batch size %d-%d\n",
		s.Database, s.TotalIterations, s.QueriesPerIteration,
		s.BatchSizeMin, s.BatchSizeMax)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Overall Mean | Overall Median | Overall P95 | Overall P99 |")
	fmt.Fprintln(w, "|--------------|----------------|-------------|-------------|")
	fmt.Fprintf(w, "| %s | %s | %s | %s |\n",
		formatDuration(s.OverallMean),
		formatDuration(s.OverallMedian),
		formatDuration(s.OverallP95),
		formatDuration(s.OverallP99),
	)
	fmt.Fprintln(w)
}

// SummarizeSubstring writes a markdown table of the substring results.
func SummarizeSubstring(w io.Writer, results []bench.SubstringResult) {
	fmt.Fprintln(w, "## Substring Search Results")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Pattern | Mean | Median | P95 | P99 | Queries |")
	fmt.Fprintln(w, "|---------|------|--------|-----|-----|---------|")

	for _, r := range results {
		fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %d |\n",
			r.Substring,
			formatDuration(r.Stats.Mean),
			formatDuration(r.Stats.Median),
			formatDuration(r.Stats.P95),
			formatDuration(r.Stats.P99),
			r.Stats.Count,
		)
	}

	fmt.Fprintln(w)
}

// seconds renders a duration as fractional seconds, the unit the result
// schema uses for every latency column.
func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
	}

	return fmt.Sprintf("%.2fs", d.Seconds())
}
