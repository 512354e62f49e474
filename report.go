package parbench

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CSVHeader names the columns written by CSVWriter
var CSVHeader = []string{
	"kernel", "threads", "policy", "chunk", "strategy", "sync",
	"elapsed_seconds", "speedup", "efficiency", "bandwidth_gbs", "mflops",
	"verify", "max_diff",
}

// Key identifies the configuration of a report across sessions
func (r *Report) Key() string {
	return fmt.Sprintf("%s/p%d/%s/%s", r.Kernel, r.Config.Threads, r.Config.Policy, r.Config.Strategy())
}

// Record formats the report as one CSV row in CSVHeader order
func (r *Report) Record() []string {
	verify := "pass"
	if !r.Verify.Pass {
		verify = "fail"
	}
	g := func(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }
	return []string{
		r.Kernel,
		strconv.Itoa(r.Config.Threads),
		r.Config.Policy.Schedule.String(),
		strconv.Itoa(r.Config.Policy.Chunk),
		r.Config.Reduction.String(),
		r.Config.Sync.String(),
		strconv.FormatFloat(r.Best.Elapsed, 'e', 6, 64),
		g(r.Metrics.Speedup),
		g(r.Metrics.Efficiency),
		g(r.Metrics.BandwidthGBs),
		g(r.Metrics.MFLOPS),
		verify,
		strconv.FormatFloat(r.Verify.MaxDiff, 'e', 3, 64),
	}
}

// CSVWriter streams reports as CSV rows, writing the header before the
// first row. Each row is flushed as it is written so that an interrupted
// sweep leaves a complete file.
type CSVWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewCSVWriter creates a writer on w
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// Write appends one report
func (cw *CSVWriter) Write(r *Report) error {
	if !cw.wroteHeader {
		if err := cw.w.Write(CSVHeader); err != nil {
			return err
		}
		cw.wroteHeader = true
	}
	if err := cw.w.Write(r.Record()); err != nil {
		return err
	}
	cw.w.Flush()
	return cw.w.Error()
}

// WriteCSV writes the header and one row per report
func WriteCSV(w io.Writer, reports []*Report) error {
	cw := NewCSVWriter(w)
	for _, r := range reports {
		if err := cw.Write(r); err != nil {
			return err
		}
	}
	return nil
}
