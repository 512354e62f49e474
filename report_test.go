package parbench

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(kernel string, threads int, elapsed float64, pass bool) *Report {
	return &Report{
		Kernel:  kernel,
		Config:  QuickRunConfig(threads, Dynamic(64), LocalMerge, NoWait),
		Best:    TrialResult{Elapsed: elapsed},
		Metrics: Metrics{Speedup: 2, Efficiency: 0.5, BandwidthGBs: 10, MFLOPS: 100},
		Verify:  Outcome{Pass: pass, FirstMismatch: -1},
	}
}

func TestReportRecord(t *testing.T) {
	r := sampleReport("dmvm", 4, 0.25, true)
	assert.Equal(t, "dmvm/p4/dynamic,64/local+nowait", r.Key())

	rec := r.Record()
	require.Len(t, rec, len(CSVHeader))
	assert.Equal(t, []string{"dmvm", "4", "dynamic", "64", "local", "nowait"}, rec[:6])
	assert.Equal(t, "2.500000e-01", rec[6])
	assert.Equal(t, "pass", rec[11])
}

func TestCSVWriterStreams(t *testing.T) {
	var buf bytes.Buffer
	cw := NewCSVWriter(&buf)
	require.NoError(t, cw.Write(sampleReport("sum", 1, 1, true)))

	// The first row is visible before the sweep finishes
	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, CSVHeader, rows[0])

	require.NoError(t, cw.Write(sampleReport("sum", 2, 0.6, false)))
	rows, err = csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "fail", rows[2][11])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []*Report{sampleReport("a", 1, 1, true), sampleReport("b", 2, 1, true)}))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestReportJSON(t *testing.T) {
	data, err := json.Marshal(sampleReport("pi", 8, 0.1, true))
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Dynamic(64), decoded.Config.Policy)
	assert.Equal(t, NoWait, decoded.Config.Sync)
	assert.Equal(t, LocalMerge, decoded.Config.Reduction)
	assert.Contains(t, string(data), `"policy":"dynamic,64"`)
}
