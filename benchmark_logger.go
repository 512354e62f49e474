package parbench

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// SessionEntry captures the result of a single configuration
type SessionEntry struct {
	Name           string    `json:"name"`
	Status         string    `json:"status"` // "pass", "fail", "error"
	Report         *Report   `json:"report,omitempty"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	CacheCondition string    `json:"cache_condition,omitempty"` // "hot" or "cold"
}

// SessionLogger records every configuration of a benchmark session to a
// JSON file, rewriting the file after each entry so that a crash loses
// nothing already measured.
type SessionLogger struct {
	mu      sync.Mutex
	entries []SessionEntry
	path    string
}

// NewSessionLogger creates dir if needed and starts a session file named
// after sessionName and the current time.
func NewSessionLogger(dir, sessionName string) (*SessionLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	l := &SessionLogger{
		path: filepath.Join(dir, fmt.Sprintf("%s_%s.json", sessionName, timestamp)),
	}
	if err := l.flush(); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the session file
func (l *SessionLogger) Path() string {
	return l.path
}

// LogReport records a measured configuration. A tolerance failure is
// logged with status "fail" and the report attached.
func (l *SessionLogger) LogReport(r *Report) error {
	status := "pass"
	if !r.Verify.Pass {
		status = "fail"
	}
	cache := "hot"
	if r.Config.ColdCache {
		cache = "cold"
	}
	return l.log(SessionEntry{Name: r.Key(), Status: status, Report: r, CacheCondition: cache})
}

// LogError records a configuration that could not be measured
func (l *SessionLogger) LogError(name string, err error) error {
	return l.log(SessionEntry{Name: name, Status: "error", Error: err.Error()})
}

func (l *SessionLogger) log(e SessionEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.Timestamp = time.Now()
	l.entries = append(l.entries, e)
	return l.flush()
}

// Entries returns a copy of everything logged so far
func (l *SessionLogger) Entries() []SessionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]SessionEntry(nil), l.entries...)
}

// flush writes entries to disk
func (l *SessionLogger) flush() error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if l.entries == nil {
		data = []byte("[]")
	}
	return os.WriteFile(l.path, data, 0644)
}

// LoadSession reads a session file written by SessionLogger
func LoadSession(path string) ([]SessionEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []SessionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return entries, nil
}

// LatestSession returns the most recently modified session file in dir
func LatestSession(dir string) (string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no session files in %s", dir)
	}

	var latest string
	var latestTime time.Time
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latest = file
			latestTime = info.ModTime()
		}
	}
	return latest, nil
}

// WriteSummary prints one line per entry followed by totals
func WriteSummary(w io.Writer, title string, entries []SessionEntry) {
	fmt.Fprintf(w, "\nBenchmark Summary from %s:\n", title)
	fmt.Fprintln(w, strings.Repeat("=", 72))

	passed, failed, errored := 0, 0, 0
	for _, e := range entries {
		switch e.Status {
		case "pass", "fail":
			mark := "✓"
			if e.Status == "pass" {
				passed++
			} else {
				failed++
				mark = "✗"
			}
			if e.Report == nil {
				fmt.Fprintf(w, "%s %-44s\n", mark, e.Name)
				continue
			}
			fmt.Fprintf(w, "%s %-44s %12.6fs  x%-6.2f", mark, e.Name, e.Report.Best.Elapsed, e.Report.Metrics.Speedup)
			if e.Report.Metrics.BandwidthGBs > 0 {
				fmt.Fprintf(w, " %8.2f GB/s", e.Report.Metrics.BandwidthGBs)
			}
			fmt.Fprintln(w)
		case "error":
			errored++
			fmt.Fprintf(w, "! %-44s ERROR: %s\n", e.Name, e.Error)
		}
	}

	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "Total: %d | Passed: %d | Tolerance failures: %d | Errors: %d\n",
		len(entries), passed, failed, errored)
}
