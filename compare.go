package parbench

import (
	"fmt"
	"sort"
)

// Comparison statuses
const (
	ComparePass    = "PASS"
	CompareFaster  = "FASTER"
	CompareSlower  = "SLOWER"
	CompareFail    = "FAIL"
	CompareMissing = "MISSING"
)

// Comparison is the verdict for one configuration measured in two sessions
type Comparison struct {
	Name            string
	Status          string
	BaselineSeconds float64
	CurrentSeconds  float64
	// Baseline time over current time; above 1 means the current run is faster
	SpeedupFactor float64
	Message       string
}

// CompareSessions matches entries by name and classifies each baseline
// configuration. A current run is SLOWER when it takes more than regress
// times the baseline time, and FASTER when it beats the baseline by more
// than the same factor. A tolerance failure or error in the current session
// is a FAIL regardless of timing.
func CompareSessions(baseline, current []SessionEntry, regress float64) []Comparison {
	if regress < 1 {
		regress = 1
	}
	currentByName := make(map[string]SessionEntry, len(current))
	for _, e := range current {
		currentByName[e.Name] = e
	}

	out := make([]Comparison, 0, len(baseline))
	for _, base := range baseline {
		if base.Report == nil {
			continue
		}
		comp := Comparison{Name: base.Name, BaselineSeconds: base.Report.Best.Elapsed}

		curr, ok := currentByName[base.Name]
		switch {
		case !ok:
			comp.Status = CompareMissing
			comp.Message = "configuration missing in current session"
		case curr.Status == "error" || curr.Report == nil:
			comp.Status = CompareFail
			comp.Message = "current run failed: " + curr.Error
		default:
			comp.CurrentSeconds = curr.Report.Best.Elapsed
			comp.SpeedupFactor = Speedup(comp.BaselineSeconds, comp.CurrentSeconds)
			switch {
			case !curr.Report.Verify.Pass:
				comp.Status = CompareFail
				comp.Message = fmt.Sprintf("result outside tolerance: max_diff=%e", curr.Report.Verify.MaxDiff)
			case comp.SpeedupFactor < 1/regress:
				comp.Status = CompareSlower
				comp.Message = fmt.Sprintf("performance regression: %.2fx slower", 1/comp.SpeedupFactor)
			case comp.SpeedupFactor > regress:
				comp.Status = CompareFaster
				comp.Message = fmt.Sprintf("performance improvement: %.2fx faster", comp.SpeedupFactor)
			default:
				comp.Status = ComparePass
			}
		}
		out = append(out, comp)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
