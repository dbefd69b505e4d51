package triage_test

import (
	"time"

	"deps-triage/triage"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }

func daysAgo(n int) *time.Time {
	t := fixedNow.Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}

func newEngine() *triage.Engine {
	return triage.NewEngine(triage.DefaultThresholds(), nil).WithClock(clock)
}

func leftPad() *triage.DependencyRecord {
	return &triage.DependencyRecord{
		Name:      "left-pad",
		Version:   "1.3.0",
		UpdatedAt: daysAgo(200),
		Metrics: &triage.PackageMetrics{
			Stars:        intPtr(5000),
			Contributors: intPtr(2),
			TotalScore:   floatPtr(45),
		},
	}
}

func axios() *triage.DependencyRecord {
	return &triage.DependencyRecord{
		Name:      "axios",
		Version:   "1.6.2",
		UpdatedAt: daysAgo(0),
		Metrics: &triage.PackageMetrics{
			Stars:        intPtr(50000),
			Contributors: intPtr(300),
			TotalScore:   floatPtr(95),
		},
	}
}

func names(records []*triage.DependencyRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}
