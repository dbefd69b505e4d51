package triage

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusQueued Status = "queued"
	StatusFast   Status = "fast"
	StatusDone   Status = "done"
)

var statusRank = map[Status]int{
	StatusQueued: 0,
	StatusFast:   1,
	StatusDone:   2,
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := statusRank[st]; !ok {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// CanAdvanceTo reports whether moving from s to next keeps scoring monotonic.
// An empty status counts as not yet queued.
func (s Status) CanAdvanceTo(next Status) bool {
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	if s == "" {
		return true
	}
	from, ok := statusRank[s]
	return ok && to >= from
}

type PackageMetrics struct {
	TotalScore         *float64 `json:"totalScore,omitempty"`
	ActivityScore      *float64 `json:"activityScore,omitempty"`
	VulnerabilityScore *float64 `json:"vulnerabilityScore,omitempty"`
	LicenseScore       *float64 `json:"licenseScore,omitempty"`
	Stars              *int     `json:"stars,omitempty"`
	Contributors       *int     `json:"contributors,omitempty"`
	License            string   `json:"license,omitempty"`
	Status             Status   `json:"status,omitempty"`
}

// DependencyRecord is one tracked package within a project.
type DependencyRecord struct {
	Project   string          `json:"project,omitempty"`
	Name      string          `json:"name"`
	Version   string          `json:"version"`
	Risk      *float64        `json:"risk,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
	Metrics   *PackageMetrics `json:"metrics,omitempty"`
}

func (r *DependencyRecord) valid() bool {
	return r != nil && r.Name != ""
}
