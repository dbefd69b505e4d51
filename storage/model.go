package storage

import (
	"time"

	"deps-triage/triage"
)

// Dependency is one row of the dependencies table.
type Dependency struct {
	Project    string
	Name       string
	Version    string
	Relation   string
	SourceRepo string
	Risk       *float64
	Tags       []string
	UpdatedAt  *time.Time

	TotalScore         *float64
	ActivityScore      *float64
	VulnerabilityScore *float64
	LicenseScore       *float64
	Stars              *int
	Contributors       *int
	License            string
	Status             triage.Status
}

type ProjectSummary struct {
	Name         string `json:"name"`
	Dependencies int    `json:"dependencies"`
}

func (d Dependency) Key() string {
	return d.Project + "|" + d.Name
}

func (d Dependency) hasMetrics() bool {
	return d.TotalScore != nil || d.ActivityScore != nil || d.VulnerabilityScore != nil ||
		d.LicenseScore != nil || d.Stars != nil || d.Contributors != nil ||
		d.License != "" || d.Status != ""
}

func (d Dependency) Record() *triage.DependencyRecord {
	r := &triage.DependencyRecord{
		Project:   d.Project,
		Name:      d.Name,
		Version:   d.Version,
		Risk:      d.Risk,
		Tags:      d.Tags,
		UpdatedAt: d.UpdatedAt,
	}
	if d.hasMetrics() {
		r.Metrics = &triage.PackageMetrics{
			TotalScore:         d.TotalScore,
			ActivityScore:      d.ActivityScore,
			VulnerabilityScore: d.VulnerabilityScore,
			LicenseScore:       d.LicenseScore,
			Stars:              d.Stars,
			Contributors:       d.Contributors,
			License:            d.License,
			Status:             d.Status,
		}
	}
	return r
}

func FromRecord(r *triage.DependencyRecord) Dependency {
	d := Dependency{
		Project:   r.Project,
		Name:      r.Name,
		Version:   r.Version,
		Risk:      r.Risk,
		Tags:      r.Tags,
		UpdatedAt: r.UpdatedAt,
	}
	if m := r.Metrics; m != nil {
		d.TotalScore = m.TotalScore
		d.ActivityScore = m.ActivityScore
		d.VulnerabilityScore = m.VulnerabilityScore
		d.LicenseScore = m.LicenseScore
		d.Stars = m.Stars
		d.Contributors = m.Contributors
		d.License = m.License
		d.Status = m.Status
	}
	return d
}

func Records(deps []Dependency) []*triage.DependencyRecord {
	out := make([]*triage.DependencyRecord, len(deps))
	for i, d := range deps {
		out[i] = d.Record()
	}
	return out
}
