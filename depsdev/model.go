package depsdev

import (
	"time"

	"deps-triage/triage"
)

type VersionKey struct {
	System  string `json:"system"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

type DependencyNode struct {
	VersionKey VersionKey `json:"versionKey"`
	Relation   string     `json:"relation"`
}

type DependencyGraph struct {
	Nodes []DependencyNode `json:"nodes"`
	Error string           `json:"error"`
}

type ProjectKey struct {
	ID string `json:"id"`
}

type RelatedProject struct {
	ProjectKey         ProjectKey `json:"projectKey"`
	RelationType       string     `json:"relationType"`
	RelationProvenance string     `json:"relationProvenance,omitempty"`
}

type AdvisoryKey struct {
	ID string `json:"id"`
}

type PackageVersionMetadata struct {
	PublishedAt     *time.Time       `json:"publishedAt,omitempty"`
	Licenses        []string         `json:"licenses"`
	AdvisoryKeys    []AdvisoryKey    `json:"advisoryKeys"`
	RelatedProjects []RelatedProject `json:"relatedProjects"`
}

type ScorecardCheck struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type Scorecard struct {
	OverallScore float64          `json:"overallScore"`
	Checks       []ScorecardCheck `json:"checks"`
}

// ProjectMetadata.Scorecard is nil for projects OpenSSF has not scored.
type ProjectMetadata struct {
	StarsCount int        `json:"starsCount"`
	License    string     `json:"license"`
	Scorecard  *Scorecard `json:"scorecard"`
}

type ScorecardInfo struct {
	SourceRepo   string
	OpenSSFScore *float64
	Stars        *int
	License      string
	Checks       map[string]float64
}

const (
	CheckMaintained      = "Maintained"
	CheckVulnerabilities = "Vulnerabilities"
	CheckLicense         = "License"
)

// Metrics maps the 0-10 scorecard scale onto the 0-100 scale the dashboard
// uses. Checks scored -1 were inconclusive and stay absent.
func (s ScorecardInfo) Metrics() *triage.PackageMetrics {
	m := &triage.PackageMetrics{
		Stars:   s.Stars,
		License: s.License,
		Status:  triage.StatusDone,
	}
	if s.OpenSSFScore != nil {
		m.TotalScore = scale(*s.OpenSSFScore)
	}
	m.ActivityScore = s.check(CheckMaintained)
	m.VulnerabilityScore = s.check(CheckVulnerabilities)
	m.LicenseScore = s.check(CheckLicense)
	return m
}

func (s ScorecardInfo) check(name string) *float64 {
	v, ok := s.Checks[name]
	if !ok || v < 0 {
		return nil
	}
	return scale(v)
}

func scale(v float64) *float64 {
	out := v * 10
	return &out
}
