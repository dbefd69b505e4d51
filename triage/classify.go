package triage

import "time"

// DefaultScore is used when a record carries no score at all; missing data is
// never treated as risk.
const DefaultScore = 100.0

const (
	DefaultHighRiskScore   = 60.0
	DefaultPopularStars    = 1000
	DefaultFewContributors = 5
	DefaultStaleDays       = 180

	mediumRiskScore = 80.0
	slowingDays     = 90
)

// Thresholds are used as given; zero is a valid policy value. Start from
// DefaultThresholds to override only some of them.
type Thresholds struct {
	HighRiskScore   float64 `yaml:"high_risk_score" json:"highRiskScore"`
	PopularStars    int     `yaml:"popular_stars" json:"popularStars"`
	FewContributors int     `yaml:"few_contributors" json:"fewContributors"`
	StaleDays       int     `yaml:"stale_days" json:"staleDays"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		HighRiskScore:   DefaultHighRiskScore,
		PopularStars:    DefaultPopularStars,
		FewContributors: DefaultFewContributors,
		StaleDays:       DefaultStaleDays,
	}
}

// EffectiveScore resolves the score used for risk classification:
// metrics total score, then the legacy record risk, then DefaultScore.
func EffectiveScore(r *DependencyRecord) float64 {
	if r.Metrics != nil && r.Metrics.TotalScore != nil {
		return *r.Metrics.TotalScore
	}
	if r.Risk != nil {
		return *r.Risk
	}
	return DefaultScore
}

// RankScore is the score used for ordering. Unlike EffectiveScore it sinks
// unscored records to the bottom.
func RankScore(r *DependencyRecord) float64 {
	if r.Metrics != nil && r.Metrics.TotalScore != nil {
		return *r.Metrics.TotalScore
	}
	if r.Risk != nil {
		return *r.Risk
	}
	return 0
}

func Stars(r *DependencyRecord) int {
	if r.Metrics == nil || r.Metrics.Stars == nil {
		return 0
	}
	return *r.Metrics.Stars
}

func Contributors(r *DependencyRecord) int {
	if r.Metrics == nil || r.Metrics.Contributors == nil {
		return 0
	}
	return *r.Metrics.Contributors
}

// Classifier evaluates records against a threshold policy at a fixed clock.
type Classifier struct {
	Thresholds Thresholds
	Now        func() time.Time
}

func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{Thresholds: t, Now: time.Now}
}

func (c *Classifier) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Classifier) HighRisk(r *DependencyRecord) bool {
	return EffectiveScore(r) <= c.Thresholds.HighRiskScore
}

func (c *Classifier) Popular(r *DependencyRecord) bool {
	return Stars(r) >= c.Thresholds.PopularStars
}

func (c *Classifier) FewContributors(r *DependencyRecord) bool {
	return Contributors(r) < c.Thresholds.FewContributors
}

// Stale is false without a timestamp: staleness has to be proven.
func (c *Classifier) Stale(r *DependencyRecord) bool {
	if r.UpdatedAt == nil {
		return false
	}
	return DaysBetween(*r.UpdatedAt, c.now()) > c.Thresholds.StaleDays
}

type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

func (c *Classifier) RiskLevel(r *DependencyRecord) RiskLevel {
	score := EffectiveScore(r)
	switch {
	case score <= c.Thresholds.HighRiskScore:
		return RiskHigh
	case score <= mediumRiskScore:
		return RiskMedium
	default:
		return RiskLow
	}
}

type ActivityLevel string

const (
	ActivityUnknown  ActivityLevel = "unknown"
	ActivityInactive ActivityLevel = "inactive"
	ActivitySlowing  ActivityLevel = "slowing"
	ActivityActive   ActivityLevel = "active"
)

func (c *Classifier) ActivityLevel(r *DependencyRecord) ActivityLevel {
	if r.UpdatedAt == nil {
		return ActivityUnknown
	}
	days := DaysBetween(*r.UpdatedAt, c.now())
	switch {
	case days > c.Thresholds.StaleDays:
		return ActivityInactive
	case days > slowingDays:
		return ActivitySlowing
	default:
		return ActivityActive
	}
}
