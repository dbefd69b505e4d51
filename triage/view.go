package triage

// View decorates a record with the derived fields a dashboard displays.
type View struct {
	*DependencyRecord
	EffectiveScore float64       `json:"effectiveScore"`
	RiskLevel      RiskLevel     `json:"riskLevel"`
	ActivityLevel  ActivityLevel `json:"activityLevel"`
	StarsLabel     string        `json:"starsLabel"`
	UpdatedAgo     string        `json:"updatedAgo,omitempty"`
}

func (e *Engine) Describe(r *DependencyRecord) View {
	c := e.Classifier
	v := View{
		DependencyRecord: r,
		EffectiveScore:   EffectiveScore(r),
		RiskLevel:        c.RiskLevel(r),
		ActivityLevel:    c.ActivityLevel(r),
		StarsLabel:       HumanizeCount(Stars(r)),
	}
	if r.UpdatedAt != nil {
		v.UpdatedAgo = RelativeAge(*r.UpdatedAt, c.now())
	}
	return v
}

func (e *Engine) DescribeAll(records []*DependencyRecord) []View {
	out := make([]View, 0, len(records))
	for _, r := range records {
		out = append(out, e.Describe(r))
	}
	return out
}

// Report is the display form of a Result.
type Report struct {
	Results []View `json:"results"`
	Total   int    `json:"total"`
	Matched int    `json:"matched"`
	Skipped int    `json:"skipped"`
}

func (e *Engine) Report(res Result) Report {
	return Report{
		Results: e.DescribeAll(res.Records),
		Total:   res.Total,
		Matched: res.Matched,
		Skipped: res.Skipped,
	}
}
