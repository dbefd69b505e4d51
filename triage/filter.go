package triage

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

var ErrUnknownFilter = errors.New("unknown filter")

const (
	FilterHighRisk        = "high-risk"
	FilterStale           = "stale"
	FilterFewContributors = "few-contributors"
	FilterPopular         = "popular"
)

type Predicate func(r *DependencyRecord) bool

type FilterDefinition struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	Predicate   Predicate `json:"-"`
}

// Catalog is the closed set of filters. It is built once and never mutated.
type Catalog struct {
	defs  []FilterDefinition
	index map[string]int
}

func NewCatalog(c *Classifier) *Catalog {
	t := c.Thresholds
	defs := []FilterDefinition{
		{
			ID:          FilterHighRisk,
			Label:       "High risk",
			Description: fmt.Sprintf("Score at or below %g", t.HighRiskScore),
			Predicate:   c.HighRisk,
		},
		{
			ID:          FilterStale,
			Label:       "Stale",
			Description: fmt.Sprintf("Not updated in more than %d days", t.StaleDays),
			Predicate:   c.Stale,
		},
		{
			ID:          FilterFewContributors,
			Label:       "Few contributors",
			Description: fmt.Sprintf("Fewer than %d contributors", t.FewContributors),
			Predicate:   c.FewContributors,
		},
		{
			ID:          FilterPopular,
			Label:       "Popular",
			Description: fmt.Sprintf("At least %s stars", HumanizeCount(t.PopularStars)),
			Predicate:   c.Popular,
		},
	}

	index := make(map[string]int, len(defs))
	for i, d := range defs {
		index[d.ID] = i
	}
	return &Catalog{defs: defs, index: index}
}

// Definitions returns a copy of the catalog in display order.
func (c *Catalog) Definitions() []FilterDefinition {
	out := make([]FilterDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

func (c *Catalog) Lookup(id string) (FilterDefinition, error) {
	i, ok := c.index[id]
	if !ok {
		return FilterDefinition{}, fmt.Errorf("%w: %q", ErrUnknownFilter, id)
	}
	return c.defs[i], nil
}

// Compose ANDs the search match with every filter in ids. Duplicate ids are
// ignored and an empty id set means search only.
func (c *Catalog) Compose(search string, ids []string) (Predicate, error) {
	seen := make(map[string]bool, len(ids))
	var preds []Predicate
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		def, err := c.Lookup(id)
		if err != nil {
			return nil, err
		}
		preds = append(preds, def.Predicate)
	}

	match := SearchMatcher(search)
	return func(r *DependencyRecord) bool {
		if !match(r) {
			return false
		}
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}, nil
}

func SearchMatcher(search string) Predicate {
	if search == "" {
		return func(*DependencyRecord) bool { return true }
	}
	needle := fold(search)
	return func(r *DependencyRecord) bool {
		return strings.Contains(fold(r.Name), needle)
	}
}

// cases.Caser is stateful, so every call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}
