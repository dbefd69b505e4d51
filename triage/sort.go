package triage

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

var (
	ErrUnknownSortKey   = errors.New("unknown sort key")
	ErrUnknownDirection = errors.New("unknown sort direction")
)

type SortKey string

const (
	SortName         SortKey = "name"
	SortVersion      SortKey = "version"
	SortContributors SortKey = "contributors"
	SortStars        SortKey = "stars"
	SortScore        SortKey = "score"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortState is owned by the caller. The zero value means unsorted.
type SortState struct {
	Key       SortKey   `json:"key,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

func (s SortState) IsSet() bool {
	return s.Key != "" && s.Direction != ""
}

// Toggle cycles the same key desc -> asc -> unset. Any other key starts at desc.
func (s SortState) Toggle(key SortKey) SortState {
	if s.Key != key || !s.IsSet() {
		return SortState{Key: key, Direction: Desc}
	}
	if s.Direction == Desc {
		return SortState{Key: key, Direction: Asc}
	}
	return SortState{}
}

func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(s)
	switch k {
	case SortName, SortVersion, SortContributors, SortStars, SortScore:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
}

func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	switch d {
	case Asc, Desc:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// ParseSortState accepts empty strings as unset. A key without a direction
// defaults to desc, the first state of the toggle cycle.
func ParseSortState(key, dir string) (SortState, error) {
	if key == "" {
		return SortState{}, nil
	}
	k, err := ParseSortKey(key)
	if err != nil {
		return SortState{}, err
	}
	if dir == "" {
		return SortState{Key: k, Direction: Desc}, nil
	}
	d, err := ParseDirection(dir)
	if err != nil {
		return SortState{}, err
	}
	return SortState{Key: k, Direction: d}, nil
}

func compareBy(key SortKey, records []*DependencyRecord) (func(a, b *DependencyRecord) int, error) {
	switch key {
	case SortName:
		folded := make(map[*DependencyRecord]string, len(records))
		for _, r := range records {
			folded[r] = fold(r.Name)
		}
		return func(a, b *DependencyRecord) int { return cmp.Compare(folded[a], folded[b]) }, nil
	case SortVersion:
		return func(a, b *DependencyRecord) int { return cmp.Compare(a.Version, b.Version) }, nil
	case SortContributors:
		return func(a, b *DependencyRecord) int { return cmp.Compare(Contributors(a), Contributors(b)) }, nil
	case SortStars:
		return func(a, b *DependencyRecord) int { return cmp.Compare(Stars(a), Stars(b)) }, nil
	case SortScore:
		return func(a, b *DependencyRecord) int { return cmp.Compare(RankScore(a), RankScore(b)) }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSortKey, key)
}

// Sort returns a stably sorted copy of records. An unset state returns the
// input order unchanged.
func Sort(records []*DependencyRecord, state SortState) ([]*DependencyRecord, error) {
	out := slices.Clone(records)
	if !state.IsSet() {
		return out, nil
	}
	compare, err := compareBy(state.Key, out)
	if err != nil {
		return nil, err
	}
	switch state.Direction {
	case Asc:
		slices.SortStableFunc(out, compare)
	case Desc:
		slices.SortStableFunc(out, func(a, b *DependencyRecord) int { return compare(b, a) })
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDirection, state.Direction)
	}
	return out, nil
}
