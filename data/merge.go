package data

import (
	"slices"

	"deps-triage/storage"
	"deps-triage/triage"
)

// merge copies the non-empty fields of incoming over existing. Tags are
// unioned and the status only ever moves forward.
func merge(existing, incoming storage.Dependency) storage.Dependency {
	merged := existing

	if incoming.Version != "" {
		merged.Version = incoming.Version
	}
	if incoming.Relation != "" {
		merged.Relation = incoming.Relation
	}
	if incoming.SourceRepo != "" {
		merged.SourceRepo = incoming.SourceRepo
	}
	if incoming.License != "" {
		merged.License = incoming.License
	}
	mergePtr(&merged.Risk, incoming.Risk)
	mergePtr(&merged.UpdatedAt, incoming.UpdatedAt)
	mergePtr(&merged.TotalScore, incoming.TotalScore)
	mergePtr(&merged.ActivityScore, incoming.ActivityScore)
	mergePtr(&merged.VulnerabilityScore, incoming.VulnerabilityScore)
	mergePtr(&merged.LicenseScore, incoming.LicenseScore)
	mergePtr(&merged.Stars, incoming.Stars)
	mergePtr(&merged.Contributors, incoming.Contributors)

	for _, tag := range incoming.Tags {
		if !slices.Contains(merged.Tags, tag) {
			merged.Tags = append(slices.Clone(merged.Tags), tag)
		}
	}

	if incoming.Status != "" && existing.Status.CanAdvanceTo(incoming.Status) {
		merged.Status = incoming.Status
	}
	return merged
}

func mergePtr[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}

// requeue prepares a stored row for a new scoring round. A version change
// drops the scored metrics of the old version; user-managed fields survive.
func requeue(existing, incoming storage.Dependency) storage.Dependency {
	if existing.Version != incoming.Version {
		fresh := incoming
		fresh.Risk = existing.Risk
		fresh.Tags = slices.DeleteFunc(slices.Clone(existing.Tags), func(t string) bool { return t == TagVulnerable })
		fresh.Contributors = existing.Contributors
		fresh.SourceRepo = existing.SourceRepo
		return fresh
	}

	merged := merge(existing, incoming)
	merged.Status = triage.StatusQueued
	return merged
}
