package data

import (
	"context"
	"sync"
	"sync/atomic"

	"deps-triage/depsdev"
	"deps-triage/storage"
	"deps-triage/triage"

	"github.com/sirupsen/logrus"
)

// TagVulnerable marks dependencies whose version has published advisories.
const TagVulnerable = "vulnerable"

type Storage interface {
	UpsertDependency(ctx context.Context, dep storage.Dependency) error
	UpsertDependencies(ctx context.Context, deps []storage.Dependency) error
	GetDependenciesMap(ctx context.Context, deps []storage.Dependency) (map[string]storage.Dependency, error)
}

type DepsDevAPI interface {
	GetDependencyGraph(ctx context.Context, system, name, version string) (*depsdev.DependencyGraph, error)
	GetPackageMetadata(ctx context.Context, vk depsdev.VersionKey) (*depsdev.PackageVersionMetadata, error)
	GetScorecardData(ctx context.Context, meta *depsdev.PackageVersionMetadata) (depsdev.ScorecardInfo, error)
}

type DataManager struct {
	Store         Storage
	API           DepsDevAPI
	Log           *logrus.Logger
	MaxConcurrent int
}

// RefreshDependencies ingests the graph of system/name@version into project.
// Every node is stored as queued first, then scored in the background
// fan-out: version metadata moves it to fast, the scorecard to done.
func (dm *DataManager) RefreshDependencies(ctx context.Context, project, system, name, version string) error {
	log := dm.Log.WithFields(logrus.Fields{"project": project, "package": name, "version": version})
	log.Infof("Fetching dependencies for %s/%s@%s", system, name, version)

	graph, err := dm.API.GetDependencyGraph(ctx, system, name, version)
	if err != nil {
		log.WithError(err).Error("failed to fetch dependencies")
		return err
	}

	nodes := dedupeNodes(graph.Nodes)
	incoming := make([]storage.Dependency, 0, len(nodes))
	for _, node := range nodes {
		incoming = append(incoming, storage.Dependency{
			Project:  project,
			Name:     node.VersionKey.Name,
			Version:  node.VersionKey.Version,
			Relation: node.Relation,
			Status:   triage.StatusQueued,
		})
	}

	existingMap, err := dm.Store.GetDependenciesMap(ctx, incoming)
	if err != nil {
		log.WithError(err).Error("failed to get existing dependencies")
		return err
	}

	queued := make([]storage.Dependency, 0, len(incoming))
	for _, dep := range incoming {
		if existing, found := existingMap[dep.Key()]; found {
			dep = requeue(existing, dep)
		}
		queued = append(queued, dep)
	}

	if err := dm.Store.UpsertDependencies(ctx, queued); err != nil {
		log.WithError(err).Error("failed to upsert dependencies to database")
		return err
	}
	log.Infof("Queued %d dependencies for scoring", len(queued))

	done := dm.score(ctx, nodes, queued)
	log.Infof("Scored %d of %d dependencies", done, len(queued))
	return ctx.Err()
}

var relationRank = map[string]int{
	"SELF":   0,
	"DIRECT": 1,
}

// dedupeNodes keeps one node per package name, since rows are keyed by
// project and name. SELF beats DIRECT beats anything else; ties keep the
// first occurrence. Output order follows first appearance of each name.
func dedupeNodes(nodes []depsdev.DependencyNode) []depsdev.DependencyNode {
	rank := func(n depsdev.DependencyNode) int {
		if r, ok := relationRank[n.Relation]; ok {
			return r
		}
		return len(relationRank)
	}

	index := make(map[string]int, len(nodes))
	out := make([]depsdev.DependencyNode, 0, len(nodes))
	for _, node := range nodes {
		i, seen := index[node.VersionKey.Name]
		if !seen {
			index[node.VersionKey.Name] = len(out)
			out = append(out, node)
			continue
		}
		if rank(node) < rank(out[i]) {
			out[i] = node
		}
	}
	return out
}

func (dm *DataManager) score(ctx context.Context, nodes []depsdev.DependencyNode, queued []storage.Dependency) int64 {
	limit := dm.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}

	var (
		wg   sync.WaitGroup
		sem  = make(chan struct{}, limit)
		done atomic.Int64
	)

	for i, node := range nodes {
		wg.Add(1)
		go func(node depsdev.DependencyNode, current storage.Dependency) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			if dm.scoreOne(ctx, node, current) {
				done.Add(1)
			}
		}(node, queued[i])
	}

	wg.Wait()
	return done.Load()
}

// scoreOne leaves the row at its last successful status on failure.
func (dm *DataManager) scoreOne(ctx context.Context, node depsdev.DependencyNode, current storage.Dependency) bool {
	log := dm.Log.WithFields(logrus.Fields{"project": current.Project, "dependency": current.Name})

	meta, err := dm.API.GetPackageMetadata(ctx, node.VersionKey)
	if err != nil {
		log.WithError(err).Warn("failed to fetch package metadata")
		return false
	}

	fast := storage.Dependency{
		UpdatedAt: meta.PublishedAt,
		Status:    triage.StatusFast,
	}
	if len(meta.Licenses) > 0 {
		fast.License = meta.Licenses[0]
	}
	if len(meta.AdvisoryKeys) > 0 {
		fast.Tags = []string{TagVulnerable}
	}
	current = merge(current, fast)
	if err := dm.Store.UpsertDependency(ctx, current); err != nil {
		log.WithError(err).Error("failed to store fast metrics")
		return false
	}

	scorecard, err := dm.API.GetScorecardData(ctx, meta)
	if err != nil {
		log.WithError(err).Warn("failed to fetch scorecard")
		return false
	}
	current = merge(current, fromMetrics(scorecard.Metrics()))
	if scorecard.SourceRepo != "" {
		current.SourceRepo = scorecard.SourceRepo
	}
	if err := dm.Store.UpsertDependency(ctx, current); err != nil {
		log.WithError(err).Error("failed to store scorecard metrics")
		return false
	}
	return true
}

func fromMetrics(m *triage.PackageMetrics) storage.Dependency {
	return storage.FromRecord(&triage.DependencyRecord{Metrics: m})
}
