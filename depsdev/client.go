package depsdev

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

type DepsDevClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Fetch dependency graph
func (c *DepsDevClient) GetDependencyGraph(ctx context.Context, system, name, version string) (*DependencyGraph, error) {
	u := fmt.Sprintf("%s/systems/%s/packages/%s/versions/%s:dependencies",
		c.BaseURL, system, url.PathEscape(name), url.PathEscape(version))

	var graph DependencyGraph
	if err := c.getJSON(ctx, u, &graph); err != nil {
		return nil, fmt.Errorf("dependency graph for %s@%s: %w", name, version, err)
	}
	if graph.Error != "" {
		return nil, fmt.Errorf("dependency graph for %s@%s: %s", name, version, graph.Error)
	}
	return &graph, nil
}

// Fetch metadata for a single dependency
func (c *DepsDevClient) GetPackageMetadata(ctx context.Context, vk VersionKey) (*PackageVersionMetadata, error) {
	u := fmt.Sprintf("%s/systems/%s/packages/%s/versions/%s",
		c.BaseURL, vk.System, url.PathEscape(vk.Name), url.PathEscape(vk.Version))

	var meta PackageVersionMetadata
	if err := c.getJSON(ctx, u, &meta); err != nil {
		return nil, fmt.Errorf("package metadata for %s: %w", vk.Name, err)
	}
	return &meta, nil
}

// Fetch scorecard data for single project. A package without a source repo,
// or a repo without a scorecard, leaves the score fields nil.
func (c *DepsDevClient) GetScorecardData(ctx context.Context, meta *PackageVersionMetadata) (ScorecardInfo, error) {
	var projectID string
	for _, proj := range meta.RelatedProjects {
		if proj.RelationType == "SOURCE_REPO" {
			projectID = proj.ProjectKey.ID
			break
		}
	}

	info := ScorecardInfo{SourceRepo: projectID}
	if projectID == "" {
		return info, nil
	}

	var projMeta ProjectMetadata
	projectURL := fmt.Sprintf("%s/projects/%s", c.BaseURL, url.PathEscape(projectID))
	if err := c.getJSON(ctx, projectURL, &projMeta); err != nil {
		return info, fmt.Errorf("project metadata for %s: %w", projectID, err)
	}

	stars := projMeta.StarsCount
	info.Stars = &stars
	info.License = projMeta.License
	if sc := projMeta.Scorecard; sc != nil {
		score := sc.OverallScore
		info.OpenSSFScore = &score
		if len(sc.Checks) > 0 {
			info.Checks = make(map[string]float64, len(sc.Checks))
			for _, ch := range sc.Checks {
				info.Checks[ch.Name] = ch.Score
			}
		}
	}
	return info, nil
}

func (c *DepsDevClient) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
