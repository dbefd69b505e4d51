package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"deps-triage/triage"
)

type Storage struct {
	DB *sql.DB
}

func (s *Storage) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS dependencies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project TEXT NOT NULL,
		name TEXT NOT NULL,
		version TEXT NOT NULL,
		relation TEXT,
		source_repo TEXT,
		risk REAL,
		tags TEXT,
		updated_at TEXT,
		total_score REAL,
		activity_score REAL,
		vulnerability_score REAL,
		license_score REAL,
		stars INTEGER,
		contributors INTEGER,
		license TEXT,
		status TEXT,
		UNIQUE(project, name)
	);`
	_, err := s.DB.ExecContext(ctx, query)
	return err
}

const dependencyColumns = `project, name, version, relation, source_repo, risk, tags, updated_at,
	total_score, activity_score, vulnerability_score, license_score, stars, contributors, license, status`

const upsertDependencyQuery = `
  INSERT INTO dependencies (` + dependencyColumns + `)
  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
  ON CONFLICT(project, name)
  DO UPDATE SET
    version = excluded.version,
    relation = excluded.relation,
    source_repo = excluded.source_repo,
    risk = excluded.risk,
    tags = excluded.tags,
    updated_at = excluded.updated_at,
    total_score = excluded.total_score,
    activity_score = excluded.activity_score,
    vulnerability_score = excluded.vulnerability_score,
    license_score = excluded.license_score,
    stars = excluded.stars,
    contributors = excluded.contributors,
    license = excluded.license,
    status = excluded.status;
`

func upsertArgs(dep Dependency) ([]any, error) {
	var tags any
	if len(dep.Tags) > 0 {
		b, err := json.Marshal(dep.Tags)
		if err != nil {
			return nil, err
		}
		tags = string(b)
	}
	var updatedAt any
	if dep.UpdatedAt != nil {
		updatedAt = dep.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return []any{
		dep.Project,
		dep.Name,
		dep.Version,
		dep.Relation,
		dep.SourceRepo,
		dep.Risk,
		tags,
		updatedAt,
		dep.TotalScore,
		dep.ActivityScore,
		dep.VulnerabilityScore,
		dep.LicenseScore,
		dep.Stars,
		dep.Contributors,
		dep.License,
		string(dep.Status),
	}, nil
}

func (s *Storage) UpsertDependencies(ctx context.Context, deps []Dependency) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertDependencyQuery)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, dep := range deps {
		args, err := upsertArgs(dep)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Storage) UpsertDependency(ctx context.Context, dep Dependency) error {
	args, err := upsertArgs(dep)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, upsertDependencyQuery, args...)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDependency(row scanner) (Dependency, error) {
	var (
		d                                     Dependency
		relation, sourceRepo, license         sql.NullString
		tags, updatedAt, status               sql.NullString
		risk, total, activity, vuln, licScore sql.NullFloat64
		stars, contributors                   sql.NullInt64
	)
	if err := row.Scan(&d.Project, &d.Name, &d.Version, &relation, &sourceRepo, &risk, &tags, &updatedAt,
		&total, &activity, &vuln, &licScore, &stars, &contributors, &license, &status); err != nil {
		return Dependency{}, err
	}

	d.Relation = relation.String
	d.SourceRepo = sourceRepo.String
	d.License = license.String
	d.Status = triage.Status(status.String)
	d.Risk = nullFloat(risk)
	d.TotalScore = nullFloat(total)
	d.ActivityScore = nullFloat(activity)
	d.VulnerabilityScore = nullFloat(vuln)
	d.LicenseScore = nullFloat(licScore)
	d.Stars = nullInt(stars)
	d.Contributors = nullInt(contributors)

	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &d.Tags); err != nil {
			return Dependency{}, fmt.Errorf("decoding tags for %s: %w", d.Name, err)
		}
	}
	if updatedAt.Valid && updatedAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, updatedAt.String)
		if err != nil {
			return Dependency{}, fmt.Errorf("decoding updated_at for %s: %w", d.Name, err)
		}
		d.UpdatedAt = &t
	}
	return d, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func (s *Storage) GetDependency(ctx context.Context, project, name string) (Dependency, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+dependencyColumns+` FROM dependencies WHERE project=? AND name=?`,
		project, name,
	)
	return scanDependency(row)
}

// ListDependenciesFiltered returns a project's rows in ingestion order.
func (s *Storage) ListDependenciesFiltered(ctx context.Context, project, name string, minScore *float64) ([]Dependency, error) {
	query := `SELECT ` + dependencyColumns + ` FROM dependencies WHERE project = ?`
	args := []any{project}

	if name != "" {
		query += " AND name LIKE ?"
		args = append(args, "%"+name+"%")
	}

	if minScore != nil {
		query += " AND total_score >= ?"
		args = append(args, *minScore)
	}

	query += " ORDER BY id"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Dependency
	for rows.Next() {
		d, err := scanDependency(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func (s *Storage) ListDependencies(ctx context.Context, project string) ([]Dependency, error) {
	return s.ListDependenciesFiltered(ctx, project, "", nil)
}

func (s *Storage) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT project, COUNT(*) FROM dependencies GROUP BY project ORDER BY project`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []ProjectSummary
	for rows.Next() {
		var p ProjectSummary
		if err := rows.Scan(&p.Name, &p.Dependencies); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (s *Storage) DeleteDependency(ctx context.Context, project, name string) error {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM dependencies WHERE project=? AND name=?`,
		project, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetDependenciesMap returns the stored rows matching deps, keyed by Dependency.Key.
func (s *Storage) GetDependenciesMap(ctx context.Context, deps []Dependency) (map[string]Dependency, error) {
	if len(deps) == 0 {
		return map[string]Dependency{}, nil
	}

	var (
		args       []any
		conditions []string
	)
	for _, dep := range deps {
		conditions = append(conditions, "(project = ? AND name = ?)")
		args = append(args, dep.Project, dep.Name)
	}

	query := fmt.Sprintf(`SELECT %s FROM dependencies WHERE %s;`,
		dependencyColumns, strings.Join(conditions, " OR "))

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]Dependency)
	for rows.Next() {
		dep, err := scanDependency(rows)
		if err != nil {
			return nil, err
		}
		result[dep.Key()] = dep
	}

	return result, rows.Err()
}
