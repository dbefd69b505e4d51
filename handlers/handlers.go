package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"deps-triage/config"
	"deps-triage/storage"
	"deps-triage/triage"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type Storage interface {
	ListProjects(ctx context.Context) ([]storage.ProjectSummary, error)
	ListDependenciesFiltered(ctx context.Context, project, name string, minScore *float64) ([]storage.Dependency, error)
	GetDependency(ctx context.Context, project, name string) (storage.Dependency, error)
	UpsertDependency(ctx context.Context, dep storage.Dependency) error
	DeleteDependency(ctx context.Context, project, name string) error
}

type DataManager interface {
	RefreshDependencies(ctx context.Context, project, system, name, version string) error
}

type Handler struct {
	Store       Storage
	DataManager DataManager
	Engine      *triage.Engine
	Refresh     config.RefreshTarget
	Log         *logrus.Logger
}

// Routes mounts every endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/filters", h.ListFilters)
	r.Post("/sort/toggle", h.ToggleSort)

	r.Get("/projects", h.ListProjects)
	r.Route("/projects/{project}", func(r chi.Router) {
		r.Get("/triage", h.Triage)
		r.Post("/refresh", h.RefreshHandler)

		r.Get("/dependencies", h.ListDependencies)
		r.Post("/dependencies", h.CreateDependency)
		r.Get("/dependencies/{name}", h.GetDependency)
		r.Put("/dependencies/{name}", h.UpdateDependency)
		r.Delete("/dependencies/{name}", h.DeleteDependency)
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.WithError(err).Error("encoding response")
	}
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context())
	if err != nil {
		h.Log.WithError(err).Error("listing projects")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if projects == nil {
		projects = []storage.ProjectSummary{}
	}
	h.writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) ListDependencies(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	name := r.URL.Query().Get("name")
	minScoreStr := r.URL.Query().Get("min_score")

	var minScore *float64
	if minScoreStr != "" {
		if score, err := strconv.ParseFloat(minScoreStr, 64); err == nil {
			minScore = &score
		} else {
			http.Error(w, "invalid min_score value", http.StatusBadRequest)
			return
		}
	}

	deps, err := h.Store.ListDependenciesFiltered(r.Context(), project, name, minScore)
	if err != nil {
		h.Log.WithError(err).Error("listing dependencies with filters")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, h.Engine.DescribeAll(storage.Records(deps)))
}

func filterIDs(r *http.Request) []string {
	var ids []string
	for _, raw := range r.URL.Query()["filter"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Triage runs the filter and sort pipeline over a project's dependencies.
// All view state arrives on the query string: q, filter (repeatable or
// comma separated), sort and dir.
func (h *Handler) Triage(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	q := r.URL.Query()

	state, err := triage.ParseSortState(q.Get("sort"), q.Get("dir"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	deps, err := h.Store.ListDependenciesFiltered(r.Context(), project, "", nil)
	if err != nil {
		h.Log.WithError(err).Error("listing dependencies for triage")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	res, err := h.Engine.Triage(storage.Records(deps), q.Get("q"), filterIDs(r), state)
	if err != nil {
		if errors.Is(err, triage.ErrUnknownFilter) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.Log.WithError(err).Error("triaging dependencies")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, h.Engine.Report(res))
}

func (h *Handler) ListFilters(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.Engine.Catalog.Definitions())
}

type toggleRequest struct {
	State triage.SortState `json:"state"`
	Key   string           `json:"key"`
}

func (h *Handler) ToggleSort(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	key, err := triage.ParseSortKey(req.Key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusOK, req.State.Toggle(key))
}

func (h *Handler) GetDependency(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	name := chi.URLParam(r, "name")

	if project == "" || name == "" {
		http.Error(w, "missing path parameters", http.StatusBadRequest)
		return
	}

	dep, err := h.Store.GetDependency(r.Context(), project, name)
	if err != nil {
		h.notFoundOrError(w, err, project, name, "fetching dependency")
		return
	}

	h.writeJSON(w, http.StatusOK, h.Engine.Describe(dep.Record()))
}

func (h *Handler) notFoundOrError(w http.ResponseWriter, err error, project, name, msg string) {
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "dependency not found", http.StatusNotFound)
		return
	}
	h.Log.WithFields(logrus.Fields{
		"project": project,
		"name":    name,
	}).WithError(err).Error(msg)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (h *Handler) CreateDependency(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")

	var rec triage.DependencyRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	if rec.Name == "" || rec.Version == "" {
		http.Error(w, "name and version are required", http.StatusBadRequest)
		return
	}
	rec.Project = project
	if rec.Metrics != nil && rec.Metrics.Status != "" {
		if _, err := triage.ParseStatus(string(rec.Metrics.Status)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	_, err := h.Store.GetDependency(r.Context(), project, rec.Name)
	switch {
	case err == nil:
		http.Error(w, "dependency already exists", http.StatusConflict)
		return
	case !errors.Is(err, sql.ErrNoRows):
		h.Log.WithError(err).Error("checking for existing dependency")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.Store.UpsertDependency(r.Context(), storage.FromRecord(&rec)); err != nil {
		h.Log.WithError(err).Error("creating dependency")
		http.Error(w, "failed to create dependency", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

type DependencyUpdateRequest struct {
	Version      *string    `json:"version,omitempty"`
	Risk         *float64   `json:"risk,omitempty"`
	Tags         *[]string  `json:"tags,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	TotalScore   *float64   `json:"totalScore,omitempty"`
	Stars        *int       `json:"stars,omitempty"`
	Contributors *int       `json:"contributors,omitempty"`
	License      *string    `json:"license,omitempty"`
	Status       *string    `json:"status,omitempty"`
}

func (h *Handler) UpdateDependency(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	name := chi.URLParam(r, "name")

	var input DependencyUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	current, err := h.Store.GetDependency(r.Context(), project, name)
	if err != nil {
		h.notFoundOrError(w, err, project, name, "fetching dependency for update")
		return
	}

	if input.Status != nil {
		next, err := triage.ParseStatus(*input.Status)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if !current.Status.CanAdvanceTo(next) {
			http.Error(w, "status cannot move backwards", http.StatusConflict)
			return
		}
		current.Status = next
	}
	if input.Version != nil {
		current.Version = *input.Version
	}
	if input.Risk != nil {
		current.Risk = input.Risk
	}
	if input.Tags != nil {
		current.Tags = *input.Tags
	}
	if input.UpdatedAt != nil {
		current.UpdatedAt = input.UpdatedAt
	}
	if input.TotalScore != nil {
		current.TotalScore = input.TotalScore
	}
	if input.Stars != nil {
		current.Stars = input.Stars
	}
	if input.Contributors != nil {
		current.Contributors = input.Contributors
	}
	if input.License != nil {
		current.License = *input.License
	}

	if err := h.Store.UpsertDependency(r.Context(), current); err != nil {
		h.Log.WithError(err).Error("updating dependency")
		http.Error(w, "failed to update dependency", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) DeleteDependency(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	name := chi.URLParam(r, "name")

	if project == "" || name == "" {
		http.Error(w, "missing path parameters", http.StatusBadRequest)
		return
	}

	if err := h.Store.DeleteDependency(r.Context(), project, name); err != nil {
		h.notFoundOrError(w, err, project, name, "deleting dependency")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type refreshRequest struct {
	System  string `json:"system"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// RefreshHandler re-ingests a project. An empty body refreshes the configured
// default package.
func (h *Handler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")

	req := refreshRequest{
		System:  h.Refresh.System,
		Name:    h.Refresh.Package,
		Version: h.Refresh.Version,
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.System == "" || req.Name == "" || req.Version == "" {
		http.Error(w, "system, name, and version are required", http.StatusBadRequest)
		return
	}

	err := h.DataManager.RefreshDependencies(r.Context(), project, req.System, req.Name, req.Version)
	if err != nil {
		h.Log.WithError(err).Error("failed to refresh dependencies")
		http.Error(w, "failed to refresh dependencies", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
