package triage

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

type Result struct {
	Records []*DependencyRecord `json:"results"`
	Total   int                 `json:"total"`
	Matched int                 `json:"matched"`
	Skipped int                 `json:"skipped"`
}

// Engine holds no per-call state; search, filters and sort are passed in on
// every call.
type Engine struct {
	Classifier *Classifier
	Catalog    *Catalog
	Log        *logrus.Logger
}

func NewEngine(t Thresholds, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	c := NewClassifier(t)
	return &Engine{
		Classifier: c,
		Catalog:    NewCatalog(c),
		Log:        log,
	}
}

// WithClock pins the classifier clock, mostly for tests and offline runs.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.Classifier.Now = now
	return e
}

// Triage drops malformed records, filters, then sorts. The returned records
// are the input pointers, unmodified.
func (e *Engine) Triage(records []*DependencyRecord, search string, filterIDs []string, state SortState) (Result, error) {
	match, err := e.Catalog.Compose(search, filterIDs)
	if err != nil {
		return Result{}, err
	}

	res := Result{Total: len(records)}
	filtered := make([]*DependencyRecord, 0, len(records))
	for _, r := range records {
		if !r.valid() {
			res.Skipped++
			continue
		}
		if match(r) {
			filtered = append(filtered, r)
		}
	}
	res.Matched = len(filtered)

	if res.Skipped > 0 {
		e.Log.WithField("skipped", res.Skipped).Warn("skipping dependency records without a name")
	}

	res.Records, err = Sort(filtered, state)
	if err != nil {
		return Result{}, err
	}
	return res, nil
}
