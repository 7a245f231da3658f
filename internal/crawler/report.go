package crawler

import (
	"time"

	"github.com/tkilaker/newsharvest/internal/extract"
)

// Report summarises a run.
type Report struct {
	RunID string

	// Keywords lists the searched keywords in order; QueriesByKeyword counts
	// the query URLs built for each. Both stay empty when seeds came from a
	// checkpoint.
	Keywords         []string
	QueriesByKeyword map[string]int
	Queries          int

	SeedsFromCheckpoint bool
	Seeds               int

	Processed int
	Skipped   int
	Records   []extract.Record
	Failures  []extract.Failure
	Templates map[string]int
	Recycles  int

	StartedAt       time.Time
	FinishedAt      time.Time
	SeedDuration    time.Duration
	ContentDuration time.Duration
}

func newReport(runID string, now time.Time) *Report {
	return &Report{
		RunID:            runID,
		QueriesByKeyword: make(map[string]int),
		Templates:        make(map[string]int),
		StartedAt:        now,
	}
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
