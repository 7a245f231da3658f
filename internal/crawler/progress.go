package crawler

import (
	"sync"
	"time"
)

// Stage is the phase a run is in.
type Stage string

const (
	StageStarting          Stage = "starting"
	StageResolvingSeeds    Stage = "resolving_seeds"
	StageCollectingContent Stage = "collecting_content"
	StagePersisting        Stage = "persisting"
	StageDone              Stage = "done"
	StageFailed            Stage = "failed"
)

// Progress is a snapshot of a run.
type Progress struct {
	RunID     string    `json:"run_id"`
	Stage     Stage     `json:"stage"`
	Message   string    `json:"message,omitempty"`
	Current   int       `json:"current"`
	Total     int       `json:"total"`
	Records   int       `json:"records"`
	Failures  int       `json:"failures"`
	Skipped   int       `json:"skipped"`
	Timestamp time.Time `json:"timestamp"`
}

// ProgressTracker tracks the progress of a run. It is safe for concurrent use.
type ProgressTracker struct {
	mu      sync.RWMutex
	current Progress
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		current: Progress{
			Stage:     StageStarting,
			Timestamp: time.Now(),
		},
	}
}

func (pt *ProgressTracker) update(fn func(p *Progress)) {
	if pt == nil {
		return
	}
	pt.mu.Lock()
	defer pt.mu.Unlock()
	fn(&pt.current)
	pt.current.Timestamp = time.Now()
}

// Start resets the tracker for a new run.
func (pt *ProgressTracker) Start(runID string) {
	pt.update(func(p *Progress) {
		*p = Progress{RunID: runID, Stage: StageStarting}
	})
}

// UpdateStage moves to stage and resets the item counts.
func (pt *ProgressTracker) UpdateStage(stage Stage, message string) {
	pt.update(func(p *Progress) {
		p.Stage = stage
		p.Message = message
		p.Current = 0
		p.Total = 0
	})
}

// UpdateProgress updates the item counts
func (pt *ProgressTracker) UpdateProgress(current, total int, message string) {
	pt.update(func(p *Progress) {
		p.Current = current
		p.Total = total
		p.Message = message
	})
}

// Finish marks the run done or failed without touching the counts.
func (pt *ProgressTracker) Finish(err error) {
	pt.update(func(p *Progress) {
		if err != nil {
			p.Stage = StageFailed
			p.Message = err.Error()
			return
		}
		p.Stage = StageDone
		p.Message = ""
	})
}

func (pt *ProgressTracker) addRecord()  { pt.update(func(p *Progress) { p.Records++ }) }
func (pt *ProgressTracker) addFailure() { pt.update(func(p *Progress) { p.Failures++ }) }
func (pt *ProgressTracker) addSkipped() { pt.update(func(p *Progress) { p.Skipped++ }) }

// Current returns the latest snapshot.
func (pt *ProgressTracker) Current() Progress {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.current
}
