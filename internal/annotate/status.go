/**
 * Annotation status state machine.
 *
 * NOT_STARTED -> IN_PROGRESS -> {COMPLETED, FAILED, EMPTY, TIMEOUT}. The four
 * right-hand states are terminal. TIMEOUT is a read-time reclassification by
 * polling readers, never written by the worker itself; a worker that finishes
 * late overwrites it with the real terminal status.
 */

package annotate

import "time"

// Status is the lifecycle state of one (document, annotation type) pair
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusEmpty      Status = "empty"
	StatusTimeout    Status = "timeout"
)

// DefaultStalenessWindow is how long a row may stay non-terminal before
// readers report it as timed out
const DefaultStalenessWindow = 600 * time.Second

// IsTerminal reports whether a status ends the lifecycle
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusEmpty, StatusTimeout:
		return true
	}
	return false
}

// EffectiveStatus applies the read-time staleness rule: a row still
// non-terminal past the window is reported as TIMEOUT. The stored value is
// untouched, so a late worker commit still wins.
func EffectiveStatus(stored Status, createdAt, now time.Time, window time.Duration) Status {
	if stored.IsTerminal() {
		return stored
	}
	if window <= 0 {
		window = DefaultStalenessWindow
	}
	if now.Sub(createdAt) > window {
		return StatusTimeout
	}
	return stored
}

// StatusRow is one annotation row as read back for progress reporting
type StatusRow struct {
	Type      Type
	Status    Status
	CreatedAt time.Time
	IsInsight bool
}

// Progress summarizes a document's annotation readiness
type Progress struct {
	Completed       int
	Total           int
	InsightComplete int
	InsightTotal    int
}

// Ratio returns completed/total, 1 when there is nothing to do
func (p Progress) Ratio() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Completed) / float64(p.Total)
}

// InsightRatio returns the ratio over insight-flagged types only
func (p Progress) InsightRatio() float64 {
	if p.InsightTotal == 0 {
		return 1
	}
	return float64(p.InsightComplete) / float64(p.InsightTotal)
}

// ComputeProgress counts terminal rows, applying the staleness rule, so a
// stuck document still converges to fully "completed" for progress purposes
func ComputeProgress(rows []StatusRow, now time.Time, window time.Duration) Progress {
	p := Progress{}
	for _, row := range rows {
		effective := EffectiveStatus(row.Status, row.CreatedAt, now, window)
		p.Total++
		if row.IsInsight {
			p.InsightTotal++
		}
		if effective.IsTerminal() {
			p.Completed++
			if row.IsInsight {
				p.InsightComplete++
			}
		}
	}
	return p
}
