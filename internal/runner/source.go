// -----------------------------------------------------------------------
// Progress Source - Explicit source selection and percent/ETA derivation
// -----------------------------------------------------------------------

package runner

import (
	"math"
	"os"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hydrun/internal/models"
)

// Extractor turns raw telemetry into Progress snapshots. It never reports
// errors upward; a failed read keeps the previous snapshot or substitutes
// the wall-clock heuristic.
type Extractor struct {
	logger arbor.ILogger

	tailLines     int           // stdout lines scanned for PROGRESS markers
	estimateAfter time.Duration // minimum elapsed time before ETA is computed
	heuristicCap  float64       // percent ceiling for the wall-clock fallback
}

// NewExtractor builds an extractor with the supplied tuning. Zero values
// fall back to the shipped defaults.
func NewExtractor(logger arbor.ILogger, tailLines int, estimateAfter time.Duration, heuristicCap float64) *Extractor {
	if tailLines <= 0 {
		tailLines = 20
	}
	if estimateAfter <= 0 {
		estimateAfter = 10 * time.Second
	}
	if heuristicCap <= 0 {
		heuristicCap = 95
	}
	return &Extractor{
		logger:        logger,
		tailLines:     tailLines,
		estimateAfter: estimateAfter,
		heuristicCap:  heuristicCap,
	}
}

// DecideSource picks the telemetry source for the current poll. Priority
// order is fixed: a readable progress file wins, then the stdout log,
// then the wall-clock heuristic. Re-evaluated every poll so a solver that
// starts writing progress.json mid-run is picked up.
func (e *Extractor) DecideSource(job *models.Job) models.ProgressSource {
	if job.ProgressFilePath != "" {
		if info, err := os.Stat(job.ProgressFilePath); err == nil && info.Size() > 0 {
			return models.StructuredSource
		}
	}
	if job.StdoutLogPath != "" {
		if info, err := os.Stat(job.StdoutLogPath); err == nil && info.Size() > 0 {
			return models.LogTailSource
		}
	}
	return models.WallClockFallback
}

// Update computes the next Progress snapshot for the job and replaces
// job.Progress wholesale. Percent never regresses and never reaches 100
// while the job is running.
func (e *Extractor) Update(job *models.Job) {
	prev := job.Progress
	source := e.DecideSource(job)

	var next models.Progress

	switch source {
	case models.StructuredSource:
		t, err := ParseProgressFile(job.ProgressFilePath)
		if err != nil {
			e.logger.Debug().Err(err).Str("job", job.Name).Msg("Progress file unreadable, keeping previous snapshot")
			next = e.fallback(job, prev)
		} else {
			next = e.fromTelemetry(job, t, models.StructuredSource)
		}

	case models.LogTailSource:
		lines, err := ReadTailLines(job.StdoutLogPath, e.tailLines)
		if err != nil {
			e.logger.Debug().Err(err).Str("job", job.Name).Msg("Stdout log unreadable, keeping previous snapshot")
			next = e.fallback(job, prev)
			break
		}
		t, ok := ParseLogTail(lines)
		if !ok {
			next = e.wallClock(job)
			break
		}
		next = e.fromTelemetry(job, t, models.LogTailSource)

	default:
		next = e.wallClock(job)
	}

	// Monotonic guard: a malformed read must not regress percent
	if next.Percent < prev.Percent {
		next.Percent = prev.Percent
	}

	next.Remaining = e.estimateRemaining(job, next.Percent)
	next.UpdatedAt = time.Now()
	job.Progress = next
}

// fromTelemetry derives percent from simulated time against the duration
// hint. With no hint the wall-clock heuristic supplies the percent while
// the telemetry fields are kept.
func (e *Extractor) fromTelemetry(job *models.Job, t telemetry, source models.ProgressSource) models.Progress {
	p := models.Progress{
		Cycle:       t.Cycle,
		MaxCycles:   t.MaxCycles,
		SimTime:     t.TimeHours,
		DOH:         t.DOH,
		Temperature: t.TempC,
		PH:          t.PH,
		Source:      source,
	}
	if job.MaxDurationHintHours > 0 {
		p.Percent = math.Min(100*t.TimeHours/job.MaxDurationHintHours, 99)
	} else {
		p.Percent = e.wallClockPercent(job)
	}
	return p
}

// fallback keeps the previous snapshot when one exists, otherwise drops
// to the wall-clock heuristic.
func (e *Extractor) fallback(job *models.Job, prev models.Progress) models.Progress {
	if prev.Source != "" {
		return prev
	}
	return e.wallClock(job)
}

func (e *Extractor) wallClock(job *models.Job) models.Progress {
	return models.Progress{
		Percent: e.wallClockPercent(job),
		Source:  models.WallClockFallback,
	}
}

// wallClockPercent assumes multi-day runs: roughly one percent per two
// hours of wall time, capped well below completion.
func (e *Extractor) wallClockPercent(job *models.Job) float64 {
	return math.Min(job.Elapsed().Minutes()/120, e.heuristicCap)
}

// estimateRemaining linearly extrapolates total runtime from percent
// complete. No estimate is produced inside the startup window or at 0%.
func (e *Extractor) estimateRemaining(job *models.Job, percent float64) time.Duration {
	elapsed := job.Elapsed()
	if elapsed <= e.estimateAfter || percent <= 0 || percent >= 100 {
		return 0
	}
	estimatedTotal := time.Duration(float64(elapsed) * (100 / percent))
	remaining := estimatedTotal - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
