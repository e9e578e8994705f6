package models

import "time"

// ProgressSource identifies which extraction path produced a snapshot
type ProgressSource string

const (
	StructuredSource  ProgressSource = "structured" // progress.json written by the solver
	LogTailSource     ProgressSource = "log_tail"   // PROGRESS: lines parsed from stdout
	WallClockFallback ProgressSource = "wall_clock" // elapsed-time heuristic
)

// HeatPerDOH converts degree of hydration to cumulative heat released in
// J/g of cement. The solver reports DOH; heat is derived for display.
const HeatPerDOH = 500.0

// Progress is a point-in-time snapshot of a running simulation, replaced
// wholesale on each update. Percent is monotonically non-decreasing across
// snapshots for a given job and stays below 100 while the job is running;
// only the terminal completed transition reports 100.
type Progress struct {
	Percent float64 `json:"percent"` // 0-99 while running

	Cycle       int     `json:"cycle,omitempty"`
	MaxCycles   int     `json:"max_cycles,omitempty"`
	SimTime     float64 `json:"sim_time_hours,omitempty"` // simulated hydration time
	DOH         float64 `json:"doh,omitempty"`            // degree of hydration 0.0-1.0
	Temperature float64 `json:"temperature_celsius,omitempty"`
	PH          float64 `json:"ph,omitempty"`

	Source    ProgressSource `json:"source,omitempty"`
	Remaining time.Duration  `json:"estimated_remaining,omitempty"` // zero until estimable
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// HeatReleased derives cumulative heat from the degree of hydration
func (p Progress) HeatReleased() float64 {
	return p.DOH * HeatPerDOH
}
