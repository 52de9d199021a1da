package models

import "time"

// RunStatus is the terminal status of a whole orchestration run.
type RunStatus string

const (
	// RunComplete: both phases and arbitration finished.
	RunComplete RunStatus = "complete"
	// RunBlocked: a blocking constraint was published in phase 1; phase 2
	// and arbitration were skipped deterministically.
	RunBlocked RunStatus = "early_termination_blocked"
	// RunIncompleteTimeout: the global deadline expired mid-run; the trail
	// is partial.
	RunIncompleteTimeout RunStatus = "incomplete_timeout"
	// RunFailed: a structural error aborted the orchestration.
	RunFailed RunStatus = "failed"
)

// AuditTrail is the single structured record an orchestration returns to its
// caller: the reproducible collation of everything that happened.
type AuditTrail struct {
	RunID     string        `json:"run_id"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Status    RunStatus     `json:"status"`

	// Reason explains non-complete statuses (e.g. names the blocking
	// constraints on early termination).
	Reason string `json:"reason,omitempty"`

	PhaseOne    *Collation          `json:"phase_one,omitempty"`
	Constraints []BindingConstraint `json:"constraints,omitempty"`
	PhaseTwo    *Collation          `json:"phase_two,omitempty"`

	Scenarios   []ScoredScenario `json:"scenarios,omitempty"`
	TopScenario *ScoredScenario  `json:"top_scenario,omitempty"`
}
