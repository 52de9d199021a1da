package models

// ProposedAction is one concrete recovery action extracted from a successful
// agent recommendation during arbitration.
type ProposedAction struct {
	AgentID string `json:"agent_id"`
	Action  string `json:"action"`

	// Affects lists the resources this action touches (aircraft tail,
	// crew pairing, gate, passenger group). Two actions with overlapping
	// affects sets conflict and cannot share a scenario.
	Affects []string `json:"affects"`

	// ExecutionRisk in [0,1]; used as a ranking tie-breaker.
	ExecutionRisk float64 `json:"execution_risk"`

	// ConstraintConflicts names the published constraints this action
	// would violate. Actions conflicting with blocking or high severity
	// constraints are rejected before scenario composition.
	ConstraintConflicts []string `json:"constraint_conflicts,omitempty"`
}

// ScoredScenario is a coherent subset of candidate actions with predicted
// outcome metrics and a composite score.
type ScoredScenario struct {
	Actions              []ProposedAction   `json:"actions"`
	ConstraintViolations []string           `json:"constraint_violations,omitempty"`
	PredictedMetrics     map[string]float64 `json:"predicted_metrics"`
	CompositeScore       float64            `json:"composite_score"`
	Rank                 int                `json:"rank"`
	Rationale            string             `json:"rationale,omitempty"`

	// Fallback marks the synthesized conservative baseline scenario
	// (cancel + full passenger protection) used when every candidate
	// action was rejected.
	Fallback bool `json:"fallback,omitempty"`
}
