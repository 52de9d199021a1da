// Package arbiter turns the revision-round Collation plus the published
// constraints into a ranked set of recovery scenarios. Scoring is a fixed
// weighted sum over predicted metrics; the LLM is used only to extract
// proposals and predict outcomes, never to rank.
package arbiter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/irops-ai/tower/pkg/config"
	"github.com/irops-ai/tower/pkg/llm"
	"github.com/irops-ai/tower/pkg/models"
)

// maxScenarios caps how many composed scenarios go through outcome
// prediction; one LLM call each.
const maxScenarios = 8

const proposalExtractionSystem = `You convert an airline recovery
recommendation into discrete candidate actions. For each action report the
resources it touches ("affects": aircraft tails, crew pairings, gates,
passenger groups, slots) and an execution risk between 0 and 1. If an action
would violate one of the listed safety constraints, name that constraint in
"constraint_conflicts". Report only actions the recommendation actually
proposes.`

const outcomePredictionSystem = `You predict the operational outcome of an
airline recovery scenario. Rate each metric between 0 (worst) and 1 (best):
passenger_satisfaction, cost_efficiency, delay_reduction,
execution_reliability. Ground the rating in the disruption and the scenario's
actions.`

// Arbiter composes, scores, and ranks scenarios.
type Arbiter struct {
	gateway *llm.Gateway
	weights config.ScoringWeights
	logger  *slog.Logger
}

// New creates an arbiter with the configured scoring weights.
func New(gateway *llm.Gateway, weights config.ScoringWeights) *Arbiter {
	return &Arbiter{
		gateway: gateway,
		weights: weights,
		logger:  slog.Default().With("component", "arbiter"),
	}
}

type extractedProposal struct {
	Actions []struct {
		Action              string   `json:"action"`
		Affects             []string `json:"affects"`
		ExecutionRisk       float64  `json:"execution_risk"`
		ConstraintConflicts []string `json:"constraint_conflicts"`
	} `json:"actions"`
}

type predictedMetrics struct {
	PassengerSatisfaction float64 `json:"passenger_satisfaction"`
	CostEfficiency        float64 `json:"cost_efficiency"`
	DelayReduction        float64 `json:"delay_reduction"`
	ExecutionReliability  float64 `json:"execution_reliability"`
}

// Arbitrate produces the ranked scenario list. Per-agent extraction failures
// are contained; if no action survives constraint rejection, the conservative
// baseline scenario is synthesized and ranked first.
func (a *Arbiter) Arbitrate(ctx context.Context, userPrompt string, collation *models.Collation, constraints []models.BindingConstraint) ([]models.ScoredScenario, error) {
	binding := bindingSubset(constraints)
	actions := a.gatherActions(ctx, collation, binding)
	accepted, rejected := partitionByConstraints(actions)
	if len(rejected) > 0 {
		a.logger.InfoContext(ctx, "Actions rejected for constraint conflicts",
			"rejected", len(rejected), "accepted", len(accepted))
	}

	if len(accepted) == 0 {
		a.logger.WarnContext(ctx, "No viable actions, synthesizing conservative baseline")
		return []models.ScoredScenario{a.baseline(binding)}, nil
	}

	scenarios := composeScenarios(accepted)
	for i := range scenarios {
		metrics := a.predictMetrics(ctx, userPrompt, &scenarios[i])
		scenarios[i].PredictedMetrics = metrics
		scenarios[i].CompositeScore = a.score(metrics)
		scenarios[i].Rationale = rationale(&scenarios[i], binding)
	}

	rank(scenarios)
	a.logger.InfoContext(ctx, "Arbitration complete",
		"scenarios", len(scenarios),
		"top_score", scenarios[0].CompositeScore,
		"top_actions", len(scenarios[0].Actions))
	return scenarios, nil
}

// gatherActions extracts candidate actions from every successful response in
// canonical agent order. A failed extraction skips that agent only.
func (a *Arbiter) gatherActions(ctx context.Context, collation *models.Collation, binding []models.BindingConstraint) []models.ProposedAction {
	successful := collation.Successful()

	var actions []models.ProposedAction
	for _, agentID := range collation.AgentIDs() {
		resp, ok := successful[agentID]
		if !ok {
			continue
		}

		prompt := fmt.Sprintf("Recommendation from %s:\n%s", agentID, resp.Recommendation)
		if len(binding) > 0 {
			prompt += "\n\nSafety constraints in force:\n" + renderConstraints(binding)
		}

		var extracted extractedProposal
		if err := a.gateway.Extract(ctx, proposalExtractionSystem, prompt, &extracted); err != nil {
			a.logger.WarnContext(ctx, "Proposal extraction failed, skipping agent",
				"agent_id", agentID, "error", err)
			continue
		}
		for _, act := range extracted.Actions {
			if strings.TrimSpace(act.Action) == "" {
				continue
			}
			actions = append(actions, models.ProposedAction{
				AgentID:             agentID,
				Action:              strings.TrimSpace(act.Action),
				Affects:             act.Affects,
				ExecutionRisk:       clamp01(act.ExecutionRisk),
				ConstraintConflicts: act.ConstraintConflicts,
			})
		}
	}
	return actions
}

// predictMetrics asks the model for outcome metrics; on failure every metric
// defaults to a neutral 0.5 so the scenario still ranks.
func (a *Arbiter) predictMetrics(ctx context.Context, userPrompt string, s *models.ScoredScenario) map[string]float64 {
	var b strings.Builder
	fmt.Fprintf(&b, "Disruption: %s\n\nScenario actions:\n", userPrompt)
	for _, act := range s.Actions {
		fmt.Fprintf(&b, "- %s (proposed by %s)\n", act.Action, act.AgentID)
	}

	var predicted predictedMetrics
	if err := a.gateway.Extract(ctx, outcomePredictionSystem, b.String(), &predicted); err != nil {
		a.logger.WarnContext(ctx, "Outcome prediction failed, using neutral metrics", "error", err)
		return map[string]float64{
			"passenger_satisfaction": 0.5,
			"cost_efficiency":        0.5,
			"delay_reduction":        0.5,
			"execution_reliability":  0.5,
		}
	}
	return map[string]float64{
		"passenger_satisfaction": clamp01(predicted.PassengerSatisfaction),
		"cost_efficiency":        clamp01(predicted.CostEfficiency),
		"delay_reduction":        clamp01(predicted.DelayReduction),
		"execution_reliability":  clamp01(predicted.ExecutionReliability),
	}
}

// score is the fixed weighted sum over normalized metrics.
func (a *Arbiter) score(metrics map[string]float64) float64 {
	total := 0.0
	for metric, weight := range a.weights.AsMap() {
		total += weight * metrics[metric]
	}
	return total
}

// baseline synthesizes the conservative fallback: cancel the flight and
// fully protect its passengers.
func (a *Arbiter) baseline(binding []models.BindingConstraint) models.ScoredScenario {
	s := models.ScoredScenario{
		Actions: []models.ProposedAction{
			{
				AgentID:       "arbiter",
				Action:        "Cancel the flight and rebook all passengers with full care (hotel, meals, compensation)",
				Affects:       []string{"flight", "passengers"},
				ExecutionRisk: 0.1,
			},
		},
		PredictedMetrics: map[string]float64{
			"passenger_satisfaction": 0.4,
			"cost_efficiency":        0.3,
			"delay_reduction":        0.5,
			"execution_reliability":  0.9,
		},
		Rank:     1,
		Fallback: true,
	}
	s.CompositeScore = a.score(s.PredictedMetrics)
	s.Rationale = "Conservative baseline (fallback): no candidate action survived constraint validation. " +
		rationaleConstraints(binding)
	return s
}

// composeScenarios builds coherent action subsets: actions whose affects
// sets are disjoint. Each action seeds one greedy maximal scenario; duplicate
// compositions collapse.
func composeScenarios(actions []models.ProposedAction) []models.ScoredScenario {
	ordered := make([]models.ProposedAction, len(actions))
	copy(ordered, actions)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].AgentID != ordered[j].AgentID {
			return ordered[i].AgentID < ordered[j].AgentID
		}
		return ordered[i].Action < ordered[j].Action
	})

	var scenarios []models.ScoredScenario
	seen := make(map[string]struct{})
	for seed := range ordered {
		composed := greedyCompose(ordered, seed)
		key := scenarioKey(composed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		scenarios = append(scenarios, models.ScoredScenario{Actions: composed})
		if len(scenarios) == maxScenarios {
			break
		}
	}
	return scenarios
}

// greedyCompose starts from the seed action and adds every later-ordered
// action that does not touch an already-claimed resource.
func greedyCompose(ordered []models.ProposedAction, seed int) []models.ProposedAction {
	claimed := make(map[string]struct{})
	composed := []models.ProposedAction{ordered[seed]}
	claim(claimed, ordered[seed].Affects)

	for i := range ordered {
		if i == seed {
			continue
		}
		if overlaps(claimed, ordered[i].Affects) {
			continue
		}
		composed = append(composed, ordered[i])
		claim(claimed, ordered[i].Affects)
	}
	sort.Slice(composed, func(i, j int) bool {
		if composed[i].AgentID != composed[j].AgentID {
			return composed[i].AgentID < composed[j].AgentID
		}
		return composed[i].Action < composed[j].Action
	})
	return composed
}

func claim(claimed map[string]struct{}, affects []string) {
	for _, a := range affects {
		claimed[normalizeResource(a)] = struct{}{}
	}
}

func overlaps(claimed map[string]struct{}, affects []string) bool {
	for _, a := range affects {
		if _, ok := claimed[normalizeResource(a)]; ok {
			return true
		}
	}
	return false
}

func normalizeResource(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func scenarioKey(actions []models.ProposedAction) string {
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		parts = append(parts, a.AgentID+"\x00"+a.Action)
	}
	return strings.Join(parts, "\x01")
}

// partitionByConstraints drops actions that declare a conflict with any
// published constraint; those conflicts are blocking or high by construction
// since only that subset is handed to extraction.
func partitionByConstraints(actions []models.ProposedAction) (accepted, rejected []models.ProposedAction) {
	for _, a := range actions {
		if len(a.ConstraintConflicts) > 0 {
			rejected = append(rejected, a)
			continue
		}
		accepted = append(accepted, a)
	}
	return accepted, rejected
}

// rank orders scenarios best-first and assigns 1-based ranks. Ties break by
// fewer actions, then lower summed execution risk, then lexicographic
// contributing agent IDs.
func rank(scenarios []models.ScoredScenario) {
	sort.SliceStable(scenarios, func(i, j int) bool {
		a, b := &scenarios[i], &scenarios[j]
		if a.CompositeScore != b.CompositeScore {
			return a.CompositeScore > b.CompositeScore
		}
		if len(a.Actions) != len(b.Actions) {
			return len(a.Actions) < len(b.Actions)
		}
		ra, rb := totalRisk(a), totalRisk(b)
		if ra != rb {
			return ra < rb
		}
		return contributingAgents(a) < contributingAgents(b)
	})
	for i := range scenarios {
		scenarios[i].Rank = i + 1
	}
}

func totalRisk(s *models.ScoredScenario) float64 {
	total := 0.0
	for _, a := range s.Actions {
		total += a.ExecutionRisk
	}
	return total
}

func contributingAgents(s *models.ScoredScenario) string {
	ids := make([]string, 0, len(s.Actions))
	for _, a := range s.Actions {
		ids = append(ids, a.AgentID)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// rationale explains a scenario: its actions and the constraints it honors.
func rationale(s *models.ScoredScenario, binding []models.BindingConstraint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Combines %d action(s) from %s.", len(s.Actions), contributingAgents(s))
	if c := rationaleConstraints(binding); c != "" {
		b.WriteString(" ")
		b.WriteString(c)
	}
	return b.String()
}

func rationaleConstraints(binding []models.BindingConstraint) string {
	if len(binding) == 0 {
		return ""
	}
	parts := make([]string, 0, len(binding))
	for _, c := range binding {
		parts = append(parts, fmt.Sprintf("%q (%s)", c.Text, c.SourceAgent))
	}
	return "Honors safety constraints: " + strings.Join(parts, ", ") + "."
}

// bindingSubset keeps only the constraints that bind arbitration.
func bindingSubset(constraints []models.BindingConstraint) []models.BindingConstraint {
	var out []models.BindingConstraint
	for _, c := range constraints {
		if c.Severity.AtLeast(models.SeverityHigh) {
			out = append(out, c)
		}
	}
	return out
}

func renderConstraints(constraints []models.BindingConstraint) string {
	parts := make([]string, 0, len(constraints))
	for _, c := range constraints {
		parts = append(parts, "- "+c.String())
	}
	return strings.Join(parts, "\n")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
