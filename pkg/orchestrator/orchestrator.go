// Package orchestrator is the end-to-end controller: it sequences the two
// agent phases and arbitration, enforces the global deadline, terminates
// early on blocking constraints, and assembles the audit trail.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/irops-ai/tower/pkg/agent"
	"github.com/irops-ai/tower/pkg/arbiter"
	"github.com/irops-ai/tower/pkg/config"
	"github.com/irops-ai/tower/pkg/constraint"
	"github.com/irops-ai/tower/pkg/llm"
	"github.com/irops-ai/tower/pkg/models"
	"github.com/irops-ai/tower/pkg/phase"
	"github.com/irops-ai/tower/pkg/store"
)

// Request is the orchestrator's single entry point input. Zero-valued
// timeouts and a nil weights pointer fall back to configuration defaults.
type Request struct {
	UserPrompt string

	AgentTimeout  time.Duration
	PhaseTimeout  time.Duration
	GlobalTimeout time.Duration
	Weights       *config.ScoringWeights
}

// Orchestrator runs disruptions end to end. Safe for concurrent runs; all
// per-run state (constraint registry, runtime) is created inside Run.
type Orchestrator struct {
	cfg     *config.Config
	gateway *llm.Gateway
	fetcher store.Fetcher
	logger  *slog.Logger
}

// New wires an orchestrator over its collaborators.
func New(cfg *config.Config, gateway *llm.Gateway, fetcher store.Fetcher) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		gateway: gateway,
		fetcher: fetcher,
		logger:  slog.Default().With("component", "orchestrator"),
	}
}

// Run executes one orchestration. Every run returns an audit trail; the
// error is non-nil only for structural failures, and the trail then carries
// status failed with the same reason.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*models.AuditTrail, error) {
	start := time.Now()
	trail := &models.AuditTrail{
		RunID:     uuid.NewString(),
		Timestamp: start,
	}
	logger := o.logger.With("run_id", trail.RunID)

	if strings.TrimSpace(req.UserPrompt) == "" {
		return o.failed(trail, start, fmt.Errorf("user prompt is empty"))
	}

	agentTimeout, phaseTimeout, globalTimeout := o.effectiveTimeouts(req)
	weights := o.cfg.Defaults.Weights
	if req.Weights != nil {
		weights = *req.Weights
	}

	globalCtx, cancel := context.WithTimeout(ctx, globalTimeout)
	defer cancel()

	logger.InfoContext(ctx, "Orchestration starting",
		"agents", o.cfg.Agents.Len(),
		"global_timeout", globalTimeout)

	registry := constraint.NewRegistry(o.cfg.Agents.IsSafety)
	runtime := agent.NewRuntime(o.gateway, o.fetcher, o.cfg, registry)
	executor := phase.NewExecutor(runtime, o.cfg.Defaults.MaxConcurrentAgents, agentTimeout, phaseTimeout)
	agentIDs := o.cfg.Agents.IDs()

	// Phase 1: every agent sees only the user prompt.
	phaseOne, err := executor.Execute(globalCtx, phase.Input{
		Phase:  models.PhaseInitial,
		Agents: agentIDs,
		PayloadBuilder: func(string) models.DisruptionPayload {
			return models.DisruptionPayload{UserPrompt: req.UserPrompt, Phase: models.PhaseInitial}
		},
	})
	if err != nil {
		return o.failed(trail, start, err)
	}
	trail.PhaseOne = phaseOne

	o.publishConstraints(logger, registry, phaseOne)
	trail.Constraints = registry.All()

	if globalCtx.Err() != nil {
		return o.incomplete(logger, trail, start, "global deadline expired during initial phase"), nil
	}

	// Blocking constraints terminate deterministically before phase 2.
	if registry.AnyBlocking() {
		blocking := registry.Blocking()
		reasons := make([]string, 0, len(blocking))
		for _, c := range blocking {
			reasons = append(reasons, fmt.Sprintf("%s: %s", c.SourceAgent, c.Text))
		}
		trail.Status = models.RunBlocked
		trail.Reason = "blocking constraints published: " + strings.Join(reasons, "; ")
		trail.Duration = time.Since(start)
		logger.WarnContext(ctx, "Early termination on blocking constraints",
			"constraints", len(blocking))
		return trail, nil
	}

	// Phase 2: every agent re-evaluates given the phase-1 collation; the
	// runtime adds published constraints to the prompts.
	phaseTwo, err := executor.Execute(globalCtx, phase.Input{
		Phase:  models.PhaseRevision,
		Agents: agentIDs,
		PayloadBuilder: func(string) models.DisruptionPayload {
			return models.DisruptionPayload{
				UserPrompt:          req.UserPrompt,
				Phase:               models.PhaseRevision,
				PeerRecommendations: phaseOne.Responses,
			}
		},
	})
	if err != nil {
		return o.failed(trail, start, err)
	}
	trail.PhaseTwo = phaseTwo

	// Revision-phase constraints are recorded for arbitration; registry
	// deduplication makes re-published phase-1 constraints idempotent.
	o.publishConstraints(logger, registry, phaseTwo)
	trail.Constraints = registry.All()

	if globalCtx.Err() != nil {
		return o.incomplete(logger, trail, start, "global deadline expired during revision phase"), nil
	}

	scenarios, err := arbiter.New(o.gateway, weights).
		Arbitrate(globalCtx, req.UserPrompt, phaseTwo, registry.All())
	if err != nil {
		return o.failed(trail, start, err)
	}
	if globalCtx.Err() != nil {
		return o.incomplete(logger, trail, start, "global deadline expired during arbitration"), nil
	}

	trail.Scenarios = scenarios
	trail.TopScenario = &scenarios[0]
	trail.Status = models.RunComplete
	trail.Duration = time.Since(start)

	logger.InfoContext(ctx, "Orchestration complete",
		"duration", trail.Duration,
		"scenarios", len(scenarios),
		"top_score", trail.TopScenario.CompositeScore,
		"fallback", trail.TopScenario.Fallback)
	return trail, nil
}

// publishConstraints moves safety-agent constraints from the phase-1
// collation into the registry. The runtime already drops constraints from
// non-safety agents, so rejection here indicates a bug and is only logged.
func (o *Orchestrator) publishConstraints(logger *slog.Logger, registry *constraint.Registry, collation *models.Collation) {
	for _, agentID := range collation.AgentIDs() {
		resp := collation.Responses[agentID]
		if len(resp.BindingConstraints) == 0 {
			continue
		}
		if err := registry.Publish(agentID, resp.BindingConstraints); err != nil {
			logger.Error("Constraint publication rejected",
				"agent_id", agentID, "error", err)
			continue
		}
		logger.Info("Constraints published",
			"agent_id", agentID, "count", len(resp.BindingConstraints))
	}
}

func (o *Orchestrator) effectiveTimeouts(req Request) (agentT, phaseT, globalT time.Duration) {
	agentT = o.cfg.Defaults.AgentTimeout
	if req.AgentTimeout > 0 {
		agentT = req.AgentTimeout
	}
	phaseT = o.cfg.Defaults.PhaseTimeout
	if req.PhaseTimeout > 0 {
		phaseT = req.PhaseTimeout
	}
	globalT = o.cfg.Defaults.GlobalTimeout
	if req.GlobalTimeout > 0 {
		globalT = req.GlobalTimeout
	}
	return agentT, phaseT, globalT
}

func (o *Orchestrator) incomplete(logger *slog.Logger, trail *models.AuditTrail, start time.Time, reason string) *models.AuditTrail {
	trail.Status = models.RunIncompleteTimeout
	trail.Reason = reason
	trail.Duration = time.Since(start)
	logger.Warn("Orchestration incomplete", "reason", reason, "duration", trail.Duration)
	return trail
}

func (o *Orchestrator) failed(trail *models.AuditTrail, start time.Time, err error) (*models.AuditTrail, error) {
	trail.Status = models.RunFailed
	trail.Reason = err.Error()
	trail.Duration = time.Since(start)
	o.logger.Error("Orchestration failed", "run_id", trail.RunID, "error", err)
	return trail, err
}
