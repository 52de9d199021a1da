// Package phase runs the agents of one orchestration phase concurrently
// under bounded parallelism with per-agent and per-phase deadlines, and
// collates every terminal response.
package phase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/irops-ai/tower/pkg/models"
)

// AgentRunner executes one agent. The error return is reserved for
// programmer errors, which abort the phase; operational failures arrive as
// AgentResponse statuses.
type AgentRunner interface {
	Run(ctx context.Context, agentID string, payload models.DisruptionPayload) (*models.AgentResponse, error)
}

// Input describes one phase fan-out.
type Input struct {
	Phase  models.Phase
	Agents []string

	// PayloadBuilder produces the per-agent invocation payload.
	PayloadBuilder func(agentID string) models.DisruptionPayload
}

// Executor fans out agents and emits a Collation.
type Executor struct {
	runner        AgentRunner
	maxConcurrent int64
	agentDeadline time.Duration
	phaseDeadline time.Duration
	logger        *slog.Logger
}

// NewExecutor creates a phase executor with the given budgets.
func NewExecutor(runner AgentRunner, maxConcurrent int, agentDeadline, phaseDeadline time.Duration) *Executor {
	return &Executor{
		runner:        runner,
		maxConcurrent: int64(maxConcurrent),
		agentDeadline: agentDeadline,
		phaseDeadline: phaseDeadline,
		logger:        slog.Default().With("component", "phase"),
	}
}

type agentResult struct {
	agentID string
	resp    *models.AgentResponse
	err     error
}

// Execute runs every agent of the phase exactly once and returns the
// Collation keyed by agent ID. Agents that cannot start or finish inside the
// phase deadline get synthesized timeout responses; a programmer error from
// any agent cancels the rest and aborts the phase.
func (e *Executor) Execute(ctx context.Context, in Input) (*models.Collation, error) {
	start := time.Now()
	phaseCtx, cancel := context.WithTimeout(ctx, e.phaseDeadline)
	defer cancel()

	e.logger.InfoContext(ctx, "Phase starting",
		"phase", in.Phase,
		"agents", len(in.Agents),
		"max_concurrent", e.maxConcurrent,
		"agent_deadline", e.agentDeadline,
		"phase_deadline", e.phaseDeadline)

	sem := semaphore.NewWeighted(e.maxConcurrent)
	results := make(chan agentResult, len(in.Agents))

	var wg sync.WaitGroup
	for _, agentID := range in.Agents {
		wg.Add(1)
		go func(agentID string) {
			defer wg.Done()
			results <- e.runOne(phaseCtx, sem, agentID, in.PayloadBuilder(agentID))
		}(agentID)
	}
	wg.Wait()
	close(results)

	collation := &models.Collation{
		Phase:     in.Phase,
		Responses: make(map[string]models.AgentResponse, len(in.Agents)),
		Timestamp: start,
	}
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		collation.Responses[r.agentID] = *r.resp
	}
	if firstErr != nil {
		return nil, firstErr
	}

	collation.Duration = time.Since(start)
	counts := collation.StatusCounts()
	e.logger.InfoContext(ctx, "Phase complete",
		"phase", in.Phase,
		"duration", collation.Duration,
		"success", counts[models.StatusSuccess],
		"timeout", counts[models.StatusTimeout],
		"error", counts[models.StatusError])
	return collation, nil
}

// runOne acquires a concurrency slot and executes a single agent under its
// own deadline. Deadline expiry while queued becomes a timeout response so
// the agent still appears in the Collation.
func (e *Executor) runOne(phaseCtx context.Context, sem *semaphore.Weighted, agentID string, payload models.DisruptionPayload) agentResult {
	queued := time.Now()
	if err := sem.Acquire(phaseCtx, 1); err != nil {
		return agentResult{agentID: agentID, resp: e.timedOut(agentID, queued,
			"phase deadline exceeded before agent started")}
	}
	defer sem.Release(1)

	agentCtx, cancel := context.WithTimeout(phaseCtx, e.agentDeadline)
	defer cancel()

	resp, err := e.runner.Run(agentCtx, agentID, payload)
	if err != nil {
		return agentResult{agentID: agentID, err: err}
	}
	return agentResult{agentID: agentID, resp: resp}
}

func (e *Executor) timedOut(agentID string, queued time.Time, reason string) *models.AgentResponse {
	return &models.AgentResponse{
		AgentName: agentID,
		Status:    models.StatusTimeout,
		Error:     reason,
		Duration:  time.Since(queued),
		Timestamp: time.Now(),
	}
}
