// Package agent executes one decision agent in one phase and always produces
// an AgentResponse. Infrastructure failures, timeouts, and panics become
// response statuses; only programmer errors (unknown agent, malformed
// catalogue) propagate as Go errors.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/irops-ai/tower/pkg/agent/prompt"
	"github.com/irops-ai/tower/pkg/config"
	"github.com/irops-ai/tower/pkg/llm"
	"github.com/irops-ai/tower/pkg/models"
	"github.com/irops-ai/tower/pkg/store"
)

// flightExtractionSystem steers the structured FlightInfo extraction call.
const flightExtractionSystem = `You extract flight identification from airline
disruption reports. Produce a JSON object with fields "flight_number" (the
carrier flight number as written), "date" (ISO-8601 if concrete, otherwise
the relative expression verbatim, e.g. "today" or "Monday"), and
"disruption_event" (a short noun phrase naming what happened, e.g.
"mechanical failure"). Copy values from the report; do not invent them.`

// ConstraintSource is the read side of the constraint registry, consulted
// when assembling revision-phase prompts.
type ConstraintSource interface {
	Query(min models.Severity) []models.BindingConstraint
}

// Runtime executes agents. It is stateless across runs and safe for
// concurrent use by the phase executor.
type Runtime struct {
	gateway     *llm.Gateway
	fetcher     store.Fetcher
	cfg         *config.Config
	constraints ConstraintSource
	now         func() time.Time
	logger      *slog.Logger
}

// NewRuntime wires a runtime over its collaborators. The constraint source
// may be shared with the orchestrator; the runtime only reads it.
func NewRuntime(gateway *llm.Gateway, fetcher store.Fetcher, cfg *config.Config, constraints ConstraintSource) *Runtime {
	return &Runtime{
		gateway:     gateway,
		fetcher:     fetcher,
		cfg:         cfg,
		constraints: constraints,
		now:         time.Now,
		logger:      slog.Default().With("component", "agent"),
	}
}

// WithClock overrides the clock used for relative-date resolution and
// timestamps. Intended for tests.
func (r *Runtime) WithClock(now func() time.Time) *Runtime {
	r.now = now
	return r
}

// Run executes one agent for one phase. The returned error is non-nil only
// for programmer errors; every operational outcome is an AgentResponse.
func (r *Runtime) Run(ctx context.Context, agentID string, payload models.DisruptionPayload) (resp *models.AgentResponse, err error) {
	spec, specErr := r.cfg.Agents.Get(agentID)
	if specErr != nil {
		return nil, specErr
	}
	if payloadErr := payload.Validate(); payloadErr != nil {
		return nil, payloadErr
	}

	start := r.now()
	logger := r.logger.With("agent_id", agentID, "phase", payload.Phase)

	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorContext(ctx, "Agent panicked", "panic", rec)
			resp = r.failed(agentID, start, models.StatusError, fmt.Sprintf("agent panicked: %v", rec))
			err = nil
		}
	}()

	executor, execErr := NewStoreToolExecutor(agentID, spec.Queries, r.fetcher, r.cfg.Queries, r.cfg.Store)
	if execErr != nil {
		return nil, execErr
	}

	flight, extractErr := r.extractFlight(ctx, payload.UserPrompt)
	if extractErr != nil {
		status, msg := r.mapError(extractErr)
		logger.WarnContext(ctx, "Flight extraction failed", "error", extractErr)
		return r.failed(agentID, start, status, msg), nil
	}
	logger.InfoContext(ctx, "Flight identified",
		"flight_number", flight.FlightNumber, "date", flight.Date)

	var published []models.BindingConstraint
	if payload.Phase == models.PhaseRevision && r.constraints != nil {
		published = r.constraints.Query(models.SeverityHigh)
	}

	system := prompt.System(spec.SystemPrompt, payload.Phase, published)
	user := prompt.UserMessage(payload, flight)

	maxIterations := r.cfg.Defaults.MaxIterations
	if spec.MaxIterations != nil {
		maxIterations = *spec.MaxIterations
	}

	loop, loopErr := r.gateway.ToolCallLoop(ctx, system,
		[]llm.Message{{Role: llm.RoleUser, Text: user}}, executor, maxIterations)
	if loopErr != nil {
		status, msg := r.mapError(loopErr)
		logger.WarnContext(ctx, "Tool loop failed", "status", status, "error", loopErr)
		failed := r.failed(agentID, start, status, msg)
		failed.ExtractedFlight = &flight
		failed.DataSources = executor.Sources()
		return failed, nil
	}

	out, degraded := parseOutput(loop.FinalText)
	if degraded {
		logger.WarnContext(ctx, "Structured output parse degraded to raw text")
	}

	reasoning := out.Reasoning
	if loop.Truncated {
		reasoning += " [response truncated at iteration bound]"
	}

	constraints := out.BindingConstraints
	if len(constraints) > 0 && !spec.Safety {
		logger.WarnContext(ctx, "Non-safety agent emitted constraints, dropping",
			"count", len(constraints))
		constraints = nil
	}

	resp = &models.AgentResponse{
		AgentName:          agentID,
		Recommendation:     out.Recommendation,
		Confidence:         out.Confidence,
		BindingConstraints: constraints,
		Reasoning:          reasoning,
		DataSources:        executor.Sources(),
		ExtractedFlight:    &flight,
		Status:             models.StatusSuccess,
		Duration:           r.now().Sub(start),
		Timestamp:          r.now(),
	}

	logger.InfoContext(ctx, "Agent completed",
		"status", resp.Status,
		"confidence", resp.Confidence,
		"constraints", len(resp.BindingConstraints),
		"iterations", len(loop.Iterations),
		"truncated", loop.Truncated,
		"duration", resp.Duration)
	return resp, nil
}

// extractFlight runs the structured extraction and normalizes the result.
func (r *Runtime) extractFlight(ctx context.Context, userPrompt string) (models.FlightInfo, error) {
	var raw models.FlightInfo
	if err := r.gateway.Extract(ctx, flightExtractionSystem,
		"Disruption report: "+userPrompt, &raw); err != nil {
		return models.FlightInfo{}, err
	}
	return models.NormalizeFlightInfo(raw, r.now())
}

// mapError translates an infrastructure failure into a response status.
func (r *Runtime) mapError(err error) (models.ResponseStatus, string) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.StatusTimeout, "agent deadline exceeded"
	}
	var unavailable *llm.UnavailableError
	if errors.As(err, &unavailable) {
		return models.StatusError, "all models unavailable"
	}
	return models.StatusError, err.Error()
}

// failed builds a terminal non-success response.
func (r *Runtime) failed(agentID string, start time.Time, status models.ResponseStatus, msg string) *models.AgentResponse {
	return &models.AgentResponse{
		AgentName: agentID,
		Status:    status,
		Error:     msg,
		Duration:  r.now().Sub(start),
		Timestamp: r.now(),
	}
}
