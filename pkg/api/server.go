// Package api exposes the orchestrator over HTTP. Disruption submissions are
// accepted immediately and processed in the background; callers poll the run
// resource for the audit trail.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/irops-ai/tower/pkg/config"
	"github.com/irops-ai/tower/pkg/models"
	"github.com/irops-ai/tower/pkg/orchestrator"
	"github.com/irops-ai/tower/pkg/version"
)

// Runner is the orchestration entry point the server drives.
type Runner interface {
	Run(ctx context.Context, req orchestrator.Request) (*models.AuditTrail, error)
}

// RunState tracks a submission through its lifecycle.
type RunState string

const (
	RunAccepted   RunState = "accepted"
	RunProcessing RunState = "processing"
	RunComplete   RunState = "complete"
	RunFailed     RunState = "failed"
)

// runRecord is one submission and its eventual outcome.
type runRecord struct {
	ID          string             `json:"id"`
	State       RunState           `json:"state"`
	SubmittedAt time.Time          `json:"submitted_at"`
	Trail       *models.AuditTrail `json:"audit_trail,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Server represents the HTTP server.
type Server struct {
	runner Runner
	cfg    *config.Config
	logger *slog.Logger

	mu   sync.RWMutex
	runs map[string]*runRecord
}

// NewServer creates a new API server.
func NewServer(runner Runner, cfg *config.Config) *Server {
	return &Server{
		runner: runner,
		cfg:    cfg,
		logger: slog.Default().With("component", "api"),
		runs:   make(map[string]*runRecord),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.Health)

	v1 := r.Group("/api/v1")
	v1.POST("/disruptions", s.SubmitDisruption)
	v1.GET("/disruptions/:id", s.GetDisruption)
	return r
}

// SubmitDisruptionRequest is the request body for POST /api/v1/disruptions.
// Timeouts are Go duration strings ("90s", "5m"); omitted fields use the
// configured defaults.
type SubmitDisruptionRequest struct {
	UserPrompt    string                 `json:"user_prompt" binding:"required"`
	AgentTimeout  string                 `json:"agent_timeout,omitempty"`
	PhaseTimeout  string                 `json:"phase_timeout,omitempty"`
	GlobalTimeout string                 `json:"global_timeout,omitempty"`
	Weights       *config.ScoringWeights `json:"weights,omitempty"`
}

func (r *SubmitDisruptionRequest) toOrchestrator() (orchestrator.Request, error) {
	req := orchestrator.Request{UserPrompt: r.UserPrompt, Weights: r.Weights}
	for _, f := range []struct {
		raw string
		dst *time.Duration
	}{
		{r.AgentTimeout, &req.AgentTimeout},
		{r.PhaseTimeout, &req.PhaseTimeout},
		{r.GlobalTimeout, &req.GlobalTimeout},
	} {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return orchestrator.Request{}, err
		}
		*f.dst = d
	}
	return req, nil
}

// SubmitDisruption handles POST /api/v1/disruptions. The run executes in the
// background; the response carries the ID to poll.
func (s *Server) SubmitDisruption(c *gin.Context) {
	var req SubmitDisruptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	orchReq, err := req.toOrchestrator()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeout: " + err.Error()})
		return
	}

	rec := &runRecord{
		ID:          uuid.NewString(),
		State:       RunAccepted,
		SubmittedAt: time.Now(),
	}
	s.mu.Lock()
	s.runs[rec.ID] = rec
	s.mu.Unlock()

	go s.process(rec.ID, orchReq)

	s.logger.Info("Disruption accepted", "id", rec.ID)
	c.JSON(http.StatusAccepted, gin.H{
		"id":     rec.ID,
		"status": string(RunAccepted),
	})
}

// process runs one orchestration to completion. Detached from the request
// context so the run survives the 202 response.
func (s *Server) process(id string, req orchestrator.Request) {
	s.setState(id, func(r *runRecord) { r.State = RunProcessing })

	trail, err := s.runner.Run(context.Background(), req)
	s.setState(id, func(r *runRecord) {
		r.Trail = trail
		if err != nil {
			r.State = RunFailed
			r.Error = err.Error()
			return
		}
		r.State = RunComplete
	})
	if err != nil {
		s.logger.Error("Disruption run failed", "id", id, "error", err)
		return
	}
	s.logger.Info("Disruption run finished", "id", id, "status", trail.Status)
}

func (s *Server) setState(id string, mutate func(*runRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.runs[id]; ok {
		mutate(rec)
	}
}

// GetDisruption handles GET /api/v1/disruptions/:id.
func (s *Server) GetDisruption(c *gin.Context) {
	s.mu.RLock()
	rec, ok := s.runs[c.Param("id")]
	var snapshot runRecord
	if ok {
		snapshot = *rec
	}
	s.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Health handles GET /health with the loaded catalogue counts.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": version.Full(),
		"config":  s.cfg.GetStats(),
	})
}
