package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irops-ai/tower/pkg/config"
	"github.com/irops-ai/tower/pkg/models"
	"github.com/irops-ai/tower/pkg/orchestrator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// funcRunner adapts a function to Runner.
type funcRunner func(ctx context.Context, req orchestrator.Request) (*models.AuditTrail, error)

func (f funcRunner) Run(ctx context.Context, req orchestrator.Request) (*models.AuditTrail, error) {
	return f(ctx, req)
}

func testServer(t *testing.T, runner Runner) *Server {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	return NewServer(runner, cfg)
}

func completeTrail() *models.AuditTrail {
	return &models.AuditTrail{
		RunID:     "run-1",
		Status:    models.RunComplete,
		Timestamp: time.Now(),
		Duration:  time.Second,
	}
}

func submit(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/disruptions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitAndPoll(t *testing.T) {
	started := make(chan orchestrator.Request, 1)
	release := make(chan struct{})
	runner := funcRunner(func(_ context.Context, req orchestrator.Request) (*models.AuditTrail, error) {
		started <- req
		<-release
		return completeTrail(), nil
	})
	srv := testServer(t, runner)
	router := srv.Router()

	w := submit(t, router, `{"user_prompt":"Flight EY123 today had a mechanical failure","global_timeout":"30s"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var accepted struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted.ID)
	assert.Equal(t, "accepted", accepted.Status)

	// Run has started but not finished: the record reports processing.
	var orchReq orchestrator.Request
	select {
	case orchReq = <-started:
	case <-time.After(time.Second):
		t.Fatal("run never started")
	}
	assert.Equal(t, "Flight EY123 today had a mechanical failure", orchReq.UserPrompt)
	assert.Equal(t, 30*time.Second, orchReq.GlobalTimeout)

	get := httptest.NewRecorder()
	router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/v1/disruptions/"+accepted.ID, nil))
	require.Equal(t, http.StatusOK, get.Code)

	var rec runRecord
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &rec))
	assert.Equal(t, RunProcessing, rec.State)
	assert.Nil(t, rec.Trail)

	close(release)
	require.Eventually(t, func() bool {
		get := httptest.NewRecorder()
		router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/v1/disruptions/"+accepted.ID, nil))
		var rec runRecord
		if err := json.Unmarshal(get.Body.Bytes(), &rec); err != nil {
			return false
		}
		return rec.State == RunComplete && rec.Trail != nil
	}, time.Second, 10*time.Millisecond, "record reaches complete with the audit trail attached")
}

func TestSubmitValidation(t *testing.T) {
	srv := testServer(t, funcRunner(func(context.Context, orchestrator.Request) (*models.AuditTrail, error) {
		t.Fatal("runner must not be called for invalid submissions")
		return nil, nil
	}))
	router := srv.Router()

	t.Run("missing user_prompt", func(t *testing.T) {
		w := submit(t, router, `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed timeout", func(t *testing.T) {
		w := submit(t, router, `{"user_prompt":"x","agent_timeout":"soon"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid timeout")
	})
}

func TestRunnerErrorMarksRunFailed(t *testing.T) {
	trail := &models.AuditTrail{RunID: "run-2", Status: models.RunFailed, Reason: "agent not found: ghost"}
	runner := funcRunner(func(context.Context, orchestrator.Request) (*models.AuditTrail, error) {
		return trail, assert.AnError
	})
	srv := testServer(t, runner)
	router := srv.Router()

	w := submit(t, router, `{"user_prompt":"Flight EY123 today diverted"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var accepted struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))

	require.Eventually(t, func() bool {
		get := httptest.NewRecorder()
		router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/v1/disruptions/"+accepted.ID, nil))
		var rec runRecord
		if err := json.Unmarshal(get.Body.Bytes(), &rec); err != nil {
			return false
		}
		return rec.State == RunFailed && rec.Error != ""
	}, time.Second, 10*time.Millisecond)
}

func TestGetUnknownRun(t *testing.T) {
	srv := testServer(t, funcRunner(func(context.Context, orchestrator.Request) (*models.AuditTrail, error) {
		return completeTrail(), nil
	}))
	router := srv.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/disruptions/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	srv := testServer(t, funcRunner(func(context.Context, orchestrator.Request) (*models.AuditTrail, error) {
		return completeTrail(), nil
	}))
	router := srv.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string       `json:"status"`
		Config config.Stats `json:"config"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, 7, body.Config.Agents)
	assert.Len(t, body.Config.SafetyAgents, 3)
}
