package arbiter

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irops-ai/tower/pkg/config"
	"github.com/irops-ai/tower/pkg/llm"
	"github.com/irops-ai/tower/pkg/models"
)

// promptRouter answers each completion based on the prompt text, so the
// extraction order does not matter to the test.
type promptRouter struct {
	id     string
	routes []route
}

type route struct {
	match string
	reply string
}

func (m *promptRouter) ID() string { return m.id }

func (m *promptRouter) Converse(_ context.Context, req llm.Request) (*llm.Response, error) {
	prompt := req.Messages[len(req.Messages)-1].Text
	for _, r := range m.routes {
		if strings.Contains(prompt, r.match) {
			return &llm.Response{
				Message:    llm.Message{Role: llm.RoleAssistant, Text: r.reply},
				StopReason: llm.StopEndTurn,
			}, nil
		}
	}
	return &llm.Response{
		Message:    llm.Message{Role: llm.RoleAssistant, Text: "no match"},
		StopReason: llm.StopEndTurn,
	}, nil
}

func testWeights() config.ScoringWeights {
	return config.ScoringWeights{
		PassengerSatisfaction: 0.30,
		CostEfficiency:        0.25,
		DelayReduction:        0.25,
		ExecutionReliability:  0.20,
	}
}

func revisionCollation(responses map[string]models.AgentResponse) *models.Collation {
	return &models.Collation{
		Phase:     models.PhaseRevision,
		Responses: responses,
		Timestamp: time.Now(),
		Duration:  time.Second,
	}
}

func success(agent, recommendation string) models.AgentResponse {
	return models.AgentResponse{
		AgentName:      agent,
		Status:         models.StatusSuccess,
		Recommendation: recommendation,
		Confidence:     0.8,
		Timestamp:      time.Now(),
	}
}

const userPrompt = "Flight EY123 today had a mechanical failure"

func TestArbitrateComposesAndRanks(t *testing.T) {
	model := &promptRouter{id: "m", routes: []route{
		{
			match: "Recommendation from network_ops",
			reply: `{"actions":[{"action":"Swap to spare A321","affects":["tail A6-EYB"],"execution_risk":0.3}]}`,
		},
		{
			match: "Recommendation from passenger_reaccommodation",
			reply: `{"actions":[{"action":"Rebook connections via AUH","affects":["passengers EY123"],"execution_risk":0.1}]}`,
		},
		{
			match: "Scenario actions",
			reply: `{"passenger_satisfaction":0.8,"cost_efficiency":0.6,"delay_reduction":0.7,"execution_reliability":0.9}`,
		},
	}}
	arb := New(llm.NewGateway(model), testWeights())

	constraints := []models.BindingConstraint{
		{SourceAgent: "maintenance", Text: "aircraft A6-EYA not airworthy", Severity: models.SeverityHigh},
	}
	collation := revisionCollation(map[string]models.AgentResponse{
		"network_ops":               success("network_ops", "Swap to the spare"),
		"passenger_reaccommodation": success("passenger_reaccommodation", "Rebook"),
		"regulatory":                {AgentName: "regulatory", Status: models.StatusError, Error: "boom", Timestamp: time.Now()},
	})

	scenarios, err := arb.Arbitrate(context.Background(), userPrompt, collation, constraints)
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	top := scenarios[0]
	assert.Equal(t, 1, top.Rank)
	assert.False(t, top.Fallback)
	assert.Len(t, top.Actions, 2, "disjoint affects compose into one scenario")

	// Weighted sum: 0.3*0.8 + 0.25*0.6 + 0.25*0.7 + 0.2*0.9 = 0.745
	assert.InDelta(t, 0.745, top.CompositeScore, 1e-9)

	assert.Contains(t, top.Rationale, "aircraft A6-EYA not airworthy",
		"rationale references the honored safety constraint")

	for i, s := range scenarios {
		assert.Equal(t, i+1, s.Rank)
	}
}

func TestArbitrateConflictingAffectsSplit(t *testing.T) {
	model := &promptRouter{id: "m", routes: []route{
		{
			match: "Recommendation from crew_scheduling",
			reply: `{"actions":[{"action":"Call out reserve crew","affects":["crew pairing P-9"],"execution_risk":0.2}]}`,
		},
		{
			match: "Recommendation from network_ops",
			reply: `{"actions":[{"action":"Deadhead the original crew","affects":["crew pairing P-9"],"execution_risk":0.4}]}`,
		},
		{
			match: "Scenario actions",
			reply: `{"passenger_satisfaction":0.5,"cost_efficiency":0.5,"delay_reduction":0.5,"execution_reliability":0.5}`,
		},
	}}
	arb := New(llm.NewGateway(model), testWeights())

	collation := revisionCollation(map[string]models.AgentResponse{
		"crew_scheduling": success("crew_scheduling", "Reserve callout"),
		"network_ops":     success("network_ops", "Deadhead"),
	})

	scenarios, err := arb.Arbitrate(context.Background(), userPrompt, collation, nil)
	require.NoError(t, err)
	require.Len(t, scenarios, 2, "actions claiming the same resource cannot share a scenario")
	for _, s := range scenarios {
		assert.Len(t, s.Actions, 1)
	}

	// Equal scores and sizes: lower execution risk ranks first.
	assert.Equal(t, "Call out reserve crew", scenarios[0].Actions[0].Action)
}

func TestArbitrateConstraintRejection(t *testing.T) {
	model := &promptRouter{id: "m", routes: []route{
		{
			match: "Recommendation from network_ops",
			reply: `{"actions":[{"action":"Dispatch the aircraft anyway","affects":["tail A6-EYA"],"execution_risk":0.2,"constraint_conflicts":["aircraft A6-EYA not airworthy"]}]}`,
		},
	}}
	arb := New(llm.NewGateway(model), testWeights())

	constraints := []models.BindingConstraint{
		{SourceAgent: "maintenance", Text: "aircraft A6-EYA not airworthy", Severity: models.SeverityBlocking},
	}
	collation := revisionCollation(map[string]models.AgentResponse{
		"network_ops": success("network_ops", "Dispatch anyway"),
	})

	scenarios, err := arb.Arbitrate(context.Background(), userPrompt, collation, constraints)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)

	baseline := scenarios[0]
	assert.True(t, baseline.Fallback, "fallback path must be labeled")
	assert.Equal(t, 1, baseline.Rank)
	assert.Contains(t, baseline.Rationale, "Conservative baseline")
	assert.Contains(t, strings.ToLower(baseline.Actions[0].Action), "cancel")
}

func TestArbitrateAllAgentsFailed(t *testing.T) {
	arb := New(llm.NewGateway(&promptRouter{id: "m"}), testWeights())

	collation := revisionCollation(map[string]models.AgentResponse{
		"network_ops": {AgentName: "network_ops", Status: models.StatusError, Error: "extraction failed", Timestamp: time.Now()},
		"maintenance": {AgentName: "maintenance", Status: models.StatusError, Error: "extraction failed", Timestamp: time.Now()},
	})

	scenarios, err := arb.Arbitrate(context.Background(), userPrompt, collation, nil)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.True(t, scenarios[0].Fallback)
}

func TestArbitratePredictionFailureUsesNeutralMetrics(t *testing.T) {
	model := &promptRouter{id: "m", routes: []route{
		{
			match: "Recommendation from network_ops",
			reply: `{"actions":[{"action":"Swap to spare","affects":["tail"],"execution_risk":0.2}]}`,
		},
		// No route for "Scenario actions": prediction gets unparseable text.
	}}
	arb := New(llm.NewGateway(model), testWeights())

	collation := revisionCollation(map[string]models.AgentResponse{
		"network_ops": success("network_ops", "Swap"),
	})

	scenarios, err := arb.Arbitrate(context.Background(), userPrompt, collation, nil)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.False(t, scenarios[0].Fallback)
	for metric, v := range scenarios[0].PredictedMetrics {
		assert.InDelta(t, 0.5, v, 1e-9, "metric %s", metric)
	}
	assert.InDelta(t, 0.5, scenarios[0].CompositeScore, 1e-9)
}

func TestRankTieBreaks(t *testing.T) {
	scenarios := []models.ScoredScenario{
		{CompositeScore: 0.7, Actions: []models.ProposedAction{
			{AgentID: "b", Action: "x", ExecutionRisk: 0.2},
			{AgentID: "c", Action: "y", ExecutionRisk: 0.2},
		}},
		{CompositeScore: 0.7, Actions: []models.ProposedAction{
			{AgentID: "a", Action: "z", ExecutionRisk: 0.9},
		}},
		{CompositeScore: 0.9, Actions: []models.ProposedAction{
			{AgentID: "d", Action: "w", ExecutionRisk: 0.1},
		}},
	}

	rank(scenarios)

	assert.InDelta(t, 0.9, scenarios[0].CompositeScore, 1e-9, "highest score first")
	assert.Len(t, scenarios[1].Actions, 1, "fewer actions wins the tie")
	assert.Equal(t, "a", scenarios[1].Actions[0].AgentID)
	assert.Equal(t, 3, scenarios[2].Rank)
}
