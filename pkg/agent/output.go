package agent

import (
	"encoding/json"

	"github.com/irops-ai/tower/pkg/llm"
)

// agentOutput is the structured payload agents are instructed to finish with.
type agentOutput struct {
	Recommendation     string   `json:"recommendation"`
	Confidence         float64  `json:"confidence"`
	Reasoning          string   `json:"reasoning"`
	BindingConstraints []string `json:"binding_constraints"`
}

// degradedParseMarker is appended to reasoning when the structured payload
// could not be parsed and the raw text was used instead.
const degradedParseMarker = " [degraded_parse]"

// degradedConfidence is assigned when parsing degrades to raw text.
const degradedConfidence = 0.5

// parseOutput extracts the structured payload from the agent's final text.
// On parse failure the whole text becomes the recommendation with confidence
// 0.5 and a degraded_parse marker; degraded is reported to the caller.
func parseOutput(finalText string) (out agentOutput, degraded bool) {
	payload := llm.ExtractJSON(finalText)
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &out); err == nil && out.Recommendation != "" {
			out.Confidence = clamp01(out.Confidence)
			return out, false
		}
	}
	return agentOutput{
		Recommendation: finalText,
		Confidence:     degradedConfidence,
		Reasoning:      "structured payload missing or unparseable" + degradedParseMarker,
	}, true
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
