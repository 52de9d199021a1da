// Package prompt assembles the conversation handed to an agent's tool-call
// loop. System prompts themselves are opaque catalogue strings; this package
// only adds the phase-dependent sections around them.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/irops-ai/tower/pkg/models"
)

// outputFormat instructs every agent to finish with a parseable payload.
// Parsing tolerates prose around it; a response without the object degrades
// to a plain-text recommendation.
const outputFormat = `
## Output format

End your response with a single JSON object:
{"recommendation": "<your recommendation>", "confidence": <0.0-1.0>, "reasoning": "<why>", "binding_constraints": ["<constraint>", ...]}
Omit binding_constraints if you have none.`

// System assembles the full system prompt for one agent run: the catalogue
// prompt, then for revision runs the published constraints the agent must
// honor, then the output format contract.
func System(systemPrompt string, phase models.Phase, constraints []models.BindingConstraint) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(systemPrompt))

	if phase == models.PhaseRevision {
		b.WriteString("\n\n## Published safety constraints\n\n")
		if len(constraints) == 0 {
			b.WriteString("None were published in the initial round.")
		} else {
			b.WriteString("These are binding. Any recommendation that violates one will be rejected:\n")
			for _, c := range constraints {
				fmt.Fprintf(&b, "- [%s] %s (from %s)\n", strings.ToUpper(string(c.Severity)), c.Text, c.SourceAgent)
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(outputFormat)
	return b.String()
}

// UserMessage renders the disruption for the agent: the original prompt, the
// normalized flight identification, and for revision runs a compact rendering
// of the peer recommendations from the initial round.
func UserMessage(payload models.DisruptionPayload, flight models.FlightInfo) string {
	var b strings.Builder
	b.WriteString("Disruption report: ")
	b.WriteString(strings.TrimSpace(payload.UserPrompt))
	fmt.Fprintf(&b, "\n\nIdentified flight: %s on %s (%s).",
		flight.FlightNumber, flight.Date, flight.DisruptionEvent)

	if payload.Phase == models.PhaseRevision {
		b.WriteString("\n\n## Peer recommendations from the initial round\n")
		b.WriteString(RenderPeers(payload.PeerRecommendations))
		b.WriteString("\nRe-evaluate your recommendation in light of the above. " +
			"State what you changed and why, or why you stand by your initial position.")
	}
	return b.String()
}

// RenderPeers produces a compact, deterministic rendering of a peer response
// map. Failed peers are listed with their status so agents know whose input
// is missing rather than silently absent.
func RenderPeers(peers map[string]models.AgentResponse) string {
	names := make([]string, 0, len(peers))
	for name := range peers {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		resp := peers[name]
		if resp.Status != models.StatusSuccess {
			fmt.Fprintf(&b, "\n### %s (%s)\nNo recommendation: %s\n", name, resp.Status, resp.Error)
			continue
		}
		fmt.Fprintf(&b, "\n### %s (confidence %.2f)\n%s\n", name, resp.Confidence, compact(resp.Recommendation))
		for _, c := range resp.BindingConstraints {
			fmt.Fprintf(&b, "Constraint: %s\n", c)
		}
	}
	return b.String()
}

// compact collapses whitespace runs so long recommendations stay one block.
func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
