package models

import "strings"

// Severity classifies how strictly a binding constraint binds later phases.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// severityRank orders severities from most to least strict.
var severityRank = map[Severity]int{
	SeverityBlocking: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// IsValid checks if the severity is a known value.
func (s Severity) IsValid() bool {
	_, ok := severityRank[s]
	return ok
}

// AtLeast reports whether s is at or above the given minimum severity.
func (s Severity) AtLeast(min Severity) bool {
	return severityRank[s] <= severityRank[min]
}

// BindingConstraint is a directive from a safety agent that later phases
// must honor. Severity blocking additionally terminates the orchestration
// after phase 1.
type BindingConstraint struct {
	SourceAgent string   `json:"source_agent"`
	Text        string   `json:"text"`
	Severity    Severity `json:"severity"`
}

// severityTokens maps the on-the-wire leading tokens to severities.
// The "BLOCKING:" token protocol is preserved for parity with upstream
// agent prompts; the structural Severity field is authoritative once parsed.
var severityTokens = map[string]Severity{
	"BLOCKING": SeverityBlocking,
	"HIGH":     SeverityHigh,
	"MEDIUM":   SeverityMedium,
	"LOW":      SeverityLow,
}

// ParseConstraint builds a BindingConstraint from a raw constraint string
// emitted by a safety agent. A leading "<SEVERITY>:" token selects the
// severity; untagged constraints default to high so they still bind
// arbitration.
func ParseConstraint(sourceAgent, raw string) BindingConstraint {
	text := strings.TrimSpace(raw)
	severity := SeverityHigh

	if idx := strings.Index(text, ":"); idx > 0 {
		token := strings.ToUpper(strings.TrimSpace(text[:idx]))
		if sev, ok := severityTokens[token]; ok {
			severity = sev
			text = strings.TrimSpace(text[idx+1:])
		}
	}

	return BindingConstraint{
		SourceAgent: sourceAgent,
		Text:        text,
		Severity:    severity,
	}
}

// String renders the constraint back to wire form, re-emitting the severity
// token so downstream prompts see the same protocol the agents speak.
func (c BindingConstraint) String() string {
	return strings.ToUpper(string(c.Severity)) + ": " + c.Text
}
