package policy

import (
	"time"

	"github.com/openfroyo/sitefroyo/pkg/engine"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for warnings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError blocks the operation.
	SeverityError Severity = "error"

	// SeverityCritical blocks the operation.
	SeverityCritical Severity = "critical"
)

// Blocking reports whether violations of this severity deny the operation.
func (s Severity) Blocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// Policy is a named Rego module. Its package must define a "deny" set whose
// members are strings or objects with message, severity and remediation.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Operations limits the policy to these operations. Empty means all.
	Operations []string `json:"operations,omitempty"`

	// Source is the file the policy was loaded from, or "builtin".
	Source string `json:"source,omitempty"`
}

// AppliesTo reports whether the policy runs for operation.
func (p *Policy) AppliesTo(operation string) bool {
	if len(p.Operations) == 0 {
		return true
	}
	for _, op := range p.Operations {
		if op == operation {
			return true
		}
	}
	return false
}

// Input is the document policies see as `input`.
type Input struct {
	// Operation is the command being guarded (e.g., "deploy", "destroy").
	Operation string `json:"operation"`

	// SiteID identifies the site.
	SiteID string `json:"site_id"`

	// Site is the manifest-derived site description.
	Site engine.SiteSpec `json:"site"`

	// Facts is the full fact map of the evaluation.
	Facts map[string]bool `json:"facts"`

	// Status is the classified site status.
	Status engine.Status `json:"status"`

	// Parameters are the persisted site parameters.
	Parameters map[string]string `json:"parameters"`
}

// NewInput builds a policy input from an evaluation and the context it
// was computed from.
func NewInput(operation engine.Command, eval *engine.Evaluation, sc *engine.SiteContext) *Input {
	in := &Input{
		Operation:  string(operation),
		SiteID:     eval.SiteID,
		Facts:      eval.Facts,
		Status:     eval.Result.Status,
		Parameters: map[string]string{},
	}
	if sc != nil {
		in.Site = sc.Site
		for k, v := range sc.Parameters {
			in.Parameters[k] = v
		}
	}
	return in
}

// Violation is a single policy finding.
type Violation struct {
	// Policy is the name of the policy that produced the finding.
	Policy string `json:"policy"`

	// SiteID is the site the finding applies to.
	SiteID string `json:"site_id,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Severity is the finding's severity.
	Severity Severity `json:"severity"`

	// Remediation suggests a fix.
	Remediation string `json:"remediation,omitempty"`
}

// Result is the outcome of evaluating all applicable policies.
type Result struct {
	// Allowed is false when any blocking violation was found.
	Allowed bool `json:"allowed"`

	// Violations are the blocking findings.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings are the non-blocking findings.
	Warnings []Violation `json:"warnings,omitempty"`

	// Errors lists policies that failed to evaluate.
	Errors []string `json:"errors,omitempty"`

	// EvaluatedPolicies lists the policies that ran, sorted.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// EvaluatedAt is when the evaluation started.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}
