// Package validation implements the multi-stage oracle that judges a
// generated artifact: static structural checks, sandboxed rendering,
// responsive and accessibility heuristics, and a semantic visual review,
// merged into one ordered result.
package validation

// Severity classifies how a single issue affects the verdict.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Category tags the validator that produced an issue. A flat tagged list
// keeps ordering deterministic and serialization trivial.
type Category string

const (
	CategoryStructural    Category = "structural"
	CategoryRendering     Category = "rendering"
	CategoryResponsive    Category = "responsive"
	CategoryAccessibility Category = "accessibility"
	CategoryVisual        Category = "visual"
)

// Issue is one defect found by a validator. Immutable once created.
type Issue struct {
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
}

// Errorf builds an error-severity issue.
func Errorf(cat Category, msg string) Issue {
	return Issue{Severity: SeverityError, Category: cat, Message: msg}
}

// Warnf builds a warning-severity issue.
func Warnf(cat Category, msg string) Issue {
	return Issue{Severity: SeverityWarning, Category: cat, Message: msg}
}

// Result is the merged outcome of all validation stages for one candidate.
type Result struct {
	// Passed is true iff Issues contains no error-severity entry.
	Passed bool `json:"passed"`

	// Issues in validator order: structural, rendering, responsive,
	// accessibility, visual.
	Issues []Issue `json:"issues"`

	// Screenshot is the PNG captured during rendering, nil when rendering
	// was skipped or failed.
	Screenshot []byte `json:"-"`

	// ChecksPerformed names the stages that actually ran.
	ChecksPerformed []string `json:"checks_performed"`
}

// NewResult assembles a Result, deriving Passed from the issue list.
func NewResult(issues []Issue, screenshot []byte, checks []string) Result {
	return Result{
		Passed:          !HasErrors(issues),
		Issues:          issues,
		Screenshot:      screenshot,
		ChecksPerformed: checks,
	}
}

// Errors returns the result's error-severity issues in order.
func (r Result) Errors() []Issue { return Errors(r.Issues) }

// Warnings returns the result's warning-severity issues in order.
func (r Result) Warnings() []Issue { return Warnings(r.Issues) }

// HasErrors reports whether any issue carries error severity.
func HasErrors(issues []Issue) bool {
	for _, is := range issues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns the error-severity issues in order.
func Errors(issues []Issue) []Issue {
	out := make([]Issue, 0, len(issues))
	for _, is := range issues {
		if is.Severity == SeverityError {
			out = append(out, is)
		}
	}
	return out
}

// Warnings returns the warning-severity issues in order.
func Warnings(issues []Issue) []Issue {
	out := make([]Issue, 0, len(issues))
	for _, is := range issues {
		if is.Severity == SeverityWarning {
			out = append(out, is)
		}
	}
	return out
}
