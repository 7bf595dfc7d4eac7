// Package feedback drives the generate/validate/repair loop and turns
// validation results into correction prompts.
package feedback

import (
	"fmt"
	"strings"

	"pagesmith/internal/validation"
)

// Encode renders a failed validation result as a correction note for the next
// generation attempt. Errors are listed alone when present; warnings appear
// only when there is nothing blocking. Output is deterministic for a given
// result so repeated attempts against the same issues produce the same prompt.
func Encode(result validation.Result) string {
	issues := result.Errors()
	header := "The previous version failed validation. Fix every problem below and keep everything that already works:"
	if len(issues) == 0 {
		issues = result.Warnings()
		header = "The previous version passed validation with warnings. Address these while keeping everything that already works:"
	}
	if len(issues) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	for i, issue := range issues {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, issue.Category, issue.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}
