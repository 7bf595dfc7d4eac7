// Package generate wraps the external model call that produces artifact
// candidates. The loop only ever sees the Generator interface, so its control
// flow is testable against scripted stubs.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pagesmith/internal/artifact"
	"pagesmith/internal/constraints"
)

// ErrNoMarkup reports that the model answered but nothing in the response
// could be read as an HTML document.
var ErrNoMarkup = errors.New("model output contains no HTML document")

// Failure wraps any generation error: transport, timeout, or unusable output.
// It is terminal for the current request; the loop never retries generation.
type Failure struct {
	Err error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("generation failed: %v", f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Generator produces one markup candidate. prior is the previous candidate's
// markup and correction the encoded defect list; both are empty on the first
// attempt.
type Generator interface {
	Generate(ctx context.Context, req artifact.GenerationRequest, set constraints.Set, prior, correction string) (string, error)
}

// ExtractMarkup pulls the HTML document out of a model response: fenced
// ```html blocks first, then a bare document. Empty string when there is none.
func ExtractMarkup(text string) string {
	for _, fence := range []string{"```html\n", "```html\r\n", "```\n"} {
		if idx := strings.Index(text, fence); idx != -1 {
			start := idx + len(fence)
			if end := strings.Index(text[start:], "```"); end != -1 {
				candidate := strings.TrimSpace(text[start : start+end])
				if looksLikeDocument(candidate) {
					return candidate
				}
			}
		}
	}

	// Raw document without a fence: slice from the doctype (or <html>) to the
	// closing tag so surrounding prose is dropped.
	lower := strings.ToLower(text)
	start := strings.Index(lower, "<!doctype html")
	if start == -1 {
		start = strings.Index(lower, "<html")
	}
	if start == -1 {
		return ""
	}
	end := strings.LastIndex(lower, "</html>")
	if end == -1 {
		return strings.TrimSpace(text[start:])
	}
	return strings.TrimSpace(text[start : end+len("</html>")])
}

func looksLikeDocument(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<!doctype html")
}
