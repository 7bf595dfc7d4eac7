package review

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pagesmith/internal/validation"

	"go.uber.org/zap"
)

func testReviewer(call complete) *VisualReviewer {
	return &VisualReviewer{cfg: DefaultConfig("test-key"), call: call, log: zap.NewNop()}
}

func TestParseVerdict(t *testing.T) {
	t.Run("failing verdict with issues", func(t *testing.T) {
		issues, err := ParseVerdict(`{"is_valid": false, "issues": ["headline clipped", "buttons overlap"]}`)
		if err != nil {
			t.Fatalf("ParseVerdict: %v", err)
		}
		if len(issues) != 2 {
			t.Fatalf("got %d issues, want 2", len(issues))
		}
		for _, is := range issues {
			if is.Severity != validation.SeverityError || is.Category != validation.CategoryVisual {
				t.Errorf("issue = %+v, want visual error", is)
			}
		}
	})

	t.Run("passing verdict downgrades issues to warnings", func(t *testing.T) {
		issues, err := ParseVerdict(`{"is_valid": true, "issues": ["spacing slightly tight"]}`)
		if err != nil {
			t.Fatalf("ParseVerdict: %v", err)
		}
		if len(issues) != 1 || issues[0].Severity != validation.SeverityWarning {
			t.Errorf("issues = %+v, want a single warning", issues)
		}
	})

	t.Run("clean pass", func(t *testing.T) {
		issues, err := ParseVerdict(`{"is_valid": true, "issues": []}`)
		if err != nil {
			t.Fatalf("ParseVerdict: %v", err)
		}
		if len(issues) != 0 {
			t.Errorf("issues = %+v, want none", issues)
		}
	})

	t.Run("failing verdict without details still yields an error", func(t *testing.T) {
		issues, err := ParseVerdict(`{"is_valid": false, "issues": []}`)
		if err != nil {
			t.Fatalf("ParseVerdict: %v", err)
		}
		if len(issues) != 1 || issues[0].Severity != validation.SeverityError {
			t.Errorf("issues = %+v, want a single synthesized error", issues)
		}
	})

	t.Run("JSON buried in prose", func(t *testing.T) {
		text := "Looking at the screenshot, here is my verdict:\n" +
			`{"is_valid": false, "issues": ["text says \"{welcome}\" verbatim"]}` +
			"\nOverall the layout needs work."
		issues, err := ParseVerdict(text)
		if err != nil {
			t.Fatalf("ParseVerdict: %v", err)
		}
		if len(issues) != 1 {
			t.Fatalf("issues = %+v, want 1", issues)
		}
	})

	t.Run("no JSON at all", func(t *testing.T) {
		if _, err := ParseVerdict("looks fine to me"); err == nil {
			t.Error("expected an error for a JSON-free response")
		}
	})

	t.Run("unbalanced JSON", func(t *testing.T) {
		if _, err := ParseVerdict(`{"is_valid": false, "issues": [`); err == nil {
			t.Error("expected an error for truncated JSON")
		}
	})
}

func TestReview_SwallowsFailures(t *testing.T) {
	t.Run("transport error", func(t *testing.T) {
		r := testReviewer(func(context.Context, []byte, string) (string, error) {
			return "", errors.New("quota exceeded")
		})
		if issues := r.Review(context.Background(), []byte("png"), "a page"); issues != nil {
			t.Errorf("issues = %+v, want nil on transport failure", issues)
		}
	})

	t.Run("garbage response", func(t *testing.T) {
		r := testReviewer(func(context.Context, []byte, string) (string, error) {
			return "I am a language model and cannot help with that.", nil
		})
		if issues := r.Review(context.Background(), []byte("png"), "a page"); issues != nil {
			t.Errorf("issues = %+v, want nil on unparsable response", issues)
		}
	})

	t.Run("well-formed verdict surfaces", func(t *testing.T) {
		r := testReviewer(func(_ context.Context, _ []byte, prompt string) (string, error) {
			return `{"is_valid": false, "issues": ["background is pure noise"]}`, nil
		})
		issues := r.Review(context.Background(), []byte("png"), "a calm landing page")
		if len(issues) != 1 {
			t.Fatalf("issues = %+v, want 1", issues)
		}
		if issues[0].Message != "background is pure noise" {
			t.Errorf("message = %q", issues[0].Message)
		}
	})
}

func TestReview_PromptCarriesInstruction(t *testing.T) {
	var seen string
	r := testReviewer(func(_ context.Context, _ []byte, prompt string) (string, error) {
		seen = prompt
		return `{"is_valid": true, "issues": []}`, nil
	})
	r.Review(context.Background(), []byte("png"), "a bakery homepage")
	if !strings.Contains(seen, "a bakery homepage") {
		t.Errorf("prompt %q does not carry the instruction", seen)
	}
}
