package validation

import (
	"strings"
	"testing"

	"pagesmith/internal/render"
)

func bigDOM() *render.Snapshot {
	return &render.Snapshot{Metrics: map[render.Viewport]render.Metrics{
		{Width: 375, Height: 667}: {DOMNodeCount: 120},
	}}
}

func TestCheckAccessibility(t *testing.T) {
	t.Run("clean document", func(t *testing.T) {
		content := `<html><body><main>
			<img src="a.png" alt="hero banner">
			<img src="b.png" alt="team photo">
		</main></body></html>`
		if issues := CheckAccessibility(content, bigDOM()); len(issues) != 0 {
			t.Errorf("unexpected issues: %v", issues)
		}
	})

	t.Run("missing alt text is an error", func(t *testing.T) {
		content := `<html><body><main>
			<img src="a.png">
			<img src="b.png" alt="  ">
			<img src="c.png" alt="fine">
		</main></body></html>`
		issues := CheckAccessibility(content, bigDOM())
		if len(issues) != 1 {
			t.Fatalf("got %d issues, want 1: %v", len(issues), issues)
		}
		is := issues[0]
		if is.Severity != SeverityError || is.Category != CategoryAccessibility {
			t.Errorf("issue = %+v, want accessibility error", is)
		}
		if !strings.Contains(is.Message, "2 image(s)") {
			t.Errorf("message %q should count two images", is.Message)
		}
	})

	t.Run("no sectioning on a non-trivial page is a warning", func(t *testing.T) {
		content := `<html><body><div><p>lots of content</p></div></body></html>`
		issues := CheckAccessibility(content, bigDOM())
		if len(issues) != 1 {
			t.Fatalf("got %d issues, want 1: %v", len(issues), issues)
		}
		if issues[0].Severity != SeverityWarning {
			t.Errorf("issue = %+v, want warning", issues[0])
		}
	})

	t.Run("tiny page skips the sectioning warning", func(t *testing.T) {
		content := `<html><body><p>hi</p></body></html>`
		snap := &render.Snapshot{Metrics: map[render.Viewport]render.Metrics{
			{Width: 375, Height: 667}: {DOMNodeCount: 5},
		}}
		if issues := CheckAccessibility(content, snap); len(issues) != 0 {
			t.Errorf("unexpected issues: %v", issues)
		}
	})

	t.Run("any sectioning element satisfies the check", func(t *testing.T) {
		for _, tag := range []string{"main", "header", "footer", "nav", "section", "article"} {
			content := "<html><body><" + tag + ">content</" + tag + "></body></html>"
			if issues := CheckAccessibility(content, bigDOM()); len(issues) != 0 {
				t.Errorf("%s: unexpected issues: %v", tag, issues)
			}
		}
	})
}
