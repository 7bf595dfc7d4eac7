package validation

import (
	"context"
	"errors"
	"testing"

	"pagesmith/internal/constraints"
	"pagesmith/internal/render"

	"github.com/google/go-cmp/cmp"
)

// mockRenderer implements Renderer with an injectable func.
type mockRenderer struct {
	RenderFunc func(ctx context.Context, markup string, viewports []render.Viewport) (*render.Snapshot, error)
	calls      int
}

func (m *mockRenderer) Render(ctx context.Context, markup string, viewports []render.Viewport) (*render.Snapshot, error) {
	m.calls++
	return m.RenderFunc(ctx, markup, viewports)
}

// mockReviewer implements Reviewer with an injectable func.
type mockReviewer struct {
	ReviewFunc func(ctx context.Context, screenshot []byte, instruction string) []Issue
	calls      int
}

func (m *mockReviewer) Review(ctx context.Context, screenshot []byte, instruction string) []Issue {
	m.calls++
	return m.ReviewFunc(ctx, screenshot, instruction)
}

func cleanSnapshot() *render.Snapshot {
	return &render.Snapshot{
		Screenshot: []byte("png-bytes"),
		Metrics: map[render.Viewport]render.Metrics{
			{Width: 375, Height: 667}: {DOMNodeCount: 50},
		},
	}
}

func hasCheck(r Result, name string) bool {
	for _, c := range r.ChecksPerformed {
		if c == name {
			return true
		}
	}
	return false
}

const aggDoc = `<!DOCTYPE html>
<html><head><script src="https://cdn.tailwindcss.com"></script></head>
<body><main><h1>Hi</h1></main></body></html>`

func TestAggregator_SkipsRenderWithoutSkeleton(t *testing.T) {
	renderer := &mockRenderer{RenderFunc: func(context.Context, string, []render.Viewport) (*render.Snapshot, error) {
		t.Fatal("renderer must not run for a skeleton-less candidate")
		return nil, nil
	}}
	agg := NewAggregator(constraints.Default(), renderer, nil, nil)

	result := agg.Validate(context.Background(), "plain prose, no markup", "a page")

	if result.Passed {
		t.Error("candidate without a document skeleton must not pass")
	}
	if hasCheck(result, "rendering") {
		t.Errorf("checks = %v, rendering should not have run", result.ChecksPerformed)
	}
	if renderer.calls != 0 {
		t.Errorf("renderer called %d times, want 0", renderer.calls)
	}
}

func TestAggregator_RenderFailureIsSingleError(t *testing.T) {
	renderer := &mockRenderer{RenderFunc: func(context.Context, string, []render.Viewport) (*render.Snapshot, error) {
		return nil, errors.New("chrome crashed")
	}}
	reviewer := &mockReviewer{ReviewFunc: func(context.Context, []byte, string) []Issue {
		return []Issue{Errorf(CategoryVisual, "should never run")}
	}}
	agg := NewAggregator(constraints.Default(), renderer, reviewer, nil)

	result := agg.Validate(context.Background(), aggDoc, "a page")

	if result.Passed {
		t.Error("rendering failure must fail the candidate")
	}
	if len(result.Issues) != 1 {
		t.Fatalf("got %d issues, want exactly 1: %v", len(result.Issues), result.Issues)
	}
	is := result.Issues[0]
	if is.Severity != SeverityError || is.Category != CategoryRendering {
		t.Errorf("issue = %+v, want rendering error", is)
	}
	if hasCheck(result, "responsive") || hasCheck(result, "accessibility") || hasCheck(result, "visual") {
		t.Errorf("checks = %v, snapshot stages should be skipped", result.ChecksPerformed)
	}
	if reviewer.calls != 0 {
		t.Errorf("reviewer called %d times, want 0", reviewer.calls)
	}
}

func TestAggregator_CleanCandidatePasses(t *testing.T) {
	renderer := &mockRenderer{RenderFunc: func(context.Context, string, []render.Viewport) (*render.Snapshot, error) {
		return cleanSnapshot(), nil
	}}
	agg := NewAggregator(constraints.Default(), renderer, nil, nil)

	result := agg.Validate(context.Background(), aggDoc, "a page")

	if !result.Passed {
		t.Fatalf("clean candidate failed: %v", result.Issues)
	}
	if string(result.Screenshot) != "png-bytes" {
		t.Error("screenshot not carried into the result")
	}
	// Stage order is part of the contract; visual is absent with no reviewer.
	want := []string{"structural", "rendering", "responsive", "accessibility"}
	if diff := cmp.Diff(want, result.ChecksPerformed); diff != "" {
		t.Errorf("checks mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregator_ReviewerFindingsMerge(t *testing.T) {
	renderer := &mockRenderer{RenderFunc: func(context.Context, string, []render.Viewport) (*render.Snapshot, error) {
		return cleanSnapshot(), nil
	}}
	var seenShot []byte
	var seenInstruction string
	reviewer := &mockReviewer{ReviewFunc: func(_ context.Context, shot []byte, instruction string) []Issue {
		seenShot = shot
		seenInstruction = instruction
		return []Issue{Errorf(CategoryVisual, "headline unreadable against the background")}
	}}
	agg := NewAggregator(constraints.Default(), renderer, reviewer, nil)

	result := agg.Validate(context.Background(), aggDoc, "a dark landing page")

	if result.Passed {
		t.Error("visual error must fail the candidate")
	}
	if reviewer.calls != 1 {
		t.Errorf("reviewer called %d times, want 1", reviewer.calls)
	}
	if string(seenShot) != "png-bytes" {
		t.Error("reviewer did not receive the rendered screenshot")
	}
	if seenInstruction != "a dark landing page" {
		t.Errorf("reviewer instruction = %q", seenInstruction)
	}
	if !hasCheck(result, "visual") {
		t.Errorf("checks = %v, missing visual", result.ChecksPerformed)
	}
}

func TestAggregator_WarningsDoNotFail(t *testing.T) {
	snap := cleanSnapshot()
	snap.Metrics[render.Viewport{Width: 375, Height: 667}] = render.Metrics{
		HasHorizontalOverflow: true,
		DOMNodeCount:          50,
	}
	snap.Console = []string{"error: minor script hiccup"}
	renderer := &mockRenderer{RenderFunc: func(context.Context, string, []render.Viewport) (*render.Snapshot, error) {
		return snap, nil
	}}
	agg := NewAggregator(constraints.Default(), renderer, nil, nil)

	result := agg.Validate(context.Background(), aggDoc, "a page")

	if !result.Passed {
		t.Fatalf("warnings alone must not fail the candidate: %v", result.Issues)
	}
	if len(result.Warnings()) != 2 {
		t.Errorf("got %d warnings, want 2 (overflow + console): %v", len(result.Warnings()), result.Issues)
	}
}
