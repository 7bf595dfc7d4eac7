package validation

import (
	"context"

	"pagesmith/internal/constraints"
	"pagesmith/internal/logging"
	"pagesmith/internal/render"

	"go.uber.org/zap"
)

// Renderer is the rendering sandbox as the aggregator sees it.
type Renderer interface {
	Render(ctx context.Context, markup string, viewports []render.Viewport) (*render.Snapshot, error)
}

// Reviewer is the advisory visual review capability. Implementations swallow
// their own failures and return zero issues rather than an error.
type Reviewer interface {
	Review(ctx context.Context, screenshot []byte, instruction string) []Issue
}

// Aggregator runs every validation stage in a fixed order and merges their
// findings into one Result. The order is part of the contract: structural,
// rendering, responsive, accessibility, visual — so two runs over the same
// candidate report identically.
type Aggregator struct {
	structural *StructuralValidator
	renderer   Renderer
	reviewer   Reviewer
	viewports  []render.Viewport
	log        *zap.Logger
}

// NewAggregator wires the stages together. reviewer may be nil to disable the
// visual pass entirely.
func NewAggregator(set constraints.Set, renderer Renderer, reviewer Reviewer, viewports []render.Viewport) *Aggregator {
	if len(viewports) == 0 {
		viewports = render.DefaultViewports()
	}
	return &Aggregator{
		structural: NewStructuralValidator(set),
		renderer:   renderer,
		reviewer:   reviewer,
		viewports:  viewports,
		log:        logging.L(logging.CategoryValidate),
	}
}

// Validate judges one candidate. A rendering failure becomes a single
// rendering error and skips the stages that need a snapshot; it never aborts
// the surrounding request.
func (a *Aggregator) Validate(ctx context.Context, markup, instruction string) Result {
	issues := a.structural.Check(markup)
	checks := []string{"structural"}

	if !a.structural.Renderable(markup) {
		a.log.Debug("skipping render, document skeleton missing",
			zap.Int("structural_issues", len(issues)))
		return NewResult(issues, nil, checks)
	}

	snap, err := a.renderer.Render(ctx, markup, a.viewports)
	checks = append(checks, "rendering")
	if err != nil {
		a.log.Warn("rendering failed", zap.Error(err))
		issues = append(issues, Errorf(CategoryRendering, err.Error()))
		return NewResult(issues, nil, checks)
	}
	issues = append(issues, CheckConsole(snap)...)

	issues = append(issues, CheckResponsive(snap)...)
	checks = append(checks, "responsive")

	issues = append(issues, CheckAccessibility(markup, snap)...)
	checks = append(checks, "accessibility")

	if a.reviewer != nil && len(snap.Screenshot) > 0 {
		issues = append(issues, a.reviewer.Review(ctx, snap.Screenshot, instruction)...)
		checks = append(checks, "visual")
	}

	result := NewResult(issues, snap.Screenshot, checks)
	a.log.Info("validation complete",
		zap.Bool("passed", result.Passed),
		zap.Int("issues", len(result.Issues)),
		zap.Strings("checks", checks))
	return result
}
