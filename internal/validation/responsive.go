package validation

import (
	"fmt"
	"sort"

	"pagesmith/internal/render"
)

// CheckResponsive turns rendering metrics into responsive-design issues: one
// warning per viewport that overflowed horizontally. Pure transform over the
// snapshot, ordered by viewport size so reports are reproducible.
func CheckResponsive(snap *render.Snapshot) []Issue {
	if snap == nil {
		return nil
	}

	viewports := make([]render.Viewport, 0, len(snap.Metrics))
	for vp := range snap.Metrics {
		viewports = append(viewports, vp)
	}
	sort.Slice(viewports, func(i, j int) bool {
		if viewports[i].Width != viewports[j].Width {
			return viewports[i].Width < viewports[j].Width
		}
		return viewports[i].Height < viewports[j].Height
	})

	var issues []Issue
	for _, vp := range viewports {
		if snap.Metrics[vp].HasHorizontalOverflow {
			issues = append(issues, Warnf(CategoryResponsive,
				fmt.Sprintf("content overflows horizontally at the %s viewport", vp)))
		}
	}
	return issues
}

// CheckConsole surfaces page-side JavaScript errors as rendering warnings.
// Diagnostics only: a console error alone never fails a candidate.
func CheckConsole(snap *render.Snapshot) []Issue {
	if snap == nil {
		return nil
	}
	var issues []Issue
	for _, line := range snap.Console {
		if len(line) >= 6 && line[:6] == "error:" {
			issues = append(issues, Warnf(CategoryRendering, "console error while rendering: "+line[6:]))
		}
	}
	return issues
}
