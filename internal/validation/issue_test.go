package validation

import (
	"fmt"
	"math/rand"
	"testing"
)

func TestNewResult_PassedTracksErrors(t *testing.T) {
	tests := []struct {
		name   string
		issues []Issue
		passed bool
	}{
		{"no issues", nil, true},
		{"warnings only", []Issue{
			Warnf(CategoryResponsive, "overflow"),
			Warnf(CategoryAccessibility, "no sectioning"),
		}, true},
		{"single error", []Issue{
			Errorf(CategoryStructural, "missing marker"),
		}, false},
		{"error among warnings", []Issue{
			Warnf(CategoryRendering, "console error"),
			Errorf(CategoryAccessibility, "missing alt"),
			Warnf(CategoryVisual, "cramped spacing"),
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResult(tt.issues, nil, nil)
			if r.Passed != tt.passed {
				t.Errorf("Passed = %v, want %v", r.Passed, tt.passed)
			}
		})
	}
}

// Randomized issue lists must always satisfy: Passed iff no error issue, and
// Errors()+Warnings() partition Issues.
func TestResult_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cats := []Category{
		CategoryStructural, CategoryRendering, CategoryResponsive,
		CategoryAccessibility, CategoryVisual,
	}

	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(8)
		issues := make([]Issue, 0, n)
		errCount := 0
		for i := 0; i < n; i++ {
			cat := cats[rng.Intn(len(cats))]
			msg := fmt.Sprintf("issue %d", i)
			if rng.Intn(2) == 0 {
				issues = append(issues, Errorf(cat, msg))
				errCount++
			} else {
				issues = append(issues, Warnf(cat, msg))
			}
		}

		r := NewResult(issues, nil, nil)
		if r.Passed != (errCount == 0) {
			t.Fatalf("trial %d: Passed = %v with %d errors", trial, r.Passed, errCount)
		}
		if got := len(r.Errors()); got != errCount {
			t.Fatalf("trial %d: Errors() = %d, want %d", trial, got, errCount)
		}
		if got := len(r.Errors()) + len(r.Warnings()); got != len(issues) {
			t.Fatalf("trial %d: errors+warnings = %d, want %d", trial, got, len(issues))
		}
	}
}
