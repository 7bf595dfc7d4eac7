// Package constraints holds the structural and style rules an artifact must
// satisfy. A Set is an opaque, immutable bundle from the loop's point of view:
// it is loaded (or defaulted) by the caller and only ever read.
package constraints

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ForbiddenPattern is a construct the artifact must not contain.
type ForbiddenPattern struct {
	Pattern string `yaml:"pattern" json:"pattern"` // literal substring, matched case-insensitively
	Reason  string `yaml:"reason" json:"reason"`
}

// Set bundles every rule the validators and the generator prompt derive from.
type Set struct {
	Name string `yaml:"name" json:"name"`

	// RequiredMarkers are top-level structural markers that must be present in
	// the raw document text, e.g. "<!DOCTYPE html>" or "<body".
	RequiredMarkers []string `yaml:"required_markers" json:"required_markers"`

	// RequiredResources are external resource declarations the document must
	// carry, e.g. the CDN script of the mandated styling framework.
	RequiredResources []string `yaml:"required_resources" json:"required_resources"`

	// Forbidden lists constructs that are rejected outright.
	Forbidden []ForbiddenPattern `yaml:"forbidden" json:"forbidden"`

	// InlineStylesOnly forbids <style> blocks and external stylesheets beyond
	// the required resources; all styling must be inline utility classes.
	InlineStylesOnly bool `yaml:"inline_styles_only" json:"inline_styles_only"`

	// StyleDirectives are prose rules fed verbatim into the generation prompt.
	StyleDirectives []string `yaml:"style_directives" json:"style_directives"`
}

// Default returns the rule set used when the caller supplies none: a single
// self-contained HTML page styled with Tailwind utility classes.
func Default() Set {
	return Set{
		Name: "default",
		RequiredMarkers: []string{
			"<!DOCTYPE html>",
			"<html",
			"<head",
			"<body",
		},
		RequiredResources: []string{
			"https://cdn.tailwindcss.com",
		},
		Forbidden: []ForbiddenPattern{
			{Pattern: "<iframe", Reason: "embedded frames are not allowed in generated pages"},
			{Pattern: "document.cookie", Reason: "generated pages must not touch cookies"},
		},
		InlineStylesOnly: true,
		StyleDirectives: []string{
			"Use Tailwind utility classes for all styling; do not emit <style> blocks.",
			"The page must be fully self-contained apart from the required CDN resources.",
			"Lay out content responsively; nothing may overflow horizontally on a 375px viewport.",
			"Every <img> needs a meaningful alt attribute.",
		},
	}
}

// Load reads a Set from a YAML file. Fields omitted in the file fall back to
// the zero value, not to Default; callers wanting the defaults merge themselves.
func Load(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read constraint set: %w", err)
	}
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Set{}, fmt.Errorf("parse constraint set %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}
