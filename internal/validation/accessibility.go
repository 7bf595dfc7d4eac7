package validation

import (
	"fmt"
	"strings"

	"pagesmith/internal/render"

	"golang.org/x/net/html"
)

// Elements that count as semantic sectioning for screen-reader navigation.
var sectioningTags = map[string]bool{
	"main":    true,
	"header":  true,
	"footer":  true,
	"nav":     true,
	"section": true,
	"article": true,
}

// CheckAccessibility inspects the artifact markup and the rendering metrics
// for basic accessibility defects: images without alternate text and a
// document with no semantic sectioning at all. Color contrast is the visual
// reviewer's job; it sees the rendered pixels, this check does not.
func CheckAccessibility(content string, snap *render.Snapshot) []Issue {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil
	}

	missingAlt := 0
	hasSectioning := false
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "img" && strings.TrimSpace(attrVal(n, "alt")) == "" {
				missingAlt++
			}
			if sectioningTags[n.Data] {
				hasSectioning = true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var issues []Issue
	if missingAlt > 0 {
		issues = append(issues, Errorf(CategoryAccessibility,
			fmt.Sprintf("%d image(s) missing alt text", missingAlt)))
	}
	if !hasSectioning && domIsNonTrivial(snap) {
		issues = append(issues, Warnf(CategoryAccessibility,
			"no semantic sectioning elements (main/header/nav/section/article) in the document"))
	}
	return issues
}

// domIsNonTrivial avoids flagging near-empty documents for missing sectioning.
func domIsNonTrivial(snap *render.Snapshot) bool {
	if snap == nil || len(snap.Metrics) == 0 {
		return true
	}
	max := 0
	for _, m := range snap.Metrics {
		if m.DOMNodeCount > max {
			max = m.DOMNodeCount
		}
	}
	return max > 10
}
