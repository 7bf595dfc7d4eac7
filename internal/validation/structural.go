package validation

import (
	"fmt"
	"strings"

	"pagesmith/internal/constraints"

	"golang.org/x/net/html"
)

// StructuralValidator statically checks an artifact against its constraint
// set: required top-level markers, required external resources, and forbidden
// constructs. Pure and synchronous; no rendering involved.
type StructuralValidator struct {
	set constraints.Set
}

// NewStructuralValidator binds a validator to one rule set.
func NewStructuralValidator(set constraints.Set) *StructuralValidator {
	return &StructuralValidator{set: set}
}

// Check returns one error issue per violation, in rule-set order.
func (v *StructuralValidator) Check(content string) []Issue {
	var issues []Issue

	for _, marker := range v.set.RequiredMarkers {
		if !containsFold(content, marker) {
			issues = append(issues, Errorf(CategoryStructural,
				fmt.Sprintf("missing required marker %q", marker)))
		}
	}

	for _, res := range v.set.RequiredResources {
		if !containsFold(content, res) {
			issues = append(issues, Errorf(CategoryStructural,
				fmt.Sprintf("missing required resource declaration %q", res)))
		}
	}

	for _, f := range v.set.Forbidden {
		if containsFold(content, f.Pattern) {
			issues = append(issues, Errorf(CategoryStructural,
				fmt.Sprintf("forbidden construct %q: %s", f.Pattern, f.Reason)))
		}
	}

	if v.set.InlineStylesOnly {
		issues = append(issues, v.checkInlineOnly(content)...)
	}

	return issues
}

// Renderable reports whether the artifact is worth handing to the rendering
// sandbox at all. A blob with no document skeleton would only waste a Chrome
// launch on a candidate that already failed structurally.
func (v *StructuralValidator) Renderable(content string) bool {
	return containsFold(content, "<html") && containsFold(content, "<body")
}

// checkInlineOnly walks the parsed document for <style> blocks and stylesheet
// links outside the required resources.
func (v *StructuralValidator) checkInlineOnly(content string) []Issue {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		// Unparsable markup is the generator's failure, not a structural
		// finding; the raw-text checks above still apply.
		return nil
	}

	var issues []Issue
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "style":
				issues = append(issues, Errorf(CategoryStructural,
					"embedded <style> block found; all styling must be inline"))
			case "link":
				if attrVal(n, "rel") == "stylesheet" {
					href := attrVal(n, "href")
					if !v.isRequiredResource(href) {
						issues = append(issues, Errorf(CategoryStructural,
							fmt.Sprintf("external stylesheet %q is not in the allowed resource list", href)))
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return issues
}

func (v *StructuralValidator) isRequiredResource(href string) bool {
	for _, res := range v.set.RequiredResources {
		if containsFold(href, res) || containsFold(res, href) {
			return true
		}
	}
	return false
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
