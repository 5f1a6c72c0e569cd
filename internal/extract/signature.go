package extract

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// MatchMode says how a Signature's classes are combined.
type MatchMode string

const (
	// MatchAll requires every listed class.
	MatchAll MatchMode = "all"
	// MatchAny requires at least one listed class.
	MatchAny MatchMode = "any"
)

// Signature is a structural marker: a tag plus a set of classes. It does not
// depend on any selector engine; Matches is a plain predicate over a node.
type Signature struct {
	// Tag is the element name ("div", "span"). Empty matches any element.
	Tag string `yaml:"tag" json:"tag"`
	// Classes are the marker classes. Empty means the tag alone decides.
	Classes []string `yaml:"classes,omitempty" json:"classes,omitempty"`
	// Match is MatchAll (default) or MatchAny.
	Match MatchMode `yaml:"match,omitempty" json:"match,omitempty"`
}

// Matches reports whether n is an element carrying this signature.
func (s Signature) Matches(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if s.Tag != "" && !strings.EqualFold(n.Data, s.Tag) {
		return false
	}
	if len(s.Classes) == 0 {
		return true
	}

	have := strings.Fields(getAttr(n, "class"))
	if s.Match == MatchAny {
		for _, want := range s.Classes {
			if containsString(have, want) {
				return true
			}
		}
		return false
	}
	for _, want := range s.Classes {
		if !containsString(have, want) {
			return false
		}
	}
	return true
}

// IsZero reports whether the signature is unset.
func (s Signature) IsZero() bool {
	return s.Tag == "" && len(s.Classes) == 0
}

// String renders the signature in selector-like form, e.g. "div.a.b" or
// "div[any:a,b]".
func (s Signature) String() string {
	if len(s.Classes) == 0 {
		if s.Tag == "" {
			return "*"
		}
		return s.Tag
	}
	if s.Match == MatchAny {
		return s.Tag + "[any:" + strings.Join(s.Classes, ",") + "]"
	}
	return s.Tag + "." + strings.Join(s.Classes, ".")
}

// ParseSignature parses a simple selector "tag.class1.class2" (tag optional)
// into an all-of signature.
func ParseSignature(sel string) (Signature, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return Signature{}, fmt.Errorf("empty selector")
	}
	if strings.ContainsAny(sel, " >+~[]#:") {
		return Signature{}, fmt.Errorf("unsupported selector %q: only tag.class forms are allowed", sel)
	}

	parts := strings.Split(sel, ".")
	s := Signature{Tag: strings.ToLower(parts[0]), Match: MatchAll}
	for _, c := range parts[1:] {
		if c == "" {
			return Signature{}, fmt.Errorf("empty class in selector %q", sel)
		}
		s.Classes = append(s.Classes, c)
	}
	return s, nil
}

// Signatures groups the markers used to read a meal-plan page.
type Signatures struct {
	DateSection   Signature `yaml:"date_section" json:"date_section"`
	TimeLabel     Signature `yaml:"time_label" json:"time_label"`
	MealContainer Signature `yaml:"meal_container" json:"meal_container"`
	MealTitle     Signature `yaml:"meal_title" json:"meal_title"`
	RecipeLink    Signature `yaml:"recipe_link" json:"recipe_link"`
}

// DefaultSignatures returns the markers of the planner export.
//
// Time labels and meal containers are matched on any of their classes; the
// planner does not put the full class list on every variant of those boxes.
func DefaultSignatures() Signatures {
	return Signatures{
		DateSection: Signature{
			Tag:     "div",
			Classes: []string{"date_cards", "d-flex", "flex-column"},
			Match:   MatchAll,
		},
		TimeLabel: Signature{
			Tag:     "div",
			Classes: []string{"date_card_date", "font-small"},
			Match:   MatchAny,
		},
		MealContainer: Signature{
			Tag:     "div",
			Classes: []string{"outline-box", "pb-0", "px-2", "pt-2", "mb-2", "date_card_cont"},
			Match:   MatchAny,
		},
		MealTitle: Signature{Tag: "span", Match: MatchAll},
		RecipeLink: Signature{
			Tag:     "a",
			Classes: []string{"mealplan"},
			Match:   MatchAny,
		},
	}
}

// Normalize replaces unset signatures with defaults and fills empty match
// modes with MatchAll.
func (s *Signatures) Normalize() {
	def := DefaultSignatures()
	fill := func(sig *Signature, d Signature) {
		if sig.IsZero() {
			*sig = d
		}
		if sig.Match == "" {
			sig.Match = MatchAll
		}
	}
	fill(&s.DateSection, def.DateSection)
	fill(&s.TimeLabel, def.TimeLabel)
	fill(&s.MealContainer, def.MealContainer)
	fill(&s.MealTitle, def.MealTitle)
	fill(&s.RecipeLink, def.RecipeLink)
}

// findAll returns descendants of root (root excluded) matching sig, in
// document order. Matches nested inside matches are included.
func findAll(root *html.Node, sig Signature) []*html.Node {
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if sig.Matches(c) {
				results = append(results, c)
			}
			walk(c)
		}
	}
	walk(root)
	return results
}

// findFirst returns the first descendant of root matching sig.
func findFirst(root *html.Node, sig Signature) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if sig.Matches(c) {
			return c
		}
		if n := findFirst(c, sig); n != nil {
			return n
		}
	}
	return nil
}

// findByID returns the first element under root with the given id whose tag
// matches tag (empty tag accepts any element).
func findByID(root *html.Node, tag, id string) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode &&
			(tag == "" || strings.EqualFold(c.Data, tag)) &&
			hasAttr(c, "id") && getAttr(c, "id") == id {
			return c
		}
		if n := findByID(c, tag, id); n != nil {
			return n
		}
	}
	return nil
}

// textContent concatenates every text node under n.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
