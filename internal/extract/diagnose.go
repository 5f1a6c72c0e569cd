package extract

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Helpers for looking into a page whose markers no longer match.

// ClassInventory returns every class used in the document, sorted and unique.
func ClassInventory(doc *html.Node) []string {
	seen := make(map[string]struct{})
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, c := range strings.Fields(getAttr(n, "class")) {
				seen[c] = struct{}{}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Outline writes the element tree as indented "<tag class='..' id='..'>"
// lines down to maxDepth, which is clamped to 1..5.
func Outline(w io.Writer, doc *html.Node, maxDepth int) error {
	maxDepth = max(1, min(maxDepth, 5))

	var walk func(n *html.Node, depth int) error
	walk = func(n *html.Node, depth int) error {
		if depth > maxDepth {
			return nil
		}
		if n.Type == html.ElementNode {
			line := strings.Repeat("  ", depth) + "<" + n.Data
			if c := getAttr(n, "class"); c != "" {
				line += " class='" + strings.Join(strings.Fields(c), " ") + "'"
			}
			if id := getAttr(n, "id"); id != "" {
				line += " id='" + id + "'"
			}
			if _, err := fmt.Fprintln(w, line+">"); err != nil {
				return err
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if err := walk(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if err := walk(c, 0); err != nil {
			return err
		}
	}
	return nil
}

// TextMatch is a text node containing a searched string.
type TextMatch struct {
	Parent  string `json:"parent"`
	Snippet string `json:"snippet"`
}

// FindText returns up to limit text nodes containing text (case-insensitive)
// and the total number of matches.
func FindText(doc *html.Node, text string, limit int) ([]TextMatch, int) {
	needle := strings.ToLower(text)
	var out []TextMatch
	total := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode && strings.Contains(strings.ToLower(n.Data), needle) {
			total++
			if limit <= 0 || len(out) < limit {
				parent := ""
				if n.Parent != nil {
					parent = n.Parent.Data
				}
				out = append(out, TextMatch{Parent: parent, Snippet: truncateRunes(strings.TrimSpace(n.Data), 50)})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, total
}

// ElementSummary is one element reported by Select.
type ElementSummary struct {
	Tag   string            `json:"tag"`
	Attrs map[string]string `json:"attrs,omitempty"`
	// Text is set when the element has exactly one child and it is text.
	Text string `json:"text,omitempty"`
}

// Select returns up to limit elements matching sig and the total match count.
func Select(doc *html.Node, sig Signature, limit int) ([]ElementSummary, int) {
	nodes := findAll(doc, sig)
	n := len(nodes)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]ElementSummary, 0, n)
	for _, node := range nodes[:n] {
		s := ElementSummary{Tag: node.Data}
		if len(node.Attr) > 0 {
			s.Attrs = make(map[string]string, len(node.Attr))
			for _, a := range node.Attr {
				s.Attrs[a.Key] = a.Val
			}
		}
		if c := node.FirstChild; c != nil && c.NextSibling == nil && c.Type == html.TextNode {
			s.Text = strings.TrimSpace(c.Data)
		}
		out = append(out, s)
	}
	return out, len(nodes)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
