package browser

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxPromptHTML bounds how much simplified HTML is handed to the language
// model.
const maxPromptHTML = 20000

// skipAtoms are elements stripped entirely during simplification.
var skipAtoms = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Link:     true,
}

// SimplifyHTML strips scripts, styles, comments, and noise attributes from a
// page so the remainder fits a language-model prompt. The interactive
// structure (forms, inputs, buttons, links) is preserved.
func SimplifyHTML(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	simplifyNode(doc)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}

	out := buf.String()
	if len(out) > maxPromptHTML {
		out = out[:maxPromptHTML]
	}
	return out, nil
}

func simplifyNode(n *html.Node) {
	var toRemove []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.CommentNode {
			toRemove = append(toRemove, c)
			continue
		}
		if c.Type == html.ElementNode && skipAtoms[c.DataAtom] {
			toRemove = append(toRemove, c)
			continue
		}
		simplifyNode(c)
	}
	for _, c := range toRemove {
		n.RemoveChild(c)
	}

	if n.Type == html.ElementNode {
		n.Attr = keepRelevantAttrs(n.Attr)
	}
	if n.Type == html.TextNode {
		n.Data = collapseWhitespace(n.Data)
	}
}

// keepRelevantAttrs drops styling and framework attributes, keeping only
// what identifies or describes an element.
func keepRelevantAttrs(attrs []html.Attribute) []html.Attribute {
	kept := attrs[:0]
	for _, a := range attrs {
		switch a.Key {
		case "id", "name", "type", "href", "action", "method", "placeholder",
			"value", "aria-label", "role", "alt", "title", "data-testid":
			kept = append(kept, a)
		}
	}
	return kept
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
