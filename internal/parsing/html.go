package parsing

import (
	"context"
	"strings"

	"golang.org/x/net/html"
)

// FetchText downloads one page and returns its visible text.
func (c *Crawler) FetchText(ctx context.Context, pageURL string) (string, error) {
	root, _, err := c.fetchPage(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return extractText(root), nil
}

// extractText collects the document's text nodes, skipping script and style
// subtrees, with whitespace collapsed.
func extractText(root *html.Node) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return strings.Join(parts, " ")
}
