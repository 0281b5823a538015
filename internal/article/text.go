package article

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ducanhtrinh2811-rgb/NASAspaceapp/pkg/utils"
)

// nodeText joins the trimmed text nodes under sel with single spaces.
// Script and style contents are not text.
func nodeText(sel *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return utils.CollapseWhitespace(strings.Join(parts, " "))
}

// strippedText is nodeText after removing page chrome from a copy of sel.
func strippedText(sel *goquery.Selection) string {
	clone := sel.Clone()
	clone.Find("script, style, nav, header, footer, aside").Remove()
	return nodeText(clone)
}
