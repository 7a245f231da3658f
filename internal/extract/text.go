package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// strippedText trims every descendant text node, drops empty ones and joins
// the rest without separators. Script, style and comment nodes are skipped.
func strippedText(sel *goquery.Selection) string {
	return collectText(sel, true)
}

// rawText joins descendant text nodes as they are, skipping the same nodes
// as strippedText.
func rawText(sel *goquery.Selection) string {
	return collectText(sel, false)
}

func collectText(sel *goquery.Selection, trim bool) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		appendText(&b, n, trim)
	}
	return b.String()
}

func appendText(b *strings.Builder, n *html.Node, trim bool) {
	switch n.Type {
	case html.TextNode:
		if trim {
			b.WriteString(strings.TrimSpace(n.Data))
		} else {
			b.WriteString(n.Data)
		}
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		appendText(b, c, trim)
	}
}

// runeSlice returns s[from:to] counted in characters, clamped to the string.
func runeSlice(s string, from, to int) string {
	r := []rune(s)
	if from > len(r) {
		from = len(r)
	}
	if to > len(r) {
		to = len(r)
	}
	if from < 0 {
		from = 0
	}
	if to < from {
		return ""
	}
	return string(r[from:to])
}
