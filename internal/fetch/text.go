package fetch

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// blockElements get a separating space so adjacent blocks do not run together.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "footer": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "header": true,
	"hr": true, "li": true, "main": true, "ol": true, "p": true, "pre": true,
	"section": true, "table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// CollapseWhitespace replaces every whitespace run with a single space and trims the result.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// HTMLToText strips tags from an HTML fragment and collapses whitespace.
// Entity-escaped markup (as served by some board APIs) is unescaped first.
func HTMLToText(fragment string) string {
	if fragment == "" {
		return ""
	}
	if strings.Contains(fragment, "&lt;") {
		fragment = html.UnescapeString(fragment)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return CollapseWhitespace(fragment)
	}
	doc.Find("script, style, noscript").Remove()

	var b strings.Builder
	for _, n := range doc.Nodes {
		writeText(&b, n)
	}
	return CollapseWhitespace(b.String())
}

func writeText(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte(' ')
	}
}
