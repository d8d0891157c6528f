package source

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// HTMLExtractor pulls the visible text out of an HTML page. Only the main
// content area is read when the page marks one. Block elements become
// blank-line separated blocks and h1-h6 become heading lines.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Extract(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var out blockWriter
	var inline strings.Builder

	flush := func() {
		out.block(collapseSpace(inline.String()))
		inline.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			inline.WriteString(n.Data)
			inline.WriteByte(' ')
			return
		case html.ElementNode:
			if skipElement(n.Data) {
				return
			}
			if headingLevel(n.Data) > 0 {
				flush()
				out.block(headingLine(textContent(n)))
				return
			}
			if n.Data == "br" {
				inline.WriteByte(' ')
				return
			}
			if isBlock(n.Data) {
				flush()
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				flush()
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(contentRoot(doc))
	flush()

	return out.String(), nil
}

func skipElement(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "template", "svg", "nav", "head", "iframe", "button", "form":
		return true
	}
	return false
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "main", "aside", "header", "footer",
		"li", "ul", "ol", "dl", "dt", "dd", "table", "tr", "td", "th",
		"blockquote", "pre", "address", "figure", "figcaption", "hr":
		return true
	}
	return false
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return collapseSpace(buf.String())
}

// contentRoot picks <main>, then role="main", then <article>, then <body>
func contentRoot(doc *html.Node) *html.Node {
	matchers := []func(*html.Node) bool{
		func(n *html.Node) bool { return isElement(n, "main") },
		func(n *html.Node) bool { return n.Type == html.ElementNode && attr(n, "role") == "main" },
		func(n *html.Node) bool { return isElement(n, "article") },
		func(n *html.Node) bool { return isElement(n, "body") },
	}
	for _, match := range matchers {
		if n := findFirst(doc, match); n != nil {
			return n
		}
	}
	return doc
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}
