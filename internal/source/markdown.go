package source

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor renders Markdown as plain text using goldmark's AST.
// Markup is dropped, headings become heading lines and list items keep a
// leading dash.
type MarkdownExtractor struct{}

func (e *MarkdownExtractor) Extract(data []byte) (string, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(data))

	var out blockWriter
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		writeMarkdownBlock(&out, n, data)
	}
	return out.String(), nil
}

func writeMarkdownBlock(out *blockWriter, n ast.Node, src []byte) {
	switch node := n.(type) {
	case *ast.Heading:
		out.block(headingLine(inlineText(node, src)))
	case *ast.List:
		var items []string
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			if t := collapseSpace(blockText(item, src)); t != "" {
				items = append(items, "- "+t)
			}
		}
		out.block(strings.Join(items, "\n"))
	case *ast.Blockquote:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			writeMarkdownBlock(out, c, src)
		}
	case *ast.HTMLBlock, *ast.ThematicBreak:
		// no prose
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		out.block(string(linesText(node, src)))
	default:
		out.block(blockText(node, src))
	}
}

// blockText flattens a block and its nested blocks into text
func blockText(n ast.Node, src []byte) string {
	if n.Type() == ast.TypeInline {
		return inlineText(n, src)
	}

	var parts []string
	hasBlockChild := false
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Type() == ast.TypeBlock {
			hasBlockChild = true
			if t := blockText(c, src); t != "" {
				parts = append(parts, t)
			}
		}
	}
	if !hasBlockChild {
		return inlineText(n, src)
	}
	return strings.Join(parts, " ")
}

// inlineText concatenates the text of inline descendants
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
			return
		case *ast.String:
			buf.Write(t.Value)
			return
		case *ast.RawHTML:
			return
		case *ast.AutoLink:
			buf.Write(t.URL(src))
			return
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}

func linesText(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return bytes.TrimSpace(buf.Bytes())
}
