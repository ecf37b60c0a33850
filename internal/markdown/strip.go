// Package markdown turns chat markdown into plain speakable text.
package markdown

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New()

// Strip removes markdown syntax. Code, images, raw HTML and autolinks are
// dropped; link text is kept. Headings and list items end as sentences so
// they are spoken with a pause. Whitespace is collapsed.
func Strip(source string) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	src := []byte(source)
	doc := md.Parser().Parse(text.NewReader(src))

	var out []byte
	starts := map[ast.Node]int{}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n := n.(type) {
		case *ast.CodeSpan, *ast.CodeBlock, *ast.FencedCodeBlock,
			*ast.Image, *ast.HTMLBlock, *ast.RawHTML, *ast.AutoLink:
			return ast.WalkSkipChildren, nil

		case *ast.Text:
			if entering {
				out = append(out, n.Segment.Value(src)...)
				if n.SoftLineBreak() || n.HardLineBreak() {
					out = append(out, ' ')
				}
			}

		case *ast.String:
			if entering {
				out = append(out, n.Value...)
			}

		case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
			if entering {
				starts[n] = len(out)
				return ast.WalkContinue, nil
			}
			out = bytes.TrimRightFunc(out, unicode.IsSpace)
			if isSentence(n) && len(out) > starts[n] {
				out = terminate(out)
			}
			out = append(out, ' ')
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(string(out)), " ")
}

// isSentence reports whether a block should be closed with punctuation:
// headings and the direct text of list items.
func isSentence(n ast.Node) bool {
	if n.Kind() == ast.KindHeading {
		return true
	}
	p := n.Parent()
	return p != nil && p.Kind() == ast.KindListItem
}

// terminate appends a period unless the text already ends in punctuation.
func terminate(out []byte) []byte {
	r, _ := utf8.DecodeLastRune(out)
	if r == utf8.RuneError || strings.ContainsRune(".!?:;", r) {
		return out
	}
	return append(out, '.')
}
