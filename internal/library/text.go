package library

import (
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgnsrekt/narrate/utils"
)

// Load reads a meditation file. Markdown is reduced to plain text with
// one block per line; other files are returned as they are.
func Load(path string) (string, error) {
	b, err := os.ReadFile(utils.ExpandPath(path))
	if err != nil {
		return "", fmt.Errorf("unable to read file: %w", err)
	}
	return Prepare(b, utils.IsMarkdownFile(path)), nil
}

// Prepare strips a byte order mark and, for markdown, front matter and
// formatting.
func Prepare(b []byte, markdown bool) string {
	b = utils.TrimBOM(b)
	if !markdown {
		return string(b)
	}
	return PlainText(utils.RemoveFrontmatter(b))
}

// PlainText extracts the readable text of a markdown document. Headings,
// paragraphs and list items each end up on their own line so they narrate
// as separate paragraphs. Code and HTML are dropped.
func PlainText(markdown []byte) string {
	reader := text.NewReader(markdown)
	doc := goldmark.New().Parser().Parse(reader)

	var lines []string
	var buf strings.Builder
	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			lines = append(lines, s)
		}
		buf.Reset()
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n := n.(type) {
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			if !entering {
				flush()
			}
		case *ast.Text:
			if entering {
				buf.Write(n.Segment.Value(reader.Source()))
				switch {
				case n.HardLineBreak():
					flush()
				case n.SoftLineBreak():
					buf.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				buf.Write(n.Value)
			}
		}
		return ast.WalkContinue, nil
	})
	flush()

	return strings.Join(lines, "\n")
}
