package composer

import (
	"strings"

	gmarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// slugify derives a GitHub-style heading anchor: lowercase, spaces become
// hyphens, anything that is not a letter, digit, hyphen, or underscore is
// dropped. It does not attempt to disambiguate repeated headings; within a
// single composed artifact, section names are already the dedupe key.
func slugify(heading string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(heading) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r == '-' || r == '_':
			b.WriteRune(r)
			lastHyphen = false
		case r == ' ':
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		default:
			// drop punctuation, emoji, etc.
		}
	}
	return strings.Trim(b.String(), "-")
}

// approxRenderedSize parses markdown with gomarkdown and sums the byte
// length of every text-bearing node's literal content. It is used only to
// rank sections by content volume (the tie-break in groupAndRankSections);
// sections are not re-measured after summarization.
func approxRenderedSize(markdown []byte) int {
	p := parser.New()
	doc := gmarkdown.Parse(markdown, p)

	size := 0
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch n := node.(type) {
		case *ast.Text:
			size += len(n.Literal)
		case *ast.CodeBlock:
			size += len(n.Literal)
		case *ast.HTMLSpan:
			size += len(n.Literal)
		case *ast.HTMLBlock:
			size += len(n.Literal)
		}
		return ast.GoToNext
	})
	return size
}
