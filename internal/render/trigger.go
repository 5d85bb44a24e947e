package render

import (
	"strings"

	"golang.org/x/net/html"
)

// MeaningfulCharThreshold is the extracted-text length below which a page
// is considered a candidate for the headless-render fallback.
const MeaningfulCharThreshold = 200

// InlineScriptByteThreshold is how many bytes of inline (non-src) <script>
// body content count as "substantial" evidence that a page depends on
// client-side rendering.
const InlineScriptByteThreshold = 1024

// ShouldRender reports whether static extraction was thin enough, and the
// page script-heavy enough, to justify paying for a headless render.
// extractedText is the text content a static extraction pass produced from
// rawHTML; both are required so a page that is merely short (e.g. a stub
// page with no JS) isn't needlessly re-rendered.
func ShouldRender(rawHTML []byte, extractedText string) bool {
	if meaningfulCharCount(extractedText) >= MeaningfulCharThreshold {
		return false
	}
	return inlineScriptBytes(rawHTML) >= InlineScriptByteThreshold
}

func meaningfulCharCount(text string) int {
	return len(strings.TrimSpace(text))
}

// inlineScriptBytes sums the byte length of every <script> element's body
// text that does not carry a src attribute, i.e. script content actually
// embedded in the page rather than loaded externally.
func inlineScriptBytes(rawHTML []byte) int {
	doc, err := html.Parse(strings.NewReader(string(rawHTML)))
	if err != nil {
		return 0
	}

	total := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			if !hasAttr(n, "src") {
				total += len(textContent(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return total
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}
