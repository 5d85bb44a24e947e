package orchestrator

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// resolveDiscoveredURL turns a possibly-relative URL found on a page into
// an absolute one and filters it down to the URLs this crawl is allowed
// to follow: http(s) scheme, same host as the seed. pkg/urlutil only
// offers Canonicalize, so resolution and host filtering live here instead
// of a shared helper package.
func resolveDiscoveredURL(base url.URL, discovered url.URL, allowedHost string) (url.URL, bool) {
	resolved := base.ResolveReference(&discovered)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return url.URL{}, false
	}
	if !strings.EqualFold(resolved.Hostname(), allowedHost) {
		return url.URL{}, false
	}
	resolved.Fragment = ""
	return *resolved, true
}

// visibleText walks a parsed content node and concatenates its text
// nodes, mirroring internal/render's unexported textContent so
// render.ShouldRender can be driven from the orchestrator without
// reaching into that package's internals.
func visibleText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
