// Package crawlpage holds the intermediate record created for every URL
// the orchestrator fetches during a crawl: the raw response, whatever the
// extractor/sanitizer/mdconvert pipeline made of it, and the frontier's
// priority score. It sits between the fetcher and the composer; once a
// page reaches status Ok the orchestrator folds it into a
// normalize.NormalizedMarkdownDoc for composition.
package crawlpage

import "net/url"

// ExtractionStatus records what happened to a page between fetch and
// composition, mirroring the per-page error taxonomy in spec section 7.
type ExtractionStatus string

const (
	StatusOk               ExtractionStatus = "ok"
	StatusEmpty            ExtractionStatus = "empty"
	StatusRenderedFallback ExtractionStatus = "rendered_fallback"
	StatusSkippedByRobots  ExtractionStatus = "skipped_by_robots"
	StatusFetchError       ExtractionStatus = "fetch_error"
)

// Heading is one entry of a page's extracted outline.
type Heading struct {
	level int
	text  string
}

func NewHeading(level int, text string) Heading { return Heading{level: level, text: text} }
func (h Heading) Level() int                    { return h.level }
func (h Heading) Text() string                  { return h.text }

// Page is the record described in spec section 3. Fields are set
// incrementally as the page moves through fetch, extraction, and
// normalization; Status reflects the furthest stage reached.
type Page struct {
	url         url.URL
	depth       int
	rawBytes    []byte
	contentType string

	title      string
	markdown   string
	codeBlocks []string
	headings   []Heading

	status        ExtractionStatus
	priorityScore int
}

func NewPage(pageURL url.URL, depth int, priorityScore int) *Page {
	return &Page{url: pageURL, depth: depth, priorityScore: priorityScore, status: StatusFetchError}
}

func (p *Page) URL() url.URL       { return p.url }
func (p *Page) Depth() int         { return p.depth }
func (p *Page) ContentType() string { return p.contentType }
func (p *Page) RawBytes() []byte   { return p.rawBytes }
func (p *Page) Title() string      { return p.title }
func (p *Page) Markdown() string   { return p.markdown }
func (p *Page) CodeBlocks() []string { return p.codeBlocks }
func (p *Page) Headings() []Heading  { return p.headings }
func (p *Page) Status() ExtractionStatus { return p.status }
func (p *Page) PriorityScore() int       { return p.priorityScore }

// SetFetchResult records the raw response body once the fetch succeeds.
func (p *Page) SetFetchResult(rawBytes []byte, contentType string) {
	p.rawBytes = rawBytes
	p.contentType = contentType
}

// SetExtracted records the extractor/sanitizer/mdconvert pipeline's
// output and the status it settled on. A page that never reaches this
// call keeps StatusFetchError from construction.
func (p *Page) SetExtracted(title, markdown string, codeBlocks []string, headings []Heading, status ExtractionStatus) {
	p.title = title
	p.markdown = markdown
	p.codeBlocks = codeBlocks
	p.headings = headings
	p.status = status
}

// SetStatus overrides the status directly, used for robots/fetch-error
// paths that never reach extraction.
func (p *Page) SetStatus(status ExtractionStatus) {
	p.status = status
}

// Usable reports whether the page carries content the composer can use.
func (p *Page) Usable() bool {
	return p.status == StatusOk || p.status == StatusRenderedFallback
}
