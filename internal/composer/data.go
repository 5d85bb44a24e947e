package composer

import (
	"net/url"
	"time"

	"github.com/llmstxt/llms-txt-gen/internal/normalize"
)

// PageInput is a normalized document plus the priority score the frontier
// assigned it during crawl, the two pieces of data the composer needs to
// group, rank, and budget pages without knowing anything about how either
// was computed.
type PageInput struct {
	doc           normalize.NormalizedMarkdownDoc
	priorityScore int
}

func NewPageInput(doc normalize.NormalizedMarkdownDoc, priorityScore int) PageInput {
	return PageInput{
		doc:           doc,
		priorityScore: priorityScore,
	}
}

func (p PageInput) Doc() normalize.NormalizedMarkdownDoc {
	return p.doc
}

func (p PageInput) PriorityScore() int {
	return p.priorityScore
}

// Section groups pages sharing a top-level URL path prefix. AggregatePriority
// is the mean of its pages' priority scores, used to rank and budget
// sections. Trimmed is never set by the composer and always reports
// false; the names of sections dropped for missing the per-section budget
// floor are reported through ComposeResult.TrimmedSections instead.
type Section struct {
	name              string
	pages             []PageInput
	aggregatePriority float64
	contentLength     int
	trimmed           bool
}

func newSection(name string, pages []PageInput, aggregatePriority float64, contentLength int) Section {
	return Section{
		name:              name,
		pages:             pages,
		aggregatePriority: aggregatePriority,
		contentLength:     contentLength,
	}
}

func (s Section) Name() string {
	return s.name
}

func (s Section) Pages() []PageInput {
	return s.pages
}

func (s Section) AggregatePriority() float64 {
	return s.aggregatePriority
}

func (s Section) Trimmed() bool {
	return s.trimmed
}

// ComposeParams carries the site-level facts the header block and budget
// allocator need but that no individual page knows about.
type ComposeParams struct {
	siteTitle   string
	sourceURL   url.URL
	generatedAt time.Time
	sizeCapKB   int
	full        bool
}

func NewComposeParams(siteTitle string, sourceURL url.URL, generatedAt time.Time, sizeCapKB int, full bool) ComposeParams {
	return ComposeParams{
		siteTitle:   siteTitle,
		sourceURL:   sourceURL,
		generatedAt: generatedAt,
		sizeCapKB:   sizeCapKB,
		full:        full,
	}
}

func (p ComposeParams) SiteTitle() string {
	return p.siteTitle
}

func (p ComposeParams) SourceURL() url.URL {
	return p.sourceURL
}

func (p ComposeParams) GeneratedAt() time.Time {
	return p.generatedAt
}

func (p ComposeParams) SizeCapKB() int {
	return p.sizeCapKB
}

func (p ComposeParams) Full() bool {
	return p.full
}

// ComposeResult holds the composed artifacts. LlmsFullTxt is nil when the
// caller did not request it (ComposeParams.Full() == false).
type ComposeResult struct {
	llmsTxt         []byte
	llmsFullTxt     []byte
	trimmedSections []string
}

func newComposeResult(llmsTxt, llmsFullTxt []byte, trimmedSections []string) ComposeResult {
	return ComposeResult{
		llmsTxt:         llmsTxt,
		llmsFullTxt:     llmsFullTxt,
		trimmedSections: trimmedSections,
	}
}

func (r ComposeResult) LlmsTxt() []byte {
	return r.llmsTxt
}

func (r ComposeResult) LlmsFullTxt() []byte {
	return r.llmsFullTxt
}

func (r ComposeResult) TrimmedSections() []string {
	return r.trimmedSections
}
