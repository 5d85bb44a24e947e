package summarizer

import "net/url"

// SummarizeRequest carries the material the composer wants condensed
// into a single section-line summary for llms.txt's compact artifact.
type SummarizeRequest struct {
	sourceURL url.URL
	title     string
	markdown  string
	maxWords  int
}

func NewSummarizeRequest(sourceURL url.URL, title string, markdown string, maxWords int) SummarizeRequest {
	return SummarizeRequest{
		sourceURL: sourceURL,
		title:     title,
		markdown:  markdown,
		maxWords:  maxWords,
	}
}

func (r SummarizeRequest) SourceURL() url.URL {
	return r.sourceURL
}

func (r SummarizeRequest) Title() string {
	return r.title
}

func (r SummarizeRequest) Markdown() string {
	return r.markdown
}

func (r SummarizeRequest) MaxWords() int {
	return r.maxWords
}

// SummarizeResult is the text the composer inlines next to a page's
// link. Fallback marks whether the text came from the LLM or from the
// truncate-and-mark path taken after persistent provider failure.
type SummarizeResult struct {
	summary  string
	fallback bool
}

func NewSummarizeResult(summary string, fallback bool) SummarizeResult {
	return SummarizeResult{
		summary:  summary,
		fallback: fallback,
	}
}

func (r SummarizeResult) Summary() string {
	return r.summary
}

func (r SummarizeResult) Fallback() bool {
	return r.fallback
}
