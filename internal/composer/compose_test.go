package composer_test

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/llmstxt/llms-txt-gen/internal/composer"
	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/internal/normalize"
	"github.com/llmstxt/llms-txt-gen/internal/summarizer"
	"github.com/llmstxt/llms-txt-gen/pkg/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSummarizer truncates to the requested word budget, mirroring the
// HTTPClient's own fallback path, so tests can assert on exact word counts
// without a network dependency.
type stubSummarizer struct{}

func (stubSummarizer) Summarize(_ context.Context, req summarizer.SummarizeRequest) (summarizer.SummarizeResult, failure.ClassifiedError) {
	words := strings.Fields(req.Markdown())
	limit := req.MaxWords()
	if limit > len(words) {
		limit = len(words)
	}
	return summarizer.NewSummarizeResult(strings.Join(words[:limit], " "), false), nil
}

func mustURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func page(t *testing.T, section, sourceURL, title, body string, score int) composer.PageInput {
	t.Helper()
	fm := normalize.NewFrontmatter(
		title,
		sourceURL,
		sourceURL,
		1,
		section,
		"doc-"+title,
		"hash-"+title,
		time.Unix(0, 0),
		"test",
	)
	doc := normalize.NewNormalizedMarkdownDoc(fm, []byte(body))
	return composer.NewPageInput(doc, score)
}

func TestCompose_GroupsSectionsAndEmitsIndex(t *testing.T) {
	pages := []composer.PageInput{
		page(t, "Guide", "https://example.com/guide/start", "Getting Started",
			"one two three four five six seven eight nine ten", 2),
		page(t, "API", "https://example.com/api/widgets", "Widgets API",
			"alpha beta gamma delta epsilon zeta eta theta iota kappa", 1),
	}

	params := composer.NewComposeParams("Example Docs", mustURL(t, "https://example.com"), time.Unix(0, 0), 500, false)
	c := composer.NewMarkdownComposer(metadata.NoopSink{})

	result, err := c.Compose(context.Background(), params, pages, stubSummarizer{})
	require.NoError(t, err)

	out := string(result.LlmsTxt())
	assert.Contains(t, out, "# Example Docs")
	assert.Contains(t, out, "## Index")
	assert.Contains(t, out, "[Guide](#guide)")
	assert.Contains(t, out, "[API](#api)")
	assert.Contains(t, out, "### Getting Started")
	assert.Contains(t, out, "### Widgets API")
	assert.Nil(t, result.LlmsFullTxt())
}

func TestCompose_NoUsablePagesFails(t *testing.T) {
	params := composer.NewComposeParams("Example Docs", mustURL(t, "https://example.com"), time.Unix(0, 0), 500, false)
	c := composer.NewMarkdownComposer(metadata.NoopSink{})

	_, err := c.Compose(context.Background(), params, nil, stubSummarizer{})
	require.Error(t, err)
}

func TestCompose_FullArtifactCarriesUnsummarizedMarkdown(t *testing.T) {
	longBody := strings.Repeat("word ", 500)
	pages := []composer.PageInput{
		page(t, "Guide", "https://example.com/guide/start", "Getting Started", longBody, 2),
	}

	params := composer.NewComposeParams("Example Docs", mustURL(t, "https://example.com"), time.Unix(0, 0), 1, true)
	c := composer.NewMarkdownComposer(metadata.NoopSink{})

	result, err := c.Compose(context.Background(), params, pages, stubSummarizer{})
	require.NoError(t, err)

	require.NotNil(t, result.LlmsFullTxt())
	full := string(result.LlmsFullTxt())
	assert.Equal(t, 500, strings.Count(full, "word"))

	// The capped artifact summarizes down from the same body, so it must be
	// strictly smaller than the full artifact's page content.
	assert.Less(t, len(result.LlmsTxt()), len(full))
}

func TestCompose_DropsSectionsBelowFloorWhenCapIsTiny(t *testing.T) {
	pages := []composer.PageInput{
		page(t, "Guide", "https://example.com/guide/a", "A", strings.Repeat("word ", 50), 5),
		page(t, "Changelog", "https://example.com/changelog/b", "B", strings.Repeat("word ", 50), -3),
	}

	// 2KB cap leaves ~1.9KB after the header reserve, enough for exactly one
	// section at the 1KB floor but not both.
	params := composer.NewComposeParams("Example Docs", mustURL(t, "https://example.com"), time.Unix(0, 0), 2, false)
	c := composer.NewMarkdownComposer(metadata.NoopSink{})

	result, err := c.Compose(context.Background(), params, pages, stubSummarizer{})
	require.NoError(t, err)

	assert.NotEmpty(t, result.TrimmedSections())
	out := string(result.LlmsTxt())
	assert.Contains(t, out, "[Guide](#guide)")
	assert.NotContains(t, out, "[Changelog](#changelog)")
}

func TestCompose_SafetyCapDropsLowestPriorityPageInFullArtifact(t *testing.T) {
	pages := []composer.PageInput{
		page(t, "Guide", "https://example.com/guide/a", "Important", strings.Repeat("word ", 1500), 10),
		page(t, "Guide", "https://example.com/guide/b", "LeastImportant", strings.Repeat("word ", 1500), -10),
	}

	// sizeCapKB of 1 gives a 10KB full-artifact safety cap: one 1500-word
	// page fits under it, two do not, forcing exactly one drop.
	params := composer.NewComposeParams("Example Docs", mustURL(t, "https://example.com"), time.Unix(0, 0), 1, true)
	c := composer.NewMarkdownComposer(metadata.NoopSink{})

	result, err := c.Compose(context.Background(), params, pages, stubSummarizer{})
	require.NoError(t, err)

	full := string(result.LlmsFullTxt())
	assert.Contains(t, full, "Important")
	assert.NotContains(t, full, "LeastImportant")
}
