package composer

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/internal/summarizer"
	"github.com/llmstxt/llms-txt-gen/pkg/failure"
)

/*
Composer Responsibilities
- Group crawled pages into top-level sections by URL path prefix
- Rank sections and pages by frontier priority
- Allocate a byte budget across sections and pages for llms.txt, floor
  one KB per admitted section, dropping sections that cannot meet it
- Emit llms.txt (summarized) and, when requested, llms-full.txt (cleaned,
  un-summarized) with a stable header/index/section structure
- Enforce the safety cap by dropping whole lowest-priority pages, never by
  truncating mid-page

It knows nothing about fetching, storage, or job lifecycle; it receives
already-normalized pages and a summarizer client, and returns byte slices.
*/

const (
	headerReserveFraction = 0.05
	sectionFloorBytes     = 1024
	fullSizeCapMultiplier = 10
	sizeCapSlackBytes     = 1024
	bytesPerWord          = 6
)

// Composer is the abstraction the orchestrator depends on.
type Composer interface {
	Compose(ctx context.Context, params ComposeParams, pages []PageInput, summarizerClient summarizer.Client) (ComposeResult, failure.ClassifiedError)
}

// MarkdownComposer is the only implementation; it is stateless apart from
// the metadata sink used to record composition failures.
type MarkdownComposer struct {
	metadataSink metadata.MetadataSink
}

func NewMarkdownComposer(metadataSink metadata.MetadataSink) MarkdownComposer {
	return MarkdownComposer{metadataSink: metadataSink}
}

func (c *MarkdownComposer) Compose(
	ctx context.Context,
	params ComposeParams,
	pages []PageInput,
	summarizerClient summarizer.Client,
) (ComposeResult, failure.ClassifiedError) {
	if len(pages) == 0 {
		err := &ComposeError{
			Message:   "composer received zero usable pages",
			Retryable: false,
			Cause:     ErrCauseNoUsablePages,
		}
		c.recordError(params.sourceURL, err)
		return ComposeResult{}, err
	}

	sections := groupAndRankSections(pages)

	llmsTxt, trimmed, err := c.composeCapped(ctx, params, sections, summarizerClient)
	if err != nil {
		return ComposeResult{}, err
	}

	var llmsFullTxt []byte
	if params.full {
		full, ferr := c.composeFull(params, sections)
		if ferr != nil {
			return ComposeResult{}, ferr
		}
		llmsFullTxt = full
	}

	return newComposeResult(llmsTxt, llmsFullTxt, trimmed), nil
}

// groupAndRankSections groups pages by their normalized section label,
// computes each section's aggregate priority (mean of page scores, ties
// broken by total content length descending), and returns sections sorted
// highest-priority first. Page order within a section is preserved from
// the input slice, matching crawl discovery order, for determinism.
func groupAndRankSections(pages []PageInput) []Section {
	order := make([]string, 0)
	grouped := make(map[string][]PageInput)

	for _, p := range pages {
		name := p.Doc().Frontmatter().Section()
		if _, ok := grouped[name]; !ok {
			order = append(order, name)
		}
		grouped[name] = append(grouped[name], p)
	}

	sections := make([]Section, 0, len(order))
	for _, name := range order {
		group := grouped[name]
		sum := 0
		contentLength := 0
		for _, p := range group {
			sum += p.PriorityScore()
			contentLength += approxRenderedSize(p.Doc().Content())
		}
		aggregate := float64(sum) / float64(len(group))
		sections = append(sections, newSection(name, group, aggregate, contentLength))
	}

	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].aggregatePriority != sections[j].aggregatePriority {
			return sections[i].aggregatePriority > sections[j].aggregatePriority
		}
		return sections[i].contentLength > sections[j].contentLength
	})

	return sections
}

// sectionBudgets allocates budgetBytes across sections proportionally to
// their (shifted-positive) aggregate priority weight. Sections that cannot
// meet sectionFloorBytes are dropped, and the freed budget is redistributed
// once among the survivors.
func sectionBudgets(sections []Section, budgetBytes int) (map[string]int, []string) {
	weights := positiveWeights(sections, func(s Section) float64 { return s.aggregatePriority })

	budgets, dropped := allocateByWeight(sections, weights, budgetBytes)
	if len(dropped) == 0 || len(budgets) == 0 {
		return budgets, dropped
	}

	survivors := make([]Section, 0, len(budgets))
	for _, s := range sections {
		if _, ok := budgets[s.name]; ok {
			survivors = append(survivors, s)
		}
	}
	survivorWeights := positiveWeights(survivors, func(s Section) float64 { return s.aggregatePriority })
	finalBudgets, stillDropped := allocateByWeight(survivors, survivorWeights, budgetBytes)
	dropped = append(dropped, stillDropped...)
	return finalBudgets, dropped
}

func positiveWeights(sections []Section, weightOf func(Section) float64) map[string]float64 {
	min := 0.0
	for i, s := range sections {
		w := weightOf(s)
		if i == 0 || w < min {
			min = w
		}
	}
	shift := 1.0
	if min <= 0 {
		shift = -min + 1.0
	}

	weights := make(map[string]float64, len(sections))
	for _, s := range sections {
		weights[s.name] = weightOf(s) + shift
	}
	return weights
}

func allocateByWeight(sections []Section, weights map[string]float64, budgetBytes int) (map[string]int, []string) {
	total := 0.0
	for _, w := range weights {
		total += w
	}

	budgets := make(map[string]int, len(sections))
	var dropped []string
	if total <= 0 {
		return budgets, dropped
	}

	for _, s := range sections {
		share := int(float64(budgetBytes) * weights[s.name] / total)
		if share < sectionFloorBytes {
			dropped = append(dropped, s.name)
			continue
		}
		budgets[s.name] = share
	}
	return budgets, dropped
}

// pageBudgets splits a section's budget across its pages proportionally to
// page priority score, using the same positive-shift technique as sections.
func pageBudgets(pages []PageInput, budgetBytes int) []int {
	min := 0
	for i, p := range pages {
		if i == 0 || p.PriorityScore() < min {
			min = p.PriorityScore()
		}
	}
	shift := 1
	if min <= 0 {
		shift = -min + 1
	}

	total := 0
	for _, p := range pages {
		total += p.PriorityScore() + shift
	}

	budgets := make([]int, len(pages))
	if total <= 0 {
		even := budgetBytes / len(pages)
		for i := range budgets {
			budgets[i] = even
		}
		return budgets
	}

	for i, p := range pages {
		weight := p.PriorityScore() + shift
		budgets[i] = budgetBytes * weight / total
	}
	return budgets
}

func (c *MarkdownComposer) composeCapped(
	ctx context.Context,
	params ComposeParams,
	sections []Section,
	summarizerClient summarizer.Client,
) ([]byte, []string, failure.ClassifiedError) {
	capBytes := params.sizeCapKB * 1024
	headerBytes := int(float64(capBytes) * headerReserveFraction)
	remaining := capBytes - headerBytes
	if remaining < sectionFloorBytes {
		remaining = sectionFloorBytes
	}

	budgets, trimmedNames := sectionBudgets(sections, remaining)

	rendered := make([]renderedSection, 0, len(sections))
	for _, s := range sections {
		budget, ok := budgets[s.name]
		if !ok {
			continue
		}

		perPage := pageBudgets(s.pages, budget)
		pages := make([]renderedPage, 0, len(s.pages))
		for i, p := range s.pages {
			if err := ctx.Err(); err != nil {
				composeErr := &ComposeError{
					Message:   fmt.Sprintf("composition cancelled: %v", err),
					Retryable: false,
					Cause:     ErrCauseSummarizationAborted,
				}
				c.recordError(params.sourceURL, composeErr)
				return nil, nil, composeErr
			}

			maxWords := perPage[i] / bytesPerWord
			if maxWords < 1 {
				maxWords = 1
			}

			pageURL := params.sourceURL
			if parsed, parseErr := url.Parse(p.Doc().Frontmatter().SourceURL()); parseErr == nil {
				pageURL = *parsed
			}

			req := summarizer.NewSummarizeRequest(
				pageURL,
				p.Doc().Frontmatter().Title(),
				string(p.Doc().Content()),
				maxWords,
			)
			result, sumErr := summarizerClient.Summarize(ctx, req)
			if sumErr != nil {
				composeErr := &ComposeError{
					Message:   fmt.Sprintf("summarizer call failed: %v", sumErr),
					Retryable: sumErr.Severity() == failure.SeverityRecoverable,
					Cause:     ErrCauseSummarizationAborted,
				}
				c.recordError(params.sourceURL, composeErr)
				return nil, nil, composeErr
			}

			pages = append(pages, renderedPage{
				title:         p.Doc().Frontmatter().Title(),
				sourceURL:     p.Doc().Frontmatter().SourceURL(),
				body:          result.Summary(),
				priorityScore: p.PriorityScore(),
			})
		}

		rendered = append(rendered, renderedSection{
			name:  s.name,
			slug:  slugify(s.name),
			pages: pages,
		})
	}

	rendered, trimmedNames = enforceSafetyCap(params, rendered, trimmedNames, capBytes+sizeCapSlackBytes)

	body := render(params, rendered, trimmedNames)
	return body, trimmedNames, nil
}

func (c *MarkdownComposer) composeFull(params ComposeParams, sections []Section) ([]byte, failure.ClassifiedError) {
	rendered := make([]renderedSection, 0, len(sections))
	for _, s := range sections {
		pages := make([]renderedPage, 0, len(s.pages))
		for _, p := range s.pages {
			pages = append(pages, renderedPage{
				title:         p.Doc().Frontmatter().Title(),
				sourceURL:     p.Doc().Frontmatter().SourceURL(),
				body:          string(p.Doc().Content()),
				priorityScore: p.PriorityScore(),
			})
		}
		rendered = append(rendered, renderedSection{
			name:  s.name,
			slug:  slugify(s.name),
			pages: pages,
		})
	}

	safetyCap := params.sizeCapKB * 1024 * fullSizeCapMultiplier
	rendered, _ = enforceSafetyCap(params, rendered, nil, safetyCap)

	return render(params, rendered, nil), nil
}

// enforceSafetyCap renders the current section set and, while the result
// exceeds capBytes, drops the single lowest-priority page across all
// sections (never truncates a page body) and re-renders, bounded by the
// total page count so it always terminates.
func enforceSafetyCap(params ComposeParams, rendered []renderedSection, trimmedNames []string, capBytes int) ([]renderedSection, []string) {
	totalPages := 0
	for _, s := range rendered {
		totalPages += len(s.pages)
	}

	for attempt := 0; attempt <= totalPages; attempt++ {
		size := len(render(params, rendered, trimmedNames))
		if size <= capBytes {
			return rendered, trimmedNames
		}

		worstSection, worstPage := findWorstPage(rendered)
		if worstSection < 0 {
			return rendered, trimmedNames
		}
		rendered[worstSection].pages = append(
			rendered[worstSection].pages[:worstPage],
			rendered[worstSection].pages[worstPage+1:]...,
		)
		if len(rendered[worstSection].pages) == 0 {
			trimmedNames = append(trimmedNames, rendered[worstSection].name)
			rendered = append(rendered[:worstSection], rendered[worstSection+1:]...)
		}
	}
	return rendered, trimmedNames
}

func findWorstPage(rendered []renderedSection) (int, int) {
	worstSection, worstPage := -1, -1
	worstScore := 0
	for si, s := range rendered {
		for pi, p := range s.pages {
			if worstSection == -1 || p.priorityScore < worstScore {
				worstSection, worstPage, worstScore = si, pi, p.priorityScore
			}
		}
	}
	return worstSection, worstPage
}

type renderedPage struct {
	title         string
	sourceURL     string
	body          string
	priorityScore int
}

type renderedSection struct {
	name  string
	slug  string
	pages []renderedPage
}

// render assembles the stable llms.txt/llms-full.txt structure: header
// block, index of section anchors, then each section's pages in order.
func render(params ComposeParams, sections []renderedSection, trimmedNames []string) []byte {
	var b strings.Builder

	title := params.siteTitle
	if title == "" {
		title = params.sourceURL.Host
	}
	fmt.Fprintf(&b, "# %s\n", title)
	fmt.Fprintf(&b, "> Source: %s\n", params.sourceURL.String())
	fmt.Fprintf(&b, "> Generated: %s\n\n", params.generatedAt.UTC().Format(time.RFC3339))

	b.WriteString("## Index\n")
	for _, s := range sections {
		fmt.Fprintf(&b, "- [%s](#%s)\n", s.name, s.slug)
	}
	b.WriteString("\n")

	for _, s := range sections {
		fmt.Fprintf(&b, "## %s\n\n", s.name)
		for _, p := range s.pages {
			fmt.Fprintf(&b, "### %s\n", p.title)
			if p.sourceURL != "" {
				fmt.Fprintf(&b, "> %s\n", p.sourceURL)
			}
			b.WriteString("\n")
			b.WriteString(strings.TrimSpace(p.body))
			b.WriteString("\n\n")
		}
	}

	if len(trimmedNames) > 0 {
		comment := fmt.Sprintf("<!-- trimmed sections: %s -->\n", strings.Join(trimmedNames, ", "))
		capacity := params.sizeCapKB*1024 + sizeCapSlackBytes
		if params.sizeCapKB == 0 || b.Len()+len(comment) <= capacity {
			b.WriteString(comment)
		}
	}

	return []byte(b.String())
}

func (c *MarkdownComposer) recordError(sourceURL url.URL, err *ComposeError) {
	c.metadataSink.RecordError(
		time.Now(),
		"composer",
		"MarkdownComposer.Compose",
		mapComposeErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, sourceURL.String()),
		},
	)
}
