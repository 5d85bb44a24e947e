package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/llmstxt/llms-txt-gen/internal/composer"
	"github.com/llmstxt/llms-txt-gen/internal/config"
	"github.com/llmstxt/llms-txt-gen/internal/crawlpage"
	"github.com/llmstxt/llms-txt-gen/internal/extractor"
	"github.com/llmstxt/llms-txt-gen/internal/fetcher"
	"github.com/llmstxt/llms-txt-gen/internal/frontier"
	"github.com/llmstxt/llms-txt-gen/internal/job"
	"github.com/llmstxt/llms-txt-gen/internal/logging"
	"github.com/llmstxt/llms-txt-gen/internal/mdconvert"
	"github.com/llmstxt/llms-txt-gen/internal/normalize"
	"github.com/llmstxt/llms-txt-gen/internal/render"
	"github.com/llmstxt/llms-txt-gen/internal/robots"
	"github.com/llmstxt/llms-txt-gen/internal/sanitizer"
	"github.com/llmstxt/llms-txt-gen/pkg/failure"
	"github.com/llmstxt/llms-txt-gen/pkg/hashutil"
	"github.com/llmstxt/llms-txt-gen/pkg/limiter"
	"github.com/llmstxt/llms-txt-gen/pkg/retry"
)

// crawlRun holds the state shared by the bounded worker pool that drains
// one job's frontier. It grounds on internal/scheduler.Scheduler, pulled
// apart into a worker-per-token pool bounded by cfg.Concurrency() instead
// of a single synchronous loop, since spec section 5 asks for concurrent
// fetches per job rather than one in flight at a time.
type crawlRun struct {
	ctx    context.Context
	cancel context.CancelFunc

	job     *job.Job
	manager *job.Manager
	cfg     config.Config
	rec     *logging.Recorder

	seedHost      string
	respectRobots bool
	appVersion    string

	robot       *robots.CachedRobot
	fetcher     *fetcher.HtmlFetcher
	extractor   *extractor.DomExtractor
	sanitizer   *sanitizer.HtmlSanitizer
	convertRule *mdconvert.StrictConversionRule
	normalizer  *normalize.MarkdownConstraint
	renderer    *render.RodRenderer
	frontier    *frontier.CrawlFrontier
	rateLimiter *limiter.ConcurrentRateLimiter
	retryParam  retry.RetryParam

	mu      sync.Mutex
	cond    sync.Cond
	pending int

	pages      []*crawlpage.Page
	pageInputs []composer.PageInput
	processed  int
	crawled    int
	errCount   int
	fatal      failure.ClassifiedError
}

// admitSeed runs the seed URL through the same robots check every
// discovered link goes through, but unlike admit it surfaces a robots
// infrastructure failure to the caller instead of swallowing it: with no
// pages admitted yet, a seed that can't clear robots means the job has
// nothing to crawl.
func (r *crawlRun) admitSeed(seedURL url.URL) failure.ClassifiedError {
	if !r.respectRobots {
		r.submit(seedURL, frontier.SourceSeed, frontier.NewDiscoveryMetadata(0, nil))
		return nil
	}

	decision, robotsErr := r.robot.Decide(seedURL)
	if robotsErr != nil {
		return robotsErr
	}
	r.applyDecision(seedURL.Hostname(), decision)
	if !decision.Allowed {
		return &robots.RobotsError{
			Message:   "robots.txt disallows the seed URL",
			Retryable: false,
			Cause:     robots.ErrCauseDisallowRoot,
		}
	}
	r.submit(decision.Url, frontier.SourceSeed, frontier.NewDiscoveryMetadata(0, nil))
	return nil
}

// admit is the choke point every discovered link passes through before
// it can reach the frontier: decide robots permission, record any
// crawl-delay, then submit. A robots infrastructure failure here is
// logged and counted, never fatal to the crawl, mirroring
// internal/scheduler's per-link admission loop.
func (r *crawlRun) admit(targetURL url.URL, source frontier.SourceContext, meta frontier.DiscoveryMetadata) {
	if r.ctx.Err() != nil {
		return
	}
	if !r.respectRobots {
		r.submit(targetURL, source, meta)
		return
	}

	decision, robotsErr := r.robot.Decide(targetURL)
	if robotsErr != nil {
		r.countError()
		return
	}
	r.applyDecision(targetURL.Hostname(), decision)
	if !decision.Allowed {
		r.skipByRobots(decision.Url, meta.Depth())
		return
	}
	r.submit(decision.Url, source, meta)
}

// skipByRobots records a disallowed URL instead of dropping it silently,
// so it shows up in the job's processing logs per spec section 7's
// discovery-error handling and section 8 scenario S2. It deliberately
// does not feed finishPage: a robots-disallowed URL was never crawled,
// so it must not count toward pages_processed.
func (r *crawlRun) skipByRobots(targetURL url.URL, depth int) {
	page := crawlpage.NewPage(targetURL, depth, frontier.Score(targetURL, depth, false))
	page.SetStatus(crawlpage.StatusSkippedByRobots)
	r.manager.AppendLog(r.job, "skipped_by_robots: "+targetURL.String())
}

func (r *crawlRun) applyDecision(host string, decision robots.Decision) {
	r.rateLimiter.ResetBackoff(host)
	if decision.CrawlDelay > 0 {
		r.rateLimiter.SetCrawlDelay(host, decision.CrawlDelay)
	}
}

func (r *crawlRun) submit(targetURL url.URL, source frontier.SourceContext, meta frontier.DiscoveryMetadata) {
	outcome := r.frontier.Submit(frontier.NewCrawlAdmissionCandidate(targetURL, source, meta))
	if outcome == frontier.SubmitPageCapExceeded {
		r.manager.AppendLog(r.job, "not crawled (max_pages reached): "+targetURL.String())
	}
}

func (r *crawlRun) countError() {
	r.mu.Lock()
	r.errCount++
	r.mu.Unlock()
}

// drain runs cfg.Concurrency() workers against the frontier until it is
// empty and every in-flight token has finished, then returns. The global
// fetch concurrency cap is enforced a layer down by
// fetcher.ConcurrencyLimiter; this pool just bounds how many pipeline
// goroutines (fetch+extract+sanitize+convert+normalize) run at once.
func (r *crawlRun) drain() {
	start := time.Now()
	workers := r.cfg.Concurrency()
	if workers < 1 {
		workers = 1
	}

	var group errgroup.Group
	for i := 0; i < workers; i++ {
		group.Go(func() error {
			r.work()
			return nil
		})
	}
	_ = group.Wait()

	r.rec.RecordFinalCrawlStats(r.crawled, r.errCount, 0, time.Since(start))
}

func (r *crawlRun) work() {
	for {
		token, ok := r.nextToken()
		if !ok {
			return
		}
		r.processToken(token)
		r.taskDone()
	}
}

// nextToken blocks until either the frontier yields a token or the crawl
// is provably drained (frontier empty and nothing in flight that could
// still submit more candidates). It also unblocks on cancellation so a
// worker idling in cond.Wait doesn't outlive the job.
func (r *crawlRun) nextToken() (frontier.CrawlToken, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		if r.job.IsCancelled() || r.ctx.Err() != nil {
			return frontier.CrawlToken{}, false
		}
		if token, ok := r.frontier.Dequeue(); ok {
			r.pending++
			return token, true
		}
		if r.pending == 0 {
			return frontier.CrawlToken{}, false
		}
		r.cond.Wait()
	}
}

func (r *crawlRun) taskDone() {
	r.mu.Lock()
	r.pending--
	r.cond.Broadcast()
	r.mu.Unlock()
}

// abort records the first fatal error the crawl hits and cancels the
// run's context so other in-flight workers stop fetching quickly instead
// of draining the whole remaining frontier first.
func (r *crawlRun) abort(err failure.ClassifiedError) {
	r.mu.Lock()
	if r.fatal == nil {
		r.fatal = err
	}
	r.mu.Unlock()
	r.cancel()
}

// processToken runs one URL through fetch, extract, an optional render
// fallback, sanitize, link discovery, convert, and normalize. A
// recoverable failure at any stage marks the page unusable and returns;
// a fatal one additionally aborts the whole crawl, per the severity
// branching in internal/scheduler.ExecuteCrawling.
func (r *crawlRun) processToken(token frontier.CrawlToken) {
	if r.job.IsCancelled() || r.ctx.Err() != nil {
		return
	}

	host := token.URL().Hostname()
	if delay := r.rateLimiter.ResolveDelay(host); delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-r.ctx.Done():
			timer.Stop()
			return
		}
	}

	page := crawlpage.NewPage(token.URL(), token.Depth(), frontier.Score(token.URL(), token.Depth(), false))

	fetchParam := fetcher.NewFetchParam(token.URL(), r.cfg.UserAgent())
	fetchResult, fetchErr := r.fetcher.Fetch(r.ctx, token.Depth(), fetchParam, r.retryParam)
	r.rateLimiter.MarkLastFetchAsNow(host)
	if fetchErr != nil {
		r.failPage(page, crawlpage.StatusFetchError, fetchErr)
		return
	}
	if attempts := fetchResult.Attempts(); attempts > 1 {
		r.manager.AppendLog(r.job, fmt.Sprintf("retried %d time(s) before success: %s", attempts-1, token.URL().String()))
	}

	htmlBytes := fetchResult.Body()
	extraction, extractErr := r.extractor.Extract(fetchResult.URL(), htmlBytes)
	if extractErr != nil {
		r.failPage(page, crawlpage.StatusFetchError, extractErr)
		return
	}

	renderedFallback := false
	if render.ShouldRender(htmlBytes, visibleText(extraction.ContentNode)) {
		if rendered, renderErr := r.renderer.Render(r.ctx, token.URL().String()); renderErr == nil {
			if reExtraction, reErr := r.extractor.Extract(fetchResult.URL(), []byte(rendered.HTML())); reErr == nil {
				extraction = reExtraction
				renderedFallback = true
			}
		}
	}

	sanitized, sanitizeErr := r.sanitizer.Sanitize(extraction.ContentNode)
	if sanitizeErr != nil {
		r.failPage(page, crawlpage.StatusFetchError, sanitizeErr)
		return
	}
	page.SetFetchResult(htmlBytes, contentTypeOf(fetchResult.Headers()))

	for _, discovered := range sanitized.GetDiscoveredURLs() {
		if resolved, ok := resolveDiscoveredURL(token.URL(), discovered, r.seedHost); ok {
			r.admit(resolved, frontier.SourceCrawl, frontier.NewDiscoveryMetadata(token.Depth()+1, nil))
		}
	}

	conversionResult, convertErr := r.convertRule.Convert(sanitized)
	if convertErr != nil {
		r.failPage(page, crawlpage.StatusEmpty, convertErr)
		return
	}

	normalizeParam := normalize.NewNormalizeParam(r.appVersion, fetchResult.FetchedAt(), hashutil.HashAlgoSHA256, token.Depth(), r.cfg.AllowedPathPrefix())
	normalizedDoc, normalizeErr := r.normalizer.Normalize(fetchResult.URL(), conversionResult, normalizeParam)
	if normalizeErr != nil {
		r.failPage(page, crawlpage.StatusEmpty, normalizeErr)
		return
	}

	status := crawlpage.StatusOk
	if renderedFallback {
		status = crawlpage.StatusRenderedFallback
	}
	page.SetExtracted(normalizedDoc.Frontmatter().Title(), string(normalizedDoc.Content()), nil, nil, status)
	pageInput := composer.NewPageInput(normalizedDoc, page.PriorityScore())
	r.finishPage(page, &pageInput)
}

// failPage marks a page unusable, tallies it, logs the per-page error per
// spec section 7, and aborts the whole crawl if the stage error was fatal.
func (r *crawlRun) failPage(page *crawlpage.Page, status crawlpage.ExtractionStatus, err failure.ClassifiedError) {
	page.SetStatus(status)
	r.manager.AppendLog(r.job, fmt.Sprintf("page skipped (%s): %s: %s", status, page.URL().String(), err.Error()))
	r.finishPage(page, nil)
	if err.Severity() == failure.SeverityFatal {
		r.abort(err)
	}
}

func (r *crawlRun) finishPage(page *crawlpage.Page, pageInput *composer.PageInput) {
	r.mu.Lock()
	r.pages = append(r.pages, page)
	r.processed++
	if page.Usable() {
		r.crawled++
	} else {
		r.errCount++
	}
	if pageInput != nil {
		r.pageInputs = append(r.pageInputs, *pageInput)
	}
	processed, crawled := r.processed, r.crawled
	r.mu.Unlock()

	discovered := r.frontier.VisitedCount()
	fraction := 0.0
	if discovered > 0 {
		fraction = float64(processed) / float64(discovered)
		if fraction > 1 {
			fraction = 1
		}
	}
	r.manager.RecordProgress(r.ctx, r.job, fraction, page.URL().String(), discovered, processed, crawled)
}

func contentTypeOf(headers map[string]string) string {
	for k, v := range headers {
		if k == "Content-Type" || k == "content-type" {
			return v
		}
	}
	return ""
}
