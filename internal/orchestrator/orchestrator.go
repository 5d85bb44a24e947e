// Package orchestrator is the Crawl/Compose Orchestrator (C9): the
// job.PipelineRunner that drives a single job from seed URL to composed
// artifact. It grounds on internal/scheduler's admission-choke-point and
// per-stage severity branching, generalized from a single-sync-worker
// loop driving a local-file sink into a bounded worker pool that folds
// pages into an in-memory composer.PageInput slice.
package orchestrator

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rohmanhakim/dlog"

	"github.com/llmstxt/llms-txt-gen/internal/composer"
	"github.com/llmstxt/llms-txt-gen/internal/config"
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
	"github.com/llmstxt/llms-txt-gen/internal/sitemap"
	"github.com/llmstxt/llms-txt-gen/internal/summarizer"
	"github.com/llmstxt/llms-txt-gen/pkg/failure"
	"github.com/llmstxt/llms-txt-gen/pkg/limiter"
	"github.com/llmstxt/llms-txt-gen/pkg/retry"
	"github.com/llmstxt/llms-txt-gen/pkg/timeutil"
)

// retryable reports whether a classified error's severity still allows a
// retry, used wherever the orchestrator needs a JobError.Retryable flag
// and only the generic failure.ClassifiedError interface is in hand.
func retryable(err failure.ClassifiedError) bool {
	return err.Severity() == failure.SeverityRecoverable
}

// Orchestrator is the only job.PipelineRunner implementation. Manager is
// wired in after construction: job.NewManager needs a PipelineRunner to
// exist before it can be built, and Orchestrator needs the *job.Manager
// it was registered with to report progress, so cmd/ wiring constructs
// Orchestrator first, builds the Manager around it, then assigns this
// field before calling Manager.Start.
type Orchestrator struct {
	Manager *job.Manager

	defaults   config.Config
	log        dlog.Logger
	appVersion string
}

func NewOrchestrator(defaults config.Config, log dlog.Logger, appVersion string) *Orchestrator {
	return &Orchestrator{defaults: defaults, log: log, appVersion: appVersion}
}

var _ job.PipelineRunner = (*Orchestrator)(nil)

// Run drives one job end to end. It never returns an error: every
// failure path reports itself through o.Manager.Fail so the job's
// status document is the only thing callers ever need to inspect.
func (o *Orchestrator) Run(ctx context.Context, j *job.Job) {
	cfg, err := j.Inputs().ApplyTo(o.defaults)
	if err != nil {
		o.Manager.Fail(ctx, j, &job.JobError{
			Message:   "invalid generation input: " + err.Error(),
			Retryable: false,
			Cause:     job.ErrCauseValidation,
		})
		return
	}

	rec := logging.NewRecorder(o.log, j.ID())
	o.Manager.SetPhase(ctx, j, job.PhaseInitializing)

	seedURL := cfg.SeedURLs()[0]
	respectRobots := j.Inputs().RespectRobotsOrDefault()

	robot := robots.NewCachedRobot(rec)
	robot.Init(cfg.UserAgent())

	htmlFetcher := fetcher.NewHtmlFetcher(rec)
	htmlFetcher.Init(&http.Client{Timeout: cfg.Timeout()})
	htmlFetcher.SetConcurrencyLimiter(fetcher.NewConcurrencyLimiter(cfg.Concurrency(), 4))

	domExtractor := extractor.NewDomExtractorWithParams(rec, extractor.ExtractParam{
		LinkDensityThreshold: cfg.LinkDensityThreshold(),
		BodySpecificityBias:  cfg.BodySpecificityBias(),
	})
	htmlSanitizer := sanitizer.NewHTMLSanitizer(rec)
	convertRule := mdconvert.NewRule(rec)
	markdownConstraint := normalize.NewMarkdownConstraint(rec)
	renderer := render.NewRodRenderer(rec)

	crawlFrontier := frontier.NewCrawlFrontier()
	crawlFrontier.Init(cfg)

	rateLimiter := limiter.NewConcurrentRateLimiter()
	rateLimiter.SetBaseDelay(cfg.BaseDelay())
	rateLimiter.SetJitter(cfg.Jitter())
	rateLimiter.SetRandomSeed(cfg.RandomSeed())

	summarizerClient := summarizer.NewHTTPClient(rec, cfg.LLMEndpoint(), cfg.LLMAPIKey(), cfg.LLMModel(), cfg.LLMTimeout(), cfg.LLMMaxRetries(), cfg.LLMRateLimitRPS())

	retryParam := retry.NewRetryParam(
		cfg.BaseDelay(),
		cfg.Jitter(),
		cfg.RandomSeed(),
		cfg.MaxAttempt(),
		timeutil.NewBackoffParam(cfg.BackoffInitialDuration(), cfg.BackoffMultiplier(), cfg.BackoffMaxDuration()),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := &crawlRun{
		ctx:                runCtx,
		cancel:             cancel,
		job:                j,
		manager:            o.Manager,
		cfg:                cfg,
		rec:                rec,
		seedHost:           seedURL.Hostname(),
		respectRobots:      respectRobots,
		robot:              &robot,
		fetcher:            &htmlFetcher,
		extractor:          &domExtractor,
		sanitizer:          &htmlSanitizer,
		convertRule:        convertRule,
		normalizer:         &markdownConstraint,
		renderer:           renderer,
		frontier:           crawlFrontier,
		rateLimiter:        rateLimiter,
		retryParam:         retryParam,
		appVersion:         o.appVersion,
	}
	run.cond.L = &run.mu

	if sitemapEntries := discoverSitemapEntries(ctx, cfg, rec, seedURL); len(sitemapEntries) > 0 {
		for _, entry := range sitemapEntries {
			u, parseErr := url.Parse(entry.URL)
			if parseErr != nil {
				continue
			}
			run.admit(*u, frontier.SourceCrawl, frontier.NewDiscoveryMetadataFromSitemap(1, nil))
		}
	}

	if admitErr := run.admitSeed(seedURL); admitErr != nil {
		o.Manager.Fail(ctx, j, &job.JobError{
			Message:   "robots check failed for seed URL: " + admitErr.Error(),
			Retryable: admitErr.Severity() == failure.SeverityRecoverable,
			Cause:     job.ErrCauseNoUsableContent,
		})
		return
	}

	o.Manager.SetPhase(ctx, j, job.PhaseCrawling)
	run.drain()

	if j.IsCancelled() {
		o.Manager.MarkCancelled(ctx, j)
		return
	}

	if run.fatal != nil {
		o.Manager.Fail(ctx, j, &job.JobError{
			Message:   "crawl aborted: " + run.fatal.Error(),
			Retryable: retryable(run.fatal),
			Cause:     job.ErrCauseNoUsableContent,
		})
		return
	}

	o.Manager.SetPhase(ctx, j, job.PhaseExtracting)
	o.Manager.SetPhase(ctx, j, job.PhaseComposing)

	if len(run.pageInputs) == 0 {
		o.Manager.Fail(ctx, j, &job.JobError{
			Message:   "no usable pages were produced by the crawl",
			Retryable: false,
			Cause:     job.ErrCauseNoUsableContent,
		})
		return
	}

	params := composer.NewComposeParams(seedURL.Hostname(), seedURL, j.CreatedAt(), cfg.MaxArtifactKB(), j.Inputs().RequestFull)
	comp := composer.NewMarkdownComposer(rec)
	result, composeErr := comp.Compose(ctx, params, run.pageInputs, &summarizerClient)
	if composeErr != nil {
		o.Manager.Fail(ctx, j, &job.JobError{
			Message:   "composition failed: " + composeErr.Error(),
			Retryable: retryable(composeErr),
			Cause:     job.ErrCauseCompositionFatal,
		})
		return
	}

	var llmsFull []byte
	if j.Inputs().RequestFull {
		llmsFull = result.LlmsFullTxt()
	}
	totalSizeKB := (len(result.LlmsTxt()) + len(llmsFull)) / 1024
	if err := o.Manager.Complete(ctx, j, result.LlmsTxt(), llmsFull, totalSizeKB); err != nil {
		return
	}

	for _, section := range result.TrimmedSections() {
		o.Manager.AppendLog(j, "section trimmed to meet size cap: "+section)
	}
}

func discoverSitemapEntries(ctx context.Context, cfg config.Config, rec *logging.Recorder, seedURL url.URL) []sitemap.Entry {
	discoverer := sitemap.NewDiscoverer(rec, cfg.UserAgent())
	return discoverer.Discover(ctx, seedURL.Scheme, seedURL.Hostname(), nil, seedURL.String())
}
