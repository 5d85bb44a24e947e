package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/pkg/failure"
)

/*
Responsibilities

- Render a page's DOM through a real headless browser when static fetch
  extraction comes back too thin to trust.
- Bound every render to a hard wall-clock timeout.
- Degrade to a no-op when no headless browser binary can be found, so a
  deployment without Chromium installed still crawls static pages fine.

This package never decides whether rendering is warranted; that call is
ShouldRender's, driven by the fetcher/extractor pipeline. Render only
performs the browser round trip once asked.
*/

// MaxRenderDuration is the hard wall-clock cap on a single render, beyond
// which the browser is killed and the render reported as a timeout.
const MaxRenderDuration = 20 * time.Second

// Renderer renders a URL through a headless browser and returns the fully
// loaded DOM's HTML.
type Renderer interface {
	Render(ctx context.Context, targetURL string) (Result, failure.ClassifiedError)
}

// Result carries the outcome of a successful render.
type Result struct {
	html       string
	renderedAt time.Time
}

func (r Result) HTML() string {
	return r.html
}

func (r Result) RenderedAt() time.Time {
	return r.renderedAt
}

// RodRenderer launches a local headless Chromium instance per render via
// go-rod. Browser-binary availability is probed once and cached, so a
// deployment missing Chromium fails fast on every call instead of retrying
// a launch that will never succeed.
type RodRenderer struct {
	metadataSink metadata.MetadataSink

	once           sync.Once
	browserBinPath string
	unavailable    bool
}

func NewRodRenderer(metadataSink metadata.MetadataSink) *RodRenderer {
	return &RodRenderer{metadataSink: metadataSink}
}

func (r *RodRenderer) Render(ctx context.Context, targetURL string) (Result, failure.ClassifiedError) {
	callerMethod := "RodRenderer.Render"
	startTime := time.Now()

	r.probeBrowser()
	if r.unavailable {
		err := &RenderError{
			Message:   "no headless browser binary found",
			Retryable: false,
			Cause:     ErrCauseBrowserUnavailable,
		}
		r.recordError(callerMethod, targetURL, err)
		return Result{}, err
	}

	renderCtx, cancel := context.WithTimeout(ctx, MaxRenderDuration)
	defer cancel()

	htmlStr, err := r.render(renderCtx, targetURL)
	duration := time.Since(startTime)

	if err != nil {
		r.recordError(callerMethod, targetURL, err)
		r.metadataSink.RecordFetch(targetURL, 0, duration, "", 1, 0)
		return Result{}, err
	}

	r.metadataSink.RecordFetch(targetURL, 200, duration, "text/html", 1, 0)
	return Result{html: htmlStr, renderedAt: time.Now()}, nil
}

func (r *RodRenderer) render(ctx context.Context, targetURL string) (string, *RenderError) {
	l := launcher.New().Bin(r.browserBinPath).Headless(true).NoSandbox(true)

	controlURL, err := l.Launch()
	if err != nil {
		return "", &RenderError{
			Message:   fmt.Sprintf("failed to launch browser: %v", err),
			Retryable: true,
			Cause:     ErrCauseLaunchFailed,
		}
	}
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", &RenderError{
			Message:   fmt.Sprintf("failed to connect to browser: %v", err),
			Retryable: true,
			Cause:     ErrCauseLaunchFailed,
		}
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: targetURL})
	if err != nil {
		return "", classifyNavigationError(ctx, err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return "", classifyNavigationError(ctx, err)
	}

	htmlStr, err := page.HTML()
	if err != nil {
		return "", classifyNavigationError(ctx, err)
	}

	return htmlStr, nil
}

func classifyNavigationError(ctx context.Context, err error) *RenderError {
	if ctx.Err() != nil {
		return &RenderError{
			Message:   fmt.Sprintf("render timed out: %v", err),
			Retryable: true,
			Cause:     ErrCauseTimeout,
		}
	}
	return &RenderError{
		Message:   fmt.Sprintf("navigation failed: %v", err),
		Retryable: true,
		Cause:     ErrCauseNavigationFailed,
	}
}

// probeBrowser resolves a local Chromium-family binary once, memoizing
// whether rendering is possible at all in this environment.
func (r *RodRenderer) probeBrowser() {
	r.once.Do(func() {
		path, has := launcher.LookPath()
		if !has {
			r.unavailable = true
			return
		}
		r.browserBinPath = path
	})
}

func (r *RodRenderer) recordError(callerMethod, targetURL string, err *RenderError) {
	r.metadataSink.RecordError(
		time.Now(),
		"render",
		callerMethod,
		mapRenderErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, targetURL),
		},
	)
}
