// Package logging provides the dlog-backed implementation of
// metadata.MetadataSink and metadata.CrawlFinalizer used across every
// pipeline stage. Components never log directly to stdout; they record
// fetch events, classified errors, and artifact writes through the
// metadata sink interfaces, and this package turns those into
// structured lines.
package logging

import (
	"time"

	"github.com/rohmanhakim/dlog"

	"github.com/llmstxt/llms-txt-gen/internal/metadata"
)

// Recorder is the default metadata.MetadataSink/metadata.CrawlFinalizer
// backed by dlog. One Recorder is created per job so every line it
// emits can be tagged with the job ID without each call site having to
// pass it explicitly.
type Recorder struct {
	log   dlog.Logger
	jobID string
}

func NewRecorder(log dlog.Logger, jobID string) *Recorder {
	return &Recorder{log: log.With("job_id", jobID), jobID: jobID}
}

func (r *Recorder) RecordFetch(fetchURL string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int) {
	r.log.Infow("fetch completed",
		"url", fetchURL,
		"http_status", httpStatus,
		"duration_ms", duration.Milliseconds(),
		"content_type", contentType,
		"retry_count", retryCount,
		"crawl_depth", crawlDepth,
	)
}

func (r *Recorder) RecordAssetFetch(fetchURL string, httpStatus int, duration time.Duration, retryCount int) {
	r.log.Infow("asset fetch completed",
		"url", fetchURL,
		"http_status", httpStatus,
		"duration_ms", duration.Milliseconds(),
		"retry_count", retryCount,
	)
}

func (r *Recorder) RecordError(observedAt time.Time, packageName, action string, cause metadata.ErrorCause, errorString string, attrs []metadata.Attribute) {
	kv := make([]interface{}, 0, 8+len(attrs)*2)
	kv = append(kv,
		"component", packageName,
		"action", action,
		"cause", cause.String(),
		"at", observedAt.Format(time.RFC3339),
	)
	for _, a := range attrs {
		kv = append(kv, string(a.Key), a.Value)
	}
	r.log.Errorw(errorString, kv...)
}

func (r *Recorder) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
	kv := make([]interface{}, 0, 4+len(attrs)*2)
	kv = append(kv, "kind", string(kind), "write_path", path)
	for _, a := range attrs {
		kv = append(kv, string(a.Key), a.Value)
	}
	r.log.Infow("artifact written", kv...)
}

func (r *Recorder) RecordFinalCrawlStats(totalPages, totalErrors, totalAssets int, duration time.Duration) {
	r.log.Infow("job finished",
		"job_id", r.jobID,
		"total_pages", totalPages,
		"total_errors", totalErrors,
		"total_assets", totalAssets,
		"duration_ms", duration.Milliseconds(),
	)
}

// NewDevelopmentLogger builds a dlog logger suitable for the CLI binary,
// writing human-readable lines to stderr.
func NewDevelopmentLogger() dlog.Logger {
	return dlog.New(dlog.Config{Level: dlog.InfoLevel, Format: dlog.ConsoleFormat})
}

// NewProductionLogger builds a dlog logger suitable for the server
// binary, emitting JSON lines so they can be shipped to a log pipeline.
func NewProductionLogger(level string) dlog.Logger {
	lvl, err := dlog.ParseLevel(level)
	if err != nil {
		lvl = dlog.InfoLevel
	}
	return dlog.New(dlog.Config{Level: lvl, Format: dlog.JSONFormat})
}
