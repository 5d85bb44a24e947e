package metadata

import "time"

/*
Metadata Collected
- Fetch timestamps
- HTTP status codes
- Content hashes
- Crawl depth

Logging Goals
- Debuggable crawl behavior
- Post-run auditability
- Failure diagnostics

Structured logging is preferred.

Allowed:
- Primitive values
- Timestamps
- URLs (as values, not objects with behavior)
- Hashes
- Status codes
- Durations
- Identifiers (page ID, crawl ID)
*/

// MetadataSink is implemented once per job and threaded into every
// pipeline component that needs to report what happened. It never
// returns an error and never blocks on anything beyond the underlying
// logger's own buffering — recording an event must not be able to fail
// a job.
type MetadataSink interface {
	RecordFetch(
		fetchURL string,
		httpStatus int,
		duration time.Duration,
		contentType string,
		retryCount int,
		crawlDepth int,
	)

	RecordAssetFetch(
		fetchURL string,
		httpStatus int,
		duration time.Duration,
		retryCount int,
	)

	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		errorString string,
		attrs []Attribute,
	)

	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

// NoopSink is a zero-value MetadataSink that discards every event. It lets
// tests embed it and override only the methods they care about, instead of
// hand-rolling every method of the interface.
type NoopSink struct{}

func (NoopSink) RecordFetch(string, int, time.Duration, string, int, int) {}
func (NoopSink) RecordAssetFetch(string, int, time.Duration, int)         {}
func (NoopSink) RecordError(time.Time, string, string, ErrorCause, string, []Attribute) {}
func (NoopSink) RecordArtifact(ArtifactKind, string, []Attribute) {}

// CrawlFinalizer is consulted exactly once, after a job reaches a
// terminal state, so "this job is over" has a single unambiguous call
// site in the orchestrator. It is kept separate from MetadataSink
// because a final summary is structurally different from an ongoing
// stream of events.
type CrawlFinalizer interface {
	RecordFinalCrawlStats(
		totalPages int,
		totalErrors int,
		totalAssets int,
		duration time.Duration,
	)
}
