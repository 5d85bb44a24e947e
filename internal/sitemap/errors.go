package sitemap

import (
	"fmt"

	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/pkg/failure"
)

type SitemapErrorCause string

const (
	ErrCauseHttpFetchFailure     = "failed to fetch sitemap"
	ErrCauseHttpServerError      = "sitemap http server error"
	ErrCauseHttpUnexpectedStatus = "unexpected http status for sitemap"
	ErrCauseParseError           = "failed to parse sitemap xml"
	ErrCauseTooLarge             = "sitemap exceeded size cap"
)

type SitemapError struct {
	Message   string
	Retryable bool
	Cause     SitemapErrorCause
}

func (e *SitemapError) Error() string {
	return fmt.Sprintf("sitemap error: %s", e.Cause)
}

func (e *SitemapError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapSitemapErrorToMetadataCause maps sitemap-local error semantics to
// the canonical metadata.ErrorCause table. Observational only, per
// internal/metadata's rules.
func mapSitemapErrorToMetadataCause(err *SitemapError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseHttpFetchFailure, ErrCauseHttpServerError, ErrCauseHttpUnexpectedStatus:
		return metadata.CauseNetworkFailure
	case ErrCauseParseError:
		return metadata.CauseContentInvalid
	case ErrCauseTooLarge:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
