package render

import (
	"fmt"

	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/pkg/failure"
)

type RenderErrorCause string

const (
	ErrCauseBrowserUnavailable = "headless browser unavailable"
	ErrCauseLaunchFailed       = "browser launch failed"
	ErrCauseNavigationFailed   = "page navigation failed"
	ErrCauseTimeout            = "render timed out"
)

type RenderError struct {
	Message   string
	Retryable bool
	Cause     RenderErrorCause
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render error: %s", e.Cause)
}

func (e *RenderError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *RenderError) IsRetryable() bool {
	return e.Retryable
}

// mapRenderErrorToMetadataCause maps render-local error semantics to the
// canonical metadata.ErrorCause table. Observational only, must never
// influence control flow.
func mapRenderErrorToMetadataCause(err *RenderError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseTimeout:
		return metadata.CauseTimeout
	case ErrCauseBrowserUnavailable, ErrCauseLaunchFailed, ErrCauseNavigationFailed:
		return metadata.CauseNetworkFailure
	default:
		return metadata.CauseUnknown
	}
}
