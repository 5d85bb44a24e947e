package summarizer

import (
	"fmt"

	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/pkg/failure"
)

type SummarizationErrorCause string

const (
	ErrCauseNetworkFailure   = "network issues"
	ErrCauseTimeout          = "timeout"
	ErrCauseRateLimited      = "rate limited"
	ErrCauseProviderRejected = "provider rejected request"
	ErrCauseInvalidResponse  = "invalid response shape"
	ErrCauseExhaustedRetries = "exhausted retries"
)

type SummarizationError struct {
	Message   string
	Retryable bool
	Cause     SummarizationErrorCause
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarization error: %s", e.Cause)
}

func (e *SummarizationError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *SummarizationError) IsRetryable() bool {
	return e.Retryable
}

// mapSummarizationErrorToMetadataCause maps summarizer-local error
// semantics to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapSummarizationErrorToMetadataCause(err *SummarizationError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseTimeout:
		return metadata.CauseTimeout
	case ErrCauseNetworkFailure:
		return metadata.CauseNetworkFailure
	case ErrCauseRateLimited:
		return metadata.CauseRateLimited
	case ErrCauseProviderRejected:
		return metadata.CausePolicyDisallow
	case ErrCauseInvalidResponse:
		return metadata.CauseContentInvalid
	case ErrCauseExhaustedRetries:
		return metadata.CauseRetryFailure
	default:
		return metadata.CauseUnknown
	}
}
