package composer

import (
	"fmt"

	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/pkg/failure"
)

type ComposeErrorCause string

const (
	ErrCauseNoUsablePages        ComposeErrorCause = "no usable pages"
	ErrCauseSizeCapUnreachable   ComposeErrorCause = "size cap unreachable even after dropping all but the top section"
	ErrCauseSummarizationAborted ComposeErrorCause = "summarization aborted"
)

type ComposeError struct {
	Message   string
	Retryable bool
	Cause     ComposeErrorCause
}

func (e *ComposeError) Error() string {
	return fmt.Sprintf("compose error: %s", e.Cause)
}

func (e *ComposeError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapComposeErrorToMetadataCause maps composer-local error semantics to the
// canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used to derive
// control-flow decisions.
func mapComposeErrorToMetadataCause(err *ComposeError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseNoUsablePages:
		return metadata.CauseContentInvalid
	case ErrCauseSizeCapUnreachable:
		return metadata.CauseInvariantViolation
	case ErrCauseSummarizationAborted:
		return metadata.CauseRetryFailure
	default:
		return metadata.CauseUnknown
	}
}
