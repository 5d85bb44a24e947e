package job

import (
	"errors"
	"fmt"

	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/pkg/failure"
)

// Sentinel errors returned by the public Manager operations, matching
// the outcomes spec.md §4.7 names for get/cancel/download.
var (
	ErrNotFound        = errors.New("job not found")
	ErrAlreadyTerminal = errors.New("job already in a terminal state")
	ErrNotReady        = errors.New("artifact not ready")
)

type JobErrorCause string

const (
	ErrCauseValidation       JobErrorCause = "validation failed"
	ErrCauseNoUsableContent  JobErrorCause = "zero pages yielded usable content"
	ErrCauseCompositionFatal JobErrorCause = "composition error"
	ErrCauseStoreFatal       JobErrorCause = "artifact store error"
	ErrCauseTimeout          JobErrorCause = "job exceeded its wall-clock ceiling"
)

// JobError is the fatal-failure shape recorded against a job before it
// transitions to failed; it is not returned from Create/Get/Cancel/
// Download, which use the sentinels above instead.
type JobError struct {
	Message   string
	Retryable bool
	Cause     JobErrorCause
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job error: %s: %s", e.Cause, e.Message)
}

func (e *JobError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func mapJobErrorToMetadataCause(err *JobError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseValidation:
		return metadata.CauseContentInvalid
	case ErrCauseNoUsableContent:
		return metadata.CauseContentInvalid
	case ErrCauseCompositionFatal:
		return metadata.CauseInvariantViolation
	case ErrCauseStoreFatal:
		return metadata.CauseStorageFailure
	case ErrCauseTimeout:
		return metadata.CauseTimeout
	default:
		return metadata.CauseUnknown
	}
}
