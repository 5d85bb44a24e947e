package store

import (
	"fmt"

	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/pkg/failure"
)

type StoreErrorCause string

const (
	ErrCauseWriteFailure StoreErrorCause = "write failure"
	ErrCauseReadFailure  StoreErrorCause = "read failure"
	ErrCauseNotFound     StoreErrorCause = "not found"
)

type StoreError struct {
	Message   string
	Retryable bool
	Cause     StoreErrorCause
	JobID     string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s (job %s): %s", e.Cause, e.JobID, e.Message)
}

func (e *StoreError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func mapStoreErrorToMetadataCause(err *StoreError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseWriteFailure:
		return metadata.CauseStorageFailure
	case ErrCauseReadFailure:
		return metadata.CauseStorageFailure
	case ErrCauseNotFound:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
