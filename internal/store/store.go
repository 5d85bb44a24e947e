package store

import (
	"context"
	"time"

	"github.com/llmstxt/llms-txt-gen/pkg/failure"
)

// Store is the interface both backends satisfy. Writes are the source of
// truth; a reader that observes status == completed must be able to read
// both artifact blobs, so callers are responsible for writing blobs
// before writing KeyStatus with a completed status (see internal/job).
type Store interface {
	Put(ctx context.Context, jobID string, key Key, data []byte) failure.ClassifiedError
	Get(ctx context.Context, jobID string, key Key) ([]byte, bool, failure.ClassifiedError)
	Delete(ctx context.Context, jobID string) failure.ClassifiedError
	ListJobIDs(ctx context.Context) ([]string, failure.ClassifiedError)
	WrittenAt(ctx context.Context, jobID string) (time.Time, bool, failure.ClassifiedError)
}
