package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/pkg/failure"
	"github.com/llmstxt/llms-txt-gen/pkg/fileutil"
)

// ObjectStore writes blobs and status documents to a local-filesystem-
// rooted tree under <baseDir>/jobs/<job_id>/<key>, standing in for a
// cloud object store behind the Store interface (spec.md §4.8): pointing
// baseDir at a mounted bucket, or swapping this type for an S3-compatible
// client implementing the same interface, is a configuration change, not
// a code change. The write idiom (EnsureDir, os.WriteFile, disk-full
// classification) is adapted from internal/storage's page-write path.
type ObjectStore struct {
	baseDir      string
	metadataSink metadata.MetadataSink
	mu           sync.Mutex
}

func NewObjectStore(baseDir string, metadataSink metadata.MetadataSink) *ObjectStore {
	return &ObjectStore{baseDir: baseDir, metadataSink: metadataSink}
}

func (s *ObjectStore) jobDir(jobID string) string {
	return filepath.Join(s.baseDir, "jobs", jobID)
}

func (s *ObjectStore) Put(_ context.Context, jobID string, key Key, data []byte) failure.ClassifiedError {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.jobDir(jobID)
	if err := fileutil.EnsureDir(dir); err != nil {
		storeErr := &StoreError{Message: err.Error(), Retryable: false, Cause: ErrCauseWriteFailure, JobID: jobID}
		s.recordError("ObjectStore.Put", storeErr)
		return storeErr
	}

	fullPath := filepath.Join(dir, string(key))
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		retryable := errors.Is(err, syscall.ENOSPC)
		storeErr := &StoreError{Message: err.Error(), Retryable: retryable, Cause: ErrCauseWriteFailure, JobID: jobID}
		s.recordError("ObjectStore.Put", storeErr)
		return storeErr
	}
	return nil
}

func (s *ObjectStore) Get(_ context.Context, jobID string, key Key) ([]byte, bool, failure.ClassifiedError) {
	fullPath := filepath.Join(s.jobDir(jobID), string(key))
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		storeErr := &StoreError{Message: err.Error(), Retryable: false, Cause: ErrCauseReadFailure, JobID: jobID}
		s.recordError("ObjectStore.Get", storeErr)
		return nil, false, storeErr
	}
	return data, true, nil
}

func (s *ObjectStore) Delete(_ context.Context, jobID string) failure.ClassifiedError {
	if err := os.RemoveAll(s.jobDir(jobID)); err != nil {
		storeErr := &StoreError{Message: err.Error(), Retryable: false, Cause: ErrCauseWriteFailure, JobID: jobID}
		s.recordError("ObjectStore.Delete", storeErr)
		return storeErr
	}
	return nil
}

func (s *ObjectStore) ListJobIDs(_ context.Context) ([]string, failure.ClassifiedError) {
	jobsRoot := filepath.Join(s.baseDir, "jobs")
	entries, err := os.ReadDir(jobsRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		storeErr := &StoreError{Message: err.Error(), Retryable: false, Cause: ErrCauseReadFailure, JobID: ""}
		s.recordError("ObjectStore.ListJobIDs", storeErr)
		return nil, storeErr
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// WrittenAt reports the most recent modification time across the job's
// blobs, used by the retention sweep to decide eligibility under the TTL.
func (s *ObjectStore) WrittenAt(_ context.Context, jobID string) (time.Time, bool, failure.ClassifiedError) {
	dir := s.jobDir(jobID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, false, nil
		}
		storeErr := &StoreError{Message: err.Error(), Retryable: false, Cause: ErrCauseReadFailure, JobID: jobID}
		s.recordError("ObjectStore.WrittenAt", storeErr)
		return time.Time{}, false, storeErr
	}

	var latest time.Time
	found := false
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !found || info.ModTime().After(latest) {
			latest = info.ModTime()
			found = true
		}
	}
	return latest, found, nil
}

func (s *ObjectStore) recordError(action string, err *StoreError) {
	s.metadataSink.RecordError(
		time.Now(),
		"store",
		action,
		mapStoreErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrJobID, err.JobID)},
	)
}
