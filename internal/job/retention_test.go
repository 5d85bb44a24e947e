package job_test

import (
	"context"
	"testing"
	"time"

	"github.com/llmstxt/llms-txt-gen/internal/job"
	"github.com/llmstxt/llms-txt-gen/internal/logging"
	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CleanupExpiredDataRemovesOldTerminalJobs(t *testing.T) {
	st := store.NewMemoryStore()
	runner := newControlledRunner()
	m := job.NewManager(st, runner, logging.NewDevelopmentLogger(), metadata.NoopSink{}, 2, 20*time.Millisecond)
	runner.manager = m

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	id, err := m.Create(ctx, validInput(t))
	require.NoError(t, err)

	waitStarted(t, runner)
	close(runner.proceed)
	waitDone(t, runner)

	_, err = m.Get(id)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	stats := m.CleanupExpiredData(ctx)
	assert.Equal(t, 1, stats.JobsDeleted)

	_, err = m.Get(id)
	assert.ErrorIs(t, err, job.ErrNotFound)
}

func TestManager_CleanupExpiredDataSkipsNonTerminalJobs(t *testing.T) {
	st := store.NewMemoryStore()
	runner := newControlledRunner()
	m := job.NewManager(st, runner, logging.NewDevelopmentLogger(), metadata.NoopSink{}, 2, time.Nanosecond)
	runner.manager = m

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	id, err := m.Create(ctx, validInput(t))
	require.NoError(t, err)

	waitStarted(t, runner)

	time.Sleep(5 * time.Millisecond)
	stats := m.CleanupExpiredData(ctx)
	assert.Equal(t, 0, stats.JobsDeleted)

	_, err = m.Get(id)
	require.NoError(t, err)

	close(runner.proceed)
	waitDone(t, runner)
}

func TestManager_CleanupExpiredDataDisabledWhenTTLZero(t *testing.T) {
	st := store.NewMemoryStore()
	runner := newControlledRunner()
	m := job.NewManager(st, runner, logging.NewDevelopmentLogger(), metadata.NoopSink{}, 2, 0)
	runner.manager = m

	stats := m.CleanupExpiredData(context.Background())
	assert.Equal(t, job.RetentionStats{}, stats)
}
