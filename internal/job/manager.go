package job

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rohmanhakim/dlog"

	"github.com/llmstxt/llms-txt-gen/internal/config"
	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/internal/store"
)

// PipelineRunner drives a single job's crawl/extract/compose pipeline.
// The orchestrator is the one implementation; Manager depends only on
// this interface so it never imports the orchestrator package.
type PipelineRunner interface {
	Run(ctx context.Context, job *Job)
}

// Manager is the Job Manager (C7): the single authority that creates,
// mutates, and terminates jobs. It grounds on raito's jobs.Runner —
// a polling dispatcher with a concurrency semaphore and a retention
// sweep — generalized to an in-memory job queue (not a SQL table) since
// this is the only job type the system has.
type Manager struct {
	jobs  map[string]*Job
	order []string

	artifactStore store.Store
	runner        PipelineRunner
	log           dlog.Logger
	metadataSink  metadata.MetadataSink

	pending       chan string
	sem           chan struct{}
	maxConcurrent int
	jobTTL        time.Duration

	mu sync.RWMutex
}

func NewManager(artifactStore store.Store, runner PipelineRunner, log dlog.Logger, metadataSink metadata.MetadataSink, maxConcurrent int, jobTTL time.Duration) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Manager{
		jobs:          make(map[string]*Job),
		artifactStore: artifactStore,
		runner:        runner,
		log:           log,
		metadataSink:  metadataSink,
		pending:       make(chan string, 1024),
		sem:           make(chan struct{}, maxConcurrent),
		maxConcurrent: maxConcurrent,
		jobTTL:        jobTTL,
	}
}

// Start launches the dispatcher loop in the current goroutine; callers
// run it in its own goroutine and keep the process alive, mirroring
// raito's Runner.Start.
func (m *Manager) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-m.pending:
			m.mu.RLock()
			j, ok := m.jobs[jobID]
			m.mu.RUnlock()
			if !ok {
				continue
			}

			select {
			case m.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func() {
				defer func() { <-m.sem }()
				m.runJob(ctx, j)
			}()
		}
	}
}

func (m *Manager) runJob(ctx context.Context, j *Job) {
	m.transitionRunning(j)
	m.runner.Run(ctx, j)
}

// Create validates inputs and records the job in pending, per spec.md
// §4.7: validation errors are reported synchronously and the job never
// starts.
func (m *Manager) Create(ctx context.Context, inputs config.GenerationInput) (string, error) {
	if err := inputs.Validate(); err != nil {
		return "", err
	}

	id := uuid.New().String()
	j := newJob(id, inputs, time.Now())

	m.mu.Lock()
	m.jobs[id] = j
	m.order = append(m.order, id)
	m.mu.Unlock()

	m.persistStatus(ctx, j)

	select {
	case m.pending <- id:
	default:
		m.log.Warnw("job queue full, job will start once capacity frees up", "job_id", id)
		go func() { m.pending <- id }()
	}

	return id, nil
}

func (m *Manager) Get(jobID string) (View, error) {
	m.mu.RLock()
	j, ok := m.jobs[jobID]
	m.mu.RUnlock()
	if !ok {
		return View{}, ErrNotFound
	}
	return j.View(), nil
}

// Cancel sets the cancellation flag observed by the orchestrator at its
// checkpoints; it does not itself transition the job to cancelled,
// since partial state must be discarded by whoever is mid-pipeline.
func (m *Manager) Cancel(jobID string) error {
	m.mu.RLock()
	j, ok := m.jobs[jobID]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return ErrAlreadyTerminal
	}
	j.cancelRequested = true
	return nil
}

// Download reads an artifact blob from the Artifact Store. A job that
// exists but has not completed yet, or that has no such kind of
// artifact, reports ErrNotReady rather than ErrNotFound.
func (m *Manager) Download(ctx context.Context, jobID string, key store.Key) ([]byte, error) {
	m.mu.RLock()
	j, ok := m.jobs[jobID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	if j.View().Status != StatusCompleted {
		return nil, ErrNotReady
	}

	data, found, err := m.artifactStore.Get(ctx, jobID, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotReady
	}
	return data, nil
}
