// Package job implements the Job Manager: the single authority that
// creates, mutates, and terminates generation jobs. State, progress, and
// counters are mutated only here, per spec.md's data model invariant;
// the orchestrator drives a job's pipeline but reports progress back
// through this package's mutator methods rather than touching Job
// fields directly.
package job

import (
	"sync"
	"time"

	"github.com/llmstxt/llms-txt-gen/internal/config"
)

// Status is the job lifecycle state. Unlike raito's four-state jobs.Status
// (no Cancelled), spec.md requires a fifth terminal state for
// user-initiated and timeout cancellation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Phase is the orchestrator's current pipeline stage, used both for the
// job view's current_phase field and to compute the progress base value.
type Phase string

const (
	PhaseInitializing Phase = "initializing"
	PhaseCrawling     Phase = "crawling"
	PhaseExtracting   Phase = "extracting"
	PhaseComposing    Phase = "composing"
)

// logRingCapacity bounds the processing-log ring buffer (spec.md §3).
const logRingCapacity = 200

// LogRing is a bounded FIFO of the most recent processing log lines.
// Once full, appending drops the oldest line.
type LogRing struct {
	mu    sync.Mutex
	lines []string
}

func NewLogRing() *LogRing {
	return &LogRing{lines: make([]string, 0, logRingCapacity)}
}

func (r *LogRing) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.lines) >= logRingCapacity {
		r.lines = append(r.lines[1:], line)
		return
	}
	r.lines = append(r.lines, line)
}

// Lines returns a snapshot copy, safe to read without holding the ring's lock.
func (r *LogRing) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Job is the unit of work described in spec.md §3. All mutable fields
// are guarded by mu; View() returns an immutable snapshot for readers
// (the HTTP API, the status.json writer).
type Job struct {
	mu sync.Mutex

	id     string
	inputs config.GenerationInput

	status      Status
	progress    float64
	phase       Phase
	currentPage string
	message     string

	pagesDiscovered int
	pagesProcessed  int
	pagesCrawled    int

	createdAt   time.Time
	completedAt time.Time

	llmTxtURL     string
	llmsFullTxtURL string
	totalSizeKB   int

	failureCause JobErrorCause

	cancelRequested bool

	logs *LogRing
}

func newJob(id string, inputs config.GenerationInput, now time.Time) *Job {
	return &Job{
		id:        id,
		inputs:    inputs,
		status:    StatusPending,
		phase:     PhaseInitializing,
		createdAt: now,
		logs:      NewLogRing(),
	}
}

func (j *Job) ID() string { return j.id }

// CreatedAt is the job's creation timestamp, used by the orchestrator as
// the deterministic clock for composed artifacts: every run of the same
// job produces the same "Generated:" header, regardless of how long
// composition takes.
func (j *Job) CreatedAt() time.Time { return j.createdAt }

// View is an immutable snapshot of a Job, safe to serialize or hand to a
// caller without risking a data race on the live Job.
type View struct {
	JobID           string
	Status          Status
	Progress        float64
	Phase           Phase
	Message         string
	CurrentPageURL  string
	PagesDiscovered int
	PagesProcessed  int
	PagesCrawled    int
	ProcessingLogs  []string
	TotalSizeKB     int
	LlmTxtURL       string
	LlmsFullTxtURL  string
	CreatedAt       time.Time
	CompletedAt     time.Time
	FailureCause    JobErrorCause
}

func (j *Job) View() View {
	j.mu.Lock()
	defer j.mu.Unlock()

	return View{
		JobID:           j.id,
		Status:          j.status,
		Progress:        j.progress,
		Phase:           j.phase,
		Message:         j.message,
		CurrentPageURL:  j.currentPage,
		PagesDiscovered: j.pagesDiscovered,
		PagesProcessed:  j.pagesProcessed,
		PagesCrawled:    j.pagesCrawled,
		ProcessingLogs:  j.logs.Lines(),
		TotalSizeKB:     j.totalSizeKB,
		LlmTxtURL:       j.llmTxtURL,
		LlmsFullTxtURL:  j.llmsFullTxtURL,
		CreatedAt:       j.createdAt,
		CompletedAt:     j.completedAt,
		FailureCause:    j.failureCause,
	}
}

func (j *Job) Inputs() config.GenerationInput {
	return j.inputs
}

func (j *Job) IsCancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelRequested
}
