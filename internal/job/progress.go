package job

import (
	"context"
	"encoding/json"
	"time"

	"github.com/llmstxt/llms-txt-gen/internal/metadata"
	"github.com/llmstxt/llms-txt-gen/internal/store"
)

// phaseBase gives each pipeline phase its progress floor, per spec.md
// §4.9 ("phase base values 0.05, 0.10, 0.70, 0.90 plus within-phase
// fraction"). SetPhase jumps to the floor; RecordProgress interpolates
// within it.
func phaseBase(p Phase) float64 {
	switch p {
	case PhaseInitializing:
		return 0.05
	case PhaseCrawling:
		return 0.10
	case PhaseExtracting:
		return 0.70
	case PhaseComposing:
		return 0.90
	default:
		return 0
	}
}

func (m *Manager) transitionRunning(j *Job) {
	j.mu.Lock()
	j.status = StatusRunning
	j.mu.Unlock()
	m.persistStatus(context.Background(), j)
}

// SetPhase advances the job to a new pipeline phase and bumps progress
// to at least that phase's floor. Progress never decreases.
func (m *Manager) SetPhase(ctx context.Context, j *Job, phase Phase) {
	j.mu.Lock()
	j.phase = phase
	if floor := phaseBase(phase); floor > j.progress {
		j.progress = floor
	}
	j.mu.Unlock()
	m.persistStatus(ctx, j)
}

// RecordProgress updates the within-phase fraction and crawl counters.
// fraction is clamped into [phaseBase(phase), nextPhaseBase) so it can
// never regress progress or overrun into the next phase's territory.
func (m *Manager) RecordProgress(ctx context.Context, j *Job, withinPhaseFraction float64, currentPageURL string, discovered, processed, crawled int) {
	j.mu.Lock()
	floor := phaseBase(j.phase)
	ceiling := nextPhaseBase(j.phase)
	candidate := floor + withinPhaseFraction*(ceiling-floor)
	if candidate > j.progress {
		j.progress = candidate
	}
	if candidate > ceiling {
		j.progress = ceiling
	}
	j.currentPage = currentPageURL
	j.pagesDiscovered = discovered
	j.pagesProcessed = processed
	j.pagesCrawled = crawled
	j.mu.Unlock()
	m.persistStatus(ctx, j)
}

func nextPhaseBase(p Phase) float64 {
	switch p {
	case PhaseInitializing:
		return phaseBase(PhaseCrawling)
	case PhaseCrawling:
		return phaseBase(PhaseExtracting)
	case PhaseExtracting:
		return phaseBase(PhaseComposing)
	case PhaseComposing:
		return 1.0
	default:
		return 1.0
	}
}

// AppendLog records a human-readable processing log line, bounded by
// the job's LogRing.
func (m *Manager) AppendLog(j *Job, line string) {
	j.logs.Append(line)
}

// Complete persists the composed artifacts (blobs before status, per
// the write-ordering invariant) and transitions the job to completed.
func (m *Manager) Complete(ctx context.Context, j *Job, llmTxt, llmsFullTxt []byte, totalSizeKB int) error {
	if err := m.artifactStore.Put(ctx, j.id, store.KeyLlmTxt, llmTxt); err != nil {
		jobErr := &JobError{Message: "failed to write llm.txt: " + err.Error(), Retryable: false, Cause: ErrCauseStoreFatal}
		m.Fail(ctx, j, jobErr)
		return err
	}

	j.mu.Lock()
	j.llmTxtURL = artifactURL(j.id, store.KeyLlmTxt)
	j.mu.Unlock()

	if llmsFullTxt != nil {
		if err := m.artifactStore.Put(ctx, j.id, store.KeyLlmsFullTxt, llmsFullTxt); err != nil {
			jobErr := &JobError{Message: "failed to write llms-full.txt: " + err.Error(), Retryable: false, Cause: ErrCauseStoreFatal}
			m.Fail(ctx, j, jobErr)
			return err
		}
		j.mu.Lock()
		j.llmsFullTxtURL = artifactURL(j.id, store.KeyLlmsFullTxt)
		j.mu.Unlock()
	}

	j.mu.Lock()
	j.status = StatusCompleted
	j.progress = 1.0
	j.totalSizeKB = totalSizeKB
	j.completedAt = time.Now()
	j.message = "generation completed"
	j.mu.Unlock()

	m.persistStatus(ctx, j)
	return nil
}

// Fail transitions the job to failed, recording err's cause for
// observability before applying the human-readable message. Partial
// artifacts are never published: Complete only publishes blobs on its
// own success path, so a Fail call here has nothing to unpublish.
func (m *Manager) Fail(ctx context.Context, j *Job, err *JobError) {
	m.metadataSink.RecordError(
		time.Now(),
		"job",
		"Manager.Fail",
		mapJobErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrJobID, j.id)},
	)

	j.mu.Lock()
	j.status = StatusFailed
	j.message = err.Message
	j.failureCause = err.Cause
	j.completedAt = time.Now()
	j.mu.Unlock()
	m.persistStatus(ctx, j)
}

// MarkCancelled transitions a job to cancelled once the orchestrator
// has observed the cancellation flag at a checkpoint and discarded any
// partial work.
func (m *Manager) MarkCancelled(ctx context.Context, j *Job) {
	j.mu.Lock()
	j.status = StatusCancelled
	j.message = "cancelled"
	j.completedAt = time.Now()
	j.mu.Unlock()
	m.persistStatus(ctx, j)
}

func artifactURL(jobID string, key store.Key) string {
	return "/v1/generations/" + jobID + "/download/" + urlKindFor(key)
}

func urlKindFor(key store.Key) string {
	switch key {
	case store.KeyLlmTxt:
		return "llm.txt"
	case store.KeyLlmsFullTxt:
		return "llms-full.txt"
	default:
		return string(key)
	}
}

// statusDoc is the JSON shape written to status.json and returned by the
// GET endpoint, matching the field names in spec.md §6.1 exactly.
type statusDoc struct {
	JobID           string   `json:"job_id"`
	Status          Status   `json:"status"`
	Progress        float64  `json:"progress"`
	Message         string   `json:"message"`
	CurrentPhase    Phase    `json:"current_phase"`
	CurrentPageURL  string   `json:"current_page_url,omitempty"`
	PagesDiscovered int      `json:"pages_discovered"`
	PagesProcessed  int      `json:"pages_processed"`
	ProcessingLogs  []string `json:"processing_logs"`
	PagesCrawled    int      `json:"pages_crawled"`
	TotalSizeKB     int      `json:"total_size_kb"`
	LlmTxtURL       string   `json:"llm_txt_url,omitempty"`
	LlmsFullTxtURL  string   `json:"llms_full_txt_url,omitempty"`
	CreatedAt       int64    `json:"created_at"`
	CompletedAt     *int64   `json:"completed_at"`
}

func toStatusDoc(v View) statusDoc {
	doc := statusDoc{
		JobID:           v.JobID,
		Status:          v.Status,
		Progress:        v.Progress,
		Message:         v.Message,
		CurrentPhase:    v.Phase,
		CurrentPageURL:  v.CurrentPageURL,
		PagesDiscovered: v.PagesDiscovered,
		PagesProcessed:  v.PagesProcessed,
		ProcessingLogs:  v.ProcessingLogs,
		PagesCrawled:    v.PagesCrawled,
		TotalSizeKB:     v.TotalSizeKB,
		LlmTxtURL:       v.LlmTxtURL,
		LlmsFullTxtURL:  v.LlmsFullTxtURL,
		CreatedAt:       v.CreatedAt.Unix(),
	}
	if !v.CompletedAt.IsZero() {
		completed := v.CompletedAt.Unix()
		doc.CompletedAt = &completed
	}
	return doc
}

func (m *Manager) persistStatus(ctx context.Context, j *Job) {
	doc := toStatusDoc(j.View())
	data, err := json.Marshal(doc)
	if err != nil {
		m.log.Errorw("failed to marshal job status", "job_id", j.id, "error", err.Error())
		return
	}
	if err := m.artifactStore.Put(ctx, j.id, store.KeyStatus, data); err != nil {
		m.log.Errorw("failed to persist job status", "job_id", j.id, "error", err.Error())
	}
}
