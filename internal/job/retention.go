package job

import (
	"context"
	"time"
)

// RetentionStats reports what a sweep reclaimed, mirroring raito's
// jobs.RetentionStats shape.
type RetentionStats struct {
	JobsDeleted int
}

// CleanupExpiredData removes terminal jobs (and their Artifact Store
// blobs) older than the manager's configured job TTL, grounded on
// raito's jobs.CleanupExpiredData. Only terminal jobs are eligible: a
// pending or running job has no CompletedAt yet and is never swept
// regardless of age.
func (m *Manager) CleanupExpiredData(ctx context.Context) RetentionStats {
	if m.jobTTL <= 0 {
		return RetentionStats{}
	}

	cutoff := time.Now().Add(-m.jobTTL)
	stats := RetentionStats{}

	m.mu.Lock()
	expired := make([]string, 0)
	for id, j := range m.jobs {
		j.mu.Lock()
		terminal := j.status.Terminal()
		completedAt := j.completedAt
		j.mu.Unlock()

		if terminal && !completedAt.IsZero() && completedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(m.jobs, id)
	}
	m.mu.Unlock()

	for _, id := range expired {
		if err := m.artifactStore.Delete(ctx, id); err != nil {
			m.log.Errorw("failed to delete expired job artifacts", "job_id", id, "error", err.Error())
			continue
		}
		stats.JobsDeleted++
	}

	return stats
}

// StartRetentionSweep runs CleanupExpiredData on interval until ctx is
// cancelled, grounded on raito's Runner.Start periodic-cleanup branch.
func (m *Manager) StartRetentionSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := m.CleanupExpiredData(ctx)
			if stats.JobsDeleted > 0 {
				m.log.Infow("retention sweep reclaimed jobs", "jobs_deleted", stats.JobsDeleted)
			}
		}
	}
}
