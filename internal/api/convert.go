package api

import (
	"time"

	"hlsforge/internal/config"
	"hlsforge/internal/queue"
	"hlsforge/internal/stage"
	"hlsforge/internal/workflow"
)

// FromRecord converts a status record to its API representation.
func FromRecord(record *queue.Record) Job {
	if record == nil {
		return Job{}
	}
	dto := Job{
		Name:       record.Name,
		Status:     string(record.Status),
		Message:    record.Message,
		Attempt:    record.Attempt,
		URL:        config.PublicURL(record.Name),
		SourcePath: record.SourcePath,
		CreatedAt:  formatTime(record.CreatedAt),
		UpdatedAt:  formatTime(record.UpdatedAt),
	}
	if record.LastHeartbeat != nil {
		dto.LastHeartbeat = formatTime(*record.LastHeartbeat)
	}
	return dto
}

// FromRecords converts a slice of status records into API DTOs.
func FromRecords(records []*queue.Record) []Job {
	out := make([]Job, 0, len(records))
	for _, record := range records {
		out = append(out, FromRecord(record))
	}
	return out
}

// PublicJob strips fields that only operators should see.
func PublicJob(job Job) Job {
	job.SourcePath = ""
	job.LastHeartbeat = ""
	return job
}

// FromStatusSummary converts workflow diagnostics for transport.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	stats := make(map[string]int, len(summary.QueueStats))
	for _, status := range queue.AllStatuses() {
		stats[string(status)] = summary.QueueStats[status]
	}
	dto := WorkflowStatus{
		Running:        summary.Running,
		ActiveJob:      summary.ActiveJob,
		QueueDepth:     summary.QueueDepth,
		Orphaned:       summary.Orphaned,
		QueueStats:     stats,
		LastError:      summary.LastError,
		ExecutorHealth: FromStageHealth(summary.ExecutorHealth),
	}
	if !summary.ActiveSince.IsZero() {
		dto.ActiveSince = formatTime(summary.ActiveSince)
	}
	if summary.LastJob != nil {
		job := FromRecord(summary.LastJob)
		dto.LastJob = &job
	}
	return dto
}

// FromStageHealth converts a health record.
func FromStageHealth(health stage.Health) StageHealth {
	return StageHealth{Name: health.Name, Ready: health.Ready, Detail: health.Detail}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
