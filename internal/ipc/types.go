package ipc

import "hlsforge/internal/api"

// serviceName is the RPC receiver name shared by server and client.
const serviceName = "HLSForge"

// Job mirrors the HTTP API job DTO for internal IPC callers.
type Job = api.Job

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/workflow status information.
type StatusResponse = api.DaemonStatus

// AddFileRequest stages a local file and enqueues it.
type AddFileRequest struct {
	SourcePath string `json:"source_path"`
}

// AddFileResponse reports the queued job.
type AddFileResponse struct {
	Job Job `json:"job"`
}

// JobStatusRequest fetches one record by job name.
type JobStatusRequest struct {
	Name string `json:"name"`
}

// JobStatusResponse carries the record.
type JobStatusResponse struct {
	Job Job `json:"job"`
}

// ListRequest filters records by status.
type ListRequest struct {
	Statuses []string `json:"statuses"`
}

// ListResponse contains status records.
type ListResponse struct {
	Jobs []Job `json:"jobs"`
}

// RetryRequest starts a new attempt for a failed job.
type RetryRequest struct {
	Name string `json:"name"`
}

// RetryResponse carries the requeued record.
type RetryResponse struct {
	Job Job `json:"job"`
}

// RequeueOrphansRequest queues pending records left by a previous run.
type RequeueOrphansRequest struct{}

// RequeueOrphansResponse reports how many jobs were queued.
type RequeueOrphansResponse struct {
	Queued int `json:"queued"`
}

// ClearRequest removes terminal records.
type ClearRequest struct {
	Statuses     []string `json:"statuses"`
	PurgeSources bool     `json:"purge_sources"`
}

// ClearResponse reports what was removed.
type ClearResponse struct {
	Removed       []string `json:"removed"`
	SourcesPurged int      `json:"sources_purged"`
}

// RemoveRequest deletes one terminal record.
type RemoveRequest struct {
	Name        string `json:"name"`
	PurgeSource bool   `json:"purge_source"`
}

// RemoveResponse reports the removed record.
type RemoveResponse struct {
	Job          Job  `json:"job"`
	SourcePurged bool `json:"source_purged"`
}

// QueueHealthRequest fetches aggregate record counts.
type QueueHealthRequest struct{}

// QueueHealthResponse contains record counts per status.
type QueueHealthResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Success    int `json:"success"`
	Failed     int `json:"failed"`
}

// DatabaseHealthRequest requests detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse contains database diagnostic information.
type DatabaseHealthResponse struct {
	Driver           string   `json:"driver"`
	Location         string   `json:"location"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalItems       int      `json:"total_items"`
	Error            string   `json:"error"`
}

// TestNotificationRequest requests a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse contains test notification result.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
