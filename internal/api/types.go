package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a status record in a transport-friendly format.
type Job struct {
	Name          string `json:"name"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
	Attempt       int    `json:"attempt"`
	URL           string `json:"url"`
	SourcePath    string `json:"sourcePath,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
	LastHeartbeat string `json:"lastHeartbeat,omitempty"`
}

// UploadResponse is returned once an upload has been queued.
type UploadResponse struct {
	JobName string `json:"jobName"`
	Status  string `json:"status"`
	URL     string `json:"url"`
	Type    string `json:"type"`
}

// MediaTypeHLS tags upload results that will be served as HLS.
const MediaTypeHLS = "hls"

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// RemoveJobResponse reports a deleted record and whether its source file
// was deleted with it.
type RemoveJobResponse struct {
	Job          Job  `json:"job"`
	SourcePurged bool `json:"sourcePurged"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// WorkflowStatus summarizes worker state.
type WorkflowStatus struct {
	Running        bool           `json:"running"`
	ActiveJob      string         `json:"activeJob,omitempty"`
	ActiveSince    string         `json:"activeSince,omitempty"`
	QueueDepth     int            `json:"queueDepth"`
	Orphaned       int            `json:"orphaned"`
	QueueStats     map[string]int `json:"queueStats"`
	LastError      string         `json:"lastError,omitempty"`
	LastJob        *Job           `json:"lastJob,omitempty"`
	ExecutorHealth StageHealth    `json:"executorHealth"`
}

// StageHealth mirrors readiness reporting for pipeline components.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StoreDriver  string             `json:"storeDriver"`
	StorePath    string             `json:"storePath"`
	LockFilePath string             `json:"lockFilePath"`
	APIAddress   string             `json:"apiAddress,omitempty"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Checks       []CheckResult      `json:"checks,omitempty"`
}

// CheckResult reports one preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}
