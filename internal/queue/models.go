package queue

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a job record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// InterruptedMessage is recorded on jobs found Processing when the daemon starts.
const InterruptedMessage = "interrupted by daemon restart"

// DaemonStopMessage is recorded on the active job when the daemon shuts down.
const DaemonStopMessage = "daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusSuccess,
	StatusFailed,
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts user input into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether the status can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Title returns the display form of the status.
func (s Status) Title() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusProcessing:
		return "Processing"
	case StatusSuccess:
		return "Success"
	case StatusFailed:
		return "Failed"
	default:
		return string(s)
	}
}

// predecessor returns the only status from which next may be entered.
func predecessor(next Status) (Status, bool) {
	switch next {
	case StatusProcessing:
		return StatusPending, true
	case StatusSuccess, StatusFailed:
		return StatusProcessing, true
	default:
		return "", false
	}
}

// CanTransition reports whether a record in from may move to to.
func CanTransition(from, to Status) bool {
	prev, ok := predecessor(to)
	return ok && prev == from
}

// Record is the persisted status of one job.
type Record struct {
	Name          string
	SourcePath    string
	Status        Status
	Message       string
	Attempt       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastHeartbeat *time.Time
}

func (r *Record) String() string {
	if r == nil {
		return "<nil>"
	}
	if r.Message != "" {
		return fmt.Sprintf("%s [%s: %s]", r.Name, r.Status, r.Message)
	}
	return fmt.Sprintf("%s [%s]", r.Name, r.Status)
}

// HealthSummary describes aggregated record counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Success    int
	Failed     int
}

// DatabaseHealth captures diagnostic information about the status database.
type DatabaseHealth struct {
	Driver           string
	Location         string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

var expectedColumns = []string{"name", "source_path", "status", "message", "attempt", "created_at", "updated_at", "last_heartbeat"}

func missingColumns(present []string) []string {
	seen := make(map[string]struct{}, len(present))
	for _, col := range present {
		seen[col] = struct{}{}
	}
	var missing []string
	for _, col := range expectedColumns {
		if _, ok := seen[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

func summarize(stats map[Status]int) HealthSummary {
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusProcessing:
			health.Processing += count
		case StatusSuccess:
			health.Success += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health
}

func terminalFilter(statuses []Status) ([]Status, error) {
	if len(statuses) == 0 {
		return []Status{StatusSuccess, StatusFailed}, nil
	}
	for _, status := range statuses {
		if !status.IsTerminal() {
			return nil, fmt.Errorf("%w: cannot clear %s records", ErrInvalidTransition, status)
		}
	}
	return statuses, nil
}
