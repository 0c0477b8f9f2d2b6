package ipc

import "scribe/internal/api"

// JobView mirrors the HTTP API job DTO for IPC callers.
type JobView = api.JobView

// StageHealth describes readiness of a pipeline stage.
type StageHealth = api.StageHealth

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon and pipeline status.
type StatusResponse struct {
	Running     bool           `json:"running"`
	PID         int            `json:"pid"`
	StartedAt   string         `json:"started_at"`
	JobDBPath   string         `json:"job_db_path"`
	LockPath    string         `json:"lock_path"`
	APIAddr     string         `json:"api_addr"`
	Stats       map[string]int `json:"stats"`
	StageHealth []StageHealth  `json:"stage_health"`
}

// StopRequest stops job processing.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// SubmitRequest enqueues a recording by filesystem path. The daemon reads the
// file, so the path must be visible to the daemon process.
type SubmitRequest struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	Minutes  *bool  `json:"minutes"`
}

// SubmitResponse returns the created job.
type SubmitResponse struct {
	Job JobView `json:"job"`
}

// ListRequest filters job listing by stage name. Empty means all jobs.
type ListRequest struct {
	Stages []string `json:"stages"`
}

// ListResponse contains job entries, newest first.
type ListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// DescribeRequest fetches a single job with artifacts.
type DescribeRequest struct {
	ID string `json:"id"`
}

// DescribeResponse contains one job.
type DescribeResponse struct {
	Job JobView `json:"job"`
}

// CancelRequest cancels a job by id.
type CancelRequest struct {
	ID string `json:"id"`
}

// CancelResponse returns the job after cancellation was requested.
type CancelResponse struct {
	Job JobView `json:"job"`
}

// RetryRequest relaunches a failed job.
type RetryRequest struct {
	ID string `json:"id"`
}

// RetryResponse returns the reset job.
type RetryResponse struct {
	Job JobView `json:"job"`
}

// StatsRequest fetches per-stage job counts.
type StatsRequest struct{}

// StatsResponse reports per-stage job counts.
type StatsResponse struct {
	Stats map[string]int `json:"stats"`
}

// HealthRequest fetches stage readiness.
type HealthRequest struct{}

// HealthResponse reports readiness for every configured stage.
type HealthResponse struct {
	Stages []StageHealth `json:"stages"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
