// Package api defines wire-format types, converters, and the service facade
// shared by the IPC and HTTP layers. It translates internal job models into
// transport-friendly DTOs so consumers never couple to internal types.
//
// # Key Types
//
// JobView: transport representation of a job with stage, progress, quality
// metrics, and optionally the transcript and minutes artifacts.
//
// DaemonStatus: aggregated runtime information including stage health.
//
// CreateJobRequest: upload intake payload.
//
// # Service
//
// Service fronts the job store, recording storage, and pipeline controller:
// CreateJob saves the recording and launches the pipeline, CancelJob and
// RetryJob delegate to the controller, and StageHealth polls the executors.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (jobs.Stage, jobs.Status) are exposed as lowercase strings.
// Timestamps use RFC3339 with milliseconds. The transcript artifact is
// returned only on single-job fetches to keep list responses small.
package api
