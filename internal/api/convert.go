package api

import (
	"encoding/json"

	"scribe/internal/jobs"
)

// FromJob converts a job record to its API representation. The transcript
// payload is included only when includeArtifacts is set; list responses stay
// small without it.
func FromJob(job *jobs.Job, includeArtifacts bool) JobView {
	if job == nil {
		return JobView{}
	}
	view := JobView{
		ID:             job.ID,
		Stage:          string(job.Stage),
		Status:         string(job.Status),
		Progress:       job.Progress,
		Attempt:        job.Attempt,
		FailedStage:    string(job.FailedStage),
		ErrorMessage:   job.ErrorMessage,
		SourceRef:      job.SourceRef,
		LanguageHint:   job.LanguageHint,
		MinutesEnabled: job.MinutesEnabled,
	}
	if job.QualityJSON != "" {
		var quality Quality
		if err := json.Unmarshal([]byte(job.QualityJSON), &quality); err == nil {
			view.Quality = &quality
		}
	}
	if includeArtifacts {
		view.MinutesText = job.MinutesText
		view.TranscriptJSON = job.TranscriptJSON
	}
	if !job.CreatedAt.IsZero() {
		view.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		view.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return view
}

// FromJobs converts a slice of job records for list responses.
func FromJobs(list []jobs.Job) []JobView {
	views := make([]JobView, 0, len(list))
	for i := range list {
		views = append(views, FromJob(&list[i], false))
	}
	return views
}
