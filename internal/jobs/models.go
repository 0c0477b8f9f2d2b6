package jobs

import (
	"strings"
	"time"
)

// Stage represents the pipeline phase a job currently occupies.
type Stage string

const (
	StageUpload        Stage = "upload"
	StageTranscription Stage = "transcription"
	StageQuality       Stage = "quality"
	StageMinutes       Stage = "minutes"
	StageCompleted     Stage = "completed"
	StageFailed        Stage = "failed"
	StageCancelled     Stage = "cancelled"
)

// Status is the sub-status of the job within its current stage.
type Status string

const (
	StatusPending Status = "pending"
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

var allStages = []Stage{
	StageUpload,
	StageTranscription,
	StageQuality,
	StageMinutes,
	StageCompleted,
	StageFailed,
	StageCancelled,
}

var stageSet = func() map[Stage]struct{} {
	set := make(map[Stage]struct{}, len(allStages))
	for _, stage := range allStages {
		set[stage] = struct{}{}
	}
	return set
}()

// stageRank orders the working stages so transitions can be checked for
// forward motion. Terminal stages carry no rank.
var stageRank = map[Stage]int{
	StageUpload:        0,
	StageTranscription: 1,
	StageQuality:       2,
	StageMinutes:       3,
}

// Job is one meeting-processing attempt persisted in SQLite.
type Job struct {
	ID             string
	Stage          Stage
	Status         Status
	Progress       int
	Attempt        int
	FailedStage    Stage
	ErrorMessage   string
	SourceRef      string
	LanguageHint   string
	MinutesEnabled bool
	TranscriptJSON string
	QualityJSON    string
	MinutesText    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AllStages returns the ordered list of known stages.
func AllStages() []Stage {
	cp := make([]Stage, len(allStages))
	copy(cp, allStages)
	return cp
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stageSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a stage accepts no further transitions.
func (s Stage) IsTerminal() bool {
	switch s {
	case StageCompleted, StageFailed, StageCancelled:
		return true
	default:
		return false
	}
}

// Next returns the stage that follows s in the pipeline order.
func (s Stage) Next() (Stage, bool) {
	switch s {
	case StageUpload:
		return StageTranscription, true
	case StageTranscription:
		return StageQuality, true
	case StageQuality:
		return StageMinutes, true
	case StageMinutes:
		return StageCompleted, true
	default:
		return "", false
	}
}

// IsTerminal reports whether the job reached a terminal stage.
func (j Job) IsTerminal() bool {
	return j.Stage.IsTerminal()
}

// IsRunning reports whether the job is mid-stage.
func (j Job) IsRunning() bool {
	return !j.IsTerminal() && j.Status == StatusRunning
}

// SetStageProgress updates the in-stage progress fields together.
func (j *Job) SetStageProgress(status Status, progress int) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	j.Status = status
	j.Progress = progress
}

// SetFailed marks the job failed, remembering the stage that broke so retry
// knows where to resume.
func (j *Job) SetFailed(message string) {
	if !j.Stage.IsTerminal() {
		j.FailedStage = j.Stage
	}
	j.Stage = StageFailed
	j.Status = StatusFailed
	j.Progress = 0
	j.ErrorMessage = strings.TrimSpace(message)
}

// SetCancelled marks the job cancelled.
func (j *Job) SetCancelled() {
	j.Stage = StageCancelled
	j.Status = StatusDone
	j.ErrorMessage = ""
}

// validTransition reports whether moving from one stage to another is legal.
// Stages advance forward one step, jump to a terminal stage, or return from
// failed to the recorded failed stage (the retry path).
func validTransition(from, to Stage) bool {
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	if to == StageFailed || to == StageCancelled {
		return true
	}
	if next, ok := from.Next(); ok && next == to {
		return true
	}
	// Minutes generation may be disabled per job, in which case quality jumps
	// straight to completed.
	if from == StageQuality && to == StageCompleted {
		return true
	}
	return false
}
