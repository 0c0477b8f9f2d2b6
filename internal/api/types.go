package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobView describes a job record in a transport-friendly format.
type JobView struct {
	ID             string   `json:"id"`
	Stage          string   `json:"stage"`
	Status         string   `json:"status"`
	Progress       int      `json:"progress"`
	Attempt        int      `json:"attempt"`
	FailedStage    string   `json:"failedStage,omitempty"`
	ErrorMessage   string   `json:"errorMessage,omitempty"`
	SourceRef      string   `json:"sourceRef"`
	LanguageHint   string   `json:"languageHint,omitempty"`
	MinutesEnabled bool     `json:"minutesEnabled"`
	Quality        *Quality `json:"quality,omitempty"`
	MinutesText    string   `json:"minutesText,omitempty"`
	TranscriptJSON string   `json:"transcript,omitempty"`
	CreatedAt      string   `json:"createdAt,omitempty"`
	UpdatedAt      string   `json:"updatedAt,omitempty"`
}

// Quality mirrors the persisted quality metrics for API consumers.
type Quality struct {
	Clarity         float64  `json:"clarity"`
	Confidence      float64  `json:"confidence"`
	SegmentQuality  float64  `json:"segment_quality"`
	SpeakerScore    float64  `json:"speaker_score"`
	Overall         int      `json:"overall"`
	Grade           string   `json:"grade"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// StageHealth mirrors readiness reporting for pipeline stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	JobDBPath    string         `json:"jobDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	JobStats     map[string]int `json:"jobStats"`
	StageHealth  []StageHealth  `json:"stageHealth"`
}

// CreateJobRequest carries an uploaded recording into the pipeline.
type CreateJobRequest struct {
	FileName       string `json:"fileName"`
	Data           []byte `json:"data"`
	LanguageHint   string `json:"languageHint,omitempty"`
	MinutesEnabled *bool  `json:"minutesEnabled,omitempty"`
}
