package api

import (
	"context"
	"fmt"
	"strings"

	"scribe/internal/config"
	"scribe/internal/jobs"
	"scribe/internal/pipeline"
	"scribe/internal/stage"
	"scribe/internal/storage"
)

// Service is the job API shared by the HTTP gateway and the IPC server. It
// owns upload intake and fronts the pipeline controller for job actions.
type Service struct {
	cfg       *config.Config
	store     *jobs.Store
	files     storage.Store
	orch      *pipeline.Orchestrator
	ctl       *pipeline.Controller
	executors []stage.Executor
}

// NewService wires the API facade.
func NewService(
	cfg *config.Config,
	store *jobs.Store,
	files storage.Store,
	orch *pipeline.Orchestrator,
	ctl *pipeline.Controller,
	executors []stage.Executor,
) *Service {
	return &Service{
		cfg:       cfg,
		store:     store,
		files:     files,
		orch:      orch,
		ctl:       ctl,
		executors: executors,
	}
}

// CreateJob stores an uploaded recording, creates the job record, and
// launches the pipeline.
func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (JobView, error) {
	name := strings.TrimSpace(req.FileName)
	if name == "" {
		return JobView{}, fmt.Errorf("file name is required")
	}
	if len(req.Data) == 0 {
		return JobView{}, fmt.Errorf("recording payload is empty")
	}

	ref, err := s.files.Save(ctx, name, req.Data)
	if err != nil {
		return JobView{}, fmt.Errorf("store recording: %w", err)
	}

	language := strings.TrimSpace(req.LanguageHint)
	if language == "" {
		language = s.cfg.STT.Language
	}
	minutesEnabled := s.cfg.Minutes.Enabled
	if req.MinutesEnabled != nil {
		minutesEnabled = *req.MinutesEnabled
	}

	job, err := s.store.Create(ctx, ref, language, minutesEnabled)
	if err != nil {
		return JobView{}, err
	}
	if s.orch != nil {
		if err := s.orch.Advance(ctx, job.ID); err != nil {
			return FromJob(job, false), err
		}
	}
	return FromJob(job, false), nil
}

// GetJob fetches one job with its artifacts.
func (s *Service) GetJob(ctx context.Context, id string) (JobView, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return JobView{}, err
	}
	return FromJob(job, true), nil
}

// ListJobs returns jobs filtered to the given stages, newest first.
func (s *Service) ListJobs(ctx context.Context, stages ...jobs.Stage) ([]JobView, error) {
	list, err := s.store.List(ctx, stages...)
	if err != nil {
		return nil, err
	}
	return FromJobs(list), nil
}

// Stats returns per-stage job counts.
func (s *Service) Stats(ctx context.Context) (map[string]int, error) {
	return s.store.Stats(ctx)
}

// CancelJob stops a non-terminal job.
func (s *Service) CancelJob(ctx context.Context, id string) (JobView, error) {
	job, err := s.ctl.Cancel(ctx, id)
	if err != nil {
		return JobView{}, err
	}
	return FromJob(job, false), nil
}

// RetryJob relaunches a failed job from the stage that broke.
func (s *Service) RetryJob(ctx context.Context, id string) (JobView, error) {
	job, err := s.ctl.Retry(ctx, id)
	if err != nil {
		return JobView{}, err
	}
	return FromJob(job, false), nil
}

// StageHealth reports readiness for every configured stage executor.
func (s *Service) StageHealth(ctx context.Context) []StageHealth {
	health := make([]StageHealth, 0, len(s.executors))
	for _, exec := range s.executors {
		if exec == nil {
			continue
		}
		h := exec.HealthCheck(ctx)
		health = append(health, StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	return health
}
