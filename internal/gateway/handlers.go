package gateway

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"scribe/internal/api"
	"scribe/internal/jobs"
)

// maxUploadBytes caps recording uploads at 1 GiB.
const maxUploadBytes = 1 << 30

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_upload", Err: err})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_upload", Err: errors.New("multipart field \"file\" is required")})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_upload", Err: err})
		return
	}

	req := api.CreateJobRequest{
		FileName:     header.Filename,
		Data:         data,
		LanguageHint: r.FormValue("language"),
	}
	if raw := strings.TrimSpace(r.FormValue("minutes")); raw != "" {
		enabled, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_upload", Err: parseErr})
			return
		}
		req.MinutesEnabled = &enabled
	}

	view, err := s.svc.CreateJob(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, view)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var stages []jobs.Stage
	for _, raw := range r.URL.Query()["stage"] {
		stage, ok := jobs.ParseStage(raw)
		if !ok {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_stage", Err: errors.New("unknown stage: "+raw)})
			return
		}
		stages = append(stages, stage)
	}
	list, err := s.svc.ListJobs(r.Context(), stages...)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"jobs": list})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.CancelJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleRetryJob(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.RetryJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"stages": s.svc.StageHealth(r.Context())})
}
