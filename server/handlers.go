package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/hupe1980/launchmesh/artifact"
	"github.com/hupe1980/launchmesh/core"
	"github.com/hupe1980/launchmesh/evaluation"
	"github.com/hupe1980/launchmesh/render"
	"github.com/hupe1980/launchmesh/workflow"
)

// StatusClientClosedRequest is reported when the caller went away mid-request.
const StatusClientClosedRequest = 499

// KindNotFound is reported for unknown plan documents.
const KindNotFound = "not_found"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// LaunchResponse is the body of a successful /launch_assistant call.
type LaunchResponse struct {
	*core.LaunchPlan
	DownloadableFiles map[string]string `json:"downloadable_files,omitempty"`
}

// EvaluateRequest is the body of /evaluate.
type EvaluateRequest struct {
	Text         string       `json:"text"`
	ProductName  string       `json:"product_name"`
	TargetMarket string       `json:"target_market"`
	// Context is optional upstream text; it does not influence the score.
	Context   string       `json:"context,omitempty"`
	Stage     core.StageID `json:"stage,omitempty"`
	Threshold *float64     `json:"threshold,omitempty"`
}

// EvaluateResponse is the body of a successful /evaluate call.
type EvaluateResponse struct {
	Score     core.ScoreBreakdown `json:"score"`
	Passed    bool                `json:"passed"`
	Threshold float64             `json:"threshold"`
	Summary   string              `json:"summary"`
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleLaunchAssistant(w http.ResponseWriter, r *http.Request) {
	var req core.LaunchRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, core.KindValidation, err.Error())
		return
	}

	ctx := r.Context()
	if s.opts.PlanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.PlanTimeout)
		defer cancel()
	}

	plan, err := s.planner.Run(ctx, req)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	files, err := render.Files(plan)
	if err != nil {
		s.logger.Warn("failed to render downloadable files", "request_id", plan.RequestID, "error", err.Error())
	} else if s.opts.Artifacts != nil {
		if err := artifact.SaveAll(s.opts.Artifacts, plan.RequestID, files); err != nil {
			s.logger.Warn("failed to store downloadable files", "request_id", plan.RequestID, "error", err.Error())
		}
	}

	s.writeJSON(w, http.StatusOK, LaunchResponse{LaunchPlan: plan, DownloadableFiles: files})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, core.KindValidation, err.Error())
		return
	}

	if req.Text == "" {
		s.writeError(w, http.StatusBadRequest, core.KindValidation, core.NewValidationError("text", "is required").Error())
		return
	}

	weights := evaluation.WeightsFor(req.Stage)
	threshold := workflow.DefaultQualityThreshold

	if def, ok := s.stages[req.Stage]; ok {
		weights = def.Weights
		threshold = def.QualityThreshold
	} else if req.Stage != "" && req.Stage.Order() == len(core.AllStages) {
		s.writeError(w, http.StatusBadRequest, core.KindValidation, core.NewValidationError("stage", fmt.Sprintf("unknown stage %q", req.Stage)).Error())
		return
	}

	if req.Threshold != nil {
		if *req.Threshold < 0 || *req.Threshold > core.MaxScore {
			s.writeError(w, http.StatusBadRequest, core.KindValidation, core.NewValidationError("threshold", fmt.Sprintf("must be between 0 and %.0f", core.MaxScore)).Error())
			return
		}

		threshold = *req.Threshold
	}

	score := s.scorer.Score(req.Text, core.Criteria{ProductName: req.ProductName, TargetMarket: req.TargetMarket}, weights)

	s.writeJSON(w, http.StatusOK, EvaluateResponse{
		Score:     score,
		Passed:    evaluation.Verdict(score, threshold),
		Threshold: threshold,
		Summary:   evaluation.Summary(score, threshold),
	})
}

// FilesResponse lists the stored documents of a plan.
type FilesResponse struct {
	RequestID string   `json:"request_id"`
	Files     []string `json:"files"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	names, err := s.opts.Artifacts.List(id)
	if err != nil {
		s.logger.Error("failed to list plan files", "request_id", id, "error", err.Error())
		s.writeError(w, http.StatusInternalServerError, core.KindWorkflow, "failed to list plan files")
		return
	}

	if len(names) == 0 {
		s.writeError(w, http.StatusNotFound, KindNotFound, fmt.Sprintf("no files for plan %s", id))
		return
	}

	s.writeJSON(w, http.StatusOK, FilesResponse{RequestID: id, Files: names})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id, name := r.PathValue("id"), r.PathValue("name")

	data, err := s.opts.Artifacts.Get(id, name)
	switch {
	case errors.Is(err, artifact.ErrNotFound):
		s.writeError(w, http.StatusNotFound, KindNotFound, fmt.Sprintf("file %s not found for plan %s", name, id))
		return
	case err != nil:
		s.logger.Error("failed to read plan file", "request_id", id, "name", name, "error", err.Error())
		s.writeError(w, http.StatusInternalServerError, core.KindWorkflow, "failed to read plan file")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   s.opts.Version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}

	return nil
}

func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case core.IsValidation(err):
		s.writeError(w, http.StatusBadRequest, core.KindValidation, err.Error())
	case errors.Is(err, context.Canceled):
		s.writeError(w, StatusClientClosedRequest, core.KindWorkflow, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusServiceUnavailable, core.KindWorkflow, "plan generation timed out")
	default:
		s.logger.Error("workflow failed", "error", err.Error())
		s.writeError(w, http.StatusInternalServerError, core.Kind(err), err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind, message string) {
	s.writeJSON(w, status, ErrorResponse{Kind: kind, Message: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err.Error())
	}
}
