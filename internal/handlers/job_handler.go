// -----------------------------------------------------------------------
// Job Handler - REST surface for starting, querying, and cancelling runs
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hydrun/internal/common"
	"github.com/ternarybob/hydrun/internal/interfaces"
	"github.com/ternarybob/hydrun/internal/models"
	"github.com/ternarybob/hydrun/internal/runner"
	"github.com/ternarybob/hydrun/internal/services/catalog"
)

// StartJobRequest is the POST /api/jobs payload. Either a catalog solver
// name or an explicit binary path must be supplied.
type StartJobRequest struct {
	Name                 string  `json:"name" validate:"required"`
	Solver               string  `json:"solver"`
	BinaryPath           string  `json:"binary_path"`
	WorkDir              string  `json:"work_dir"`
	ParamFile            string  `json:"param_file" validate:"required"`
	Protocol             string  `json:"protocol" validate:"omitempty,oneof=structured legacy"`
	MaxDurationHintHours float64 `json:"max_duration_hint_hours" validate:"gte=0"`
	MicrostructureImage  string  `json:"microstructure_image"`
}

type JobHandler struct {
	runner   interfaces.SimulationRunner
	catalog  interfaces.SolverCatalog
	storage  interfaces.JobStorage
	config   *common.Config
	validate *validator.Validate
	logger   arbor.ILogger
}

func NewJobHandler(r interfaces.SimulationRunner, cat interfaces.SolverCatalog, storage interfaces.JobStorage, config *common.Config, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		runner:   r,
		catalog:  cat,
		storage:  storage,
		config:   config,
		validate: validator.New(),
		logger:   logger,
	}
}

// StartJobHandler launches a new simulation run
func (h *JobHandler) StartJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req StartJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	job, err := h.buildJob(&req)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := catalog.ValidateParamFile(job.ParamFile); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	started, err := h.runner.Start(r.Context(), job)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, runner.ErrJobAlreadyActive) {
			status = http.StatusConflict
		} else if errors.Is(err, runner.ErrBinaryNotFound) ||
			errors.Is(err, runner.ErrParamFileMissing) ||
			errors.Is(err, runner.ErrWorkDirUnavailable) {
			status = http.StatusBadRequest
		}
		WriteError(w, status, err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, started)
}

// buildJob resolves the solver from the catalog when one is named,
// otherwise uses the explicit binary path from the request.
func (h *JobHandler) buildJob(req *StartJobRequest) (*models.Job, error) {
	job := &models.Job{
		Name:                 req.Name,
		BinaryPath:           req.BinaryPath,
		WorkDir:              req.WorkDir,
		ParamFile:            req.ParamFile,
		Protocol:             models.ProtocolMode(req.Protocol),
		MaxDurationHintHours: req.MaxDurationHintHours,
		MicrostructureImage:  req.MicrostructureImage,
	}

	if req.Solver != "" {
		def, err := h.catalog.Get(req.Solver)
		if err != nil {
			return nil, err
		}
		job.BinaryPath = def.BinaryPath
		if job.Protocol == "" {
			job.Protocol = models.ProtocolMode(def.Protocol)
		}
		if job.MaxDurationHintHours == 0 {
			job.MaxDurationHintHours = def.DefaultMaxDurationHintHours
		}
	}
	if job.BinaryPath == "" {
		return nil, errors.New("either solver or binary_path is required")
	}
	if job.WorkDir == "" {
		job.WorkDir = filepath.Join(h.config.Simulation.WorkRoot, job.Name)
	}
	return job, nil
}

// ListJobsHandler returns all active jobs
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs": h.runner.List(),
	})
}

// JobHistoryHandler returns persisted run records
func (h *JobHandler) JobHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	var (
		jobs []*models.Job
		err  error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		jobs, err = h.storage.ListJobsByStatus(r.Context(), models.JobStatus(status))
	} else {
		jobs, err = h.storage.ListJobs(r.Context())
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs": jobs,
	})
}

// GetJobHandler returns a single active job by name
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request, name string) {
	job, err := h.runner.Get(name)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// CancelJobHandler requests cancellation of an active job
func (h *JobHandler) CancelJobHandler(w http.ResponseWriter, r *http.Request, name string) {
	if err := h.runner.Cancel(name); err != nil {
		if errors.Is(err, runner.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteSuccess(w, "cancellation requested")
}

// ListSolversHandler returns the solver catalog
func (h *JobHandler) ListSolversHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"solvers": h.catalog.List(),
	})
}

// ReloadSolversHandler rescans the catalog directory
func (h *JobHandler) ReloadSolversHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	if err := h.catalog.Reload(); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteSuccess(w, "catalog reloaded")
}
