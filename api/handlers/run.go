package handlers

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	cfg "github.com/taxkit/tax-document-renamer/config"
	"github.com/taxkit/tax-document-renamer/internal/models"
	"github.com/taxkit/tax-document-renamer/internal/service/run"
	"github.com/taxkit/tax-document-renamer/internal/utils/validator"
	"github.com/taxkit/tax-document-renamer/pkg/logger"
)

type RunHandler struct {
	service   run.Processor
	validator *validator.UploadValidator
	logger    logger.Logger
	uploadDir string
}

// RunResponse is the API view of a run.
type RunResponse struct {
	RunID     string `json:"runId"`
	Status    string `json:"status"`
	Files     int    `json:"files"`
	Period    string `json:"period,omitempty"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
}

func NewRunHandler(service run.Processor, log logger.Logger) *RunHandler {
	return &RunHandler{
		service:   service,
		validator: validator.NewUploadValidator(log, nil),
		logger:    log,
		uploadDir: cfg.GetAppConfig().UploadDir,
	}
}

// SubmitRun accepts a multipart form with one or more files, an optional
// period, an optional slots JSON array and a force_split flag.
func (h *RunHandler) SubmitRun(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid form data", err)
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		h.handleError(c, http.StatusBadRequest, "No files provided", nil)
		return
	}

	var slots []models.JurisdictionSlot
	if raw := c.PostForm("slots"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &slots); err != nil {
			h.handleError(c, http.StatusBadRequest, "Invalid slots value", err)
			return
		}
	}
	forceSplit, _ := strconv.ParseBool(c.PostForm("force_split"))

	saved := make([]string, 0, len(files))
	for _, header := range files {
		result, err := h.validator.ValidateFile(header)
		if err != nil {
			h.handleError(c, http.StatusInternalServerError, "Failed to validate file", err)
			return
		}
		if !result.IsValid {
			h.handleError(c, http.StatusBadRequest,
				fmt.Sprintf("File %s rejected: %s", header.Filename, result.Errors[0].Message), nil)
			return
		}

		path, err := h.saveUpload(c, header)
		if err != nil {
			h.handleError(c, http.StatusInternalServerError, "Failed to save upload", err)
			return
		}
		saved = append(saved, path)
	}

	submitted, err := h.service.Submit(c.Request.Context(), run.SubmitRequest{
		Files:      saved,
		Period:     c.PostForm("period"),
		Slots:      slots,
		ForceSplit: forceSplit,
	})
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Failed to submit run", err)
		return
	}

	c.JSON(http.StatusAccepted, runResponse(submitted))
}

// GetRun returns the current state of one run.
func (h *RunHandler) GetRun(c *gin.Context) {
	runID := c.Param("runId")
	if runID == "" {
		h.handleError(c, http.StatusBadRequest, "Run ID is required", nil)
		return
	}

	got, err := h.service.GetRun(c.Request.Context(), runID)
	if err != nil {
		h.handleError(c, http.StatusNotFound, "Run not found", err)
		return
	}
	c.JSON(http.StatusOK, runResponse(got))
}

// ListRuns returns recent runs, newest first.
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	runs, err := h.service.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	responses := make([]RunResponse, len(runs))
	for i, r := range runs {
		responses[i] = runResponse(r)
	}
	c.JSON(http.StatusOK, gin.H{"runs": responses})
}

// ListDecisions returns the per-unit decision records of one run.
func (h *RunHandler) ListDecisions(c *gin.Context) {
	runID := c.Param("runId")
	if runID == "" {
		h.handleError(c, http.StatusBadRequest, "Run ID is required", nil)
		return
	}

	records, err := h.service.ListDecisions(c.Request.Context(), runID)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to list decisions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runId": runID, "decisions": records})
}

// ForcePeriod re-queues a run with a user-forced period. This is the
// recovery path when protected documents failed the period guard.
func (h *RunHandler) ForcePeriod(c *gin.Context) {
	runID := c.Param("runId")
	if runID == "" {
		h.handleError(c, http.StatusBadRequest, "Run ID is required", nil)
		return
	}

	var body struct {
		Period string `json:"period" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.handleError(c, http.StatusBadRequest, "Period is required", err)
		return
	}

	requeued, err := h.service.ForcePeriod(c.Request.Context(), runID, body.Period)
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Failed to force period", err)
		return
	}
	c.JSON(http.StatusAccepted, runResponse(requeued))
}

// TaskStatus returns the queue-side progress of the run's task, served
// from the redis mirror the worker maintains.
func (h *RunHandler) TaskStatus(c *gin.Context) {
	runID := c.Param("runId")
	if runID == "" {
		h.handleError(c, http.StatusBadRequest, "Run ID is required", nil)
		return
	}

	status, err := h.service.TaskStatus(c.Request.Context(), runID)
	if err != nil {
		h.handleError(c, http.StatusNotFound, "Task status not found", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// CancelRun withdraws a pending run from the queue.
func (h *RunHandler) CancelRun(c *gin.Context) {
	runID := c.Param("runId")
	if runID == "" {
		h.handleError(c, http.StatusBadRequest, "Run ID is required", nil)
		return
	}

	cancelled, err := h.service.Cancel(c.Request.Context(), runID)
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Failed to cancel run", err)
		return
	}
	c.JSON(http.StatusOK, runResponse(cancelled))
}

// ExportRun writes the run's decisions as csv or xlsx and streams the
// file back as an attachment.
func (h *RunHandler) ExportRun(c *gin.Context) {
	runID := c.Param("runId")
	if runID == "" {
		h.handleError(c, http.StatusBadRequest, "Run ID is required", nil)
		return
	}
	format := c.DefaultQuery("format", "csv")

	path, err := h.service.Export(c.Request.Context(), runID, format)
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Failed to export run", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(path)))
	c.File(path)
}

func (h *RunHandler) saveUpload(c *gin.Context, header *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	name := fmt.Sprintf("%s_%s", uuid.New().String()[:8], filepath.Base(header.Filename))
	path := filepath.Join(h.uploadDir, name)
	if err := c.SaveUploadedFile(header, path); err != nil {
		return "", fmt.Errorf("save upload %s: %w", header.Filename, err)
	}
	return path, nil
}

func runResponse(r models.Run) RunResponse {
	return RunResponse{
		RunID:     r.ID,
		Status:    string(r.Status),
		Files:     len(r.Files),
		Period:    r.Period,
		Error:     r.Error,
		CreatedAt: r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *RunHandler) handleError(c *gin.Context, status int, message string, err error) {
	h.logger.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)

	response := ErrorResponse{Message: message}
	if err != nil {
		response.Error = err.Error()
	}
	c.JSON(status, response)
}
