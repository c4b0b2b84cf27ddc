package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-enroll-api/internal/middleware"
	"github.com/noah-isme/course-enroll-api/internal/models"
	"github.com/noah-isme/course-enroll-api/internal/service"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
	"github.com/noah-isme/course-enroll-api/pkg/response"
)

// ExportHandler manages asynchronous report exports.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

type createReportPayload struct {
	Type     models.ReportType   `json:"type" binding:"required"`
	Format   models.ReportFormat `json:"format" binding:"required"`
	CourseID string              `json:"course_id"`
}

// Create godoc
// @Summary Request a report export
// @Description Queue an asynchronous report export job
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body createReportPayload true "Report parameters"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload createReportPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}

	job, err := h.service.Submit(c.Request.Context(), payload.Type, payload.Format, payload.CourseID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, job, nil)
}

// Get godoc
// @Summary Get report status
// @Description Get the state of a queued or finished export job
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ExportHandler) Get(c *gin.Context) {
	job, err := h.service.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished report
// @Description Stream the rendered export file for a signed token
// @Tags Reports
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, err := h.service.Download(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+info.Name()+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}
