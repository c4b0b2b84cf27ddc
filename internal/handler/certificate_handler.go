package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-enroll-api/internal/service"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
	"github.com/noah-isme/course-enroll-api/pkg/response"
)

// CertificateHandler serves completion certificates as PDF downloads.
type CertificateHandler struct {
	service *service.CertificateService
}

// NewCertificateHandler creates a new handler.
func NewCertificateHandler(svc *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{service: svc}
}

// Generate godoc
// @Summary Generate a completion certificate
// @Description Render the certificate PDF for a confirmed signup request
// @Tags Certificates
// @Produce application/pdf
// @Param id path string true "Request ID"
// @Param exam_score query int false "Exam score (0-100)"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /signup-requests/{id}/certificate [get]
func (h *CertificateHandler) Generate(c *gin.Context) {
	requestID := c.Param("id")

	examScore := 0
	if raw := c.Query("exam_score"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "exam_score must be an integer"))
			return
		}
		examScore = parsed
	}

	document, err := h.service.Generate(c.Request.Context(), requestID, examScore)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="certificate-%s.pdf"`, requestID))
	c.Data(http.StatusOK, "application/pdf", document)
}
