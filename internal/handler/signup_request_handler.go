package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-enroll-api/internal/middleware"
	"github.com/noah-isme/course-enroll-api/internal/service"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
	"github.com/noah-isme/course-enroll-api/pkg/response"
)

// SignupRequestHandler wires HTTP endpoints to the signup request service.
type SignupRequestHandler struct {
	service *service.SignupRequestService
}

// NewSignupRequestHandler creates a new handler.
func NewSignupRequestHandler(svc *service.SignupRequestService) *SignupRequestHandler {
	return &SignupRequestHandler{service: svc}
}

type createSignupPayload struct {
	CourseID    string `json:"course_id" binding:"required"`
	PIN         string `json:"pin" binding:"required"`
	Citizenship string `json:"citizenship" binding:"required"`
}

// Create godoc
// @Summary Request course enrollment
// @Description Create a signup request for the authenticated user
// @Tags Signup Requests
// @Accept json
// @Produce json
// @Param payload body createSignupPayload true "Signup payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /signup-requests [post]
func (h *SignupRequestHandler) Create(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload createSignupPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid signup payload"))
		return
	}

	request, err := h.service.Create(c.Request.Context(), service.CreateSignupRequest{
		UserID:      claims.UserID,
		CourseID:    payload.CourseID,
		PIN:         payload.PIN,
		Citizenship: payload.Citizenship,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, request)
}

// ListUnconfirmed godoc
// @Summary List pending signup requests
// @Description List requests awaiting confirmation, with user and course info
// @Tags Signup Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /signup-requests/pending [get]
func (h *SignupRequestHandler) ListUnconfirmed(c *gin.Context) {
	requests, err := h.service.ListUnconfirmed(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// ListMine godoc
// @Summary List own signup requests
// @Description List every request made by the authenticated user
// @Tags Signup Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /signup-requests [get]
func (h *SignupRequestHandler) ListMine(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	requests, err := h.service.ListForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Confirm godoc
// @Summary Confirm a signup request
// @Description Approve the request and enroll the user in the course
// @Tags Signup Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /signup-requests/{id}/confirm [post]
func (h *SignupRequestHandler) Confirm(c *gin.Context) {
	if err := h.service.Confirm(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// FindForCourse godoc
// @Summary Find a request by course
// @Description Resolve the authenticated user's request for a given course
// @Tags Signup Requests
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /signup-requests/course/{courseId} [get]
func (h *SignupRequestHandler) FindForCourse(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	request, err := h.service.FindByUserAndCourse(c.Request.Context(), claims.UserID, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
