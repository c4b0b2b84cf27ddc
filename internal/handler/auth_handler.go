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

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Register godoc
// @Summary Register a new account
// @Description Create an inactive account and issue an email confirmation token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	res, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// ConfirmEmail godoc
// @Summary Confirm a registration
// @Description Redeem a registration token and activate the account
// @Tags Authentication
// @Produce json
// @Param token path string true "Confirmation token"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /auth/confirm/{token} [post]
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	if err := h.service.ConfirmEmail(c.Request.Context(), c.Param("token")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate user by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// RequestElevation godoc
// @Summary Request admin elevation
// @Description Issue an elevation token for the authenticated user
// @Tags Authentication
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/elevation [post]
func (h *AuthHandler) RequestElevation(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	token, err := h.service.RequestElevation(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{
		"token":      token.ID,
		"expires_at": token.ExpiresAt,
	})
}

// ConfirmElevation godoc
// @Summary Confirm admin elevation
// @Description Redeem an elevation token and promote the user to admin
// @Tags Authentication
// @Produce json
// @Param token path string true "Elevation token"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /auth/elevation/{token} [post]
func (h *AuthHandler) ConfirmElevation(c *gin.Context) {
	if err := h.service.ConfirmElevation(c.Request.Context(), c.Param("token")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
