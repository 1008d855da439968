package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-vault-api/internal/models"
	appErrors "github.com/noah-isme/study-vault-api/pkg/errors"
	"github.com/noah-isme/study-vault-api/pkg/response"
)

type credentialIssuer interface {
	Issue(ctx context.Context, req models.LoginRequest) (*models.AccessToken, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service credentialIssuer
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc credentialIssuer) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Admin login
// @Description Exchange the admin password for a bearer token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} models.AccessToken
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload"))
		return
	}

	token, err := h.service.Issue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, token)
}
