package handler

import (
	"net/http"

	"chameleon-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthHandler interface {
	GetAuthURL(c *gin.Context)
	Callback(c *gin.Context)
}

type authHandler struct {
	authService service.AuthService
	log         *logrus.Logger
}

func NewAuthHandler(authService service.AuthService, log *logrus.Logger) AuthHandler {
	return &authHandler{authService: authService, log: log}
}

// GetAuthURL returns the identity provider authorization URL the frontend
// redirects the user to.
func (h *authHandler) GetAuthURL(c *gin.Context) {
	authURL, err := h.authService.AuthorizeURL()
	if err != nil {
		h.log.Errorf("Failed to build authorize URL: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build authorize URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"auth_url": authURL})
}

type CallbackRequest struct {
	Code string `json:"code" binding:"required"`
}

// Callback completes the OAuth login: exchanges the authorization code for a
// verified identity and returns a session token.
func (h *authHandler) Callback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorf("Failed to bind JSON for auth callback: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
		return
	}

	token, expiresAt, displayHandle, err := h.authService.Login(c.Request.Context(), req.Code)
	if err != nil {
		h.log.Errorf("Failed to complete login: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"identifier": displayHandle,
		"expires_at": expiresAt,
		"message":    "Login successful",
	})
}
