package handler

import (
	"net/http"

	"chameleon-backend/internal/crypto"
	"chameleon-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type PromptHandler interface {
	Translate(c *gin.Context)
}

type promptHandler struct {
	cipher     *crypto.PromptCipher
	moderation service.Moderation
	log        *logrus.Logger
}

func NewPromptHandler(cipher *crypto.PromptCipher, moderation service.Moderation, log *logrus.Logger) PromptHandler {
	return &promptHandler{cipher: cipher, moderation: moderation, log: log}
}

type TranslateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// Translate decrypts the instruction text, gates it and returns the English
// translation. The gate runs before translation; translated text is gated
// again later, inside the image-edit flow.
func (h *promptHandler) Translate(c *gin.Context) {
	var req TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing prompt"})
		return
	}

	prompt, err := h.cipher.Decrypt(req.Prompt)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	if err := h.moderation.Check(c.Request.Context(), prompt); err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	enPrompt, err := h.moderation.Translate(c.Request.Context(), prompt)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"en_prompt": enPrompt})
}
