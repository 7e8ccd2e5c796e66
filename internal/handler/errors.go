package handler

import (
	"errors"
	"net/http"

	"chameleon-backend/internal/crypto"
	"chameleon-backend/internal/service"
	"chameleon-backend/internal/synthesis_client"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// writeServiceError maps the pipeline error taxonomy onto HTTP statuses:
// 403 for content-policy rejection, 400 for value errors, 500 for external
// service failures (message relayed for diagnostics) and anything
// unexpected (generic message, full detail to the operator log).
func writeServiceError(c *gin.Context, log *logrus.Logger, err error) {
	var apiErr *synthesis_client.APIError

	switch {
	case errors.Is(err, service.ErrContentRejected):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmptyPrompt),
		errors.Is(err, service.ErrTranslationParse),
		errors.Is(err, service.ErrUnsupportedFileType),
		errors.Is(err, crypto.ErrInvalidCiphertext),
		errors.Is(err, crypto.ErrDecryptionFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrClassifierUnavailable),
		errors.Is(err, service.ErrTranslationUnavailable),
		errors.Is(err, service.ErrSynthesisContract),
		errors.Is(err, service.ErrResultFetch),
		errors.As(err, &apiErr):
		log.Errorf("External service failure: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		log.Errorf("Unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
