package handler

import (
	"net/http"

	"chameleon-backend/internal/crypto"
	"chameleon-backend/internal/middleware"
	"chameleon-backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ImageHandler interface {
	Process(c *gin.Context)
}

type imageHandler struct {
	cipher       *crypto.PromptCipher
	moderation   service.Moderation
	uploads      service.Uploads
	imageService service.ImageService
	log          *logrus.Logger
}

func NewImageHandler(cipher *crypto.PromptCipher, moderation service.Moderation, uploads service.Uploads, imageService service.ImageService, log *logrus.Logger) ImageHandler {
	return &imageHandler{
		cipher:       cipher,
		moderation:   moderation,
		uploads:      uploads,
		imageService: imageService,
		log:          log,
	}
}

// Process runs the full edit pipeline for an authenticated request: decrypt
// the instruction, gate it, translate it, persist the uploaded image, then
// hand off to the synthesis orchestration. Each stage is a hard precondition
// for the next; the first failure aborts the rest.
func (h *imageHandler) Process(c *gin.Context) {
	subjectHash := c.MustGet(middleware.CtxSubjectHash).(string)
	displayHandle := c.GetString(middleware.CtxDisplayHandle)

	encryptedPrompt := c.PostForm("prompt")
	if encryptedPrompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing prompt"})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing image file"})
		return
	}
	defer file.Close()
	if header.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image selected"})
		return
	}

	prompt, err := h.cipher.Decrypt(encryptedPrompt)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	ctx := c.Request.Context()

	if err := h.moderation.Check(ctx, prompt); err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	enPrompt, err := h.moderation.Translate(ctx, prompt)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	storedName, path, err := h.uploads.Accept(file, header.Filename)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	if err := h.uploads.Record(subjectHash, displayHandle+"_"+storedName, path); err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	result, err := h.imageService.Edit(ctx, path, enPrompt)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}
