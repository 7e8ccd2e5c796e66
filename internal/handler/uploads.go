package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type UploadsHandler interface {
	Serve(c *gin.Context)
}

type uploadsHandler struct {
	root string
	log  *logrus.Logger
}

func NewUploadsHandler(root string, log *logrus.Logger) UploadsHandler {
	return &uploadsHandler{root: root, log: log}
}

// Serve returns a stored upload by filename. Names containing path
// separators or dot segments never match a stored file.
func (h *uploadsHandler) Serve(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" || filename != filepath.Base(filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		return
	}

	path := filepath.Join(h.root, filename)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	c.File(path)
}
