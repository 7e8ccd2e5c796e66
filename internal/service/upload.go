package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chameleon-backend/internal/models"
	"chameleon-backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Uploads persists accepted image files under collision-resistant names and
// records their ownership metadata. Files live under a single storage root;
// the retention sweep reclaims both file and record together.
type Uploads interface {
	Accept(file io.Reader, originalName string) (string, string, error)
	Record(ownerHash, storedName, path string) error
}

type uploads struct {
	root    string
	allowed map[string]struct{}
	repo    repository.UploadRepository
	logger  *zap.Logger
}

func NewUploads(root string, allowedExtensions []string, repo repository.UploadRepository, logger *zap.Logger) Uploads {
	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	return &uploads{root: root, allowed: allowed, repo: repo, logger: logger}
}

// Accept validates the extension against the allow-list, writes the bytes
// under a fresh random prefix and returns (stored filename, storage path).
// The random prefix guarantees collision-freedom and prevents path guessing.
func (u *uploads) Accept(file io.Reader, originalName string) (string, string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	if _, ok := u.allowed[ext]; !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}

	storedName := uuid.New().String() + "_" + sanitizeFilename(originalName)
	path := filepath.Join(u.root, storedName)

	if err := os.MkdirAll(u.root, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create storage root: %w", err)
	}

	dst, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		// Don't leave a truncated file behind a recorded name.
		os.Remove(path)
		return "", "", fmt.Errorf("failed to write upload file: %w", err)
	}

	return storedName, path, nil
}

// Record persists one upload record with the current timestamp.
func (u *uploads) Record(ownerHash, storedName, path string) error {
	record := &models.UploadRecord{
		OwnerHash: ownerHash,
		Filename:  storedName,
		Path:      path,
	}
	if err := u.repo.Insert(record); err != nil {
		u.logger.Error("Failed to record upload", zap.Error(err))
		return fmt.Errorf("failed to record upload: %w", err)
	}
	return nil
}

// sanitizeFilename reduces a client-supplied name to its base and a safe
// character set.
func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	sanitized := b.String()
	if sanitized == "" || sanitized == "." || sanitized == ".." {
		sanitized = "upload"
	}
	return sanitized
}
