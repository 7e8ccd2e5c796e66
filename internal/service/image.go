package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoding
	"image/png"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"chameleon-backend/internal/synthesis_client"

	"go.uber.org/zap"
)

// synthesizer abstracts the external image-synthesis capability.
type synthesizer interface {
	EditImage(ctx context.Context, imageDataURL, prompt string) ([]synthesis_client.Result, error)
	FetchResult(ctx context.Context, resultURL string) ([]byte, error)
}

// ImageService orchestrates the external image-edit call: gate, submit,
// extract the single result reference, fetch, re-encode. One attempt per
// request; the client may resubmit.
type ImageService interface {
	Edit(ctx context.Context, imagePath, instruction string) (string, error)
}

type imageService struct {
	moderation Moderation
	synth      synthesizer
	logger     *zap.Logger
}

func NewImageService(moderation Moderation, synth synthesizer, logger *zap.Logger) ImageService {
	return &imageService{moderation: moderation, synth: synth, logger: logger}
}

// Edit runs the synthesis pipeline for one stored image and instruction.
// The compliance gate runs here again even though the source text was gated
// before translation: translation can alter meaning, so exactly two gate
// invocations per edit flow is the contract, not an optimization.
func (s *imageService) Edit(ctx context.Context, imagePath, instruction string) (string, error) {
	if err := s.moderation.Check(ctx, instruction); err != nil {
		return "", err
	}

	dataURL, err := encodeImageDataURL(imagePath)
	if err != nil {
		return "", err
	}

	// A client disconnect must not abort a synthesis call already underway.
	callCtx := context.WithoutCancel(ctx)

	results, err := s.synth.EditImage(callCtx, dataURL, instruction)
	if err != nil {
		s.logger.Error("Synthesis call failed", zap.Error(err))
		return "", err
	}
	if len(results) == 0 || results[0].URL == "" {
		return "", ErrSynthesisContract
	}

	resultBytes, err := s.synth.FetchResult(callCtx, results[0].URL)
	if err != nil {
		s.logger.Error("Result fetch failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrResultFetch, err)
	}

	img, _, err := image.Decode(bytes.NewReader(resultBytes))
	if err != nil {
		return "", fmt.Errorf("%w: result is not a decodable image: %v", ErrSynthesisContract, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to re-encode result image: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// encodeImageDataURL reads a stored upload and encodes it as a base64 data
// URL for the synthesis request.
func encodeImageDataURL(path string) (string, error) {
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%w: unrecognized image format for %s", ErrUnsupportedFileType, filepath.Base(path))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}
