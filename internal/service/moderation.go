package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// completer abstracts the chat-completion capability so retry policy or test
// doubles can be layered on without touching the pipeline logic.
type completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Moderation is the compliance gate plus the translation stage. Check is a
// precondition of Translate: callers gate the source text first, and the
// image-edit orchestration gates the translated text again before synthesis.
type Moderation interface {
	Check(ctx context.Context, text string) error
	Translate(ctx context.Context, text string) (string, error)
}

type moderation struct {
	llm    completer
	logger *zap.Logger
}

func NewModeration(llm completer, logger *zap.Logger) Moderation {
	return &moderation{llm: llm, logger: logger}
}

const complianceTemplate = "Do not reason, reply directly. Check whether the following text contains any illegal, " +
	"harmful, sensitive or adult content. If it does, return only the uppercase word 'DISALLOWED'; " +
	"if it does not, return only the uppercase word 'ALLOWED'. Text: %s"

const translateTemplate = "Do not reason, reply directly. Translate the following text into English. " +
	"Output strictly in this JSON format and nothing else: {\"en_prompt\": \"<english translation>\"} " +
	"Text: %s"

// Check classifies text and blocks the pipeline on a DISALLOWED verdict. The
// gate fails closed: an unreachable classifier or any verdict outside the
// two accepted values is ErrClassifierUnavailable, never silent success.
func (m *moderation) Check(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyPrompt
	}

	content, err := m.llm.Complete(ctx, fmt.Sprintf(complianceTemplate, text), 10)
	if err != nil {
		m.logger.Error("Compliance classifier call failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}

	switch strings.ToUpper(strings.TrimSpace(content)) {
	case "ALLOWED":
		return nil
	case "DISALLOWED":
		return ErrContentRejected
	default:
		m.logger.Error("Compliance classifier returned unexpected verdict", zap.String("verdict", content))
		return fmt.Errorf("%w: unexpected verdict %q", ErrClassifierUnavailable, content)
	}
}

type translationResult struct {
	EnPrompt string `json:"en_prompt"`
}

// Translate converts text into the working language expected by the
// synthesis provider. Callers must have passed the text through Check first.
func (m *moderation) Translate(ctx context.Context, text string) (string, error) {
	content, err := m.llm.Complete(ctx, fmt.Sprintf(translateTemplate, text), 512)
	if err != nil {
		m.logger.Error("Translation call failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrTranslationUnavailable, err)
	}

	content = stripCodeFence(content)

	var result translationResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationParse, err)
	}
	if result.EnPrompt == "" {
		return "", fmt.Errorf("%w: missing en_prompt field", ErrTranslationParse)
	}

	return result.EnPrompt, nil
}

// stripCodeFence removes an optional Markdown code-fence wrapper the model
// sometimes adds around its JSON output.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
