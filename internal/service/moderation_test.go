package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type completerFunc func(ctx context.Context, prompt string, maxTokens int) (string, error)

func (f completerFunc) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return f(ctx, prompt, maxTokens)
}

// markerClassifier returns DISALLOWED whenever the submitted text contains
// the marker word, ALLOWED otherwise.
func markerClassifier(marker string, calls *int) completerFunc {
	return func(_ context.Context, prompt string, _ int) (string, error) {
		*calls++
		if strings.Contains(prompt, marker) {
			return "DISALLOWED", nil
		}
		return "ALLOWED", nil
	}
}

func TestCheck_AllowedAndRejected(t *testing.T) {
	t.Parallel()

	var calls int
	moderation := NewModeration(markerClassifier("forbidden", &calls), zap.NewNop())

	require.NoError(t, moderation.Check(context.Background(), "paint the house blue"))
	require.ErrorIs(t, moderation.Check(context.Background(), "do a forbidden thing"), ErrContentRejected)
	assert.Equal(t, 2, calls)
}

func TestCheck_EmptyTextSkipsClassifier(t *testing.T) {
	t.Parallel()

	var calls int
	moderation := NewModeration(markerClassifier("forbidden", &calls), zap.NewNop())

	for _, text := range []string{"", "   ", "\n\t"} {
		require.ErrorIs(t, moderation.Check(context.Background(), text), ErrEmptyPrompt)
	}
	assert.Zero(t, calls, "classifier must not be called for empty text")
}

func TestCheck_VerdictCaseInsensitive(t *testing.T) {
	t.Parallel()

	moderation := NewModeration(completerFunc(func(context.Context, string, int) (string, error) {
		return "  allowed \n", nil
	}), zap.NewNop())
	require.NoError(t, moderation.Check(context.Background(), "anything"))

	moderation = NewModeration(completerFunc(func(context.Context, string, int) (string, error) {
		return "disallowed", nil
	}), zap.NewNop())
	require.ErrorIs(t, moderation.Check(context.Background(), "anything"), ErrContentRejected)
}

func TestCheck_FailsClosed(t *testing.T) {
	t.Parallel()

	// Anything other than the two accepted verdicts is a classifier
	// contract violation, never silent success.
	for _, verdict := range []string{"MAYBE", "ALLOWED, mostly", "I cannot judge this", ""} {
		verdict := verdict
		moderation := NewModeration(completerFunc(func(context.Context, string, int) (string, error) {
			return verdict, nil
		}), zap.NewNop())
		err := moderation.Check(context.Background(), "anything")
		require.ErrorIs(t, err, ErrClassifierUnavailable, "verdict %q", verdict)
		require.NotErrorIs(t, err, ErrContentRejected)
	}
}

func TestCheck_ClassifierCallFailure(t *testing.T) {
	t.Parallel()

	moderation := NewModeration(completerFunc(func(context.Context, string, int) (string, error) {
		return "", errors.New("connection refused")
	}), zap.NewNop())

	require.ErrorIs(t, moderation.Check(context.Background(), "anything"), ErrClassifierUnavailable)
}

func TestTranslate_ParsesPlainAndFencedJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
	}{
		{"plain", `{"en_prompt": "fix the picture"}`},
		{"fenced", "```json\n{\"en_prompt\": \"fix the picture\"}\n```"},
		{"bare fence", "```\n{\"en_prompt\": \"fix the picture\"}\n```"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			moderation := NewModeration(completerFunc(func(context.Context, string, int) (string, error) {
				return tc.content, nil
			}), zap.NewNop())

			got, err := moderation.Translate(context.Background(), "修复图片")
			require.NoError(t, err)
			assert.Equal(t, "fix the picture", got)
		})
	}
}

func TestTranslate_ParseFailures(t *testing.T) {
	t.Parallel()

	for _, content := range []string{"not json", `{"other_field": "x"}`, `{"en_prompt": ""}`} {
		content := content
		moderation := NewModeration(completerFunc(func(context.Context, string, int) (string, error) {
			return content, nil
		}), zap.NewNop())

		_, err := moderation.Translate(context.Background(), "修复图片")
		require.ErrorIs(t, err, ErrTranslationParse, "content %q", content)
	}
}

func TestTranslate_CallFailure(t *testing.T) {
	t.Parallel()

	moderation := NewModeration(completerFunc(func(context.Context, string, int) (string, error) {
		return "", fmt.Errorf("LLM service returned status 502: bad gateway")
	}), zap.NewNop())

	_, err := moderation.Translate(context.Background(), "修复图片")
	require.ErrorIs(t, err, ErrTranslationUnavailable)
}
