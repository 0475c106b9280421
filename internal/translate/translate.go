// Package translate implements the optional plot-translation enrichment
// step (SPEC_FULL §4.9.2): a single plot-translation call to a
// configured language model, run during validating, non-fatal on
// failure.
package translate

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jav-tidy/javtidy/internal/config"
	"github.com/jav-tidy/javtidy/internal/retry"
)

// Translator sends a scraped plot summary to a chat-completion model
// and returns the translated text.
type Translator struct {
	client *openai.Client
	model  string
	target string
}

// New builds a Translator from cfg. Returns nil, nil if translation is
// disabled, so callers can treat a nil Translator as a no-op.
func New(cfg config.TranslateConfig) (*Translator, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("translate: enabled but api_key is empty")
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	target := cfg.TargetLang
	if target == "" {
		target = "English"
	}
	return &Translator{
		client: openai.NewClient(cfg.APIKey),
		model:  model,
		target: target,
	}, nil
}

// NewWithBaseURL builds a Translator against a custom API base URL,
// the same override moonshot.go and its siblings use to point the
// go-openai client at an OpenAI-compatible endpoint — here used by
// tests to point at an httptest server instead of a real provider.
func NewWithBaseURL(apiKey, baseURL, model, target string) *Translator {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Translator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		target: target,
	}
}

// Translate sends plot to the configured model, asking for a
// translation into the target language only, retrying transient
// errors the same way the workflow runner retries fetches.
func (t *Translator) Translate(ctx context.Context, plot string) (string, error) {
	if plot == "" {
		return "", nil
	}

	prompt := fmt.Sprintf("Translate the following plot summary into %s. Respond with only the translated text, no commentary:\n\n%s", t.target, plot)

	result, err := retry.WithRetry(func() (interface{}, error) {
		resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: t.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return "", fmt.Errorf("translate: completion request: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("translate: no choices returned")
		}
		return resp.Choices[0].Message.Content, nil
	}, retry.IsTransient, retry.DefaultConfig)
	if err != nil {
		return "", err
	}

	return result.(string), nil
}
