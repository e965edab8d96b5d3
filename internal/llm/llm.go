// Package llm asks an OpenAI-compatible model for study tips.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/pavelanni/exambank/internal/feedback"
	"github.com/pavelanni/exambank/internal/llm/prompts"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.Variant
}

// New creates a new LLM client using the given prompt variant.
func New(baseURL, apiKey, modelName, variant string) (*Client, error) {
	if !prompts.IsValidVariant(variant) {
		return nil, fmt.Errorf("invalid prompt variant: %q", variant)
	}
	if err := prompts.Load(); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: prompts.Variant(variant),
	}, nil
}

// Ping checks that the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// StudyTip asks the model what to review after an incorrect answer. The
// reply is written in lang.
func (c *Client) StudyTip(ctx context.Context, lang string, df feedback.DetailedFeedback) (string, error) {
	prompt, err := prompts.BuildTipPrompt(c.variant, prompts.TipData{
		LanguageName:   languageName(lang),
		QuestionText:   df.QuestionText,
		CorrectAnswers: df.CorrectAnswers,
		YourAnswers:    df.YourAnswers,
	})
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	tip := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("study tip", "question_id", df.QuestionID, "tokens", resp.Usage.TotalTokens)
	return tip, nil
}

// languageName returns the English name of a language tag, such as
// "Spanish" for "es".
func languageName(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return "English"
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return "English"
}
