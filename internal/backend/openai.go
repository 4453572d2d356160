package backend

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog/log"

	"question-extract/internal/config"
	"question-extract/internal/models"
	"question-extract/internal/prompt"
)

// OpenAI talks to any OpenAI-compatible chat completion endpoint.
type OpenAI struct {
	client  *openai.Client
	timeout time.Duration
}

func NewOpenAI(cfg config.BackendConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(clientCfg),
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// Complete issues one chat completion bounded by the configured timeout and
// returns the raw completion text.
func (o *OpenAI) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.SystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindUnknown, Message: "no choices in completion response"}
	}

	log.Debug().
		Str("chunk", req.Chunk.Ref()).
		Str("model", req.Model).
		Dur("elapsed", time.Since(start)).
		Msg("completion received")
	return resp.Choices[0].Message.Content, nil
}
