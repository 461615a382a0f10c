package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel = "gpt-3.5-turbo"

	// openAIMinTemperature stands in for zero so the field survives omitempty.
	openAIMinTemperature float32 = 0.01
)

type chatCompletionAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient calls the OpenAI chat completion API.
type OpenAIClient struct {
	api   chatCompletionAPI
	model string
}

// NewOpenAIClient builds a client from an API key. baseURL may point at an
// OpenAI-compatible gateway.
func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = baseURL
	}
	return NewOpenAIClientWithAPI(openai.NewClientWithConfig(cfg), model)
}

// NewOpenAIClientWithAPI allows injecting a stub for tests.
func NewOpenAIClientWithAPI(api chatCompletionAPI, model string) *OpenAIClient {
	if api == nil {
		panic("llm: openai api cannot be nil")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{api: api, model: model}
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.System)+len(req.Messages))
	for _, block := range req.System {
		if strings.TrimSpace(block) == "" {
			continue
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: block})
	}
	for _, m := range req.Messages {
		role := m.Role
		switch role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return Response{}, fmt.Errorf("llm: unsupported role %q", role)
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	creq := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  msgs,
		MaxTokens: int(req.MaxTokens),
		N:         1,
	}
	switch {
	case req.Temperature == 0:
		// go-openai omits a zero temperature, which the API reads as 1.0.
		creq.Temperature = openAIMinTemperature
	case req.Temperature > 0:
		creq.Temperature = req.Temperature
	}

	resp, err := c.api.CreateChatCompletion(ctx, creq)
	if err != nil {
		return Response{}, fmt.Errorf("llm: openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, ErrEmptyCompletion
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Response{}, ErrEmptyCompletion
	}
	return Response{
		Text:       text,
		StopReason: string(resp.Choices[0].FinishReason),
		Usage: Usage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}, nil
}
