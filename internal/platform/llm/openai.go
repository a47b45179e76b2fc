package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
)

// GeminiCompatBaseURL is Google's OpenAI-compatible Gemini endpoint.
const GeminiCompatBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// openAIProvider speaks the chat completions API, which OpenAI, Gemini and
// Ollama all serve.
type openAIProvider struct {
	name   string
	client openai.Client
	model  string
}

func NewOpenAIProvider(name, apiKey, baseURL, model string) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing API key for %s provider", name)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openAIProvider{name: name, client: openai.NewClient(opts...), model: model}, nil
}

func (p *openAIProvider) Name() string { return p.name }

func (p *openAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	var msgs []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, classifyStatus(p.name, apiErr.StatusCode, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errkind.Provider(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, errkind.Provider(p.name, errors.New("no choices in response"))
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, errkind.Provider(p.name, fmt.Errorf("model refused: %s", choice.Message.Refusal))
	}
	text := choice.Message.Content
	if strings.TrimSpace(text) == "" {
		return nil, errkind.Provider(p.name, fmt.Errorf("empty response (finish_reason=%s)", choice.FinishReason))
	}
	return &Response{
		Text:         text,
		Model:        resp.Model,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}
