package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient adapts any OpenAI-compatible chat completion endpoint
// (DeepSeek, OpenAI, vLLM) to the Client interface.
type OpenAIClient struct {
	client       *openai.Client
	defaultModel string
}

type OpenAIOptions struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

func NewOpenAIClient(optFns ...func(o *OpenAIOptions)) *OpenAIClient {
	opts := OpenAIOptions{
		BaseURL:      "https://api.deepseek.com",
		DefaultModel: "deepseek-chat",
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	clientOpts := []option.RequestOption{option.WithBaseURL(opts.BaseURL)}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)
	return &OpenAIClient{client: &client, defaultModel: opts.DefaultModel}
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(req.MaxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
