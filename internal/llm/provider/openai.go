package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

func init() {
	RegisterFactory("openai", func(config map[string]any) (Provider, error) {
		apiKey, _ := config["api_key"].(string)
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}

		model, _ := config["model"].(string)
		if model == "" {
			model = defaultOpenAIModel
		}

		return NewOpenAIProvider(openai.NewClient(apiKey), model), nil
	})
}

// ChatClient is the subset of the OpenAI client the provider uses; an
// interface so tests can substitute a fake.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider implements Provider on the OpenAI chat completion API.
type OpenAIProvider struct {
	client ChatClient
	model  string
}

// NewOpenAIProvider creates an OpenAI provider with the given client and
// default model.
func NewOpenAIProvider(client ChatClient, model string) *OpenAIProvider {
	return &OpenAIProvider{client: client, model: model}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string { return "openai" }

// CreateCompletion implements Provider.
func (p *OpenAIProvider) CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	model := request.Model
	if model == "" {
		model = p.model
	}

	messages := make([]openai.ChatCompletionMessage, len(request.Messages))
	for i, m := range request.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(request.Temperature),
		MaxTokens:   request.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	return &CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
