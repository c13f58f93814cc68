package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/siherrmann/hrrag/model"
)

// Client generates answers through an OpenAI compatible chat completion API.
// Groq is reached through the same API with a different base url.
type Client struct {
	client      *openai.Client
	provider    string
	model       string
	temperature float32
	timeout     time.Duration
	missingKey  error
}

// NewClient returns nil for the none provider. A missing API key does not fail
// construction, every Generate call then returns a configuration error.
func NewClient(config model.LLMConfig) (*Client, error) {
	switch config.Provider {
	case "", model.LLMProviderNone:
		return nil, nil
	case model.LLMProviderGroq, model.LLMProviderOpenAI:
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", model.ErrConfiguration, config.Provider)
	}

	c := &Client{
		provider:    config.Provider,
		model:       config.Model,
		temperature: config.Temperature,
		timeout:     config.Timeout,
	}
	if c.model == "" {
		c.model = model.DefaultOpenAIModel
		if config.Provider == model.LLMProviderGroq {
			c.model = model.DefaultGroqModel
		}
	}

	if !config.HasLLMCredentials() {
		if config.Provider == model.LLMProviderGroq {
			c.missingKey = fmt.Errorf("%w: please set a valid GROQ_API_KEY in your .env file or disable USE_GROQ", model.ErrConfiguration)
		} else {
			c.missingKey = fmt.Errorf("%w: please set a valid OPENAI_API_KEY in your .env file", model.ErrConfiguration)
		}
		return c, nil
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	c.client = openai.NewClientWithConfig(clientConfig)
	return c, nil
}

// Model returns the chat model name.
func (c *Client) Model() string {
	return c.model
}

// Generate sends the system instruction and prompt as one chat completion and
// returns the trimmed answer. Transport and API failures wrap model.ErrUpstream.
func (c *Client) Generate(ctx context.Context, system string, prompt string) (string, error) {
	if c.missingKey != nil {
		return "", c.missingKey
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s chat completion: %v", model.ErrUpstream, c.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s returned no choices", model.ErrUpstream, c.provider)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
