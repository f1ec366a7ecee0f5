package completion

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"chatbot_server/server/chat/domain"
)

var ErrEmptyCompletion = errors.New("completion returned no text")

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	TopP        float32
	MaxTokens   int
	System      string
}

// OpenAICompleter talks to any OpenAI-compatible chat completions endpoint,
// such as a local inference server hosting the dialogue model.
type OpenAICompleter struct {
	client *openai.Client
	cfg    Config
}

func NewOpenAICompleter(cfg Config) *OpenAICompleter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		clientCfg.BaseURL = base
	}
	return &OpenAICompleter{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}
}

// Complete sends prior turns as alternating user/assistant messages followed
// by the new prompt and returns the first choice.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string, history []domain.Turn) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    BuildMessages(c.cfg.System, prompt, history),
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", errors.Wrap(err, "create chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func BuildMessages(system, prompt string, history []domain.Turn) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)*2+2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, turn := range history {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: turn.UserMessage},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: turn.BotResponse},
		)
	}
	return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
}
