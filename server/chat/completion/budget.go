package completion

import (
	"github.com/pkg/errors"
	"github.com/tiktoken-go/tokenizer"

	"chatbot_server/server/chat/domain"
)

// Budget trims conversation history so that it fits a token allowance.
type Budget struct {
	codec     tokenizer.Codec
	maxTokens int
}

func NewBudget(maxTokens int) (*Budget, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, errors.Wrap(err, "load tokenizer")
	}
	return &Budget{codec: codec, maxTokens: maxTokens}, nil
}

func (b *Budget) Count(text string) int {
	ids, _, err := b.codec.Encode(text)
	if err != nil {
		// Rough fallback of four bytes per token.
		return len(text)/4 + 1
	}
	return len(ids)
}

// Fit returns the newest suffix of history whose turns, together with the
// prompt, stay within the budget. Order is preserved.
func (b *Budget) Fit(prompt string, history []domain.Turn) []domain.Turn {
	if b == nil || b.maxTokens <= 0 {
		return history
	}
	remaining := b.maxTokens - b.Count(prompt)
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := b.Count(history[i].UserMessage) + b.Count(history[i].BotResponse)
		if cost > remaining {
			break
		}
		remaining -= cost
		start = i
	}
	return history[start:]
}
