package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

func NewOpenAIEmbedder(baseURL, apiKey, model string) *OpenAIEmbedder {
	clientCfg := openai.DefaultConfig(apiKey)
	if u := strings.TrimRight(strings.TrimSpace(baseURL), "/"); u != "" {
		clientCfg.BaseURL = u
	}
	return &OpenAIEmbedder{client: openai.NewClientWithConfig(clientCfg), model: model}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create embeddings")
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.Errorf("embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, errors.Errorf("embeddings: index %d out of range", item.Index)
		}
		out[item.Index] = item.Embedding
	}
	return out, nil
}
