package ollama

import (
	"context"
	"strings"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/ai"

	"github.com/ollama/ollama/api"
)

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model on Ollama. The vector is truncated
// or zero-padded to the configured dimension.
func (c *GraphOllamaClient) GenerateEmbedding(
	ctx context.Context,
	input []byte,
) ([]float32, error) {
	out := make([]float32, c.embeddingDim)
	if len(strings.TrimSpace(string(input))) == 0 {
		return out, nil
	}

	rCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		rCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: string(input),
	}

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	res, err := c.Client.Embed(rCtx, req)
	if err != nil {
		return nil, classify(err)
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens: res.PromptEvalCount,
		TotalTokens: res.PromptEvalCount,
		DurationMs:  res.TotalDuration.Milliseconds(),
	})

	if len(res.Embeddings) > 0 {
		for i, val := range res.Embeddings[0] {
			if i >= len(out) {
				break
			}
			out[i] = float32(val)
		}
	}
	return out, nil
}
