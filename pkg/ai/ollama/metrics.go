package ollama

import "github.com/VinayJogani14/Supply-Chain-Management/pkg/ai"

// GetMetrics returns the accumulated token usage and timing metrics since the client was created.
func (c *GraphOllamaClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

func (c *GraphOllamaClient) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	ai.AccumulateMetrics(&c.metrics, m)
}
