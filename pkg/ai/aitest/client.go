// Package aitest provides a scripted ai.GraphAIClient for tests.
package aitest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/ai"
)

// FormatFunc answers a structured request. attempt counts from 1 across
// every structured call made on the client.
type FormatFunc func(ctx context.Context, attempt int, prompt string) (string, error)

type CompletionFunc func(ctx context.Context, prompt string) (string, error)

// Client records prompts and answers from scripted functions. Structured
// answers are decoded the same way the real adapters decode them.
type Client struct {
	mu          sync.Mutex
	format      FormatFunc
	completion  CompletionFunc
	embed       func(ctx context.Context, input []byte) ([]float32, error)
	load        func(ctx context.Context) error
	prompts     []string
	chats       [][]ai.ChatMessage
	formatCalls int
	loads       int
	options     []ai.GenerateOptions
	metrics     ai.ModelMetrics
}

func New(format FormatFunc) *Client {
	return &Client{format: format}
}

// Answering returns a client whose structured calls always return raw.
func Answering(raw string) *Client {
	return New(func(context.Context, int, string) (string, error) { return raw, nil })
}

// Candidates encodes {query, confidence} pairs the way a model would.
func Candidates(pairs ...any) string {
	type cand struct {
		Query      string   `json:"query"`
		Confidence float64  `json:"confidence"`
		Entities   []string `json:"entities"`
	}
	var out struct {
		Candidates []cand `json:"candidates"`
	}
	out.Candidates = []cand{}
	for i := 0; i+1 < len(pairs); i += 2 {
		out.Candidates = append(out.Candidates, cand{Query: pairs[i].(string), Confidence: pairs[i+1].(float64)})
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func (c *Client) WithCompletion(fn CompletionFunc) *Client {
	c.completion = fn
	return c
}

func (c *Client) WithEmbedding(fn func(ctx context.Context, input []byte) ([]float32, error)) *Client {
	c.embed = fn
	return c
}

// WithLoad scripts LoadModel.
func (c *Client) WithLoad(fn func(ctx context.Context) error) *Client {
	c.load = fn
	return c
}

func (c *Client) record(prompt string, opts []ai.GenerateOption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	c.options = append(c.options, ai.Apply(ai.GenerateOptions{}, opts...))
}

func (c *Client) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	c.record(prompt, opts)
	if c.completion == nil {
		return "", errors.New("aitest: no completion scripted")
	}
	return c.completion(ctx, prompt)
}

func (c *Client) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	c.record(prompt, opts)
	c.mu.Lock()
	c.formatCalls++
	attempt := c.formatCalls
	c.mu.Unlock()

	if c.format == nil {
		return errors.New("aitest: no structured answer scripted")
	}
	raw, err := c.format(ctx, attempt, prompt)
	if err != nil {
		return err
	}
	return ai.DecodeOutput(raw, out)
}

// GenerateChat records the conversation and answers its last message with
// the scripted completion.
func (c *Client) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	c.mu.Lock()
	c.chats = append(c.chats, append([]ai.ChatMessage(nil), messages...))
	c.mu.Unlock()
	if len(messages) == 0 {
		return c.GenerateCompletion(ctx, "", opts...)
	}
	return c.GenerateCompletion(ctx, messages[len(messages)-1].Message, opts...)
}

func (c *Client) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	if c.embed == nil {
		return nil, errors.New("aitest: no embedding scripted")
	}
	return c.embed(ctx, input)
}

func (c *Client) LoadModel(ctx context.Context, _ ...ai.GenerateOption) error {
	c.mu.Lock()
	c.loads++
	c.mu.Unlock()
	if c.load == nil {
		return nil
	}
	return c.load(ctx)
}

func (c *Client) GetMetrics() ai.ModelMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// Prompts returns every prompt received, in order.
func (c *Client) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

// Options returns the resolved options of every call, in order.
func (c *Client) Options() []ai.GenerateOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ai.GenerateOptions(nil), c.options...)
}

// Chats returns the messages of every chat call, in order.
func (c *Client) Chats() [][]ai.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]ai.ChatMessage(nil), c.chats...)
}

// Loads counts LoadModel calls.
func (c *Client) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

// FormatCalls counts structured calls.
func (c *Client) FormatCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.formatCalls
}

var _ ai.GraphAIClient = (*Client)(nil)
