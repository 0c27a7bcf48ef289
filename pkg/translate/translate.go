// Package translate turns a natural-language question into ranked candidate
// Cypher queries using a text-generation provider.
package translate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/util"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/ai"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/catalog"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/cypher"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/examples"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"
)

const (
	DefaultMaxRetries    = 2
	DefaultFewShot       = 6
	DefaultMaxCandidates = 3
	DefaultContextTurns  = 3
	DefaultPromptBudget  = 6000
	DefaultMaxTokens     = 1024

	// fallbackConfidence is assigned to a query scraped from free text.
	fallbackConfidence = 0.5
)

const op = "translate.Translate"

type candidateOut struct {
	Query      string   `json:"query" jsonschema_description:"A read-only Cypher query"`
	Confidence float64  `json:"confidence" jsonschema_description:"Confidence between 0 and 1"`
	Entities   []string `json:"entities" jsonschema_description:"Labels and relationship types used"`
}

type candidateList struct {
	Candidates []candidateOut `json:"candidates"`
}

// Translator is stateless across requests and safe for concurrent use.
type Translator struct {
	client        ai.GraphAIClient
	selector      *examples.Selector
	maxRetries    int
	backoff       util.Backoff
	fewShot       int
	maxCandidates int
	contextTurns  int
	promptBudget  int
	maxTokens     int
}

// NewTranslatorParams configures a Translator. MaxRetries counts retries
// after the first provider attempt. A negative FewShot disables examples.
type NewTranslatorParams struct {
	Client        ai.GraphAIClient
	Selector      *examples.Selector
	MaxRetries    int
	Backoff       *util.Backoff
	FewShot       int
	MaxCandidates int
	ContextTurns  int
	PromptBudget  int
	MaxTokens     int
}

func NewTranslator(params NewTranslatorParams) *Translator {
	t := &Translator{
		client:        params.Client,
		selector:      params.Selector,
		maxRetries:    params.MaxRetries,
		backoff:       util.DefaultBackoff(),
		fewShot:       params.FewShot,
		maxCandidates: params.MaxCandidates,
		contextTurns:  params.ContextTurns,
		promptBudget:  params.PromptBudget,
		maxTokens:     params.MaxTokens,
	}
	if t.selector == nil {
		t.selector = examples.NewSelector(examples.NewSelectorParams{})
	}
	if t.maxRetries < 0 {
		t.maxRetries = 0
	}
	if params.Backoff != nil {
		t.backoff = *params.Backoff
	}
	if t.fewShot == 0 {
		t.fewShot = DefaultFewShot
	}
	if t.maxCandidates <= 0 {
		t.maxCandidates = DefaultMaxCandidates
	}
	if t.contextTurns <= 0 {
		t.contextTurns = DefaultContextTurns
	}
	if t.promptBudget <= 0 {
		t.promptBudget = DefaultPromptBudget
	}
	if t.maxTokens <= 0 {
		t.maxTokens = DefaultMaxTokens
	}
	return t
}

// ContextTurns is the number of prior turns the translator uses.
func (t *Translator) ContextTurns() int {
	return t.contextTurns
}

// Translate asks the provider for candidate queries, grounds them against
// snap and returns them sorted by confidence, best first.
//
// Unavailable providers are retried with backoff. A deadline is never
// retried and surfaces as ProviderTimeout. When the provider answers but
// nothing parseable comes back the error is NoCandidateProduced.
func (t *Translator) Translate(ctx context.Context, req common.TranslationRequest, snap *catalog.Snapshot) ([]common.CandidateQuery, error) {
	if snap == nil {
		return nil, common.Errorf(common.ErrCatalogUnavailable, op, "no schema snapshot")
	}
	utterance := strings.TrimSpace(req.Utterance)
	if utterance == "" {
		return nil, common.Errorf(common.ErrNoCandidateProduced, op, "empty utterance")
	}

	turns := req.Context
	if len(turns) > t.contextTurns {
		turns = turns[len(turns)-t.contextTurns:]
	}
	var few []common.Question
	if t.fewShot > 0 {
		few = t.selector.Select(ctx, utterance, t.fewShot)
	}

	prompt, used := promptParts{
		vocabulary:    snap.Vocabulary(),
		examples:      few,
		turns:         turns,
		utterance:     utterance,
		maxCandidates: t.maxCandidates,
	}.fit(t.promptBudget)
	logger.Debug("Translation prompt built",
		"examples", len(used.examples), "turns", len(used.turns), "tokens", ai.CountTokens(prompt))

	raw, err := t.structured(ctx, prompt)
	if errors.Is(err, ai.ErrMalformedOutput) {
		logger.Warn("Structured translation unusable, falling back to free text", "err", err)
		raw, err = t.fallback(ctx, snap, utterance, used.turns)
	}
	if err != nil {
		return nil, classify(ctx, err)
	}

	cands := ground(raw, snap)
	if len(cands) > t.maxCandidates {
		cands = cands[:t.maxCandidates]
	}
	logger.Debug("Translation produced candidates", "count", len(cands), "best", cands[0].Confidence)
	return cands, nil
}

func retryable(err error) bool {
	return !errors.Is(err, ai.ErrRequestRejected) &&
		!errors.Is(err, ai.ErrMalformedOutput) &&
		!errors.Is(err, ai.ErrNotConfigured)
}

func (t *Translator) options() []ai.GenerateOption {
	return []ai.GenerateOption{
		ai.WithSystemPrompts(ai.CypherSystemPrompt),
		ai.WithTemperature(0.1),
		ai.WithMaxTokens(t.maxTokens),
	}
}

func (t *Translator) structured(ctx context.Context, prompt string) ([]candidateOut, error) {
	attempt := 0
	return util.RetryWithContext(ctx, t.maxRetries+1, t.backoff, retryable,
		func(ctx context.Context) ([]candidateOut, error) {
			attempt++
			var out candidateList
			err := t.client.GenerateCompletionWithFormat(ctx,
				"cypher_candidates",
				"Candidate Cypher queries answering the question",
				prompt, &out, t.options()...)
			if err != nil {
				if retryable(err) {
					logger.Warn("Translation attempt failed", "attempt", attempt, "err", err)
				}
				return nil, err
			}
			usable := slices.DeleteFunc(out.Candidates, func(c candidateOut) bool {
				return strings.TrimSpace(c.Query) == ""
			})
			if len(usable) == 0 {
				return nil, fmt.Errorf("%w: no candidates in response", ai.ErrMalformedOutput)
			}
			return usable, nil
		})
}

// fallback asks for a single free-text query. Prior turns are replayed as
// chat messages so follow-up questions keep their referents.
func (t *Translator) fallback(ctx context.Context, snap *catalog.Snapshot, utterance string, turns []common.Turn) ([]candidateOut, error) {
	messages := make([]ai.ChatMessage, 0, 2*len(turns)+1)
	for _, turn := range turns {
		messages = append(messages, ai.ChatMessage{Role: "user", Message: turn.Utterance})
		if turn.Query != "" {
			messages = append(messages, ai.ChatMessage{Role: "assistant", Message: "```cypher\n" + turn.Query + "\n```"})
		}
	}
	messages = append(messages, ai.ChatMessage{
		Role:    "user",
		Message: fmt.Sprintf(ai.CypherFallbackPrompt, snap.Vocabulary(), utterance),
	})
	text, err := util.RetryWithContext(ctx, t.maxRetries+1, t.backoff, retryable,
		func(ctx context.Context) (string, error) {
			return t.client.GenerateChat(ctx, messages, t.options()...)
		})
	if err != nil {
		return nil, err
	}
	q := ExtractQuery(text)
	if q == "" {
		return nil, fmt.Errorf("%w: no query in free text answer", ai.ErrMalformedOutput)
	}
	return []candidateOut{{Query: q, Confidence: fallbackConfidence}}, nil
}

func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return &common.Error{Kind: common.ErrCancelled, Op: op, Err: err}
	case ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded):
		return &common.Error{Kind: common.ErrProviderTimeout, Op: op, Err: err}
	case errors.Is(err, context.Canceled):
		return &common.Error{Kind: common.ErrCancelled, Op: op, Err: err}
	case errors.Is(err, ai.ErrMalformedOutput):
		return &common.Error{Kind: common.ErrNoCandidateProduced, Op: op, Err: err}
	}
	logger.Error("Translation provider unavailable", "err", err)
	return &common.Error{Kind: common.ErrProviderUnavailable, Op: op, Err: err}
}

var (
	fenced      = regexp.MustCompile("(?is)```[ \t]*(?:cypher)?[ \t]*\\r?\\n?(.*?)```")
	clauseStart = regexp.MustCompile(`(?i)^\s*(MATCH|OPTIONAL\s+MATCH|WITH|UNWIND|CALL|RETURN)\b`)
)

// ExtractQuery pulls a Cypher query out of free text: the first fenced code
// block, otherwise everything from the first line starting with a reading
// clause. It returns "" when neither exists.
func ExtractQuery(text string) string {
	if m := fenced.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if clauseStart.MatchString(line) {
			return strings.TrimSpace(strings.Join(lines[i:], "\n"))
		}
	}
	return ""
}

// ground converts provider output into candidates. Queries that do not parse
// or that reference labels or relationship types missing from snap get a
// zero confidence and an annotation naming the problem.
func ground(raw []candidateOut, snap *catalog.Snapshot) []common.CandidateQuery {
	seen := make(map[string]bool, len(raw))
	out := make([]common.CandidateQuery, 0, len(raw))
	for _, r := range raw {
		query := strings.TrimSpace(r.Query)
		key := strings.Join(strings.Fields(query), " ")
		if seen[key] {
			continue
		}
		seen[key] = true

		c := common.CandidateQuery{Query: query, Confidence: clamp(r.Confidence)}
		a, err := cypher.Analyze(query)
		if err != nil {
			c.Confidence = 0
			c.Annotation = "query does not parse: " + err.Error()
			c.References = r.Entities
			out = append(out, c)
			continue
		}
		c.References = a.References()

		var unknown []string
		for _, l := range a.Labels {
			if !snap.HasLabel(l) {
				unknown = append(unknown, "label "+l)
			}
		}
		for _, rt := range a.RelationshipTypes {
			if !snap.HasRelationship(rt) {
				unknown = append(unknown, "relationship type "+rt)
			}
		}
		if len(unknown) > 0 {
			c.Confidence = 0
			c.Annotation = "unknown " + strings.Join(unknown, ", unknown ")
		}
		out = append(out, c)
	}

	slices.SortStableFunc(out, func(a, b common.CandidateQuery) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		}
		return 0
	})
	return out
}

func clamp(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
