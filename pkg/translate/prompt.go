package translate

import (
	"fmt"
	"strings"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/ai"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
)

const none = "(none)"

func renderExamples(qs []common.Question) string {
	if len(qs) == 0 {
		return none
	}
	var b strings.Builder
	for _, q := range qs {
		fmt.Fprintf(&b, "Question: %s\nCypher:\n%s\n\n", q.Question, strings.TrimSpace(q.Query))
	}
	return strings.TrimSpace(b.String())
}

func renderTurns(turns []common.Turn) string {
	if len(turns) == 0 {
		return none
	}
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "Question: %s\n", strings.TrimSpace(t.Utterance))
		if q := strings.TrimSpace(t.Query); q != "" {
			fmt.Fprintf(&b, "Cypher:\n%s\n", q)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

type promptParts struct {
	vocabulary    string
	examples      []common.Question
	turns         []common.Turn
	utterance     string
	maxCandidates int
}

func (p promptParts) render() string {
	return fmt.Sprintf(ai.CypherTranslationPrompt,
		p.vocabulary,
		renderExamples(p.examples),
		renderTurns(p.turns),
		p.maxCandidates,
		strings.ReplaceAll(p.utterance, `"`, `'`),
	)
}

// fit renders the prompt within budget tokens. Examples are dropped from the
// end of the list first, then context turns from the oldest. The vocabulary
// and the question itself are never dropped.
func (p promptParts) fit(budget int) (string, promptParts) {
	prompt := p.render()
	if budget <= 0 {
		return prompt, p
	}
	for ai.CountTokens(prompt) > budget {
		switch {
		case len(p.examples) > 0:
			p.examples = p.examples[:len(p.examples)-1]
		case len(p.turns) > 0:
			p.turns = p.turns[1:]
		default:
			return prompt, p
		}
		prompt = p.render()
	}
	return prompt, p
}
