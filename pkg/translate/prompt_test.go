package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/ai"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/examples"
)

func TestPromptFitDropsExamplesThenOldestTurns(t *testing.T) {
	parts := promptParts{
		vocabulary: "Node labels:\n- Supplier {supplier_name: STRING}",
		examples:   examples.Default().First(4),
		turns: []common.Turn{
			{Utterance: "oldest turn", Query: "MATCH (u:User) RETURN u"},
			{Utterance: "newest turn", Query: "MATCH (o:Order) RETURN o"},
		},
		utterance:     "show all suppliers",
		maxCandidates: 3,
	}

	full, used := parts.fit(0)
	assert.Len(t, used.examples, 4)
	assert.Contains(t, full, "oldest turn")

	bare := promptParts{vocabulary: parts.vocabulary, utterance: parts.utterance, maxCandidates: 3}
	withNewest := bare
	withNewest.turns = parts.turns[1:]

	// room for the newest turn only
	budget := ai.CountTokens(withNewest.render())
	prompt, used := parts.fit(budget)
	assert.Empty(t, used.examples)
	assert.Len(t, used.turns, 1)
	assert.NotContains(t, prompt, "oldest turn")
	assert.Contains(t, prompt, "newest turn")
	assert.LessOrEqual(t, ai.CountTokens(prompt), budget)

	// the question survives even when nothing fits
	prompt, used = parts.fit(1)
	assert.Empty(t, used.examples)
	assert.Empty(t, used.turns)
	assert.Contains(t, prompt, `Question: "show all suppliers"`)
}

func TestRenderEscapesQuotes(t *testing.T) {
	p := promptParts{vocabulary: "v", utterance: `who is "best"?`, maxCandidates: 1}
	assert.Contains(t, p.render(), `Question: "who is 'best'?"`)
	assert.Contains(t, p.render(), "## Conversation so far\n(none)")
}
