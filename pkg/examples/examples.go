// Package examples holds the curated analyst questions of the supply-chain
// dashboard. They can be answered directly and double as few-shot examples
// for translation.
package examples

import (
	"fmt"
	"strings"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
)

// Section groups the questions of one dashboard section.
type Section struct {
	Name      string            `json:"name"`
	Questions []common.Question `json:"questions"`
}

// Category groups sections in the order they were declared.
type Category struct {
	Name     string    `json:"name"`
	Sections []Section `json:"sections"`
}

// Bank is an immutable, ordered set of curated questions.
type Bank struct {
	questions []common.Question
	byID      map[string]int
}

// New builds a bank. IDs must be unique and every question needs a query.
func New(questions []common.Question) (*Bank, error) {
	b := &Bank{
		questions: make([]common.Question, 0, len(questions)),
		byID:      make(map[string]int, len(questions)),
	}
	for _, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question %q has no id", q.Question)
		}
		if strings.TrimSpace(q.Query) == "" {
			return nil, fmt.Errorf("question %s has no query", q.ID)
		}
		if _, dup := b.byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %s", q.ID)
		}
		b.byID[q.ID] = len(b.questions)
		b.questions = append(b.questions, q)
	}
	return b, nil
}

// Default returns the dashboard's question bank.
func Default() *Bank {
	b, err := New(curated)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Bank) Len() int {
	return len(b.questions)
}

func (b *Bank) Get(id string) (common.Question, bool) {
	i, ok := b.byID[id]
	if !ok {
		return common.Question{}, false
	}
	return b.questions[i], true
}

// All returns a copy of every question in declaration order.
func (b *Bank) All() []common.Question {
	out := make([]common.Question, len(b.questions))
	copy(out, b.questions)
	return out
}

// First returns up to n questions, spreading the picks across categories so
// that a short list still shows the breadth of the schema.
func (b *Bank) First(n int) []common.Question {
	if n <= 0 {
		return nil
	}
	if n >= len(b.questions) {
		return b.All()
	}

	var order []string
	byCategory := make(map[string][]common.Question)
	for _, q := range b.questions {
		if _, ok := byCategory[q.Category]; !ok {
			order = append(order, q.Category)
		}
		byCategory[q.Category] = append(byCategory[q.Category], q)
	}

	out := make([]common.Question, 0, n)
	for round := 0; len(out) < n; round++ {
		for _, c := range order {
			if qs := byCategory[c]; round < len(qs) {
				out = append(out, qs[round])
				if len(out) == n {
					break
				}
			}
		}
	}
	return out
}

// Groups returns the bank grouped by category and section.
func (b *Bank) Groups() []Category {
	var out []Category
	catIdx := make(map[string]int)
	secIdx := make(map[string]int)
	for _, q := range b.questions {
		ci, ok := catIdx[q.Category]
		if !ok {
			ci = len(out)
			catIdx[q.Category] = ci
			out = append(out, Category{Name: q.Category})
		}
		key := q.Category + "\x00" + q.Section
		si, ok := secIdx[key]
		if !ok {
			si = len(out[ci].Sections)
			secIdx[key] = si
			out[ci].Sections = append(out[ci].Sections, Section{Name: q.Section})
		}
		out[ci].Sections[si].Questions = append(out[ci].Sections[si].Questions, q)
	}
	return out
}
