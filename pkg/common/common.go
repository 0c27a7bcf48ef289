package common

import "time"

// Turn is one prior exchange of a conversation: the question a user asked
// and the query that answered it. Turns give the translator context for
// follow-up questions such as "and only for last month?".
type Turn struct {
	Utterance string `json:"utterance"`
	Query     string `json:"query,omitempty"`
}

// TranslationRequest is a single natural-language question together with
// the conversation that preceded it.
//
// A TranslationRequest is created per user interaction and never mutated.
// Context is ordered oldest first and bounded by the caller.
type TranslationRequest struct {
	Utterance   string    `json:"utterance"`
	Context     []Turn    `json:"context,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// CandidateQuery is one graph query proposed for a TranslationRequest.
//
// Confidence lies in [0,1]. References lists the labels and relationship
// types the query mentions. Annotation explains a zero confidence, e.g. the
// unknown label that caused it.
type CandidateQuery struct {
	Query      string   `json:"query"`
	Confidence float64  `json:"confidence"`
	References []string `json:"references,omitempty"`
	Annotation string   `json:"annotation,omitempty"`
}

// Row maps a result column to its value.
type Row map[string]Value

// ExecutionResult is the outcome of running one validated query.
//
// Columns preserves the order the store returned. Rows never holds more
// entries than the row cap it was executed with; Truncated reports that the
// store had more.
type ExecutionResult struct {
	Columns   []string      `json:"columns"`
	Rows      []Row         `json:"rows"`
	RowCount  int           `json:"row_count"`
	Truncated bool          `json:"truncated"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Question is a curated analyst question with a hand-written query.
type Question struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Section  string `json:"section"`
	Question string `json:"question"`
	Query    string `json:"query"`
}
