package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const tokenEncoding = "o200k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding(tokenEncoding)
		if err == nil {
			enc = e
		}
	})
	return enc
}

// CountTokens estimates how many tokens text occupies in a prompt. When the
// encoding cannot be loaded it falls back to four bytes per token.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	e := encoding()
	if e == nil {
		return (len(text) + 3) / 4
	}
	return len(e.Encode(text, nil, nil))
}
