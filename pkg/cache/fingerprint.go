package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/util"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
)

// Fingerprint identifies a request for caching. Utterances that differ only
// in case or whitespace share a fingerprint. The schema version is part of
// the key, so a schema change never serves results computed against an
// older catalog. Context turns are included in order.
func Fingerprint(utterance string, turns []common.Turn, schemaVersion string) string {
	h := sha256.New()
	h.Write([]byte(util.NormalizeUtterance(utterance)))
	h.Write([]byte{0})
	h.Write([]byte(schemaVersion))
	for _, t := range turns {
		h.Write([]byte{0})
		h.Write([]byte(util.NormalizeUtterance(t.Utterance)))
		h.Write([]byte{0})
		h.Write([]byte(strings.TrimSpace(t.Query)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// QueryFingerprint keys requests that skip translation, such as curated
// questions, by their query text.
func QueryFingerprint(query string, schemaVersion string) string {
	h := sha256.New()
	h.Write([]byte("query"))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(strings.Fields(query), " ")))
	h.Write([]byte{0})
	h.Write([]byte(schemaVersion))
	return hex.EncodeToString(h.Sum(nil))
}
