package giftimage

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/pliiiz/pliiiz/internal/textnorm"
)

// Hash identifies a gift idea by its normalized label, category and
// attributes. Attribute order does not matter.
func Hash(label, category string, attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, textnorm.Normalize(k)+"="+textnorm.Normalize(attrs[k]))
	}

	sum := sha256.Sum256([]byte(textnorm.Normalize(label) + "|" + textnorm.Normalize(category) + "|" + strings.Join(pairs, ",")))
	return hex.EncodeToString(sum[:])
}
