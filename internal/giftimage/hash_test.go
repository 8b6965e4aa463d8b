package giftimage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash(t *testing.T) {
	a := Hash("Écharpe", "clothing", map[string]string{"color": "Bleu", "size": "M"})
	b := Hash("echarpe", "Clothing", map[string]string{"size": "m", "color": "bleu"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	assert.NotEqual(t, a, Hash("echarpe", "clothing", map[string]string{"color": "rouge", "size": "m"}))
	assert.NotEqual(t, a, Hash("echarpe", "books", map[string]string{"color": "bleu", "size": "m"}))
	assert.NotEqual(t, Hash("echarpe", "", nil), Hash("echarpe", "clothing", nil))
}
