package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Écharpe en Laine", "echarpe en laine"},
		{"  Pull -- d'hiver!! ", "pull d hiver"},
		{"Crème brûlée", "creme brulee"},
		{"ﬁlm", "film"},
		{"", ""},
		{"...", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "marie-helene-dupont", Slugify("Marie-Hélène  Dupont", 40))
	assert.Equal(t, "zoe", Slugify("Zoé 🎁", 40))
	assert.Equal(t, "", Slugify("李小龙", 40))
	assert.Equal(t, "jean-pierre", Slugify("Jean-Pierre de la Fontaine", 12))
}
