package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPerHourIsPerKey(t *testing.T) {
	l := PerHour(2)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "third call within the hour is refused")
	assert.True(t, l.Allow("b"), "other keys have their own bucket")
}

func TestZeroQuotaRefusesEverything(t *testing.T) {
	l := PerHour(0)
	assert.False(t, l.Allow("a"))
}

func TestRefillAndCleanup(t *testing.T) {
	now := time.Now()
	l := PerHour(1)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	now = now.Add(time.Hour)
	assert.True(t, l.Allow("a"), "bucket refills after an hour")

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, l.Cleanup(time.Hour))
}
