package holiday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateSet(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2024, time.June, day, 0, 0, 0, 0, time.UTC) }

	set := NewDateSet(d(3), d(17), d(17))

	assert.Len(t, set, 2)
	assert.True(t, set.Contains(d(3)))
	assert.True(t, set.Contains(time.Date(2024, time.June, 17, 15, 30, 0, 0, time.UTC)))
	assert.False(t, set.Contains(d(4)))
	assert.Equal(t, 2, set.CountBetween(d(1), d(30)))
	assert.Equal(t, 1, set.CountBetween(d(4), d(30)))
	assert.Equal(t, 0, set.CountBetween(d(18), d(30)))
}
