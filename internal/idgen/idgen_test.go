package idgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsParseable(t *testing.T) {
	id := New()
	ts, err := TimestampOf(id)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, 2*time.Second)
}

func TestNewIsMonotonicallyOrderedAcrossMilliseconds(t *testing.T) {
	a := New()
	time.Sleep(2 * time.Millisecond)
	b := New()
	assert.True(t, a < b, "expected %q < %q", a, b)
}

func TestTimestampOfRejectsGarbage(t *testing.T) {
	_, err := TimestampOf("not-a-uuid")
	assert.Error(t, err)
}

func TestNewUUIDDistinctEvenWithinSameMillisecond(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := New()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
