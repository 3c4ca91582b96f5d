package matchmaking

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func entry(userID string, rating, band int) Entry {
	return Entry{
		ConnectionID: uuid.New(),
		UserID:       userID,
		Username:     userID,
		Rating:       rating,
		RatingBand:   band,
	}
}

func TestEnqueuePairsTwoWaiters(t *testing.T) {
	q := NewQueue(zap.NewNop())

	first := entry("a", 1200, 0)
	second := entry("b", 1300, 0)

	assert.Empty(t, q.Enqueue(first))
	assert.Equal(t, 1, q.Len())

	pairs := q.Enqueue(second)
	require.Len(t, pairs, 1)
	assert.Equal(t, 0, q.Len())

	// FIFO order decides colors: the longer-waiting entry plays white.
	assert.Equal(t, first.ConnectionID, pairs[0].White.ConnectionID)
	assert.Equal(t, second.ConnectionID, pairs[0].Black.ConnectionID)
}

func TestEnqueueSameConnectionReplacesEntry(t *testing.T) {
	q := NewQueue(zap.NewNop())

	e := entry("a", 1200, 0)
	q.Enqueue(e)

	e.RatingBand = 50
	pairs := q.Enqueue(e)
	assert.Empty(t, pairs)
	assert.Equal(t, 1, q.Len())

	// The replaced entry keeps its place: it still pairs as white
	// against a newcomer.
	matched := q.Enqueue(entry("b", 1210, 0))
	require.Len(t, matched, 1)
	assert.Equal(t, e.ConnectionID, matched[0].White.ConnectionID)
	assert.Equal(t, 50, matched[0].White.RatingBand)
}

func TestRatingBandMustAdmitBothSides(t *testing.T) {
	q := NewQueue(zap.NewNop())

	q.Enqueue(entry("narrow", 1200, 100))
	pairs := q.Enqueue(entry("far", 1500, 0))
	assert.Empty(t, pairs)
	assert.Equal(t, 2, q.Len())

	// A third player within the narrow band pairs with the first waiter.
	matched := q.Enqueue(entry("near", 1250, 0))
	require.Len(t, matched, 1)
	assert.Equal(t, "narrow", matched[0].White.UserID)
	assert.Equal(t, "near", matched[0].Black.UserID)
	assert.Equal(t, 1, q.Len())
}

func TestFIFOOrderAcrossIncompatibleEntries(t *testing.T) {
	q := NewQueue(zap.NewNop())

	q.Enqueue(entry("first", 1000, 50))
	q.Enqueue(entry("second", 2000, 0))

	// Compatible with both; the oldest compatible waiter wins.
	matched := q.Enqueue(entry("third", 1010, 0))
	require.Len(t, matched, 1)
	assert.Equal(t, "first", matched[0].White.UserID)
}

func TestWithdraw(t *testing.T) {
	q := NewQueue(zap.NewNop())

	e := entry("a", 1200, 0)
	q.Enqueue(e)

	assert.True(t, q.Withdraw(e.ConnectionID))
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.Withdraw(e.ConnectionID))

	// The withdrawn entry must never pair.
	pairs := q.Enqueue(entry("b", 1200, 0))
	assert.Empty(t, pairs)
}

func TestEnqueueDrainsMultiplePairs(t *testing.T) {
	q := NewQueue(zap.NewNop())

	q.Enqueue(entry("a", 1000, 10))
	q.Enqueue(entry("b", 2000, 10))

	pairs := q.Enqueue(entry("c", 1005, 0))
	require.Len(t, pairs, 1)
	assert.Equal(t, "a", pairs[0].White.UserID)
	assert.Equal(t, 1, q.Len())

	pairs = q.Enqueue(entry("d", 1995, 0))
	require.Len(t, pairs, 1)
	assert.Equal(t, "b", pairs[0].White.UserID)
	assert.Equal(t, 0, q.Len())
}
