// Package matchmaking pairs waiting connections into new game sessions.
package matchmaking

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entry is one waiting connection.
type Entry struct {
	ConnectionID uuid.UUID
	UserID       string
	Username     string
	Rating       int
	// RatingBand is the maximum rating distance this player accepts.
	// Zero means any opponent.
	RatingBand int
	EnqueuedAt time.Time
}

// Pair is a matched couple. Colors are deterministic: the entry that waited
// longest plays white.
type Pair struct {
	White Entry
	Black Entry
}

// Queue is a FIFO matchmaking queue. It is owned by the hub and injected,
// never referenced as ambient global state.
type Queue struct {
	mu      sync.Mutex
	entries []Entry
	logger  *zap.Logger
}

// NewQueue creates an empty queue.
func NewQueue(logger *zap.Logger) *Queue {
	return &Queue{logger: logger}
}

// Enqueue adds a waiting entry and returns any pairs that became possible.
// Enqueuing a connection that is already queued replaces its entry while
// keeping its place in line.
func (q *Queue) Enqueue(entry Entry) []Pair {
	q.mu.Lock()
	defer q.mu.Unlock()

	replaced := false
	for i, existing := range q.entries {
		if existing.ConnectionID == entry.ConnectionID {
			entry.EnqueuedAt = existing.EnqueuedAt
			q.entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		q.entries = append(q.entries, entry)
	}

	q.logger.Debug("player queued",
		zap.String("connection_id", entry.ConnectionID.String()),
		zap.Int("rating", entry.Rating),
		zap.Int("waiting", len(q.entries)))

	return q.matchLocked()
}

// Withdraw removes a connection from the queue without pairing it. It
// serves both an explicit cancel-search intent and a disconnect.
func (q *Queue) Withdraw(connID uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, entry := range q.entries {
		if entry.ConnectionID == connID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of waiting entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// matchLocked pairs compatible entries in FIFO order until no more pairs
// exist. The earlier entry of each pair gets white.
func (q *Queue) matchLocked() []Pair {
	var pairs []Pair

	for {
		found := false
	scan:
		for i := 0; i < len(q.entries); i++ {
			for j := i + 1; j < len(q.entries); j++ {
				if !compatible(q.entries[i], q.entries[j]) {
					continue
				}
				pairs = append(pairs, Pair{White: q.entries[i], Black: q.entries[j]})
				q.entries = append(q.entries[:j], q.entries[j+1:]...)
				q.entries = append(q.entries[:i], q.entries[i+1:]...)
				found = true
				break scan
			}
		}
		if !found {
			return pairs
		}
	}
}

// compatible reports whether both entries accept each other's rating.
func compatible(a, b Entry) bool {
	return admits(a, b.Rating) && admits(b, a.Rating)
}

func admits(e Entry, rating int) bool {
	if e.RatingBand <= 0 {
		return true
	}
	diff := e.Rating - rating
	if diff < 0 {
		diff = -diff
	}
	return diff <= e.RatingBand
}
