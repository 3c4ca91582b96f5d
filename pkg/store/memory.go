package store

import (
	"context"
	"sync"
)

// MemoryStore is the in-memory PlayerStore used when no Redis is
// configured, and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	players map[string]PlayerRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{players: make(map[string]PlayerRecord)}
}

// GetPlayer loads a record by user ID.
func (s *MemoryStore) GetPlayer(_ context.Context, userID string) (*PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.players[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

// SavePlayer upserts a record.
func (s *MemoryStore) SavePlayer(_ context.Context, record *PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.players[record.UserID] = *record
	return nil
}

// EnsurePlayer loads or creates a record.
func (s *MemoryStore) EnsurePlayer(_ context.Context, userID, username string) (*PlayerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.players[userID]; ok {
		return &record, nil
	}

	record := PlayerRecord{UserID: userID, Username: username, Rating: DefaultRating}
	s.players[userID] = record
	return &record, nil
}

// RecordResult applies one finished game to both players.
func (s *MemoryStore) RecordResult(_ context.Context, whiteID, blackID string, result Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	white, ok := s.players[whiteID]
	if !ok {
		white = PlayerRecord{UserID: whiteID, Rating: DefaultRating}
	}
	black, ok := s.players[blackID]
	if !ok {
		black = PlayerRecord{UserID: blackID, Rating: DefaultRating}
	}

	applyResult(&white, &black, result)

	s.players[whiteID] = white
	s.players[blackID] = black
	return nil
}
