package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore persists player records as JSON values keyed by user ID.
type RedisStore struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedisStore connects to the given Redis URL and verifies the
// connection with a ping.
func NewRedisStore(redisURL string, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{rdb: rdb, logger: logger}, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func playerKey(userID string) string {
	return "player:" + userID
}

// GetPlayer loads a record by user ID.
func (s *RedisStore) GetPlayer(ctx context.Context, userID string) (*PlayerRecord, error) {
	raw, err := s.rdb.Get(ctx, playerKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var record PlayerRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("corrupt player record %q: %w", userID, err)
	}
	return &record, nil
}

// SavePlayer upserts a record.
func (s *RedisStore) SavePlayer(ctx context.Context, record *PlayerRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, playerKey(record.UserID), raw, 0).Err()
}

// EnsurePlayer loads or creates a record.
func (s *RedisStore) EnsurePlayer(ctx context.Context, userID, username string) (*PlayerRecord, error) {
	record, err := s.GetPlayer(ctx, userID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	record = &PlayerRecord{UserID: userID, Username: username, Rating: DefaultRating}
	if err := s.SavePlayer(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("player record created", zap.String("user_id", userID))
	return record, nil
}

// RecordResult applies one finished game to both players.
func (s *RedisStore) RecordResult(ctx context.Context, whiteID, blackID string, result Result) error {
	white, err := s.GetPlayer(ctx, whiteID)
	if errors.Is(err, ErrNotFound) {
		white = &PlayerRecord{UserID: whiteID, Rating: DefaultRating}
	} else if err != nil {
		return err
	}

	black, err := s.GetPlayer(ctx, blackID)
	if errors.Is(err, ErrNotFound) {
		black = &PlayerRecord{UserID: blackID, Rating: DefaultRating}
	} else if err != nil {
		return err
	}

	applyResult(white, black, result)

	if err := s.SavePlayer(ctx, white); err != nil {
		return err
	}
	return s.SavePlayer(ctx, black)
}
