// Package store is the persistent account collaborator of the session
// layer: player identity, rating and win/loss tallies. It is read at
// session start and written at session end, never mid-session.
package store

import (
	"context"
	"errors"
	"math"
)

// DefaultRating is the rating assigned to a player on first contact.
const DefaultRating = 1000

// ErrNotFound is returned when a player record does not exist.
var ErrNotFound = errors.New("player not found")

// Result is the outcome of a finished game from white's perspective.
type Result string

// Possible game results.
const (
	ResultWhiteWins Result = "white"
	ResultBlackWins Result = "black"
	ResultDraw      Result = "draw"
)

// PlayerRecord is one persisted account.
type PlayerRecord struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Draws    int    `json:"draws"`
}

// PlayerStore is the narrow interface the session layer consumes.
type PlayerStore interface {
	// GetPlayer loads a record, ErrNotFound when absent.
	GetPlayer(ctx context.Context, userID string) (*PlayerRecord, error)
	// SavePlayer upserts a record.
	SavePlayer(ctx context.Context, record *PlayerRecord) error
	// EnsurePlayer loads a record, creating it with DefaultRating when
	// absent. Called once per connection at session start.
	EnsurePlayer(ctx context.Context, userID, username string) (*PlayerRecord, error)
	// RecordResult applies the rating update and tallies for one
	// finished game. Called once at session end.
	RecordResult(ctx context.Context, whiteID, blackID string, result Result) error
}

// eloK is the rating update factor.
const eloK = 32

// applyResult mutates both records with the Elo update and the W/L/D
// tallies for one game.
func applyResult(white, black *PlayerRecord, result Result) {
	var whiteScore float64
	switch result {
	case ResultWhiteWins:
		whiteScore = 1
		white.Wins++
		black.Losses++
	case ResultBlackWins:
		whiteScore = 0
		white.Losses++
		black.Wins++
	default:
		whiteScore = 0.5
		white.Draws++
		black.Draws++
	}

	expected := 1 / (1 + math.Pow(10, float64(black.Rating-white.Rating)/400))
	delta := int(math.Round(eloK * (whiteScore - expected)))

	white.Rating += delta
	black.Rating -= delta
}
