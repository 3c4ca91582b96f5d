// Package chess defines the game entities shared across the server.
package chess

// Color represents a chess side.
type Color string

// The two sides of a game.
const (
	White Color = "white"
	Black Color = "black"
)

// Opp returns the opposite color for the given color.
func (c Color) Opp() Color {
	if c == White {
		return Black
	}

	return White
}
