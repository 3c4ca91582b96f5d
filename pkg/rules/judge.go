// Package rules wraps the chess move-legality engine. The session layer
// never derives chess rules itself; it hands a candidate move to the Judge
// and trusts the verdict.
package rules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/castlebridge/play-server/pkg/chess"
)

// StartingFEN is the standard initial position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrIllegalMove is returned when a candidate move is not legal in the
// current position.
var ErrIllegalMove = errors.New("illegal move")

// Reason classifies how a game reached a terminal position.
type Reason string

// Terminal reasons a verdict can report.
const (
	ReasonCheckmate Reason = "checkmate"
	ReasonStalemate Reason = "stalemate"
	ReasonDraw      Reason = "draw"
)

// Verdict is the engine's answer for one applied move.
type Verdict struct {
	FEN    string // resulting position
	UCI    string // the applied move in UCI notation
	SAN    string // the applied move in algebraic notation
	Turn   chess.Color
	Over   bool
	Reason Reason
	Winner chess.Color // empty unless Over with a decisive reason
}

// Judge validates and applies moves server-side. The game is rebuilt from
// the initial position plus the accepted move history on every call, so a
// malformed client can never smuggle in a position the rules would reject.
type Judge struct{}

// Apply replays the accepted history and applies one candidate move given
// in UCI notation, with algebraic notation as a fallback. It returns
// ErrIllegalMove when the move is not legal in the resulting position.
func (Judge) Apply(initialFEN string, movesUCI []string, move string) (Verdict, error) {
	game, err := rebuild(initialFEN, movesUCI)
	if err != nil {
		return Verdict{}, err
	}

	raw := strings.TrimSpace(move)
	if raw == "" {
		return Verdict{}, fmt.Errorf("%w: empty move", ErrIllegalMove)
	}

	pos := game.Position()

	var uci, san string
	if mv, derr := (nchess.UCINotation{}).Decode(pos, strings.ToLower(raw)); derr == nil {
		if err := game.Move(mv, nil); err != nil {
			return Verdict{}, fmt.Errorf("%w: %s", ErrIllegalMove, raw)
		}
		uci = mv.String()
		san = nchess.AlgebraicNotation{}.Encode(pos, mv)
	} else {
		if err := game.PushNotationMove(raw, nchess.AlgebraicNotation{}, nil); err != nil {
			return Verdict{}, fmt.Errorf("%w: %s", ErrIllegalMove, raw)
		}
		moves := game.Moves()
		mv := moves[len(moves)-1]
		uci = mv.String()
		san = nchess.AlgebraicNotation{}.Encode(pos, mv)
	}

	verdict := Verdict{
		FEN:  game.FEN(),
		UCI:  uci,
		SAN:  san,
		Turn: colorFrom(game.Position().Turn()),
	}

	switch game.Outcome() {
	case nchess.WhiteWon:
		verdict.Over = true
		verdict.Winner = chess.White
		verdict.Reason = reasonFrom(game.Method())
	case nchess.BlackWon:
		verdict.Over = true
		verdict.Winner = chess.Black
		verdict.Reason = reasonFrom(game.Method())
	case nchess.Draw:
		verdict.Over = true
		verdict.Reason = reasonFrom(game.Method())
	}

	return verdict, nil
}

// Turn reports which side moves next after the given history.
func (Judge) Turn(initialFEN string, movesUCI []string) (chess.Color, error) {
	game, err := rebuild(initialFEN, movesUCI)
	if err != nil {
		return "", err
	}
	return colorFrom(game.Position().Turn()), nil
}

func rebuild(initialFEN string, movesUCI []string) (*nchess.Game, error) {
	var game *nchess.Game

	if initialFEN == "" || initialFEN == StartingFEN {
		game = nchess.NewGame()
	} else {
		opt, err := nchess.FEN(initialFEN)
		if err != nil {
			return nil, fmt.Errorf("invalid initial position: %w", err)
		}
		game = nchess.NewGame(opt)
	}

	for _, mv := range movesUCI {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("corrupt move history at %q: %w", mv, err)
		}
	}

	return game, nil
}

func colorFrom(c nchess.Color) chess.Color {
	if c == nchess.White {
		return chess.White
	}
	return chess.Black
}

func reasonFrom(method nchess.Method) Reason {
	switch method {
	case nchess.Checkmate:
		return ReasonCheckmate
	case nchess.Stalemate:
		return ReasonStalemate
	default:
		return ReasonDraw
	}
}
