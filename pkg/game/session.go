// Package game holds the per-room session state machine and the registry
// that tracks live sessions.
package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/castlebridge/play-server/pkg/chess"
	"github.com/castlebridge/play-server/pkg/rules"
)

// Status is the lifecycle state of a session.
type Status string

// Session lifecycle states.
const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
	StatusEnded   Status = "ended"
)

// EndReason records why a session ended.
type EndReason string

// Session end reasons.
const (
	EndCheckmate   EndReason = "checkmate"
	EndStalemate   EndReason = "stalemate"
	EndDraw        EndReason = "draw"
	EndDrawAgreed  EndReason = "draw_agreed"
	EndResignation EndReason = "resignation"
	EndTimeout     EndReason = "timeout"
	EndAbandoned   EndReason = "abandoned"
)

// Protocol violations against a session. These are scoped to the offending
// connection; the session state is left unchanged.
var (
	ErrNoSuchSession = errors.New("no such session")
	ErrSessionEnded  = errors.New("session has ended")
	ErrNotPlayer     = errors.New("connection is not a player in this session")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrDrawPending   = errors.New("a draw offer is already pending")
	ErrNoDrawPending = errors.New("no draw offer is pending")
	ErrOwnDrawOffer  = errors.New("cannot answer your own draw offer")
)

// Player is one of the two bound seats of a session.
type Player struct {
	ConnectionID uuid.UUID
	UserID       string
	Username     string
	Rating       int
	Color        chess.Color
}

// Config carries everything needed to start a session. White and Black must
// already have their Color fields set by the matchmaker.
type Config struct {
	RoomID      uuid.UUID
	White       Player
	Black       Player
	InitialFEN  string
	InitialTime time.Duration
}

// Session is one active game: board handle, two player bindings, clock
// pair, turn, termination state and the pending-draw slot. Every mutation
// goes through the session mutex, so intents against the same room never
// interleave partway through.
type Session struct {
	RoomID uuid.UUID

	mu          sync.Mutex
	initialFEN  string
	fen         string
	movesUCI    []string
	turn        chess.Color
	players     map[chess.Color]Player
	clocks      map[chess.Color]*chess.Clock
	pendingDraw *chess.Color
	status      Status
	endReason   EndReason
	winner      chess.Color

	judge  rules.Judge
	logger *zap.Logger
}

// NewSession creates an active session for two bound players. Both clocks
// start paused: a player's countdown only begins once the opponent has
// completed a move.
func NewSession(cfg Config, logger *zap.Logger) *Session {
	initialFEN := cfg.InitialFEN
	if initialFEN == "" {
		initialFEN = rules.StartingFEN
	}

	return &Session{
		RoomID:     cfg.RoomID,
		initialFEN: initialFEN,
		fen:        initialFEN,
		turn:       chess.White,
		players: map[chess.Color]Player{
			chess.White: cfg.White,
			chess.Black: cfg.Black,
		},
		clocks: map[chess.Color]*chess.Clock{
			chess.White: chess.NewClock(cfg.InitialTime),
			chess.Black: chess.NewClock(cfg.InitialTime),
		},
		status: StatusActive,
		logger: logger,
	}
}

// MoveResult is the broadcastable outcome of an accepted move.
type MoveResult struct {
	FEN     string
	UCI     string
	SAN     string
	Turn    chess.Color
	WhiteMs int64
	BlackMs int64
	Over    bool
	Reason  EndReason
	Winner  chess.Color
}

// ApplyMove validates turn ownership, asks the legality engine for a
// verdict, updates the clocks and stores the new position. The mover's
// clock stops, the opponent's starts, unless the verdict ends the game.
func (s *Session) ApplyMove(connID uuid.UUID, move string, now time.Time) (MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.playerLocked(connID)
	if !ok {
		return MoveResult{}, ErrNotPlayer
	}
	if s.status != StatusActive {
		return MoveResult{}, ErrSessionEnded
	}
	if player.Color != s.turn {
		return MoveResult{}, ErrNotYourTurn
	}

	verdict, err := s.judge.Apply(s.initialFEN, s.movesUCI, move)
	if err != nil {
		return MoveResult{}, fmt.Errorf("move rejected: %w", err)
	}

	s.fen = verdict.FEN
	s.movesUCI = append(s.movesUCI, verdict.UCI)
	s.turn = verdict.Turn

	mover := s.clocks[player.Color]
	mover.Stop(now)
	mover.MarkMoved()

	if verdict.Over {
		s.endLocked(endReasonFrom(verdict.Reason), verdict.Winner, now)
	} else {
		s.clocks[player.Color.Opp()].Start(now)
	}

	s.logger.Info("move applied",
		zap.String("room_id", s.RoomID.String()),
		zap.String("color", string(player.Color)),
		zap.String("uci", verdict.UCI),
		zap.Bool("over", verdict.Over))

	return MoveResult{
		FEN:     s.fen,
		UCI:     verdict.UCI,
		SAN:     verdict.SAN,
		Turn:    s.turn,
		WhiteMs: s.clocks[chess.White].Remaining(now).Milliseconds(),
		BlackMs: s.clocks[chess.Black].Remaining(now).Milliseconds(),
		Over:    verdict.Over,
		Reason:  s.endReason,
		Winner:  s.winner,
	}, nil
}

// FlagFall reports a lazily detected clock expiry.
type FlagFall struct {
	Loser  chess.Color
	Winner chess.Color
}

// CheckFlagFall evaluates clock expiry at the given server time. There is
// no background timer: the hub calls this before handling any room-scoped
// intent and on snapshot reads. When a running clock has hit zero the
// session transitions to Ended(timeout) exactly once.
func (s *Session) CheckFlagFall(now time.Time) (FlagFall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return FlagFall{}, false
	}

	for _, color := range []chess.Color{chess.White, chess.Black} {
		clock := s.clocks[color]
		if clock.Running() && clock.Expired(now) {
			s.endLocked(EndTimeout, color.Opp(), now)
			s.logger.Info("flag fell",
				zap.String("room_id", s.RoomID.String()),
				zap.String("loser", string(color)))
			return FlagFall{Loser: color, Winner: color.Opp()}, true
		}
	}

	return FlagFall{}, false
}

// Resign ends the session in favor of the opponent. A resignation against
// an already-ended session is rejected, never re-broadcast.
func (s *Session) Resign(connID uuid.UUID, now time.Time) (chess.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.playerLocked(connID)
	if !ok {
		return "", ErrNotPlayer
	}
	if s.status != StatusActive {
		return "", ErrSessionEnded
	}

	winner := player.Color.Opp()
	s.endLocked(EndResignation, winner, now)

	s.logger.Info("player resigned",
		zap.String("room_id", s.RoomID.String()),
		zap.String("color", string(player.Color)))

	return winner, nil
}

// OfferDraw places a draw offer. At most one offer can be outstanding; a
// second offer while one is pending is rejected, whichever side it comes
// from.
func (s *Session) OfferDraw(connID uuid.UUID) (chess.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.playerLocked(connID)
	if !ok {
		return "", ErrNotPlayer
	}
	if s.status != StatusActive {
		return "", ErrSessionEnded
	}
	if s.pendingDraw != nil {
		return "", ErrDrawPending
	}

	offeredBy := player.Color
	s.pendingDraw = &offeredBy

	s.logger.Info("draw offered",
		zap.String("room_id", s.RoomID.String()),
		zap.String("color", string(offeredBy)))

	return offeredBy, nil
}

// RespondDraw answers the outstanding offer. Only the side that did not
// offer may answer. The pending offer is cleared the moment it is answered.
func (s *Session) RespondDraw(connID uuid.UUID, accept bool, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.playerLocked(connID)
	if !ok {
		return false, ErrNotPlayer
	}
	if s.status != StatusActive {
		return false, ErrSessionEnded
	}
	if s.pendingDraw == nil {
		return false, ErrNoDrawPending
	}
	if *s.pendingDraw == player.Color {
		return false, ErrOwnDrawOffer
	}

	s.pendingDraw = nil

	if accept {
		s.endLocked(EndDrawAgreed, "", now)
	}

	s.logger.Info("draw answered",
		zap.String("room_id", s.RoomID.String()),
		zap.String("color", string(player.Color)),
		zap.Bool("accept", accept))

	return accept, nil
}

// Abandon ends an active session because a bound player disconnected. The
// remaining player wins.
func (s *Session) Abandon(connID uuid.UUID, now time.Time) (chess.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.playerLocked(connID)
	if !ok {
		return "", ErrNotPlayer
	}
	if s.status != StatusActive {
		return "", ErrSessionEnded
	}

	winner := player.Color.Opp()
	s.endLocked(EndAbandoned, winner, now)

	s.logger.Info("session abandoned",
		zap.String("room_id", s.RoomID.String()),
		zap.String("color", string(player.Color)))

	return winner, nil
}

// Snapshot is the full session state a client needs on join or reconnect.
// Clock values are anchored to ServerTime so the receiver can compute
// "remaining right now" with its own local clock.
type Snapshot struct {
	RoomID       uuid.UUID
	FEN          string
	Turn         chess.Color
	WhiteMs      int64
	BlackMs      int64
	RunningColor chess.Color // empty when no clock runs
	WhiteMoved   bool
	BlackMoved   bool
	White        Player
	Black        Player
	Status       Status
	EndReason    EndReason
	Winner       chess.Color
	ServerTime   time.Time
}

// Snapshot returns the current state at the given server time.
func (s *Session) Snapshot(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var running chess.Color
	if s.clocks[chess.White].Running() {
		running = chess.White
	} else if s.clocks[chess.Black].Running() {
		running = chess.Black
	}

	return Snapshot{
		RoomID:       s.RoomID,
		FEN:          s.fen,
		Turn:         s.turn,
		WhiteMs:      s.clocks[chess.White].Remaining(now).Milliseconds(),
		BlackMs:      s.clocks[chess.Black].Remaining(now).Milliseconds(),
		RunningColor: running,
		WhiteMoved:   s.clocks[chess.White].HasMoved(),
		BlackMoved:   s.clocks[chess.Black].HasMoved(),
		White:        s.players[chess.White],
		Black:        s.players[chess.Black],
		Status:       s.status,
		EndReason:    s.endReason,
		Winner:       s.winner,
		ServerTime:   now,
	}
}

// Player returns the seat bound to the given connection.
func (s *Session) Player(connID uuid.UUID) (Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerLocked(connID)
}

// Opponent returns the seat of the other player.
func (s *Session) Opponent(connID uuid.UUID) (Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.playerLocked(connID)
	if !ok {
		return Player{}, false
	}
	return s.players[player.Color.Opp()], true
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Result describes how an ended session finished.
type Result struct {
	Reason EndReason
	Winner chess.Color
	White  Player
	Black  Player
}

// Result returns the termination record of an ended session.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusEnded {
		return Result{}, false
	}
	return Result{
		Reason: s.endReason,
		Winner: s.winner,
		White:  s.players[chess.White],
		Black:  s.players[chess.Black],
	}, true
}

func (s *Session) playerLocked(connID uuid.UUID) (Player, bool) {
	for _, p := range s.players {
		if p.ConnectionID == connID {
			return p, true
		}
	}
	return Player{}, false
}

func (s *Session) endLocked(reason EndReason, winner chess.Color, now time.Time) {
	s.status = StatusEnded
	s.endReason = reason
	s.winner = winner
	s.pendingDraw = nil
	s.clocks[chess.White].Stop(now)
	s.clocks[chess.Black].Stop(now)
}

func endReasonFrom(reason rules.Reason) EndReason {
	switch reason {
	case rules.ReasonCheckmate:
		return EndCheckmate
	case rules.ReasonStalemate:
		return EndStalemate
	default:
		return EndDraw
	}
}
