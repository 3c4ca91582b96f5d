package game

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/castlebridge/play-server/pkg/chess"
)

func newTestSession(t *testing.T) (*Session, Player, Player) {
	t.Helper()

	white := Player{
		ConnectionID: uuid.New(),
		UserID:       "user-white",
		Username:     "alice",
		Rating:       1200,
		Color:        chess.White,
	}
	black := Player{
		ConnectionID: uuid.New(),
		UserID:       "user-black",
		Username:     "bob",
		Rating:       1180,
		Color:        chess.Black,
	}

	session := NewSession(Config{
		RoomID:      uuid.New(),
		White:       white,
		Black:       black,
		InitialTime: 5 * time.Minute,
	}, zap.NewNop())

	return session, white, black
}

func TestApplyMoveFlipsTurnAndSwitchesClocks(t *testing.T) {
	session, white, _ := newTestSession(t)
	now := time.Now()

	result, err := session.ApplyMove(white.ConnectionID, "e2e4", now)
	require.NoError(t, err)

	assert.Equal(t, chess.Black, result.Turn)
	assert.Equal(t, "e2e4", result.UCI)

	snap := session.Snapshot(now)
	assert.Equal(t, chess.Black, snap.RunningColor)
	assert.True(t, snap.WhiteMoved)
	assert.False(t, snap.BlackMoved)
}

func TestApplyMoveRejectsOutOfTurn(t *testing.T) {
	session, _, black := newTestSession(t)
	now := time.Now()

	before := session.Snapshot(now)
	_, err := session.ApplyMove(black.ConnectionID, "e7e5", now)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	// A rejected move must not mutate the board.
	after := session.Snapshot(now)
	assert.Equal(t, before.FEN, after.FEN)
	assert.Equal(t, before.Turn, after.Turn)
}

func TestApplyMoveRejectsStranger(t *testing.T) {
	session, _, _ := newTestSession(t)

	_, err := session.ApplyMove(uuid.New(), "e2e4", time.Now())
	assert.ErrorIs(t, err, ErrNotPlayer)
}

func TestAtMostOneClockRunsWhileActive(t *testing.T) {
	session, white, black := newTestSession(t)
	now := time.Now()

	// Before any move nobody's clock runs.
	assert.Empty(t, session.Snapshot(now).RunningColor)

	_, err := session.ApplyMove(white.ConnectionID, "e2e4", now)
	require.NoError(t, err)
	assert.Equal(t, chess.Black, session.Snapshot(now).RunningColor)

	_, err = session.ApplyMove(black.ConnectionID, "e7e5", now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, chess.White, session.Snapshot(now.Add(time.Second)).RunningColor)
}

// A (white) and B (black) start with 300s each. A moves at t=0, B's clock
// starts while A still shows 300s. B moves at t=10s and is left with 290s.
// A resigns at t=15s: B is the winner and both clocks stop.
func TestClockScenarioWithResignation(t *testing.T) {
	session, white, black := newTestSession(t)
	t0 := time.Now()

	_, err := session.ApplyMove(white.ConnectionID, "e2e4", t0)
	require.NoError(t, err)

	snap := session.Snapshot(t0)
	assert.Equal(t, int64(300_000), snap.WhiteMs)
	assert.Equal(t, chess.Black, snap.RunningColor)

	result, err := session.ApplyMove(black.ConnectionID, "e7e5", t0.Add(10*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(290_000), result.BlackMs)
	assert.Equal(t, int64(300_000), result.WhiteMs)

	winner, err := session.Resign(white.ConnectionID, t0.Add(15*time.Second))
	require.NoError(t, err)
	assert.Equal(t, chess.Black, winner)

	// Both clocks stop: values are frozen from now on.
	end := session.Snapshot(t0.Add(time.Hour))
	assert.Equal(t, StatusEnded, end.Status)
	assert.Equal(t, EndResignation, end.EndReason)
	assert.Empty(t, end.RunningColor)
	assert.Equal(t, int64(295_000), end.WhiteMs)
	assert.Equal(t, int64(290_000), end.BlackMs)
}

func TestResignIsOneShot(t *testing.T) {
	session, white, black := newTestSession(t)
	now := time.Now()

	_, err := session.Resign(white.ConnectionID, now)
	require.NoError(t, err)

	// Any follow-up intent against the ended session is a protocol
	// violation, not a second broadcast.
	_, err = session.Resign(black.ConnectionID, now)
	assert.ErrorIs(t, err, ErrSessionEnded)
	_, err = session.ApplyMove(white.ConnectionID, "e2e4", now)
	assert.ErrorIs(t, err, ErrSessionEnded)
	_, err = session.OfferDraw(black.ConnectionID)
	assert.ErrorIs(t, err, ErrSessionEnded)
}

func TestDrawOfferAcceptEndsSession(t *testing.T) {
	session, white, black := newTestSession(t)
	now := time.Now()

	offeredBy, err := session.OfferDraw(white.ConnectionID)
	require.NoError(t, err)
	assert.Equal(t, chess.White, offeredBy)

	accepted, err := session.RespondDraw(black.ConnectionID, true, now)
	require.NoError(t, err)
	assert.True(t, accepted)

	snap := session.Snapshot(now)
	assert.Equal(t, StatusEnded, snap.Status)
	assert.Equal(t, EndDrawAgreed, snap.EndReason)
	assert.Empty(t, snap.Winner)
}

func TestDrawOfferRejectClearsPending(t *testing.T) {
	session, white, black := newTestSession(t)
	now := time.Now()

	_, err := session.OfferDraw(white.ConnectionID)
	require.NoError(t, err)

	accepted, err := session.RespondDraw(black.ConnectionID, false, now)
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Equal(t, StatusActive, session.Status())

	// The slot is free again after a rejection.
	_, err = session.OfferDraw(black.ConnectionID)
	assert.NoError(t, err)
}

// A counter-offer while one offer is pending is rejected deterministically
// rather than overwriting the first.
func TestSecondDrawOfferRejectedWhilePending(t *testing.T) {
	session, white, black := newTestSession(t)

	_, err := session.OfferDraw(white.ConnectionID)
	require.NoError(t, err)

	_, err = session.OfferDraw(black.ConnectionID)
	assert.ErrorIs(t, err, ErrDrawPending)
	_, err = session.OfferDraw(white.ConnectionID)
	assert.ErrorIs(t, err, ErrDrawPending)
}

func TestCannotAnswerOwnDrawOffer(t *testing.T) {
	session, white, _ := newTestSession(t)
	now := time.Now()

	_, err := session.OfferDraw(white.ConnectionID)
	require.NoError(t, err)

	_, err = session.RespondDraw(white.ConnectionID, true, now)
	assert.ErrorIs(t, err, ErrOwnDrawOffer)

	// The offer survives the bogus answer.
	_, err = session.OfferDraw(white.ConnectionID)
	assert.ErrorIs(t, err, ErrDrawPending)
}

func TestRespondWithoutPendingOffer(t *testing.T) {
	session, _, black := newTestSession(t)

	_, err := session.RespondDraw(black.ConnectionID, true, time.Now())
	assert.ErrorIs(t, err, ErrNoDrawPending)
}

func TestCheckmateEndsSession(t *testing.T) {
	session, white, black := newTestSession(t)
	now := time.Now()

	moves := []struct {
		conn uuid.UUID
		uci  string
	}{
		{white.ConnectionID, "f2f3"},
		{black.ConnectionID, "e7e5"},
		{white.ConnectionID, "g2g4"},
		{black.ConnectionID, "d8h4"},
	}

	var last MoveResult
	for _, mv := range moves {
		var err error
		last, err = session.ApplyMove(mv.conn, mv.uci, now)
		require.NoError(t, err)
	}

	assert.True(t, last.Over)
	assert.Equal(t, EndCheckmate, last.Reason)
	assert.Equal(t, chess.Black, last.Winner)

	snap := session.Snapshot(now)
	assert.Equal(t, StatusEnded, snap.Status)
	assert.Empty(t, snap.RunningColor)
}

func TestFlagFallDetectedLazily(t *testing.T) {
	session, white, _ := newTestSession(t)
	t0 := time.Now()

	_, err := session.ApplyMove(white.ConnectionID, "e2e4", t0)
	require.NoError(t, err)

	// Nothing happens while black still has budget.
	_, fell := session.CheckFlagFall(t0.Add(time.Minute))
	assert.False(t, fell)

	fall, fell := session.CheckFlagFall(t0.Add(6 * time.Minute))
	require.True(t, fell)
	assert.Equal(t, chess.Black, fall.Loser)
	assert.Equal(t, chess.White, fall.Winner)

	snap := session.Snapshot(t0.Add(6 * time.Minute))
	assert.Equal(t, StatusEnded, snap.Status)
	assert.Equal(t, EndTimeout, snap.EndReason)
	assert.Equal(t, int64(0), snap.BlackMs)

	// The transition fires exactly once.
	_, fell = session.CheckFlagFall(t0.Add(7 * time.Minute))
	assert.False(t, fell)
}

func TestFlagFallIgnoresFirstMoveGrace(t *testing.T) {
	session, _, _ := newTestSession(t)

	// No clock has started before the first move, so no flag can fall no
	// matter how long the players sit.
	_, fell := session.CheckFlagFall(time.Now().Add(24 * time.Hour))
	assert.False(t, fell)
}

func TestAbandonAwardsOpponent(t *testing.T) {
	session, white, black := newTestSession(t)
	now := time.Now()

	winner, err := session.Abandon(black.ConnectionID, now)
	require.NoError(t, err)
	assert.Equal(t, chess.White, winner)

	_, err = session.Abandon(white.ConnectionID, now)
	assert.ErrorIs(t, err, ErrSessionEnded)
}

func TestResultOnlyAfterEnd(t *testing.T) {
	session, white, _ := newTestSession(t)
	now := time.Now()

	_, ok := session.Result()
	assert.False(t, ok)

	_, err := session.Resign(white.ConnectionID, now)
	require.NoError(t, err)

	result, ok := session.Result()
	require.True(t, ok)
	assert.Equal(t, EndResignation, result.Reason)
	assert.Equal(t, chess.Black, result.Winner)
	assert.Equal(t, "user-white", result.White.UserID)
}

func TestOpponentLookup(t *testing.T) {
	session, white, black := newTestSession(t)

	opp, ok := session.Opponent(white.ConnectionID)
	require.True(t, ok)
	assert.Equal(t, black.UserID, opp.UserID)

	_, ok = session.Opponent(uuid.New())
	assert.False(t, ok)
}
