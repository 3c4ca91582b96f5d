package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlebridge/play-server/pkg/chess"
)

func TestApplyLegalMove(t *testing.T) {
	var j Judge

	verdict, err := j.Apply(StartingFEN, nil, "e2e4")
	require.NoError(t, err)

	assert.Equal(t, "e2e4", verdict.UCI)
	assert.Equal(t, "e4", verdict.SAN)
	assert.Equal(t, chess.Black, verdict.Turn)
	assert.False(t, verdict.Over)
	assert.NotEqual(t, StartingFEN, verdict.FEN)
}

func TestApplyAlgebraicFallback(t *testing.T) {
	var j Judge

	verdict, err := j.Apply("", nil, "Nf3")
	require.NoError(t, err)

	assert.Equal(t, "g1f3", verdict.UCI)
	assert.Equal(t, chess.Black, verdict.Turn)
}

func TestApplyIllegalMove(t *testing.T) {
	var j Judge

	tests := []struct {
		name string
		move string
	}{
		{"pawn cannot jump three", "e2e5"},
		{"opponent piece", "e7e5"},
		{"garbage input", "not-a-move"},
		{"empty input", "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := j.Apply(StartingFEN, nil, tt.move)
			assert.ErrorIs(t, err, ErrIllegalMove)
		})
	}
}

func TestApplyContinuesFromHistory(t *testing.T) {
	var j Judge

	verdict, err := j.Apply(StartingFEN, []string{"e2e4", "e7e5"}, "g1f3")
	require.NoError(t, err)

	assert.Equal(t, chess.Black, verdict.Turn)
	assert.False(t, verdict.Over)
}

func TestApplyDetectsCheckmate(t *testing.T) {
	var j Judge

	// Fool's mate.
	history := []string{"f2f3", "e7e5", "g2g4"}
	verdict, err := j.Apply(StartingFEN, history, "d8h4")
	require.NoError(t, err)

	assert.True(t, verdict.Over)
	assert.Equal(t, ReasonCheckmate, verdict.Reason)
	assert.Equal(t, chess.Black, verdict.Winner)
}

func TestApplyDetectsStalemate(t *testing.T) {
	var j Judge

	// Qb6 leaves the black king with no legal move and no check.
	verdict, err := j.Apply("k7/8/8/1Q6/8/8/8/K7 w - - 0 1", nil, "b5b6")
	require.NoError(t, err)

	assert.True(t, verdict.Over)
	assert.Equal(t, ReasonStalemate, verdict.Reason)
	assert.Empty(t, verdict.Winner)
}

func TestTurn(t *testing.T) {
	var j Judge

	turn, err := j.Turn(StartingFEN, nil)
	require.NoError(t, err)
	assert.Equal(t, chess.White, turn)

	turn, err = j.Turn(StartingFEN, []string{"e2e4"})
	require.NoError(t, err)
	assert.Equal(t, chess.Black, turn)
}

func TestApplyRejectsCorruptHistory(t *testing.T) {
	var j Judge

	_, err := j.Apply(StartingFEN, []string{"e2e4", "e2e4"}, "e7e5")
	assert.Error(t, err)
}
