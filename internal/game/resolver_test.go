package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jacl-coder/RPS-Server/internal/models"
)

func TestResolve_AllPairs(t *testing.T) {
	tests := []struct {
		player   models.Move
		opponent models.Move
		outcome  models.Outcome
		points   int
	}{
		{models.MoveRock, models.MoveRock, models.OutcomeDraw, 0},
		{models.MoveRock, models.MovePaper, models.OutcomeLose, -1},
		{models.MoveRock, models.MoveScissors, models.OutcomeWin, 1},
		{models.MovePaper, models.MoveRock, models.OutcomeWin, 1},
		{models.MovePaper, models.MovePaper, models.OutcomeDraw, 0},
		{models.MovePaper, models.MoveScissors, models.OutcomeLose, -1},
		{models.MoveScissors, models.MoveRock, models.OutcomeLose, -1},
		{models.MoveScissors, models.MovePaper, models.OutcomeWin, 1},
		{models.MoveScissors, models.MoveScissors, models.OutcomeDraw, 0},
	}

	for _, tt := range tests {
		t.Run(tt.player.String()+"_vs_"+tt.opponent.String(), func(t *testing.T) {
			outcome, points := Resolve(tt.player, tt.opponent)
			assert.Equal(t, tt.outcome, outcome)
			assert.Equal(t, tt.points, points)
		})
	}
}

func TestResolve_Antisymmetric(t *testing.T) {
	for _, a := range models.Moves {
		for _, b := range models.Moves {
			ab, _ := Resolve(a, b)
			ba, _ := Resolve(b, a)

			assert.Equal(t, ab == models.OutcomeWin, ba == models.OutcomeLose, "%s/%s", a, b)
			assert.False(t, ab == models.OutcomeWin && ba == models.OutcomeWin)
			assert.Equal(t, Beats(a, b), ab == models.OutcomeWin)
		}
	}
}

func TestPointsFor(t *testing.T) {
	assert.Equal(t, 1, PointsFor(models.OutcomeWin))
	assert.Equal(t, -1, PointsFor(models.OutcomeLose))
	assert.Equal(t, 0, PointsFor(models.OutcomeDraw))
	assert.Panics(t, func() { PointsFor(models.Outcome(0)) })
}

func TestResolve_InvalidMovePanics(t *testing.T) {
	assert.Panics(t, func() { Resolve(models.Move(0), models.MoveRock) })
	assert.Panics(t, func() { Resolve(models.MoveRock, models.Move(7)) })
}

func TestRandomMoveGenerator(t *testing.T) {
	gen := RandomMoveGenerator{}
	seen := make(map[models.Move]int)
	for i := 0; i < 300; i++ {
		m := gen.Next()
		assert.True(t, m.Valid())
		seen[m]++
	}
	// 300次里每种出拳都应出现
	assert.Len(t, seen, 3)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy unavailable")
}

func TestRandomMoveGenerator_ReaderFailureFallsBack(t *testing.T) {
	gen := RandomMoveGenerator{Reader: failingReader{}}
	for i := 0; i < 20; i++ {
		assert.True(t, gen.Next().Valid())
	}
}
